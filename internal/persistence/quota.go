package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ConsumeQuota atomically increments the daily request counter for an
// identifier (client IP or player id) and reports whether the request is
// within the daily budget. The counter rolls over at UTC midnight.
func (db *DB) ConsumeQuota(identifier string, now time.Time, limit int) (bool, error) {
	day := now.UTC().Format("2006-01-02")

	tx, err := db.conn.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var count int
	err = tx.Get(&count, `SELECT request_count FROM usage_quotas WHERE identifier = ? AND day = ?`, identifier, day)
	if errors.Is(err, sql.ErrNoRows) {
		// No row yet for today: first request.
		if _, err := tx.Exec(
			`INSERT INTO usage_quotas (identifier, day, request_count, last_request) VALUES (?, ?, 1, ?)`,
			identifier, day, formatTime(now),
		); err != nil {
			return false, fmt.Errorf("insert quota: %w", err)
		}
		return true, tx.Commit()
	}
	if err != nil {
		return false, fmt.Errorf("get quota: %w", err)
	}

	if count >= limit {
		return false, nil
	}

	if _, err := tx.Exec(
		`UPDATE usage_quotas SET request_count = request_count + 1, last_request = ? WHERE identifier = ? AND day = ?`,
		formatTime(now), identifier, day,
	); err != nil {
		return false, fmt.Errorf("update quota: %w", err)
	}

	return true, tx.Commit()
}
