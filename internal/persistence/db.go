// Package persistence provides SQLite-backed storage for players, wars,
// and the append-only turn logs. The turn commit is transactional: either
// the whole TurnResult plus ledger entry lands or none of it does.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cixus/warsim/internal/engine"
	"github.com/cixus/warsim/internal/session"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		authority_level INTEGER NOT NULL DEFAULT 1,
		authority_points INTEGER NOT NULL DEFAULT 100,
		reputation_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS war_sessions (
		id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL REFERENCES players(id),
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		turn_count INTEGER NOT NULL DEFAULT 0,
		snapshot_json TEXT NOT NULL,
		history_summary TEXT NOT NULL DEFAULT '',
		last_regen_at TEXT,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		last_command_at TEXT
	);

	CREATE TABLE IF NOT EXISTS generals (
		id TEXT PRIMARY KEY,
		war_id TEXT NOT NULL REFERENCES war_sessions(id),
		name TEXT NOT NULL,
		traits_json TEXT NOT NULL DEFAULT '[]',
		difficulty_tier INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL DEFAULT 'ALIVE'
	);

	CREATE TABLE IF NOT EXISTS authority_logs (
		id TEXT PRIMARY KEY,
		war_id TEXT NOT NULL,
		turn_id INTEGER NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT,
		context_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS action_logs (
		id TEXT PRIMARY KEY,
		war_id TEXT NOT NULL,
		raw_command TEXT NOT NULL,
		parsed_json TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT 'PENDING',
		state_delta_json TEXT,
		judgment_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sitrep_logs (
		id TEXT PRIMARY KEY,
		war_id TEXT NOT NULL,
		turn_id INTEGER NOT NULL,
		text_content TEXT NOT NULL,
		structured_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS usage_quotas (
		identifier TEXT NOT NULL,
		day TEXT NOT NULL,
		request_count INTEGER NOT NULL DEFAULT 0,
		last_request TEXT NOT NULL,
		PRIMARY KEY (identifier, day)
	);

	CREATE INDEX IF NOT EXISTS idx_wars_player ON war_sessions(player_id);
	CREATE INDEX IF NOT EXISTS idx_authority_war ON authority_logs(war_id);
	CREATE INDEX IF NOT EXISTS idx_actions_war ON action_logs(war_id);
	CREATE INDEX IF NOT EXISTS idx_sitreps_war ON sitrep_logs(war_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreatePlayer inserts a new player with default authority.
func (db *DB) CreatePlayer(p *session.Player) error {
	repJSON, _ := json.Marshal(orEmptyMap(p.Reputation))
	_, err := db.conn.Exec(
		`INSERT INTO players (id, username, authority_level, authority_points, reputation_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Username, p.AuthorityLevel, p.AuthorityPoints, string(repJSON), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// GetPlayer loads a player by id.
func (db *DB) GetPlayer(id string) (*session.Player, error) {
	var row struct {
		ID              string `db:"id"`
		Username        string `db:"username"`
		AuthorityLevel  int    `db:"authority_level"`
		AuthorityPoints int    `db:"authority_points"`
		ReputationJSON  string `db:"reputation_json"`
		CreatedAt       string `db:"created_at"`
	}
	err := db.conn.Get(&row, `SELECT id, username, authority_level, authority_points, reputation_json, created_at
		FROM players WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}

	p := &session.Player{
		ID:              row.ID,
		Username:        row.Username,
		AuthorityLevel:  row.AuthorityLevel,
		AuthorityPoints: row.AuthorityPoints,
		CreatedAt:       parseTime(row.CreatedAt),
	}
	if err := json.Unmarshal([]byte(row.ReputationJSON), &p.Reputation); err != nil {
		p.Reputation = map[string]float64{}
	}
	return p, nil
}

// CreateWar inserts a war session and its enemy general in one
// transaction.
func (db *DB) CreateWar(war *session.WarSession, general *session.General) error {
	snapJSON, err := json.Marshal(war.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	traitsJSON, _ := json.Marshal(general.Traits)

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO war_sessions (id, player_id, status, turn_count, snapshot_json, history_summary, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		war.ID, war.PlayerID, war.Status, war.TurnCount, string(snapJSON), war.HistorySummary, formatTime(war.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert war: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO generals (id, war_id, name, traits_json, difficulty_tier, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		general.ID, general.WarID, general.Name, string(traitsJSON), general.DifficultyTier, string(general.Status),
	)
	if err != nil {
		return fmt.Errorf("insert general: %w", err)
	}

	return tx.Commit()
}

// GetWar loads a war session. A snapshot that fails to parse surfaces
// ErrMalformedSnapshot: the session goes inert instead of silently
// producing a corrupted next state.
func (db *DB) GetWar(id string) (*session.WarSession, error) {
	var row struct {
		ID             string  `db:"id"`
		PlayerID       string  `db:"player_id"`
		Status         string  `db:"status"`
		TurnCount      int     `db:"turn_count"`
		SnapshotJSON   string  `db:"snapshot_json"`
		HistorySummary string  `db:"history_summary"`
		LastRegenAt    *string `db:"last_regen_at"`
		StartedAt      string  `db:"started_at"`
		EndedAt        *string `db:"ended_at"`
		LastCommandAt  *string `db:"last_command_at"`
	}
	err := db.conn.Get(&row, `SELECT id, player_id, status, turn_count, snapshot_json, history_summary,
		last_regen_at, started_at, ended_at, last_command_at
		FROM war_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrWarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get war: %w", err)
	}

	war := &session.WarSession{
		ID:             row.ID,
		PlayerID:       row.PlayerID,
		Status:         row.Status,
		TurnCount:      row.TurnCount,
		HistorySummary: row.HistorySummary,
		LastRegenAt:    parseTimePtr(row.LastRegenAt),
		StartedAt:      parseTime(row.StartedAt),
		EndedAt:        parseTimePtr(row.EndedAt),
		LastCommandAt:  parseTimePtr(row.LastCommandAt),
	}
	if err := json.Unmarshal([]byte(row.SnapshotJSON), &war.Snapshot); err != nil {
		return nil, fmt.Errorf("%w: war %s: %v", session.ErrMalformedSnapshot, id, err)
	}
	return war, nil
}

// GetGeneral loads the enemy general for a war.
func (db *DB) GetGeneral(warID string) (*session.General, error) {
	var row struct {
		ID             string `db:"id"`
		WarID          string `db:"war_id"`
		Name           string `db:"name"`
		TraitsJSON     string `db:"traits_json"`
		DifficultyTier int    `db:"difficulty_tier"`
		Status         string `db:"status"`
	}
	err := db.conn.Get(&row, `SELECT id, war_id, name, traits_json, difficulty_tier, status
		FROM generals WHERE war_id = ?`, warID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrWarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get general: %w", err)
	}

	g := &session.General{
		ID:             row.ID,
		WarID:          row.WarID,
		Name:           row.Name,
		DifficultyTier: row.DifficultyTier,
		Status:         engine.GeneralStatus(row.Status),
	}
	if err := json.Unmarshal([]byte(row.TraitsJSON), &g.Traits); err != nil {
		g.Traits = nil
	}
	return g, nil
}

// CommitTurn writes the whole outcome of one turn in a single
// transaction: the new snapshot, the player's new authority, and the
// three append-only logs.
func (db *DB) CommitTurn(commit session.TurnCommit) error {
	war := commit.War

	snapJSON, err := json.Marshal(war.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	contextJSON, _ := json.Marshal(commit.Ledger.Context)
	parsedJSON, _ := json.Marshal(commit.Action.Intent)
	deltaJSON, _ := json.Marshal(commit.Action.StateDelta)
	judgmentJSON, _ := json.Marshal(commit.Action.Judgment)
	structuredJSON, _ := json.Marshal(commit.SitRep.Structured)

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE war_sessions SET status = ?, turn_count = ?, snapshot_json = ?, ended_at = ?, last_command_at = ?
		 WHERE id = ?`,
		war.Status, war.TurnCount, string(snapJSON), formatTimePtr(war.EndedAt), formatTimePtr(war.LastCommandAt), war.ID,
	)
	if err != nil {
		return fmt.Errorf("update war: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrWarNotFound
	}

	if _, err := tx.Exec(
		`UPDATE players SET authority_points = ? WHERE id = ?`,
		commit.NewAuthority, commit.PlayerID,
	); err != nil {
		return fmt.Errorf("update authority: %w", err)
	}

	if war.Snapshot.GeneralStatus == engine.GeneralDead {
		if _, err := tx.Exec(
			`UPDATE generals SET status = ? WHERE war_id = ?`,
			string(engine.GeneralDead), war.ID,
		); err != nil {
			return fmt.Errorf("update general: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO authority_logs (id, war_id, turn_id, delta, reason, context_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		commit.Ledger.ID, commit.Ledger.WarID, commit.Ledger.TurnID, commit.Ledger.Delta,
		commit.Ledger.Reason, string(contextJSON), formatTime(commit.Ledger.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert authority log: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO action_logs (id, war_id, raw_command, parsed_json, outcome, state_delta_json, judgment_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		commit.Action.ID, commit.Action.WarID, commit.Action.RawCommand, string(parsedJSON),
		commit.Action.Outcome, string(deltaJSON), string(judgmentJSON), formatTime(commit.Action.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert action log: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO sitrep_logs (id, war_id, turn_id, text_content, structured_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		commit.SitRep.ID, commit.SitRep.WarID, commit.SitRep.TurnID, commit.SitRep.Text,
		string(structuredJSON), formatTime(commit.SitRep.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert sitrep log: %w", err)
	}

	return tx.Commit()
}

// LedgerEntries returns the most recent authority ledger rows for a war,
// newest first.
func (db *DB) LedgerEntries(warID string, limit int) ([]LedgerRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows := []LedgerRow{}
	err := db.conn.Select(&rows, `SELECT id, war_id, turn_id, delta, reason, created_at
		FROM authority_logs WHERE war_id = ? ORDER BY turn_id DESC LIMIT ?`, warID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	return rows, nil
}

// LedgerRow is a thin projection of an authority log row.
type LedgerRow struct {
	ID        string `db:"id" json:"id"`
	WarID     string `db:"war_id" json:"war_id"`
	TurnID    int    `db:"turn_id" json:"turn_id"`
	Delta     int    `db:"delta" json:"delta"`
	Reason    string `db:"reason" json:"reason"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

func orEmptyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := parseTime(*s)
	return &t
}
