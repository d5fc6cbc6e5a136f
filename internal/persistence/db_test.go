package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cixus/warsim/internal/authority"
	"github.com/cixus/warsim/internal/engine"
	"github.com/cixus/warsim/internal/judge"
	"github.com/cixus/warsim/internal/session"
	"github.com/cixus/warsim/internal/sitrep"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPlayer(t *testing.T, db *DB) *session.Player {
	t.Helper()
	p := &session.Player{
		ID:              "player-1",
		Username:        "commander",
		AuthorityLevel:  1,
		AuthorityPoints: 100,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, db.CreatePlayer(p))
	return p
}

func seedWar(t *testing.T, db *DB, playerID string) *session.WarSession {
	t.Helper()
	war := &session.WarSession{
		ID:       "war-1",
		PlayerID: playerID,
		Status:   session.StatusActive,
		Snapshot: engine.BattlefieldSnapshot{
			TurnCount: 0,
			PlayerUnits: []engine.UnitState{
				{ID: "unit_alpha", Type: "INFANTRY", Health: 100, Status: engine.UnitActive, Obedience: 1, Morale: 80},
			},
			EnemyUnits: []engine.UnitState{
				{ID: "enemy_beta", Type: "TANK", Health: 200, Position: engine.Position{X: 100, Z: 100}, Status: engine.UnitActive, Obedience: 1, Morale: 90},
			},
			GeneralStatus: engine.GeneralAlive,
			GridSize:      engine.DefaultGridSize,
		},
		StartedAt: time.Now().UTC(),
	}
	general := &session.General{
		ID:             "gen-1",
		WarID:          war.ID,
		Name:           "General Kael",
		Traits:         []string{"Aggressive", "Observant", "Ruthless"},
		DifficultyTier: 1,
		Status:         engine.GeneralAlive,
	}
	require.NoError(t, db.CreateWar(war, general))
	return war
}

func TestPlayerRoundTrip(t *testing.T) {
	db := testDB(t)
	seedPlayer(t, db)

	got, err := db.GetPlayer("player-1")
	require.NoError(t, err)
	assert.Equal(t, "commander", got.Username)
	assert.Equal(t, 100, got.AuthorityPoints)
	assert.Equal(t, 1, got.AuthorityLevel)
	assert.NotNil(t, got.Reputation)
}

func TestGetPlayerNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetPlayer("ghost")
	assert.ErrorIs(t, err, session.ErrPlayerNotFound)
}

func TestCreatePlayerDuplicateUsername(t *testing.T) {
	db := testDB(t)
	seedPlayer(t, db)

	err := db.CreatePlayer(&session.Player{ID: "player-2", Username: "commander"})
	assert.Error(t, err)
}

func TestWarRoundTrip(t *testing.T) {
	db := testDB(t)
	p := seedPlayer(t, db)
	war := seedWar(t, db, p.ID)

	got, err := db.GetWar(war.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, got.Status)
	assert.Equal(t, 0, got.TurnCount)
	assert.Equal(t, war.Snapshot, got.Snapshot)
	assert.Nil(t, got.EndedAt)

	general, err := db.GetGeneral(war.ID)
	require.NoError(t, err)
	assert.Equal(t, "General Kael", general.Name)
	assert.Equal(t, []string{"Aggressive", "Observant", "Ruthless"}, general.Traits)
	assert.Equal(t, engine.GeneralAlive, general.Status)
}

func TestGetWarNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetWar("ghost")
	assert.ErrorIs(t, err, session.ErrWarNotFound)
}

func TestGetWarMalformedSnapshot(t *testing.T) {
	db := testDB(t)
	p := seedPlayer(t, db)
	war := seedWar(t, db, p.ID)

	_, err := db.conn.Exec(`UPDATE war_sessions SET snapshot_json = 'not json' WHERE id = ?`, war.ID)
	require.NoError(t, err)

	_, err = db.GetWar(war.ID)
	assert.ErrorIs(t, err, session.ErrMalformedSnapshot)
}

func TestCommitTurnRoundTrip(t *testing.T) {
	db := testDB(t)
	p := seedPlayer(t, db)
	war := seedWar(t, db, p.ID)

	now := time.Now().UTC()
	war.TurnCount = 1
	war.Snapshot.TurnCount = 1
	war.LastCommandAt = &now

	report := sitrep.Build(war.ID, nil, war.Snapshot, []string{"unit_alpha holding position"}, 100)
	verdict := judge.Judgment{AuthorityDelta: 10, Commentary: "Discipline holds.", Confidence: 0.8}

	commit := session.TurnCommit{
		War:          war,
		PlayerID:     p.ID,
		NewAuthority: 100,
		Ledger: authority.Entry{
			ID:        "ledger-1",
			WarID:     war.ID,
			TurnID:    1,
			Delta:     10,
			Reason:    verdict.Commentary,
			Context:   authority.Context{Report: report, Judgment: verdict},
			CreatedAt: now,
		},
		Action: session.ActionRecord{
			ID:         "action-1",
			WarID:      war.ID,
			RawCommand: "hold position",
			Outcome:    "SUCCESS",
			Judgment:   verdict,
			CreatedAt:  now,
		},
		SitRep: session.SitRepRecord{
			ID:         "sitrep-1",
			WarID:      war.ID,
			TurnID:     1,
			Text:       report.Summary(),
			Structured: report,
			CreatedAt:  now,
		},
	}
	require.NoError(t, db.CommitTurn(commit))

	gotWar, err := db.GetWar(war.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotWar.TurnCount)
	assert.Equal(t, 1, gotWar.Snapshot.TurnCount)
	require.NotNil(t, gotWar.LastCommandAt)

	gotPlayer, err := db.GetPlayer(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, gotPlayer.AuthorityPoints)

	rows, err := db.LedgerEntries(war.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].Delta)
	assert.Equal(t, "Discipline holds.", rows[0].Reason)
	assert.Equal(t, 1, rows[0].TurnID)
}

func TestCommitTurnUnknownWar(t *testing.T) {
	db := testDB(t)
	p := seedPlayer(t, db)

	commit := session.TurnCommit{
		War:      &session.WarSession{ID: "ghost", Status: session.StatusActive},
		PlayerID: p.ID,
	}
	err := db.CommitTurn(commit)
	assert.ErrorIs(t, err, session.ErrWarNotFound)
}

func TestCommitTurnMarksGeneralDead(t *testing.T) {
	db := testDB(t)
	p := seedPlayer(t, db)
	war := seedWar(t, db, p.ID)

	war.Snapshot.GeneralStatus = engine.GeneralDead
	war.Status = session.StatusEnded
	now := time.Now().UTC()
	war.EndedAt = &now

	commit := session.TurnCommit{
		War:          war,
		PlayerID:     p.ID,
		NewAuthority: 100,
		Ledger:       authority.Entry{ID: "ledger-1", WarID: war.ID, TurnID: 1, CreatedAt: now},
		Action:       session.ActionRecord{ID: "action-1", WarID: war.ID, RawCommand: "assault", Outcome: "SUCCESS", CreatedAt: now},
		SitRep:       session.SitRepRecord{ID: "sitrep-1", WarID: war.ID, TurnID: 1, Text: "over", CreatedAt: now},
	}
	require.NoError(t, db.CommitTurn(commit))

	general, err := db.GetGeneral(war.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.GeneralDead, general.Status)

	gotWar, err := db.GetWar(war.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusEnded, gotWar.Status)
	require.NotNil(t, gotWar.EndedAt)
}

func TestConsumeQuota(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ok, err := db.ConsumeQuota("1.2.3.4", now, 3)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}

	ok, err := db.ConsumeQuota("1.2.3.4", now, 3)
	require.NoError(t, err)
	assert.False(t, ok, "fourth request exceeds the budget")

	// Another identifier has its own counter.
	ok, err = db.ConsumeQuota("5.6.7.8", now, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// The counter rolls over at UTC midnight.
	ok, err = db.ConsumeQuota("1.2.3.4", now.Add(24*time.Hour), 3)
	require.NoError(t, err)
	assert.True(t, ok)
}
