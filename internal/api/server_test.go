package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cixus/warsim/internal/authority"
	"github.com/cixus/warsim/internal/entropy"
	"github.com/cixus/warsim/internal/judge"
	"github.com/cixus/warsim/internal/persistence"
	"github.com/cixus/warsim/internal/session"
)

func testServer(t *testing.T, oracle judge.Judge, quota int) *Server {
	t.Helper()

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	resolver := session.NewResolver(db, oracle, entropy.NewScripted(0.99), authority.DefaultBounds, time.Second)

	return &Server{
		DB:          db,
		Resolver:    resolver,
		DailyQuota:  quota,
		TerrainSeed: 42,
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func createPlayer(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/v1/players", map[string]string{"username": "commander"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func startWar(t *testing.T, h http.Handler, playerID string) string {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/v1/war/start", map[string]any{"player_id": playerID, "difficulty": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		WarID string `json:"war_id"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.WarID)
	return resp.WarID
}

func TestRootBanner(t *testing.T) {
	h := testServer(t, nil, 50).Handler()

	rec := doJSON(t, h, "GET", "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ready for War")
}

func TestPreludeEndpoint(t *testing.T) {
	h := testServer(t, nil, 50).Handler()

	rec := doJSON(t, h, "GET", "/api/v1/prelude", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Beats []struct {
			Text string `json:"text"`
		} `json:"beats"`
		Skippable bool `json:"skippable"`
	}
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Beats)
	assert.True(t, resp.Skippable)
}

func TestPlayerLifecycle(t *testing.T) {
	h := testServer(t, nil, 50).Handler()
	id := createPlayer(t, h)

	rec := doJSON(t, h, "GET", "/api/v1/players/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Username        string `json:"username"`
		AuthorityPoints int    `json:"authority_points"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "commander", resp.Username)
	assert.Equal(t, 100, resp.AuthorityPoints)

	rec = doJSON(t, h, "GET", "/api/v1/players/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePlayerValidation(t *testing.T) {
	h := testServer(t, nil, 50).Handler()

	rec := doJSON(t, h, "POST", "/api/v1/players", map[string]string{"username": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartWarUnknownPlayer(t *testing.T) {
	h := testServer(t, nil, 50).Handler()

	rec := doJSON(t, h, "POST", "/api/v1/war/start", map[string]any{"player_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommandFlow(t *testing.T) {
	oracle := judge.Static{Result: judge.Judgment{AuthorityDelta: -2, Commentary: "Timid.", Confidence: 0.7}}
	h := testServer(t, oracle, 50).Handler()

	playerID := createPlayer(t, h)
	warID := startWar(t, h, playerID)

	rec := doJSON(t, h, "POST", "/api/v1/war/"+warID+"/command",
		map[string]string{"type": "text", "content": "hold position"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome session.TurnOutcome
	decode(t, rec, &outcome)
	assert.Equal(t, 1, outcome.TurnID)
	assert.Equal(t, -2, outcome.Judgment.AuthorityDelta)
	assert.Equal(t, "Timid.", outcome.Judgment.Commentary)
	assert.Equal(t, 1, outcome.NewState.TurnCount)
	assert.False(t, outcome.GameOver)
	assert.Contains(t, outcome.SitRep, "Turn 1.")

	// New state persisted, authority applied.
	rec = doJSON(t, h, "GET", "/api/v1/war/"+warID+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		TurnCount int `json:"turn_count"`
	}
	decode(t, rec, &snap)
	assert.Equal(t, 1, snap.TurnCount)

	rec = doJSON(t, h, "GET", "/api/v1/players/"+playerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var player struct {
		AuthorityPoints int `json:"authority_points"`
	}
	decode(t, rec, &player)
	assert.Equal(t, 98, player.AuthorityPoints)

	// Ledger carries the judgment.
	rec = doJSON(t, h, "GET", "/api/v1/war/"+warID+"/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []persistence.LedgerRow
	decode(t, rec, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, -2, entries[0].Delta)
	assert.Equal(t, "Timid.", entries[0].Reason)
}

func TestCommandValidation(t *testing.T) {
	h := testServer(t, nil, 50).Handler()
	playerID := createPlayer(t, h)
	warID := startWar(t, h, playerID)

	rec := doJSON(t, h, "POST", "/api/v1/war/"+warID+"/command", map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommandUnknownWar(t *testing.T) {
	h := testServer(t, nil, 50).Handler()

	rec := doJSON(t, h, "POST", "/api/v1/war/nope/command", map[string]string{"content": "hold position"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateUnknownWar(t *testing.T) {
	h := testServer(t, nil, 50).Handler()

	rec := doJSON(t, h, "GET", "/api/v1/war/nope/state", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDailyQuotaExhaustion(t *testing.T) {
	h := testServer(t, nil, 2).Handler()
	playerID := createPlayer(t, h)
	warID := startWar(t, h, playerID)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, "POST", "/api/v1/war/"+warID+"/command",
			map[string]string{"content": "hold position"})
		require.Equal(t, http.StatusOK, rec.Code, "command %d: %s", i+1, rec.Body.String())
	}

	rec := doJSON(t, h, "POST", "/api/v1/war/"+warID+"/command",
		map[string]string{"content": "hold position"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Daily simulation limit reached (2)")
}

func TestEndedWarRejectsCommands(t *testing.T) {
	srv := testServer(t, nil, 50)
	h := srv.Handler()

	playerID := createPlayer(t, h)
	warID := startWar(t, h, playerID)

	// Force the war into its terminal state through the store.
	war, err := srv.DB.GetWar(warID)
	require.NoError(t, err)
	war.Status = session.StatusEnded
	now := time.Now().UTC()
	war.EndedAt = &now
	require.NoError(t, srv.DB.CommitTurn(session.TurnCommit{
		War:          war,
		PlayerID:     playerID,
		NewAuthority: 100,
		Ledger:       authority.Entry{ID: "ledger-end", WarID: warID, CreatedAt: now},
		Action:       session.ActionRecord{ID: "action-end", WarID: warID, RawCommand: "surrender", Outcome: "SUCCESS", CreatedAt: now},
		SitRep:       session.SitRepRecord{ID: "sitrep-end", WarID: warID, Text: "over", CreatedAt: now},
	}))

	rec := doJSON(t, h, "POST", "/api/v1/war/"+warID+"/command",
		map[string]string{"content": "hold position"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
