// Package api provides the HTTP surface of the war backend: player and
// war lifecycle, command submission, and the prelude content endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cixus/warsim/internal/engine"
	"github.com/cixus/warsim/internal/persistence"
	"github.com/cixus/warsim/internal/prelude"
	"github.com/cixus/warsim/internal/session"
)

// Server serves the war API.
type Server struct {
	DB          *persistence.DB
	Resolver    *session.Resolver
	Port        int
	DailyQuota  int   // per-identifier daily command budget
	TerrainSeed int64 // 0 derives the seed from the war id

	httpServer *http.Server
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	// Short-window burst limiter in front of the persistent daily quota:
	// the quota protects the oracle budget, the limiter protects the lock.
	burst := NewRateLimiter(20, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /api/v1/prelude", s.handlePrelude)

	mux.HandleFunc("POST /api/v1/players", s.handleCreatePlayer)
	mux.HandleFunc("GET /api/v1/players/{player_id}", s.handleGetPlayer)

	mux.HandleFunc("POST /api/v1/war/start", s.handleStartWar)
	mux.HandleFunc("POST /api/v1/war/{war_id}/command",
		RateLimitMiddleware(burst, s.quotaGate(s.handleCommand)))
	mux.HandleFunc("GET /api/v1/war/{war_id}/state", s.handleState)
	mux.HandleFunc("GET /api/v1/war/{war_id}/ledger", s.handleLedger)

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}

	slog.Info("HTTP API starting", "addr", addr, "daily_quota", s.DailyQuota)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{
		"message": "Cixus war backend online",
		"status":  "Ready for War",
	})
}

func (s *Server) handlePrelude(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, prelude.Default())
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		http.Error(w, "username required", http.StatusBadRequest)
		return
	}

	player := &session.Player{
		ID:              uuid.NewString(),
		Username:        strings.TrimSpace(req.Username),
		AuthorityLevel:  1,
		AuthorityPoints: 100,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.DB.CreatePlayer(player); err != nil {
		slog.Error("create player failed", "error", err)
		http.Error(w, "could not create player", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"id":               player.ID,
		"username":         player.Username,
		"authority_level":  player.AuthorityLevel,
		"authority_points": player.AuthorityPoints,
	})
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.DB.GetPlayer(r.PathValue("player_id"))
	if errors.Is(err, session.ErrPlayerNotFound) {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("get player failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"id":               player.ID,
		"username":         player.Username,
		"authority_level":  player.AuthorityLevel,
		"authority_points": player.AuthorityPoints,
		"reputation":       player.Reputation,
	})
}

func (s *Server) handleStartWar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID   string `json:"player_id"`
		Difficulty int    `json:"difficulty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		http.Error(w, "player_id required", http.StatusBadRequest)
		return
	}
	if req.Difficulty < 1 {
		req.Difficulty = 1
	}

	if _, err := s.DB.GetPlayer(req.PlayerID); err != nil {
		if errors.Is(err, session.ErrPlayerNotFound) {
			http.Error(w, "player not found", http.StatusNotFound)
			return
		}
		slog.Error("get player failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	warID := uuid.NewString()
	snapshot := initialSnapshot(s.terrainSeedFor(warID))

	war := &session.WarSession{
		ID:        warID,
		PlayerID:  req.PlayerID,
		Status:    session.StatusActive,
		Snapshot:  snapshot,
		StartedAt: time.Now().UTC(),
	}
	general := &session.General{
		ID:             uuid.NewString(),
		WarID:          warID,
		Name:           "General Kael",
		Traits:         traitsForDifficulty(req.Difficulty),
		DifficultyTier: req.Difficulty,
		Status:         engine.GeneralAlive,
	}

	if err := s.DB.CreateWar(war, general); err != nil {
		slog.Error("create war failed", "error", err)
		http.Error(w, "could not start war", http.StatusInternalServerError)
		return
	}

	slog.Info("war started", "war_id", warID, "player_id", req.PlayerID, "difficulty", req.Difficulty)

	writeJSON(w, map[string]any{
		"war_id":        warID,
		"initial_state": snapshot,
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	warID := r.PathValue("war_id")

	var req struct {
		Type    string `json:"type"` // "text" or "preset"
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		http.Error(w, "command content required", http.StatusBadRequest)
		return
	}

	outcome, err := s.Resolver.ResolveCommand(r.Context(), warID, req.Content)
	if err != nil {
		s.writeResolveError(w, warID, err)
		return
	}

	writeJSON(w, outcome)
}

func (s *Server) writeResolveError(w http.ResponseWriter, warID string, err error) {
	switch {
	case errors.Is(err, session.ErrWarNotFound):
		http.Error(w, "war not found", http.StatusNotFound)
	case errors.Is(err, session.ErrPlayerNotFound):
		http.Error(w, "player not found", http.StatusNotFound)
	case errors.Is(err, session.ErrSessionBusy):
		http.Error(w, "another command is in flight for this war, retry", http.StatusConflict)
	case errors.Is(err, session.ErrWarEnded):
		http.Error(w, "this war has ended", http.StatusConflict)
	case errors.Is(err, session.ErrMalformedSnapshot):
		slog.Error("malformed snapshot, session inert", "war_id", warID, "error", err)
		http.Error(w, "session state corrupted", http.StatusInternalServerError)
	default:
		slog.Error("command failed", "war_id", warID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	war, err := s.DB.GetWar(r.PathValue("war_id"))
	if errors.Is(err, session.ErrWarNotFound) {
		http.Error(w, "war not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("get war failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, war.Snapshot)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := s.DB.LedgerEntries(r.PathValue("war_id"), 20)
	if err != nil {
		slog.Error("ledger query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

// quotaGate enforces the persistent daily request budget per client
// identifier before any command runs.
func (s *Server) quotaGate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := s.DailyQuota
		if limit <= 0 {
			limit = 50
		}
		ok, err := s.DB.ConsumeQuota(clientIP(r), time.Now(), limit)
		if err != nil {
			slog.Error("quota check failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w,
				fmt.Sprintf("Daily simulation limit reached (%d). Come back tomorrow, Commander.", limit),
				http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (s *Server) terrainSeedFor(warID string) int64 {
	if s.TerrainSeed != 0 {
		return s.TerrainSeed
	}
	var seed int64
	for _, b := range []byte(warID) {
		seed = seed*31 + int64(b)
	}
	return seed
}

// initialSnapshot builds the opening battlefield: the player's lead
// infantry at the origin, the enemy armor in the far corner.
func initialSnapshot(terrainSeed int64) engine.BattlefieldSnapshot {
	return engine.BattlefieldSnapshot{
		TurnCount: 0,
		PlayerUnits: []engine.UnitState{
			{
				ID:        "unit_alpha",
				Type:      "INFANTRY",
				Health:    100,
				Position:  engine.Position{X: 0, Z: 0},
				Status:    engine.UnitActive,
				Obedience: 1.0,
				Morale:    80,
			},
		},
		EnemyUnits: []engine.UnitState{
			{
				ID:        "enemy_beta",
				Type:      "TANK",
				Health:    200,
				Position:  engine.Position{X: 100, Z: 100},
				Status:    engine.UnitActive,
				Obedience: 1.0,
				Morale:    90,
			},
		},
		GeneralStatus:    engine.GeneralAlive,
		TerrainModifiers: engine.GenerateTerrain(terrainSeed),
		GridSize:         engine.DefaultGridSize,
		VisibleSectors:   engine.AllSectors(),
	}
}

func traitsForDifficulty(tier int) []string {
	traits := []string{"Aggressive"}
	if tier >= 2 {
		traits = append(traits, "Observant")
	}
	if tier >= 3 {
		traits = append(traits, "Ruthless")
	}
	return traits
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:3000": true,
		"http://localhost:5173": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
