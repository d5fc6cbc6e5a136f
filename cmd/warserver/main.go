// Command warserver runs the Cixus war backend: free-form tactical
// commands in, judged turn results out.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cixus/warsim/internal/api"
	"github.com/cixus/warsim/internal/authority"
	"github.com/cixus/warsim/internal/config"
	"github.com/cixus/warsim/internal/entropy"
	"github.com/cixus/warsim/internal/judge"
	"github.com/cixus/warsim/internal/persistence"
	"github.com/cixus/warsim/internal/session"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("CIXUS — war backend starting", "port", cfg.Port)

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Entropy ───────────────────────────────────────────────────────
	var src entropy.Source
	if pool := entropy.NewPool(cfg.RandomOrgKey); pool != nil {
		src = pool
		slog.Info("entropy source: random.org pool")
	} else {
		src = entropy.NewSeeded(time.Now().UnixNano())
		slog.Info("entropy source: seeded PRNG")
	}

	// ── Judgment oracle ───────────────────────────────────────────────
	oracle := judge.NewClient(cfg.AnthropicAPIKey, cfg.JudgeTimeout)
	if oracle.Enabled() {
		slog.Info("judgment oracle online", "timeout", cfg.JudgeTimeout)
	} else {
		slog.Warn("no oracle credentials; all turns resolve to the neutral judgment")
	}

	// ── Turn resolver ─────────────────────────────────────────────────
	bounds := authority.Bounds{Min: cfg.AuthorityMin, Max: cfg.AuthorityMax}
	resolver := session.NewResolver(db, oracle, src, bounds, cfg.JudgeTimeout)

	// ── HTTP API ──────────────────────────────────────────────────────
	server := &api.Server{
		DB:          db,
		Resolver:    resolver,
		Port:        cfg.Port,
		DailyQuota:  cfg.DailyQuota,
		TerrainSeed: cfg.TerrainSeed,
	}
	server.Start()

	// Block until shutdown signal.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
