// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings for the war server.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/cixus.db"`

	// Oracle. Empty key disables judgment; every turn resolves neutral.
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	JudgeTimeout    time.Duration `env:"JUDGE_TIMEOUT" envDefault:"20s"`

	// Entropy. Empty key falls back to a time-seeded PRNG.
	RandomOrgKey string `env:"RANDOM_ORG_KEY"`

	// Terrain seed for new battlefields. 0 derives from the war id.
	TerrainSeed int64 `env:"TERRAIN_SEED" envDefault:"0"`

	// Authority clamp range (see the authority package doc on the
	// "no hard max" discrepancy).
	AuthorityMin int `env:"AUTHORITY_MIN" envDefault:"0"`
	AuthorityMax int `env:"AUTHORITY_MAX" envDefault:"100"`

	// Daily request budget per client identifier.
	DailyQuota int `env:"DAILY_QUOTA" envDefault:"50"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
