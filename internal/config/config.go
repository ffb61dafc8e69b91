package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/alexlabrioche/modular-strategies/internal/engine"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPAddr    string   `env:"STRATEGIES_HTTP_ADDR" envDefault:":8080"`
	LogLevel    string   `env:"STRATEGIES_LOG_LEVEL" envDefault:"info"`
	LogDev      bool     `env:"STRATEGIES_LOG_DEV" envDefault:"false"`
	CORSOrigins []string `env:"STRATEGIES_CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	Store       string `env:"STRATEGIES_STORE" envDefault:"memory"`
	SQLitePath  string `env:"STRATEGIES_SQLITE_PATH" envDefault:"strategies.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	CatalogPath string `env:"STRATEGIES_CATALOG_PATH"`

	PreparationSec  int `env:"STRATEGIES_PREPARATION_SEC" envDefault:"120"`
	DrawIntervalSec int `env:"STRATEGIES_DRAW_INTERVAL_SEC" envDefault:"120"`
	MinPlayers      int `env:"STRATEGIES_MIN_PLAYERS" envDefault:"1"`
	MaxPlayers      int `env:"STRATEGIES_MAX_PLAYERS" envDefault:"8"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.MinPlayers < 1 || c.MaxPlayers < c.MinPlayers {
		return fmt.Errorf("invalid player bounds %d..%d", c.MinPlayers, c.MaxPlayers)
	}
	if !engine.ValidDuration(c.PreparationSec) || !engine.ValidDuration(c.DrawIntervalSec) {
		return fmt.Errorf("durations must be within 1..%d seconds", engine.MaxDurationSec)
	}
	return nil
}

// Settings returns the game defaults every new lobby starts from.
func (c Config) Settings() engine.Settings {
	return engine.Settings{
		PreparationSec:  c.PreparationSec,
		DrawIntervalSec: c.DrawIntervalSec,
		MinPlayers:      c.MinPlayers,
		MaxPlayers:      c.MaxPlayers,
	}
}
