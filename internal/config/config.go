package config

import (
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath           string        `env:"DB_PATH" envDefault:"data/triviaboard.db"`
	DataDir          string        `env:"DATA_DIR" envDefault:"data"`
	MediaDir         string        `env:"MEDIA_DIR" envDefault:"data/media"`
	SPADir           string        `env:"SPA_DIR" envDefault:"../web/dist"`
	LogLevel         slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	Passcode         string        `env:"PASSCODE" envDefault:"1234"`
	SaveCheckEvery   time.Duration `env:"SAVE_CHECK_INTERVAL" envDefault:"2m"`
	SaveMinInterval  time.Duration `env:"SAVE_MIN_INTERVAL" envDefault:"20m"`
	RecentGamesLimit int           `env:"RECENT_GAMES_LIMIT" envDefault:"5"`
	SeedDemo         bool          `env:"SEED_DEMO" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := ValidatePasscode(cfg.Passcode); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidatePasscode enforces the 4-digit passcode format.
func ValidatePasscode(code string) error {
	if len(code) != 4 {
		return fmt.Errorf("passcode must be exactly 4 digits")
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("passcode must be exactly 4 digits")
		}
	}
	return nil
}
