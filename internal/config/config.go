// Package config loads process configuration from the environment and
// builds the process logger.
package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/gagliardetto/solana-go"
)

// DefaultInitializer is the identity allowed to initialize the supply pool
// when PRESALE_INITIALIZER is unset.
const DefaultInitializer = "69sRgm3962udozhENnTtTQUJMEHBtDQbKLUte1g9H4Hx"

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the presale process configuration.
type Config struct {
	DBPath string `env:"PRESALE_DB_PATH" envDefault:"presale.db"`

	// ProgramID is used when a genesis manifest names no program. Zero when
	// unset.
	ProgramID solana.PublicKey `env:"PRESALE_PROGRAM_ID"`

	Initializer solana.PublicKey `env:"PRESALE_INITIALIZER" envDefault:"69sRgm3962udozhENnTtTQUJMEHBtDQbKLUte1g9H4Hx"`

	LogLevel  slog.Level `env:"PRESALE_LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"PRESALE_LOG_FORMAT" envDefault:"text"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the env parser cannot.
func (c Config) Validate() error {
	switch c.LogFormat {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid PRESALE_LOG_FORMAT %q: must be %q or %q", c.LogFormat, FormatText, FormatJSON)
	}
	if c.DBPath == "" {
		return fmt.Errorf("PRESALE_DB_PATH must not be empty")
	}
	return nil
}

// Logger builds a slog.Logger writing to w in the configured format.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
