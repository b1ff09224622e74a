package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mineworlds/leaderboard/internal/domain/types"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if LEADERBOARD_CONFIG is set
//  3. env (prefix LEADERBOARD_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("LEADERBOARD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: LEADERBOARD_ADDR, LEADERBOARD_MONGO_URL, ...
	// Map env keys like LEADERBOARD_WORKER_COUNT -> worker_count (flat keys).
	envProvider := env.Provider("LEADERBOARD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "leaderboard_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.MongoURL == "" {
		return fmt.Errorf("%w: mongo_url must not be empty", ErrInvalidConfig)
	}
	if c.MongoDatabase == "" {
		return fmt.Errorf("%w: mongo_database must not be empty", ErrInvalidConfig)
	}
	if c.DecimalPrecision < 0 {
		return fmt.Errorf("%w: decimal_precision must not be negative", ErrInvalidConfig)
	}
	if len(c.Timeframes) == 0 {
		return fmt.Errorf("%w: at least one timeframe is required", ErrInvalidConfig)
	}
	for _, tf := range c.Timeframes {
		if _, err := types.ParseTimeframe(tf); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ParsedTimeframes returns the configured timeframes as typed values.
// Call after Load; the names were validated there.
func (c *Config) ParsedTimeframes() []types.Timeframe {
	out := make([]types.Timeframe, 0, len(c.Timeframes))
	for _, tf := range c.Timeframes {
		parsed, err := types.ParseTimeframe(tf)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}
