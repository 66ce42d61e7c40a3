package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if F1_CONFIG is set
//  3. env (prefix F1_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("F1_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: F1_ADDR, F1_QUEUE_SIZE, F1_DATABASE_URL, ...
	// Map env keys like F1_QUEUE_SIZE -> queue_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("F1_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "f1_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreKind != "memory" && c.StoreKind != "postgres":
		return fmt.Errorf("%w: store must be memory or postgres, got %q", ErrInvalidConfig, c.StoreKind)
	case c.StoreKind == "postgres" && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url required for postgres store", ErrInvalidConfig)
	case c.SimulationRuns < 1:
		return fmt.Errorf("%w: simulation_runs must be positive", ErrInvalidConfig)
	case c.SimulationMaxRuns < c.SimulationRuns:
		return fmt.Errorf("%w: simulation_max_runs below simulation_runs", ErrInvalidConfig)
	case c.RatingKFactor <= 0:
		return fmt.Errorf("%w: rating_k_factor must be positive", ErrInvalidConfig)
	}
	return nil
}
