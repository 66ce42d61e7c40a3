// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load() layers defaults, an optional YAML file, and environment vars.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// StoreKind selects the race store backend: "memory" or "postgres".
	StoreKind string `koanf:"store"`

	// DatabaseURL is the Postgres connection string, required when
	// StoreKind is "postgres".
	DatabaseURL string `koanf:"database_url"`

	// IngestQueueSize bounds the in-memory ingestion queue.
	IngestQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the ingestion deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxRankingLimit caps GET /api/rankings?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// MaxListLimit caps race and driver listing responses.
	MaxListLimit int `koanf:"max_list_limit"`

	// FeedBaseURL points at the Ergast-compatible timing-data API.
	FeedBaseURL string `koanf:"feed_base_url"`

	// FeedCacheDir holds cached feed responses on disk. Empty disables
	// caching.
	FeedCacheDir string `koanf:"feed_cache_dir"`

	// BaseRating and RatingKFactor parameterize the driver rating model.
	BaseRating    float64 `koanf:"base_rating"`
	RatingKFactor float64 `koanf:"rating_k_factor"`

	// ModelCoefficientsPath points at the YAML coefficient table for the
	// lap-time model. Empty falls back to built-in defaults.
	ModelCoefficientsPath string `koanf:"model_coefficients_path"`

	// SimulationRuns and SimulationMaxRuns bound Monte Carlo sample
	// counts per request.
	SimulationRuns    int `koanf:"simulation_runs"`
	SimulationMaxRuns int `koanf:"simulation_max_runs"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:          "info",
		Addr:              ":8000",
		StoreKind:         "memory",
		IngestQueueSize:   100_000,
		WorkerCount:       runtime.NumCPU() * 4,
		DedupeSize:        500_000,
		MaxRankingLimit:   100,
		MaxListLimit:      500,
		FeedBaseURL:       "https://api.jolpi.ca/ergast/f1",
		FeedCacheDir:      "feed_cache",
		BaseRating:        1500,
		RatingKFactor:     24,
		SimulationRuns:    2000,
		SimulationMaxRuns: 50_000,
	}
	return c
}
