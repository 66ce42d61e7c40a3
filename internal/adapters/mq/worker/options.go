// Package worker defines the ingestion workers that transform queued
// records and load them into the race store.
package worker

import (
	"github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
)

// Option applies a configuration option to the LoadWorker.
type Option func(*LoadWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *LoadWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *LoadWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
