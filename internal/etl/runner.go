package etl

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/telemetry"
	"github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
	"github.com/google/uuid"
)

// Run executes a full ETL pass: fetch the season from the feed, convert
// every weekend into ingestion records, and submit them to the service.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}

	log := logger.Get().Named("etl")
	log.Info(ctx, "starting ETL run",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", config.BaseURL),
		logger.String("feed", config.FeedBaseURL),
		logger.Int("season", config.Season),
		logger.Int("workers", config.Workers),
		logger.Any("withLaps", config.WithLaps),
	)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Fetch the season schedule
	feed := telemetry.NewClient(config.FeedBaseURL,
		telemetry.WithCacheDir(config.CacheDir),
	)
	schedule, err := feed.Schedule(ctx, config.Season)
	if err != nil {
		return stats, fmt.Errorf("schedule fetch failed: %w", err)
	}
	if len(schedule) == 0 {
		return stats, fmt.Errorf("no races found for season %d", config.Season)
	}

	wanted := roundFilter(config.Rounds)

	// Step 3: Load each weekend
	for _, event := range schedule {
		if wanted != nil && !wanted[event.Round] {
			continue
		}
		if err := loadWeekend(ctx, config, feed, event, stats); err != nil {
			log.Warn(ctx, "weekend load failed, continuing",
				logger.Int("round", event.Round),
				logger.String("race", event.Name),
				logger.Error(err),
			)
		}
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "ETL run completed",
		logger.String("runID", stats.RunID),
		logger.Int("racesFetched", stats.RacesFetched),
		logger.Int("recordsBuilt", stats.RecordsBuilt),
		logger.Int("recordsSuccessful", stats.RecordsSuccessful),
		logger.Int("recordsDuplicate", stats.RecordsDuplicate),
		logger.Int("recordsFailed", stats.RecordsFailed),
		logger.String("duration", stats.Duration.String()),
	)

	return stats, nil
}

// loadWeekend fetches, converts and submits one race weekend.
func loadWeekend(ctx context.Context, config *Config, feed *telemetry.Client, event telemetry.RaceEvent, stats *Stats) error { //nolint:gocritic // hugeParam
	log := logger.Get().Named("etl")
	log.Info(ctx, "loading weekend",
		logger.Int("season", event.Season),
		logger.Int("round", event.Round),
		logger.String("race", event.Name),
	)

	quali, err := feed.Qualifying(ctx, event.Season, event.Round)
	if err != nil {
		return fmt.Errorf("qualifying: %w", err)
	}
	results, err := feed.Results(ctx, event.Season, event.Round)
	if err != nil {
		return fmt.Errorf("results: %w", err)
	}
	if len(results) == 0 {
		// Future rounds have a schedule entry but no data yet.
		log.Info(ctx, "no results yet, skipping", logger.Int("round", event.Round))
		return nil
	}

	var laps []telemetry.LapRow
	if config.WithLaps {
		laps, err = feed.Laps(ctx, event.Season, event.Round)
		if err != nil {
			return fmt.Errorf("laps: %w", err)
		}
	}
	pits, err := feed.PitStops(ctx, event.Season, event.Round)
	if err != nil {
		return fmt.Errorf("pit stops: %w", err)
	}

	records := buildRecords(event, quali, results, laps, pits)
	stats.RacesFetched++
	stats.RecordsBuilt += len(records)

	return submitRecords(ctx, config, records, stats)
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	log := logger.Get().Named("etl")
	log.Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.get(ctx, config.BaseURL+"/health")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	log.Info(ctx, "service is healthy")
	return nil
}

// roundFilter returns a set of wanted rounds, or nil for all.
func roundFilter(rounds []int) map[int]bool {
	if len(rounds) == 0 {
		return nil
	}
	wanted := make(map[int]bool, len(rounds))
	for _, r := range rounds {
		wanted[r] = true
	}
	return wanted
}
