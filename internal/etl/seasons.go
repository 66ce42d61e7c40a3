package etl

import (
	"context"
	"fmt"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/telemetry"
	"github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
)

// Seasons fetches a season's race calendar from the feed and logs it.
// It never touches the service, so it works before anything is loaded.
func Seasons(ctx context.Context, config *Config) ([]telemetry.RaceEvent, error) {
	log := logger.Get().Named("etl")

	feed := telemetry.NewClient(config.FeedBaseURL,
		telemetry.WithCacheDir(config.CacheDir),
	)
	schedule, err := feed.Schedule(ctx, config.Season)
	if err != nil {
		return nil, fmt.Errorf("schedule fetch failed: %w", err)
	}
	if len(schedule) == 0 {
		return nil, fmt.Errorf("no races found for season %d", config.Season)
	}

	for _, event := range schedule {
		log.Info(ctx, "race",
			logger.Int("round", event.Round),
			logger.String("name", event.Name),
			logger.String("circuit", event.CircuitName),
			logger.String("country", event.Country),
			logger.String("date", event.Date),
		)
	}
	log.Info(ctx, "season calendar",
		logger.Int("season", config.Season),
		logger.Int("races", len(schedule)),
	)
	return schedule, nil
}
