package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
)

// Delay before verification so queued records drain and the rating loop
// has had at least one stable pass.
const verifySettleDelay = 10 * time.Second

// rankingRow mirrors the ranking entry shape returned by the API.
type rankingRow struct {
	Rank       int     `json:"rank"`
	DriverCode string  `json:"driver_code"`
	Rating     float64 `json:"rating"`
	Races      int     `json:"races"`
	LastDelta  float64 `json:"last_delta"`
}

// Verify waits for the service to settle, then reads back /stats and the
// power rankings to confirm the load landed.
func Verify(ctx context.Context, config *Config, topN int) error {
	log := logger.Get().Named("etl")
	log.Info(ctx, "waiting for records to be processed")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(verifySettleDelay):
	}

	client := newHTTPClient(config.Timeout)

	// Service stats: store row counts and queue depth.
	stats, err := fetchJSON[map[string]any](ctx, client, config.BaseURL+"/stats")
	if err != nil {
		return fmt.Errorf("stats fetch failed: %w", err)
	}
	log.Info(ctx, "service stats",
		logger.Any("storeRows", stats["storeRows"]),
		logger.Any("queueLength", stats["queueLength"]),
		logger.Any("appliedRaces", stats["appliedRaces"]),
		logger.Any("rankedDrivers", stats["rankedDrivers"]),
	)

	// Power rankings after the load.
	url := fmt.Sprintf("%s/api/rankings?limit=%d", config.BaseURL, topN)
	rankings, err := fetchJSON[[]rankingRow](ctx, client, url)
	if err != nil {
		return fmt.Errorf("rankings fetch failed: %w", err)
	}
	if len(rankings) == 0 {
		return fmt.Errorf("no ranked drivers after load")
	}
	for _, entry := range rankings {
		log.Info(ctx, "ranking",
			logger.Int("rank", entry.Rank),
			logger.String("driver", entry.DriverCode),
			logger.Float64("rating", entry.Rating),
			logger.Int("races", entry.Races),
		)
	}

	log.Info(ctx, "verification completed", logger.Int("rankedDrivers", len(rankings)))
	return nil
}

// fetchJSON fetches a URL and decodes its JSON body.
func fetchJSON[T any](ctx context.Context, client *httpClient, url string) (T, error) {
	var out T
	resp, err := client.get(ctx, url)
	if err != nil {
		return out, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", url, err)
	}
	return out, nil
}
