package etl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
	"github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
)

// Backoff applied when the service signals backpressure.
const backpressureDelay = 500 * time.Millisecond

// httpClient wraps http.Client with timeout.
type httpClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *httpClient {
	return &httpClient{
		client: &http.Client{Timeout: timeout},
	}
}

// get performs a GET request.
func (c *httpClient) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// post performs a POST request with a JSON body.
func (c *httpClient) post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// submitRecords submits records concurrently using a worker pool.
func submitRecords(ctx context.Context, config *Config, records []model.IngestRecord, stats *Stats) error {
	log := logger.Get().Named("etl")
	log.Info(ctx, "submitting records",
		logger.Int("records", len(records)),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/ingest"

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	recordChan := make(chan model.IngestRecord, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range recordChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleRecord(ctx, client, url, record)

					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(recordChan)
		for _, record := range records {
			select {
			case <-ctx.Done():
				return
			case recordChan <- record:
			}
		}
	}()

	wg.Wait()

	stats.RecordsSubmitted += int(atomic.LoadInt64(&submitted))
	stats.RecordsSuccessful += int(atomic.LoadInt64(&successful))
	stats.RecordsDuplicate += int(atomic.LoadInt64(&duplicate))
	stats.RecordsFailed += int(atomic.LoadInt64(&failed))

	log.Info(ctx, "record submission completed",
		logger.Int64("successful", atomic.LoadInt64(&successful)),
		logger.Int64("duplicate", atomic.LoadInt64(&duplicate)),
		logger.Int64("failed", atomic.LoadInt64(&failed)),
	)

	return nil
}

// submitSingleRecord submits a single record and returns the result.
// 429 responses back off once and retry, since the deterministic event
// IDs make a retried record safe.
func submitSingleRecord(ctx context.Context, client *httpClient, url string, record model.IngestRecord) string { //nolint:gocritic // hugeParam
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := client.post(ctx, url, record)
		if err != nil {
			return "failed"
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return "failed"
		}

		switch resp.StatusCode {
		case http.StatusAccepted:
			return "success"
		case http.StatusOK:
			var ack AckResponse
			if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
				return "duplicate"
			}
			return "duplicate"
		case http.StatusTooManyRequests:
			select {
			case <-ctx.Done():
				return "failed"
			case <-time.After(backpressureDelay):
			}
			continue
		default:
			return "failed"
		}
	}
	return "failed"
}
