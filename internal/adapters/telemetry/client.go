// Package telemetry fetches historical session data from an
// Ergast-compatible timing feed.
//
// Responses are cached on disk as raw JSON so repeated ETL runs do not
// hammer the upstream API. The client honors Retry-After on 429 and
// retries transient server errors.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
)

// Client configuration constants.
const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	defaultPageLimit  = 100

	cacheDirPermission  = 0750
	cacheFilePermission = 0600
)

// Client fetches session data from the timing feed.
type Client struct {
	baseURL    string
	cacheDir   string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	pageLimit  int

	logger logger.Logger
}

// NewClient creates a feed client with configuration options.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		pageLimit:  defaultPageLimit,
		logger:     logger.Get().Named("telemetry"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Schedule returns the race calendar for a season.
func (c *Client) Schedule(ctx context.Context, season int) ([]RaceEvent, error) {
	env, err := c.fetch(ctx, fmt.Sprintf("%d.json", season), 0)
	if err != nil {
		return nil, err
	}

	events := make([]RaceEvent, 0, len(env.MRData.RaceTable.Races))
	for _, race := range env.MRData.RaceTable.Races {
		events = append(events, RaceEvent{
			Season:      atoi(race.Season),
			Round:       atoi(race.Round),
			Name:        race.RaceName,
			Date:        race.Date,
			CircuitKey:  race.Circuit.CircuitID,
			CircuitName: race.Circuit.Name,
			Location:    race.Circuit.Location.Locality,
			Country:     race.Circuit.Location.Country,
		})
	}
	return events, nil
}

// Qualifying returns the qualifying classification for one round.
func (c *Client) Qualifying(ctx context.Context, season, round int) ([]QualifyingRow, error) {
	env, err := c.fetch(ctx, fmt.Sprintf("%d/%d/qualifying.json", season, round), 0)
	if err != nil {
		return nil, err
	}

	var rows []QualifyingRow
	for _, race := range env.MRData.RaceTable.Races {
		for _, q := range race.QualifyingResults {
			rows = append(rows, QualifyingRow{
				Position:     atoi(q.Position),
				DriverRef:    q.Driver.DriverID,
				DriverCode:   driverCode(q.Driver),
				DriverNumber: atoi(q.Driver.PermanentNumber),
				FirstName:    q.Driver.GivenName,
				LastName:     q.Driver.FamilyName,
				Nationality:  q.Driver.Nationality,
				Q1:           lapSeconds(q.Q1),
				Q2:           lapSeconds(q.Q2),
				Q3:           lapSeconds(q.Q3),
			})
		}
	}
	return rows, nil
}

// Results returns the race classification for one round.
func (c *Client) Results(ctx context.Context, season, round int) ([]ResultRow, error) {
	env, err := c.fetch(ctx, fmt.Sprintf("%d/%d/results.json", season, round), 0)
	if err != nil {
		return nil, err
	}

	var rows []ResultRow
	for _, race := range env.MRData.RaceTable.Races {
		for _, r := range race.Results {
			row := ResultRow{
				DriverRef:     r.Driver.DriverID,
				DriverCode:    driverCode(r.Driver),
				DriverNumber:  atoi(r.Driver.PermanentNumber),
				FirstName:     r.Driver.GivenName,
				LastName:      r.Driver.FamilyName,
				Nationality:   r.Driver.Nationality,
				TeamKey:       r.Constructor.ConstructorID,
				TeamName:      r.Constructor.Name,
				GridPosition:  atoi(r.Grid),
				FinalPosition: atoi(r.Position),
				Points:        atof(r.Points),
				Status:        r.Status,
			}
			if r.FastestLap != nil {
				row.FastestLap = r.FastestLap.Rank == "1"
				row.FastestLapTime = lapSeconds(r.FastestLap.Time.Time)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Laps returns every timed lap for one round. The feed paginates lap
// timings, so this walks pages until the reported total is covered.
func (c *Client) Laps(ctx context.Context, season, round int) ([]LapRow, error) {
	var rows []LapRow
	offset := 0
	for {
		env, err := c.fetch(ctx, fmt.Sprintf("%d/%d/laps.json", season, round), offset)
		if err != nil {
			return nil, err
		}

		count := 0
		for _, race := range env.MRData.RaceTable.Races {
			for _, lap := range race.Laps {
				for _, timing := range lap.Timings {
					rows = append(rows, LapRow{
						DriverRef: timing.DriverID,
						Lap:       atoi(lap.Number),
						Seconds:   lapSeconds(timing.Time),
					})
					count++
				}
			}
		}

		offset += c.pageLimit
		if count == 0 || offset >= atoi(env.MRData.Total) {
			return rows, nil
		}
	}
}

// PitStops returns every pit stop for one round.
func (c *Client) PitStops(ctx context.Context, season, round int) ([]PitStopRow, error) {
	env, err := c.fetch(ctx, fmt.Sprintf("%d/%d/pitstops.json", season, round), 0)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Pit stop data does not exist for older seasons.
			return nil, nil
		}
		return nil, err
	}

	var rows []PitStopRow
	for _, race := range env.MRData.RaceTable.Races {
		for _, stop := range race.PitStops {
			rows = append(rows, PitStopRow{
				DriverRef: stop.DriverID,
				Lap:       atoi(stop.Lap),
				Duration:  atof(stop.Duration),
			})
		}
	}
	return rows, nil
}

// fetch retrieves one feed page, serving from the on-disk cache when
// possible and writing through on success. The limit parameter goes on
// every request, offset 0 included; pagination assumes pages are exactly
// pageLimit rows, so the feed's own default page size must never apply.
func (c *Client) fetch(ctx context.Context, path string, offset int) (*feedEnvelope, error) {
	url := fmt.Sprintf("%s/%s?limit=%d", c.baseURL, path, c.pageLimit)
	cacheKey := path
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
		cacheKey = fmt.Sprintf("%s.%d", path, offset)
	}

	if body, ok := c.readCache(cacheKey); ok {
		return decodeEnvelope(body)
	}

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	c.writeCache(ctx, cacheKey, body)
	return env, nil
}

// get performs the HTTP request with retry on 429 and 5xx.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		case resp.StatusCode == http.StatusTooManyRequests:
			if delay := retryAfter(resp); delay > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
			}
			lastErr = fmt.Errorf("%w: %s", ErrRateLimited, url)
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("%w: status %d from %s", ErrFeedUnavailable, resp.StatusCode, url)
		default:
			return nil, fmt.Errorf("%w: status %d from %s", ErrFeedUnavailable, resp.StatusCode, url)
		}

		c.logger.Warn(ctx, "feed request failed, retrying",
			logger.String("url", url),
			logger.Int("attempt", attempt+1),
			logger.Error(lastErr),
		)
	}

	return nil, fmt.Errorf("feed request exhausted retries: %w", lastErr)
}

func (c *Client) readCache(key string) ([]byte, bool) {
	if c.cacheDir == "" {
		return nil, false
	}
	body, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return nil, false
	}
	return body, true
}

func (c *Client) writeCache(ctx context.Context, key string, body []byte) {
	if c.cacheDir == "" {
		return
	}
	path := c.cachePath(key)
	if err := os.MkdirAll(filepath.Dir(path), cacheDirPermission); err != nil {
		c.logger.Warn(ctx, "cache directory creation failed", logger.Error(err))
		return
	}
	if err := os.WriteFile(path, body, cacheFilePermission); err != nil {
		c.logger.Warn(ctx, "cache write failed", logger.String("path", path), logger.Error(err))
	}
}

func (c *Client) cachePath(key string) string {
	safe := strings.NewReplacer("/", "_", "?", "_", "&", "_", "=", "_").Replace(key)
	return filepath.Join(c.cacheDir, safe)
}

func decodeEnvelope(body []byte) (*feedEnvelope, error) {
	var env feedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return &env, nil
}

// driverCode returns the three-letter code, synthesizing one from the
// family name for drivers the feed lists without a code.
func driverCode(d feedDriver) string {
	if d.Code != "" {
		return strings.ToUpper(d.Code)
	}
	name := strings.ToUpper(strings.ReplaceAll(d.FamilyName, " ", ""))
	if len(name) > 3 {
		name = name[:3]
	}
	return name
}

// lapSeconds parses feed lap time strings like "1:23.456" or "83.456".
func lapSeconds(s string) float64 {
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		return atof(parts[0])
	case 2:
		return atof(parts[0])*60 + atof(parts[1])
	case 3:
		return atof(parts[0])*3600 + atof(parts[1])*60 + atof(parts[2])
	default:
		return 0
	}
}

func retryAfter(resp *http.Response) time.Duration {
	seconds := atoi(resp.Header.Get("Retry-After"))
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
