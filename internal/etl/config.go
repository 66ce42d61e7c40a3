// Package etl loads historical seasons from the timing feed into a
// running service instance through its ingestion API.
package etl

import "time"

// Config holds configuration for an ETL run.
type Config struct {
	BaseURL     string        // Base URL of the service
	FeedBaseURL string        // Base URL of the timing feed
	CacheDir    string        // On-disk feed cache directory, empty disables
	Season      int           // Season to load
	Rounds      []int         // Rounds to load, empty means the whole season
	Workers     int           // Number of concurrent submit workers
	Timeout     time.Duration // HTTP request timeout
	WithLaps    bool          // Also load per-lap times (large)
	Verbose     bool          // Enable verbose logging
}

// AckResponse represents the response from record submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds ETL run statistics.
type Stats struct {
	RunID             string
	RacesFetched      int
	RecordsBuilt      int
	RecordsSubmitted  int
	RecordsSuccessful int
	RecordsDuplicate  int
	RecordsFailed     int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
