package model

import "time"

// RecordKind discriminates the payload carried by an IngestRecord.
type RecordKind string

// Record kinds accepted by the ingestion pipeline.
const (
	KindRace       RecordKind = "race"
	KindQualifying RecordKind = "qualifying"
	KindResult     RecordKind = "result"
	KindLap        RecordKind = "lap"
	KindPitStop    RecordKind = "pit_stop"
	KindWeather    RecordKind = "weather"
)

// IngestRecord is the unit of work flowing through the ingestion queue.
// EventID is the idempotency key; the remaining fields identify the race
// weekend and carry the kind-specific payload. Entities referenced by
// natural key (circuit key, driver code, team key) are resolved or created
// by the loading worker.
type IngestRecord struct {
	EventID string     `json:"event_id"`
	Kind    RecordKind `json:"kind"`

	// Weekend identification.
	Season   int    `json:"season"`
	Round    int    `json:"round"`
	RaceName string `json:"race_name"`

	// Entity references by natural key.
	CircuitKey string `json:"circuit_key,omitempty"`
	DriverCode string `json:"driver_code,omitempty"`
	TeamKey    string `json:"team_key,omitempty"`

	// Race header payload (KindRace).
	CircuitName string    `json:"circuit_name,omitempty"`
	Location    string    `json:"location,omitempty"`
	Country     string    `json:"country,omitempty"`
	Date        time.Time `json:"date,omitempty"`

	// Driver/team enrichment carried with result records.
	DriverNumber  int    `json:"driver_number,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	BroadcastName string `json:"broadcast_name,omitempty"`
	Nationality   string `json:"nationality,omitempty"`
	TeamName      string `json:"team_name,omitempty"`

	// Qualifying payload (KindQualifying).
	QualiPosition int     `json:"quali_position,omitempty"`
	Q1            float64 `json:"q1,omitempty"`
	Q2            float64 `json:"q2,omitempty"`
	Q3            float64 `json:"q3,omitempty"`

	// Race result payload (KindResult).
	GridPosition   int     `json:"grid_position,omitempty"`
	FinalPosition  int     `json:"final_position,omitempty"`
	Points         float64 `json:"points,omitempty"`
	Status         string  `json:"status,omitempty"`
	FastestLap     bool    `json:"fastest_lap,omitempty"`
	FastestLapTime float64 `json:"fastest_lap_time,omitempty"`

	// Lap payload (KindLap).
	Lap          int     `json:"lap,omitempty"`
	LapSeconds   float64 `json:"lap_seconds,omitempty"`
	Sector1      float64 `json:"sector1,omitempty"`
	Sector2      float64 `json:"sector2,omitempty"`
	Sector3      float64 `json:"sector3,omitempty"`
	Compound     string  `json:"compound,omitempty"`
	TyreLife     int     `json:"tyre_life,omitempty"`
	PersonalBest bool    `json:"personal_best,omitempty"`

	// Pit stop payload (KindPitStop).
	PitDuration    float64 `json:"pit_duration,omitempty"`
	CompoundBefore string  `json:"compound_before,omitempty"`
	CompoundAfter  string  `json:"compound_after,omitempty"`

	// Weather payload (KindWeather).
	AirTemp   float64 `json:"air_temp,omitempty"`
	TrackTemp float64 `json:"track_temp,omitempty"`
	Humidity  float64 `json:"humidity,omitempty"`
	Pressure  float64 `json:"pressure,omitempty"`
	WindSpeed float64 `json:"wind_speed,omitempty"`
	Rainfall  bool    `json:"rainfall,omitempty"`
}
