// Package model contains domain entities passed between layers.
//
// The entity set mirrors the relational schema used by the race store:
// circuits, drivers, teams, races and the per-race result tables.
package model

import "time"

// Circuit describes an F1 track.
type Circuit struct {
	ID       int64   `json:"id"`
	Key      string  `json:"key"` // natural key, e.g. "monaco_grand_prix"
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Country  string  `json:"country"`
	LengthKM float64 `json:"length_km"`
	Laps     int     `json:"laps"`
}

// Driver describes an F1 driver.
type Driver struct {
	ID            int64  `json:"id"`
	Number        int    `json:"number"`
	Code          string `json:"code"` // three-letter abbreviation, natural key
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	BroadcastName string `json:"broadcast_name"`
	Nationality   string `json:"nationality"`
}

// Team describes a constructor.
type Team struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"` // natural key, e.g. "red_bull_racing"
	Name        string `json:"name"`
	Nationality string `json:"nationality"`
}

// Race describes a single race event within a season.
type Race struct {
	ID        int64     `json:"id"`
	Season    int       `json:"season"`
	Round     int       `json:"round"`
	Name      string    `json:"name"`
	CircuitID int64     `json:"circuit_id"`
	Date      time.Time `json:"date"`
}

// QualifyingResult holds a driver's qualifying session outcome.
// Session times are in seconds; zero means the segment was not reached.
type QualifyingResult struct {
	RaceID   int64   `json:"race_id"`
	DriverID int64   `json:"driver_id"`
	Position int     `json:"position"`
	Q1       float64 `json:"q1"`
	Q2       float64 `json:"q2"`
	Q3       float64 `json:"q3"`
}

// RaceResult holds a driver's final classification for a race.
type RaceResult struct {
	RaceID         int64   `json:"race_id"`
	DriverID       int64   `json:"driver_id"`
	TeamID         int64   `json:"team_id"`
	GridPosition   int     `json:"grid_position"`
	FinalPosition  int     `json:"final_position"` // 0 when not classified
	Points         float64 `json:"points"`
	Status         string  `json:"status"`
	FastestLap     bool    `json:"fastest_lap"`
	FastestLapTime float64 `json:"fastest_lap_time"`
}

// LapTime holds a single timed lap.
type LapTime struct {
	RaceID       int64   `json:"race_id"`
	DriverID     int64   `json:"driver_id"`
	Lap          int     `json:"lap"`
	Seconds      float64 `json:"seconds"`
	Sector1      float64 `json:"sector1"`
	Sector2      float64 `json:"sector2"`
	Sector3      float64 `json:"sector3"`
	Compound     string  `json:"compound"`
	TyreLife     int     `json:"tyre_life"`
	PersonalBest bool    `json:"personal_best"`
}

// PitStop holds a single pit stop.
type PitStop struct {
	RaceID         int64   `json:"race_id"`
	DriverID       int64   `json:"driver_id"`
	Lap            int     `json:"lap"`
	Duration       float64 `json:"duration"`
	CompoundBefore string  `json:"compound_before"`
	CompoundAfter  string  `json:"compound_after"`
}

// Weather holds a sampled weather reading during a race.
type Weather struct {
	RaceID    int64   `json:"race_id"`
	Lap       int     `json:"lap"`
	AirTemp   float64 `json:"air_temp"`
	TrackTemp float64 `json:"track_temp"`
	Humidity  float64 `json:"humidity"`
	Pressure  float64 `json:"pressure"`
	WindSpeed float64 `json:"wind_speed"`
	Rainfall  bool    `json:"rainfall"`
}

// RaceDetail aggregates a race with its related rows for read APIs.
type RaceDetail struct {
	Race       Race               `json:"race"`
	Circuit    Circuit            `json:"circuit"`
	Qualifying []QualifyingResult `json:"qualifying"`
	Results    []RaceResult       `json:"results"`
	PitStops   []PitStop          `json:"pit_stops"`
	Weather    []Weather          `json:"weather"`
}
