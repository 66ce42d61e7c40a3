// Package repository defines the race data store and the driver rankings
// store, with in-memory and Postgres-backed implementations of the former.
package repository

import (
	"context"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
)

// RaceStore provides read/write access to historical race data.
//
// Ensure* methods implement get-or-create on the entity's natural key
// (circuit key, driver code, team key, season+round) and return the stored
// entity with its ID populated. Add* methods append result rows; they are
// safe to call from multiple workers.
type RaceStore interface {
	EnsureCircuit(ctx context.Context, c model.Circuit) (model.Circuit, error)
	EnsureDriver(ctx context.Context, d model.Driver) (model.Driver, error)
	EnsureTeam(ctx context.Context, t model.Team) (model.Team, error)
	EnsureRace(ctx context.Context, r model.Race) (model.Race, error)

	AddQualifyingResult(ctx context.Context, q model.QualifyingResult) error
	AddRaceResult(ctx context.Context, r model.RaceResult) error
	AddLapTime(ctx context.Context, l model.LapTime) error
	AddPitStop(ctx context.Context, p model.PitStop) error
	AddWeather(ctx context.Context, w model.Weather) error

	// ListRaces returns races, optionally filtered by season (0 = all),
	// ordered by season then round.
	ListRaces(ctx context.Context, season int, limit int) ([]model.Race, error)

	// GetRaceDetail returns a race with its related rows.
	// Returns ErrNotFound for unknown IDs.
	GetRaceDetail(ctx context.Context, id int64) (model.RaceDetail, error)

	// ResultsForRace returns the final classification rows for a race.
	ResultsForRace(ctx context.Context, raceID int64) ([]model.RaceResult, error)

	// QualifyingForRace returns the qualifying rows for a race.
	QualifyingForRace(ctx context.Context, raceID int64) ([]model.QualifyingResult, error)

	ListDrivers(ctx context.Context, limit int) ([]model.Driver, error)

	// GetDriverByCode returns a driver by three-letter code.
	// Returns ErrNotFound for unknown codes.
	GetDriverByCode(ctx context.Context, code string) (model.Driver, error)

	// GetDriver returns a driver by ID. Returns ErrNotFound when unknown.
	GetDriver(ctx context.Context, id int64) (model.Driver, error)

	// Counts reports row counts per table for stats and ETL verification.
	Counts(ctx context.Context) (map[string]int, error)

	Close(ctx context.Context) error
}
