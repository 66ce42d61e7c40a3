package etl

import (
	"fmt"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/telemetry"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
)

// Event IDs are deterministic natural keys so re-running the ETL against
// the same service is idempotent end to end.

func raceRecord(event telemetry.RaceEvent) model.IngestRecord {
	date, _ := time.Parse("2006-01-02", event.Date)
	return model.IngestRecord{
		EventID:     fmt.Sprintf("%d-%d-race", event.Season, event.Round),
		Kind:        model.KindRace,
		Season:      event.Season,
		Round:       event.Round,
		RaceName:    event.Name,
		CircuitKey:  event.CircuitKey,
		CircuitName: event.CircuitName,
		Location:    event.Location,
		Country:     event.Country,
		Date:        date,
	}
}

func qualifyingRecord(event telemetry.RaceEvent, row telemetry.QualifyingRow) model.IngestRecord {
	return model.IngestRecord{
		EventID:       fmt.Sprintf("%d-%d-q-%s", event.Season, event.Round, row.DriverRef),
		Kind:          model.KindQualifying,
		Season:        event.Season,
		Round:         event.Round,
		RaceName:      event.Name,
		CircuitKey:    event.CircuitKey,
		DriverCode:    row.DriverCode,
		DriverNumber:  row.DriverNumber,
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		Nationality:   row.Nationality,
		QualiPosition: row.Position,
		Q1:            row.Q1,
		Q2:            row.Q2,
		Q3:            row.Q3,
	}
}

func resultRecord(event telemetry.RaceEvent, row telemetry.ResultRow) model.IngestRecord {
	return model.IngestRecord{
		EventID:        fmt.Sprintf("%d-%d-r-%s", event.Season, event.Round, row.DriverRef),
		Kind:           model.KindResult,
		Season:         event.Season,
		Round:          event.Round,
		RaceName:       event.Name,
		CircuitKey:     event.CircuitKey,
		DriverCode:     row.DriverCode,
		TeamKey:        row.TeamKey,
		TeamName:       row.TeamName,
		DriverNumber:   row.DriverNumber,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Nationality:    row.Nationality,
		GridPosition:   row.GridPosition,
		FinalPosition:  row.FinalPosition,
		Points:         row.Points,
		Status:         row.Status,
		FastestLap:     row.FastestLap,
		FastestLapTime: row.FastestLapTime,
	}
}

func lapRecord(event telemetry.RaceEvent, row telemetry.LapRow, driverCode string) model.IngestRecord {
	return model.IngestRecord{
		EventID:    fmt.Sprintf("%d-%d-lap-%s-%d", event.Season, event.Round, row.DriverRef, row.Lap),
		Kind:       model.KindLap,
		Season:     event.Season,
		Round:      event.Round,
		RaceName:   event.Name,
		CircuitKey: event.CircuitKey,
		DriverCode: driverCode,
		Lap:        row.Lap,
		LapSeconds: row.Seconds,
	}
}

func pitStopRecord(event telemetry.RaceEvent, row telemetry.PitStopRow, driverCode string) model.IngestRecord {
	return model.IngestRecord{
		EventID:     fmt.Sprintf("%d-%d-pit-%s-%d", event.Season, event.Round, row.DriverRef, row.Lap),
		Kind:        model.KindPitStop,
		Season:      event.Season,
		Round:       event.Round,
		RaceName:    event.Name,
		CircuitKey:  event.CircuitKey,
		DriverCode:  driverCode,
		Lap:         row.Lap,
		PitDuration: row.Duration,
	}
}

// buildRecords converts one race weekend's feed rows into ingestion
// records. Laps and pit stops are keyed by driver reference upstream, so
// they resolve codes through the map built from results and qualifying.
func buildRecords(
	event telemetry.RaceEvent,
	quali []telemetry.QualifyingRow,
	results []telemetry.ResultRow,
	laps []telemetry.LapRow,
	pits []telemetry.PitStopRow,
) []model.IngestRecord {
	codeByRef := make(map[string]string, len(results))
	for _, q := range quali {
		codeByRef[q.DriverRef] = q.DriverCode
	}
	for _, r := range results {
		codeByRef[r.DriverRef] = r.DriverCode
	}

	records := make([]model.IngestRecord, 0, 1+len(quali)+len(results)+len(laps)+len(pits))
	records = append(records, raceRecord(event))
	for _, q := range quali {
		records = append(records, qualifyingRecord(event, q))
	}
	for _, r := range results {
		records = append(records, resultRecord(event, r))
	}
	for _, l := range laps {
		code, ok := codeByRef[l.DriverRef]
		if !ok {
			continue
		}
		records = append(records, lapRecord(event, l, code))
	}
	for _, p := range pits {
		code, ok := codeByRef[p.DriverRef]
		if !ok {
			continue
		}
		records = append(records, pitStopRecord(event, p, code))
	}
	return records
}
