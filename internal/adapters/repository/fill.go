package repository

import (
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
)

// Records arrive out of order, so rows created from a non-header record
// start bare. Ensure* fills fields still empty when a later call carries
// them, which makes the stored header independent of worker scheduling.

func fillCircuit(stored *model.Circuit, in model.Circuit) bool {
	changed := false
	if stored.Name == "" && in.Name != "" {
		stored.Name = in.Name
		changed = true
	}
	if stored.Location == "" && in.Location != "" {
		stored.Location = in.Location
		changed = true
	}
	if stored.Country == "" && in.Country != "" {
		stored.Country = in.Country
		changed = true
	}
	if stored.LengthKM == 0 && in.LengthKM != 0 {
		stored.LengthKM = in.LengthKM
		changed = true
	}
	if stored.Laps == 0 && in.Laps != 0 {
		stored.Laps = in.Laps
		changed = true
	}
	return changed
}

func fillDriver(stored *model.Driver, in model.Driver) bool {
	changed := false
	if stored.Number == 0 && in.Number != 0 {
		stored.Number = in.Number
		changed = true
	}
	if stored.FirstName == "" && in.FirstName != "" {
		stored.FirstName = in.FirstName
		changed = true
	}
	if stored.LastName == "" && in.LastName != "" {
		stored.LastName = in.LastName
		changed = true
	}
	if stored.BroadcastName == "" && in.BroadcastName != "" {
		stored.BroadcastName = in.BroadcastName
		changed = true
	}
	if stored.Nationality == "" && in.Nationality != "" {
		stored.Nationality = in.Nationality
		changed = true
	}
	return changed
}

func fillRace(stored *model.Race, in model.Race) bool {
	changed := false
	if stored.Name == "" && in.Name != "" {
		stored.Name = in.Name
		changed = true
	}
	if stored.CircuitID == 0 && in.CircuitID != 0 {
		stored.CircuitID = in.CircuitID
		changed = true
	}
	if emptyDate(stored.Date) && !emptyDate(in.Date) {
		stored.Date = in.Date
		changed = true
	}
	return changed
}

// emptyDate treats both the zero time and the Unix epoch as unset; the
// postgres store scans NULL race dates as epoch.
func emptyDate(t time.Time) bool {
	return t.IsZero() || t.Unix() == 0
}
