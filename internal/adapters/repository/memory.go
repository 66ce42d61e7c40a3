package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
)

// MemoryStore implements RaceStore with mutex-guarded maps. It is the
// default backend and the one used by tests.
type MemoryStore struct {
	mu sync.RWMutex

	nextID int64

	circuits map[int64]model.Circuit
	drivers  map[int64]model.Driver
	teams    map[int64]model.Team
	races    map[int64]model.Race

	circuitByKey map[string]int64
	driverByCode map[string]int64
	teamByKey    map[string]int64
	raceByKey    map[raceKey]int64

	qualifying map[int64][]model.QualifyingResult // raceID -> rows
	results    map[int64][]model.RaceResult
	laps       map[int64][]model.LapTime
	pitStops   map[int64][]model.PitStop
	weather    map[int64][]model.Weather
}

type raceKey struct {
	season int
	round  int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		circuits:     make(map[int64]model.Circuit),
		drivers:      make(map[int64]model.Driver),
		teams:        make(map[int64]model.Team),
		races:        make(map[int64]model.Race),
		circuitByKey: make(map[string]int64),
		driverByCode: make(map[string]int64),
		teamByKey:    make(map[string]int64),
		raceByKey:    make(map[raceKey]int64),
		qualifying:   make(map[int64][]model.QualifyingResult),
		results:      make(map[int64][]model.RaceResult),
		laps:         make(map[int64][]model.LapTime),
		pitStops:     make(map[int64][]model.PitStop),
		weather:      make(map[int64][]model.Weather),
	}
}

func (s *MemoryStore) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// EnsureCircuit implements get-or-create keyed on the circuit key.
func (s *MemoryStore) EnsureCircuit(ctx context.Context, c model.Circuit) (model.Circuit, error) {
	key := strings.ToLower(strings.TrimSpace(c.Key))
	if key == "" {
		return model.Circuit{}, ErrConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.circuitByKey[key]; ok {
		stored := s.circuits[id]
		if fillCircuit(&stored, c) {
			s.circuits[id] = stored
		}
		return stored, nil
	}
	c.ID = s.nextIDLocked()
	c.Key = key
	s.circuits[c.ID] = c
	s.circuitByKey[key] = c.ID
	return c, nil
}

// EnsureDriver implements get-or-create keyed on the driver code.
func (s *MemoryStore) EnsureDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	code := strings.ToUpper(strings.TrimSpace(d.Code))
	if code == "" {
		return model.Driver{}, ErrConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.driverByCode[code]; ok {
		stored := s.drivers[id]
		if fillDriver(&stored, d) {
			s.drivers[id] = stored
		}
		return stored, nil
	}
	d.ID = s.nextIDLocked()
	d.Code = code
	s.drivers[d.ID] = d
	s.driverByCode[code] = d.ID
	return d, nil
}

// EnsureTeam implements get-or-create keyed on the team key.
func (s *MemoryStore) EnsureTeam(ctx context.Context, t model.Team) (model.Team, error) {
	key := strings.ToLower(strings.TrimSpace(t.Key))
	if key == "" {
		return model.Team{}, ErrConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.teamByKey[key]; ok {
		return s.teams[id], nil
	}
	t.ID = s.nextIDLocked()
	t.Key = key
	s.teams[t.ID] = t
	s.teamByKey[key] = t.ID
	return t, nil
}

// EnsureRace implements get-or-create keyed on season and round.
func (s *MemoryStore) EnsureRace(ctx context.Context, r model.Race) (model.Race, error) {
	if r.Season == 0 || r.Round == 0 {
		return model.Race{}, ErrConflict
	}
	key := raceKey{season: r.Season, round: r.Round}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.raceByKey[key]; ok {
		stored := s.races[id]
		if fillRace(&stored, r) {
			s.races[id] = stored
		}
		return stored, nil
	}
	r.ID = s.nextIDLocked()
	s.races[r.ID] = r
	s.raceByKey[key] = r.ID
	return r, nil
}

// AddQualifyingResult appends a qualifying row.
func (s *MemoryStore) AddQualifyingResult(ctx context.Context, q model.QualifyingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.races[q.RaceID]; !ok {
		return ErrNotFound
	}
	s.qualifying[q.RaceID] = append(s.qualifying[q.RaceID], q)
	return nil
}

// AddRaceResult appends a classification row.
func (s *MemoryStore) AddRaceResult(ctx context.Context, r model.RaceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.races[r.RaceID]; !ok {
		return ErrNotFound
	}
	s.results[r.RaceID] = append(s.results[r.RaceID], r)
	return nil
}

// AddLapTime appends a lap row.
func (s *MemoryStore) AddLapTime(ctx context.Context, l model.LapTime) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.races[l.RaceID]; !ok {
		return ErrNotFound
	}
	s.laps[l.RaceID] = append(s.laps[l.RaceID], l)
	return nil
}

// AddPitStop appends a pit stop row.
func (s *MemoryStore) AddPitStop(ctx context.Context, p model.PitStop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.races[p.RaceID]; !ok {
		return ErrNotFound
	}
	s.pitStops[p.RaceID] = append(s.pitStops[p.RaceID], p)
	return nil
}

// AddWeather appends a weather sample.
func (s *MemoryStore) AddWeather(ctx context.Context, w model.Weather) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.races[w.RaceID]; !ok {
		return ErrNotFound
	}
	s.weather[w.RaceID] = append(s.weather[w.RaceID], w)
	return nil
}

// ListRaces returns races ordered by season then round.
func (s *MemoryStore) ListRaces(ctx context.Context, season int, limit int) ([]model.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Race, 0, len(s.races))
	for _, r := range s.races {
		if season != 0 && r.Season != season {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Round < out[j].Round
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRaceDetail returns a race with its related rows.
func (s *MemoryStore) GetRaceDetail(ctx context.Context, id int64) (model.RaceDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	race, ok := s.races[id]
	if !ok {
		return model.RaceDetail{}, ErrNotFound
	}
	detail := model.RaceDetail{
		Race:       race,
		Circuit:    s.circuits[race.CircuitID],
		Qualifying: append([]model.QualifyingResult(nil), s.qualifying[id]...),
		Results:    append([]model.RaceResult(nil), s.results[id]...),
		PitStops:   append([]model.PitStop(nil), s.pitStops[id]...),
		Weather:    append([]model.Weather(nil), s.weather[id]...),
	}
	sort.Slice(detail.Results, func(i, j int) bool {
		// Unclassified rows sink to the bottom.
		pi, pj := detail.Results[i].FinalPosition, detail.Results[j].FinalPosition
		if pi == 0 {
			pi = 1 << 30
		}
		if pj == 0 {
			pj = 1 << 30
		}
		return pi < pj
	})
	sort.Slice(detail.Qualifying, func(i, j int) bool {
		return detail.Qualifying[i].Position < detail.Qualifying[j].Position
	})
	return detail, nil
}

// ResultsForRace returns the classification rows for a race.
func (s *MemoryStore) ResultsForRace(ctx context.Context, raceID int64) ([]model.RaceResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.races[raceID]; !ok {
		return nil, ErrNotFound
	}
	return append([]model.RaceResult(nil), s.results[raceID]...), nil
}

// QualifyingForRace returns the qualifying rows for a race.
func (s *MemoryStore) QualifyingForRace(ctx context.Context, raceID int64) ([]model.QualifyingResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.races[raceID]; !ok {
		return nil, ErrNotFound
	}
	return append([]model.QualifyingResult(nil), s.qualifying[raceID]...), nil
}

// ListDrivers returns drivers ordered by code.
func (s *MemoryStore) ListDrivers(ctx context.Context, limit int) ([]model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetDriverByCode returns a driver by three-letter code.
func (s *MemoryStore) GetDriverByCode(ctx context.Context, code string) (model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.driverByCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return model.Driver{}, ErrNotFound
	}
	return s.drivers[id], nil
}

// GetDriver returns a driver by ID.
func (s *MemoryStore) GetDriver(ctx context.Context, id int64) (model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[id]
	if !ok {
		return model.Driver{}, ErrNotFound
	}
	return d, nil
}

// Counts reports row counts per table.
func (s *MemoryStore) Counts(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[string]int{
		"circuits": len(s.circuits),
		"drivers":  len(s.drivers),
		"teams":    len(s.teams),
		"races":    len(s.races),
	}
	counts["qualifying_results"] = rowsTotal(s.qualifying)
	counts["race_results"] = rowsTotal(s.results)
	counts["lap_times"] = rowsTotal(s.laps)
	counts["pit_stops"] = rowsTotal(s.pitStops)
	counts["weather"] = rowsTotal(s.weather)
	return counts, nil
}

func rowsTotal[T any](m map[int64][]T) int {
	n := 0
	for _, rows := range m {
		n += len(rows)
	}
	return n
}

// Close implements RaceStore. Nothing to release for the memory backend.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
