package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
)

// schema is applied at startup. Natural keys carry unique constraints so
// concurrent workers can race on Ensure* and lose gracefully.
const schema = `
CREATE TABLE IF NOT EXISTS circuits (
	id BIGSERIAL PRIMARY KEY,
	circuit_key VARCHAR(100) UNIQUE NOT NULL,
	name VARCHAR(200) NOT NULL,
	location VARCHAR(200),
	country VARCHAR(100),
	length_km DOUBLE PRECISION DEFAULT 0,
	laps INT DEFAULT 0
);
CREATE TABLE IF NOT EXISTS drivers (
	id BIGSERIAL PRIMARY KEY,
	driver_number INT,
	code VARCHAR(3) UNIQUE NOT NULL,
	first_name VARCHAR(100),
	last_name VARCHAR(100),
	broadcast_name VARCHAR(100),
	nationality VARCHAR(100)
);
CREATE TABLE IF NOT EXISTS teams (
	id BIGSERIAL PRIMARY KEY,
	team_key VARCHAR(100) UNIQUE NOT NULL,
	name VARCHAR(200) NOT NULL,
	nationality VARCHAR(100)
);
CREATE TABLE IF NOT EXISTS races (
	id BIGSERIAL PRIMARY KEY,
	season INT NOT NULL,
	round_number INT NOT NULL,
	race_name VARCHAR(200) NOT NULL,
	circuit_id BIGINT REFERENCES circuits(id),
	race_date DATE,
	UNIQUE (season, round_number)
);
CREATE TABLE IF NOT EXISTS qualifying_results (
	id BIGSERIAL PRIMARY KEY,
	race_id BIGINT NOT NULL REFERENCES races(id),
	driver_id BIGINT NOT NULL REFERENCES drivers(id),
	position INT,
	q1_time DOUBLE PRECISION,
	q2_time DOUBLE PRECISION,
	q3_time DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS race_results (
	id BIGSERIAL PRIMARY KEY,
	race_id BIGINT NOT NULL REFERENCES races(id),
	driver_id BIGINT NOT NULL REFERENCES drivers(id),
	team_id BIGINT REFERENCES teams(id),
	grid_position INT,
	final_position INT,
	points DOUBLE PRECISION DEFAULT 0,
	status VARCHAR(100),
	fastest_lap BOOLEAN DEFAULT FALSE,
	fastest_lap_time DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS lap_times (
	id BIGSERIAL PRIMARY KEY,
	race_id BIGINT NOT NULL REFERENCES races(id),
	driver_id BIGINT NOT NULL REFERENCES drivers(id),
	lap_number INT NOT NULL,
	lap_time DOUBLE PRECISION,
	sector1_time DOUBLE PRECISION,
	sector2_time DOUBLE PRECISION,
	sector3_time DOUBLE PRECISION,
	compound VARCHAR(20),
	tyre_life INT,
	is_personal_best BOOLEAN DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS pit_stops (
	id BIGSERIAL PRIMARY KEY,
	race_id BIGINT NOT NULL REFERENCES races(id),
	driver_id BIGINT NOT NULL REFERENCES drivers(id),
	lap_number INT NOT NULL,
	pit_duration DOUBLE PRECISION,
	compound_before VARCHAR(20),
	compound_after VARCHAR(20)
);
CREATE TABLE IF NOT EXISTS weather (
	id BIGSERIAL PRIMARY KEY,
	race_id BIGINT NOT NULL REFERENCES races(id),
	lap_number INT,
	air_temp DOUBLE PRECISION,
	track_temp DOUBLE PRECISION,
	humidity DOUBLE PRECISION,
	pressure DOUBLE PRECISION,
	wind_speed DOUBLE PRECISION,
	rainfall BOOLEAN DEFAULT FALSE
);
`

// PostgresStore implements RaceStore on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and applies the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// isUniqueViolation reports whether err is a Postgres unique violation,
// which Ensure* treats as "someone else created it first".
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// EnsureCircuit implements get-or-create keyed on the circuit key.
func (s *PostgresStore) EnsureCircuit(ctx context.Context, c model.Circuit) (model.Circuit, error) {
	key := strings.ToLower(strings.TrimSpace(c.Key))
	if key == "" {
		return model.Circuit{}, ErrConflict
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, circuit_key, name, location, country, length_km, laps FROM circuits WHERE circuit_key = $1`, key)
	got, err := scanCircuit(row)
	if err == nil {
		if fillCircuit(&got, c) {
			if _, err := s.pool.Exec(ctx,
				`UPDATE circuits SET name = $2, location = $3, country = $4, length_km = $5, laps = $6 WHERE id = $1`,
				got.ID, got.Name, got.Location, got.Country, got.LengthKM, got.Laps); err != nil {
				return model.Circuit{}, fmt.Errorf("update circuit: %w", err)
			}
		}
		return got, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Circuit{}, fmt.Errorf("select circuit: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO circuits (circuit_key, name, location, country, length_km, laps)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		key, c.Name, c.Location, c.Country, c.LengthKM, c.Laps).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return s.EnsureCircuit(ctx, c)
		}
		return model.Circuit{}, fmt.Errorf("insert circuit: %w", err)
	}
	c.Key = key
	return c, nil
}

// EnsureDriver implements get-or-create keyed on the driver code.
func (s *PostgresStore) EnsureDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	code := strings.ToUpper(strings.TrimSpace(d.Code))
	if code == "" {
		return model.Driver{}, ErrConflict
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, driver_number, code, first_name, last_name, broadcast_name, nationality FROM drivers WHERE code = $1`, code)
	got, err := scanDriver(row)
	if err == nil {
		if fillDriver(&got, d) {
			if _, err := s.pool.Exec(ctx,
				`UPDATE drivers SET driver_number = $2, first_name = $3, last_name = $4, broadcast_name = $5, nationality = $6 WHERE id = $1`,
				got.ID, got.Number, got.FirstName, got.LastName, got.BroadcastName, got.Nationality); err != nil {
				return model.Driver{}, fmt.Errorf("update driver: %w", err)
			}
		}
		return got, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Driver{}, fmt.Errorf("select driver: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO drivers (driver_number, code, first_name, last_name, broadcast_name, nationality)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		d.Number, code, d.FirstName, d.LastName, d.BroadcastName, d.Nationality).Scan(&d.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return s.EnsureDriver(ctx, d)
		}
		return model.Driver{}, fmt.Errorf("insert driver: %w", err)
	}
	d.Code = code
	return d, nil
}

// EnsureTeam implements get-or-create keyed on the team key.
func (s *PostgresStore) EnsureTeam(ctx context.Context, t model.Team) (model.Team, error) {
	key := strings.ToLower(strings.TrimSpace(t.Key))
	if key == "" {
		return model.Team{}, ErrConflict
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, team_key, name, nationality FROM teams WHERE team_key = $1`, key)
	got, err := scanTeam(row)
	if err == nil {
		return got, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, fmt.Errorf("select team: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO teams (team_key, name, nationality) VALUES ($1, $2, $3) RETURNING id`,
		key, t.Name, t.Nationality).Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return s.EnsureTeam(ctx, t)
		}
		return model.Team{}, fmt.Errorf("insert team: %w", err)
	}
	t.Key = key
	return t, nil
}

// EnsureRace implements get-or-create keyed on season and round.
func (s *PostgresStore) EnsureRace(ctx context.Context, r model.Race) (model.Race, error) {
	if r.Season == 0 || r.Round == 0 {
		return model.Race{}, ErrConflict
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, season, round_number, race_name, COALESCE(circuit_id, 0), COALESCE(race_date, 'epoch'::date)
		 FROM races WHERE season = $1 AND round_number = $2`, r.Season, r.Round)
	got, err := scanRace(row)
	if err == nil {
		if fillRace(&got, r) {
			if _, err := s.pool.Exec(ctx,
				`UPDATE races SET race_name = $2, circuit_id = NULLIF($3, 0), race_date = $4 WHERE id = $1`,
				got.ID, got.Name, got.CircuitID, got.Date); err != nil {
				return model.Race{}, fmt.Errorf("update race: %w", err)
			}
		}
		return got, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Race{}, fmt.Errorf("select race: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO races (season, round_number, race_name, circuit_id, race_date)
		 VALUES ($1, $2, $3, NULLIF($4, 0), $5) RETURNING id`,
		r.Season, r.Round, r.Name, r.CircuitID, r.Date).Scan(&r.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return s.EnsureRace(ctx, r)
		}
		return model.Race{}, fmt.Errorf("insert race: %w", err)
	}
	return r, nil
}

// AddQualifyingResult appends a qualifying row.
func (s *PostgresStore) AddQualifyingResult(ctx context.Context, q model.QualifyingResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO qualifying_results (race_id, driver_id, position, q1_time, q2_time, q3_time)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		q.RaceID, q.DriverID, q.Position, q.Q1, q.Q2, q.Q3)
	if err != nil {
		return fmt.Errorf("insert qualifying result: %w", err)
	}
	return nil
}

// AddRaceResult appends a classification row.
func (s *PostgresStore) AddRaceResult(ctx context.Context, r model.RaceResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO race_results (race_id, driver_id, team_id, grid_position, final_position, points, status, fastest_lap, fastest_lap_time)
		 VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8, $9)`,
		r.RaceID, r.DriverID, r.TeamID, r.GridPosition, r.FinalPosition, r.Points, r.Status, r.FastestLap, r.FastestLapTime)
	if err != nil {
		return fmt.Errorf("insert race result: %w", err)
	}
	return nil
}

// AddLapTime appends a lap row.
func (s *PostgresStore) AddLapTime(ctx context.Context, l model.LapTime) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lap_times (race_id, driver_id, lap_number, lap_time, sector1_time, sector2_time, sector3_time, compound, tyre_life, is_personal_best)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.RaceID, l.DriverID, l.Lap, l.Seconds, l.Sector1, l.Sector2, l.Sector3, l.Compound, l.TyreLife, l.PersonalBest)
	if err != nil {
		return fmt.Errorf("insert lap time: %w", err)
	}
	return nil
}

// AddPitStop appends a pit stop row.
func (s *PostgresStore) AddPitStop(ctx context.Context, p model.PitStop) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pit_stops (race_id, driver_id, lap_number, pit_duration, compound_before, compound_after)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.RaceID, p.DriverID, p.Lap, p.Duration, p.CompoundBefore, p.CompoundAfter)
	if err != nil {
		return fmt.Errorf("insert pit stop: %w", err)
	}
	return nil
}

// AddWeather appends a weather sample.
func (s *PostgresStore) AddWeather(ctx context.Context, w model.Weather) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO weather (race_id, lap_number, air_temp, track_temp, humidity, pressure, wind_speed, rainfall)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.RaceID, w.Lap, w.AirTemp, w.TrackTemp, w.Humidity, w.Pressure, w.WindSpeed, w.Rainfall)
	if err != nil {
		return fmt.Errorf("insert weather: %w", err)
	}
	return nil
}

// ListRaces returns races ordered by season then round.
func (s *PostgresStore) ListRaces(ctx context.Context, season int, limit int) ([]model.Race, error) {
	query := `SELECT id, season, round_number, race_name, COALESCE(circuit_id, 0), COALESCE(race_date, 'epoch'::date)
	          FROM races`
	args := []interface{}{}
	if season != 0 {
		query += ` WHERE season = $1`
		args = append(args, season)
	}
	query += ` ORDER BY season, round_number`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	defer rows.Close()

	var out []model.Race
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	return out, nil
}

// GetRaceDetail returns a race with its related rows.
func (s *PostgresStore) GetRaceDetail(ctx context.Context, id int64) (model.RaceDetail, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, season, round_number, race_name, COALESCE(circuit_id, 0), COALESCE(race_date, 'epoch'::date)
		 FROM races WHERE id = $1`, id)
	race, err := scanRace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RaceDetail{}, ErrNotFound
	}
	if err != nil {
		return model.RaceDetail{}, fmt.Errorf("select race: %w", err)
	}

	detail := model.RaceDetail{Race: race}

	if race.CircuitID != 0 {
		crow := s.pool.QueryRow(ctx,
			`SELECT id, circuit_key, name, location, country, length_km, laps FROM circuits WHERE id = $1`, race.CircuitID)
		circuit, err := scanCircuit(crow)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return model.RaceDetail{}, fmt.Errorf("select circuit: %w", err)
		}
		detail.Circuit = circuit
	}

	if detail.Qualifying, err = s.QualifyingForRace(ctx, id); err != nil {
		return model.RaceDetail{}, err
	}
	if detail.Results, err = s.ResultsForRace(ctx, id); err != nil {
		return model.RaceDetail{}, err
	}

	prows, err := s.pool.Query(ctx,
		`SELECT race_id, driver_id, lap_number, COALESCE(pit_duration, 0), COALESCE(compound_before, ''), COALESCE(compound_after, '')
		 FROM pit_stops WHERE race_id = $1 ORDER BY lap_number`, id)
	if err != nil {
		return model.RaceDetail{}, fmt.Errorf("list pit stops: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var p model.PitStop
		if err := prows.Scan(&p.RaceID, &p.DriverID, &p.Lap, &p.Duration, &p.CompoundBefore, &p.CompoundAfter); err != nil {
			return model.RaceDetail{}, fmt.Errorf("scan pit stop: %w", err)
		}
		detail.PitStops = append(detail.PitStops, p)
	}
	if err := prows.Err(); err != nil {
		return model.RaceDetail{}, fmt.Errorf("list pit stops: %w", err)
	}

	wrows, err := s.pool.Query(ctx,
		`SELECT race_id, COALESCE(lap_number, 0), COALESCE(air_temp, 0), COALESCE(track_temp, 0), COALESCE(humidity, 0), COALESCE(pressure, 0), COALESCE(wind_speed, 0), rainfall
		 FROM weather WHERE race_id = $1 ORDER BY lap_number`, id)
	if err != nil {
		return model.RaceDetail{}, fmt.Errorf("list weather: %w", err)
	}
	defer wrows.Close()
	for wrows.Next() {
		var w model.Weather
		if err := wrows.Scan(&w.RaceID, &w.Lap, &w.AirTemp, &w.TrackTemp, &w.Humidity, &w.Pressure, &w.WindSpeed, &w.Rainfall); err != nil {
			return model.RaceDetail{}, fmt.Errorf("scan weather: %w", err)
		}
		detail.Weather = append(detail.Weather, w)
	}
	if err := wrows.Err(); err != nil {
		return model.RaceDetail{}, fmt.Errorf("list weather: %w", err)
	}

	return detail, nil
}

// ResultsForRace returns the classification rows for a race.
func (s *PostgresStore) ResultsForRace(ctx context.Context, raceID int64) ([]model.RaceResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT race_id, driver_id, COALESCE(team_id, 0), COALESCE(grid_position, 0), COALESCE(final_position, 0),
		        COALESCE(points, 0), COALESCE(status, ''), fastest_lap, COALESCE(fastest_lap_time, 0)
		 FROM race_results WHERE race_id = $1 ORDER BY NULLIF(final_position, 0) NULLS LAST`, raceID)
	if err != nil {
		return nil, fmt.Errorf("list race results: %w", err)
	}
	defer rows.Close()

	var out []model.RaceResult
	for rows.Next() {
		var r model.RaceResult
		if err := rows.Scan(&r.RaceID, &r.DriverID, &r.TeamID, &r.GridPosition, &r.FinalPosition,
			&r.Points, &r.Status, &r.FastestLap, &r.FastestLapTime); err != nil {
			return nil, fmt.Errorf("scan race result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list race results: %w", err)
	}
	return out, nil
}

// QualifyingForRace returns the qualifying rows for a race.
func (s *PostgresStore) QualifyingForRace(ctx context.Context, raceID int64) ([]model.QualifyingResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT race_id, driver_id, COALESCE(position, 0), COALESCE(q1_time, 0), COALESCE(q2_time, 0), COALESCE(q3_time, 0)
		 FROM qualifying_results WHERE race_id = $1 ORDER BY position`, raceID)
	if err != nil {
		return nil, fmt.Errorf("list qualifying: %w", err)
	}
	defer rows.Close()

	var out []model.QualifyingResult
	for rows.Next() {
		var q model.QualifyingResult
		if err := rows.Scan(&q.RaceID, &q.DriverID, &q.Position, &q.Q1, &q.Q2, &q.Q3); err != nil {
			return nil, fmt.Errorf("scan qualifying: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list qualifying: %w", err)
	}
	return out, nil
}

// ListDrivers returns drivers ordered by code.
func (s *PostgresStore) ListDrivers(ctx context.Context, limit int) ([]model.Driver, error) {
	query := `SELECT id, driver_number, code, first_name, last_name, broadcast_name, nationality FROM drivers ORDER BY code`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var out []model.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	return out, nil
}

// GetDriverByCode returns a driver by three-letter code.
func (s *PostgresStore) GetDriverByCode(ctx context.Context, code string) (model.Driver, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, driver_number, code, first_name, last_name, broadcast_name, nationality FROM drivers WHERE code = $1`,
		strings.ToUpper(strings.TrimSpace(code)))
	d, err := scanDriver(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Driver{}, ErrNotFound
	}
	if err != nil {
		return model.Driver{}, fmt.Errorf("select driver: %w", err)
	}
	return d, nil
}

// GetDriver returns a driver by ID.
func (s *PostgresStore) GetDriver(ctx context.Context, id int64) (model.Driver, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, driver_number, code, first_name, last_name, broadcast_name, nationality FROM drivers WHERE id = $1`, id)
	d, err := scanDriver(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Driver{}, ErrNotFound
	}
	if err != nil {
		return model.Driver{}, fmt.Errorf("select driver: %w", err)
	}
	return d, nil
}

// Counts reports row counts per table.
func (s *PostgresStore) Counts(ctx context.Context) (map[string]int, error) {
	tables := []string{
		"circuits", "drivers", "teams", "races",
		"qualifying_results", "race_results", "lap_times", "pit_stops", "weather",
	}
	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		var n int
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

func scanCircuit(row pgx.Row) (model.Circuit, error) {
	var c model.Circuit
	err := row.Scan(&c.ID, &c.Key, &c.Name, &c.Location, &c.Country, &c.LengthKM, &c.Laps)
	return c, err
}

func scanDriver(row pgx.Row) (model.Driver, error) {
	var d model.Driver
	err := row.Scan(&d.ID, &d.Number, &d.Code, &d.FirstName, &d.LastName, &d.BroadcastName, &d.Nationality)
	return d, err
}

func scanTeam(row pgx.Row) (model.Team, error) {
	var t model.Team
	err := row.Scan(&t.ID, &t.Key, &t.Name, &t.Nationality)
	return t, err
}

func scanRace(row pgx.Row) (model.Race, error) {
	var r model.Race
	err := row.Scan(&r.ID, &r.Season, &r.Round, &r.Name, &r.CircuitID, &r.Date)
	return r, err
}
