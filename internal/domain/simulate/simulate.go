// Package simulate implements the Monte Carlo race-strategy engine.
//
// A run walks the race lap by lap: lap times come from the shared lap-time
// regressor plus gaussian noise, pit stops add the circuit's pit loss, and
// safety-car laps slow the whole field. Rival cars are reduced to a
// per-lap pace delta, so a run produces a total race time for every car
// and a finishing position for the strategy under test. Aggregating the
// runs yields the outcome distribution.
package simulate

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/predict"
)

// Default engine parameters.
const (
	defaultRuns             = 2000
	defaultMaxRuns          = 50_000
	defaultLapNoiseSec      = 0.35
	defaultPitNoiseSec      = 0.6
	defaultSafetyCarPerLap  = 0.012
	defaultSafetyCarLossSec = 14.0
)

// Stint is a tyre compound run for a number of laps.
type Stint struct {
	Compound string `json:"compound"`
	Laps     int    `json:"laps"`
}

// Strategy is an ordered list of stints covering the race distance.
type Strategy struct {
	Stints []Stint `json:"stints"`
}

// Rival reduces a competitor to a per-lap pace delta versus the reference
// car, in seconds. Negative means faster.
type Rival struct {
	DriverCode string  `json:"driver_code"`
	PaceDelta  float64 `json:"pace_delta"`
}

// Input describes one simulation request.
type Input struct {
	RaceLaps        int                `json:"race_laps"`
	CircuitLengthKM float64            `json:"circuit_length_km"`
	PitLossSec      float64            `json:"pit_loss_sec"`
	DriverDelta     float64            `json:"driver_delta"`
	Conditions      predict.Conditions `json:"conditions"`
	Strategy        Strategy           `json:"strategy"`
	Rivals          []Rival            `json:"rivals"`
	Runs            int                `json:"runs"`
	Seed            int64              `json:"seed"`
}

// Result aggregates the Monte Carlo outcome distribution.
type Result struct {
	Runs            int     `json:"runs"`
	Seed            int64   `json:"seed"`
	MeanTotalSec    float64 `json:"mean_total_sec"`
	P5TotalSec      float64 `json:"p5_total_sec"`
	P50TotalSec     float64 `json:"p50_total_sec"`
	P95TotalSec     float64 `json:"p95_total_sec"`
	MeanPosition    float64 `json:"mean_position"`
	WinProb         float64 `json:"win_prob"`
	PodiumProb      float64 `json:"podium_prob"`
	MeanPitStops    float64 `json:"mean_pit_stops"`
	MeanSafetyCars  float64 `json:"mean_safety_cars"`
	FieldSize       int     `json:"field_size"`
	StrategyLapsRun int     `json:"strategy_laps_run"`
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithDefaultRuns sets the run count used when a request omits it.
func WithDefaultRuns(runs int) Option {
	return func(e *Engine) {
		if runs > 0 {
			e.defaultRuns = runs
		}
	}
}

// WithMaxRuns caps the per-request run count.
func WithMaxRuns(maxRuns int) Option {
	return func(e *Engine) {
		if maxRuns > 0 {
			e.maxRuns = maxRuns
		}
	}
}

// WithLapNoise sets the per-lap gaussian noise sigma in seconds.
func WithLapNoise(sigma float64) Option {
	return func(e *Engine) {
		if sigma >= 0 {
			e.lapNoise = sigma
		}
	}
}

// WithSafetyCar sets the per-lap safety-car probability and the time lost
// per safety-car lap.
func WithSafetyCar(probPerLap, lossSec float64) Option {
	return func(e *Engine) {
		if probPerLap >= 0 && probPerLap < 1 {
			e.safetyCarPerLap = probPerLap
		}
		if lossSec >= 0 {
			e.safetyCarLoss = lossSec
		}
	}
}

// Engine runs Monte Carlo strategy simulations.
type Engine struct {
	predictor *predict.Predictor

	defaultRuns     int
	maxRuns         int
	lapNoise        float64
	pitNoise        float64
	safetyCarPerLap float64
	safetyCarLoss   float64
}

// NewEngine constructs an Engine around the shared lap-time regressor.
func NewEngine(predictor *predict.Predictor, opts ...Option) *Engine {
	e := &Engine{
		predictor:       predictor,
		defaultRuns:     defaultRuns,
		maxRuns:         defaultMaxRuns,
		lapNoise:        defaultLapNoiseSec,
		pitNoise:        defaultPitNoiseSec,
		safetyCarPerLap: defaultSafetyCarPerLap,
		safetyCarLoss:   defaultSafetyCarLossSec,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the simulation and returns the outcome distribution.
// A fixed seed makes the result reproducible.
func (e *Engine) Run(ctx context.Context, in Input) (Result, error) {
	if err := e.validate(in); err != nil {
		return Result{}, err
	}

	runs := in.Runs
	if runs <= 0 {
		runs = e.defaultRuns
	}
	if runs > e.maxRuns {
		return Result{}, ErrTooManyRuns
	}

	seed := in.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // simulation noise, not crypto

	totals := make([]float64, 0, runs)
	var posSum, wins, podiums, scSum float64

	for r := 0; r < runs; r++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		total, scLaps := e.runOnce(ctx, in, rng)
		totals = append(totals, total)
		scSum += float64(scLaps)

		// Rival totals share the safety-car laps so neutralized laps do
		// not reshuffle the order on their own.
		pos := 1
		for _, rival := range in.Rivals {
			rivalTotal := e.rivalTotal(ctx, in, rival, scLaps, rng)
			if rivalTotal < total {
				pos++
			}
		}
		posSum += float64(pos)
		if pos == 1 {
			wins++
		}
		if pos <= 3 {
			podiums++
		}
	}

	sort.Float64s(totals)
	var sum float64
	for _, t := range totals {
		sum += t
	}

	return Result{
		Runs:            runs,
		Seed:            seed,
		MeanTotalSec:    sum / float64(runs),
		P5TotalSec:      percentile(totals, 0.05),
		P50TotalSec:     percentile(totals, 0.50),
		P95TotalSec:     percentile(totals, 0.95),
		MeanPosition:    posSum / float64(runs),
		WinProb:         wins / float64(runs),
		PodiumProb:      podiums / float64(runs),
		MeanPitStops:    float64(len(in.Strategy.Stints) - 1),
		MeanSafetyCars:  scSum / float64(runs),
		FieldSize:       len(in.Rivals) + 1,
		StrategyLapsRun: in.RaceLaps,
	}, nil
}

// runOnce walks one race and returns the total time and safety-car laps.
func (e *Engine) runOnce(ctx context.Context, in Input, rng *rand.Rand) (float64, int) {
	var total float64
	scLaps := 0

	lap := 0
	for si, stint := range in.Strategy.Stints {
		for age := 0; age < stint.Laps && lap < in.RaceLaps; age++ {
			lapTime := e.predictor.LapTime(ctx, predict.LapInput{
				CircuitLengthKM: in.CircuitLengthKM,
				Compound:        stint.Compound,
				TyreAge:         age,
				FuelLapsLeft:    in.RaceLaps - lap,
				DriverDelta:     in.DriverDelta,
				Conditions:      in.Conditions,
			})
			lapTime += rng.NormFloat64() * e.lapNoise

			if rng.Float64() < e.safetyCarPerLap {
				scLaps++
				lapTime += e.safetyCarLoss
			}

			total += lapTime
			lap++
		}
		// Pit between stints, not after the last one.
		if si < len(in.Strategy.Stints)-1 && lap < in.RaceLaps {
			total += in.PitLossSec + rng.NormFloat64()*e.pitNoise
		}
	}
	return total, scLaps
}

// rivalTotal models a competitor's race as base pace plus its delta, with
// noise growing as sqrt(laps).
func (e *Engine) rivalTotal(ctx context.Context, in Input, rival Rival, scLaps int, rng *rand.Rand) float64 {
	baseLap := e.predictor.LapTime(ctx, predict.LapInput{
		CircuitLengthKM: in.CircuitLengthKM,
		Compound:        "MEDIUM",
		TyreAge:         0,
		FuelLapsLeft:    in.RaceLaps / 2,
		Conditions:      in.Conditions,
	})
	total := (baseLap + rival.PaceDelta) * float64(in.RaceLaps)
	// A typical race carries two stops' worth of pit loss.
	total += 2 * in.PitLossSec
	total += float64(scLaps) * e.safetyCarLoss
	total += rng.NormFloat64() * e.lapNoise * math.Sqrt(float64(in.RaceLaps))
	return total
}

func (e *Engine) validate(in Input) error {
	if in.RaceLaps < 1 || in.CircuitLengthKM <= 0 {
		return ErrInvalidRace
	}
	if len(in.Strategy.Stints) == 0 {
		return ErrEmptyStrategy
	}
	stintLaps := 0
	for _, s := range in.Strategy.Stints {
		if s.Laps < 1 || s.Compound == "" {
			return ErrEmptyStrategy
		}
		stintLaps += s.Laps
	}
	if stintLaps != in.RaceLaps {
		return ErrStrategyLaps
	}
	return nil
}

// percentile returns the p-quantile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
