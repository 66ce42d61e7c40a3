package simulate

import (
	"context"
	"testing"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput() Input {
	return Input{
		RaceLaps:        50,
		CircuitLengthKM: 5.0,
		PitLossSec:      22,
		Conditions:      predict.Conditions{TrackTempC: 35},
		Strategy: Strategy{Stints: []Stint{
			{Compound: "MEDIUM", Laps: 25},
			{Compound: "HARD", Laps: 25},
		}},
		Rivals: []Rival{
			{DriverCode: "NOR", PaceDelta: 0.1},
			{DriverCode: "LEC", PaceDelta: 0.2},
			{DriverCode: "ZHO", PaceDelta: 1.5},
		},
		Runs: 500,
		Seed: 42,
	}
}

func TestRunValidation(t *testing.T) {
	e := NewEngine(predict.NewPredictor(predict.DefaultCoefficients()))
	ctx := context.Background()

	in := testInput()
	in.RaceLaps = 0
	_, err := e.Run(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidRace)

	in = testInput()
	in.Strategy.Stints = nil
	_, err = e.Run(ctx, in)
	assert.ErrorIs(t, err, ErrEmptyStrategy)

	in = testInput()
	in.Strategy.Stints[1].Laps = 10 // 35 laps for a 50 lap race
	_, err = e.Run(ctx, in)
	assert.ErrorIs(t, err, ErrStrategyLaps)

	in = testInput()
	in.Runs = 1_000_000
	_, err = e.Run(ctx, in)
	assert.ErrorIs(t, err, ErrTooManyRuns)
}

func TestRunReproducibleWithSeed(t *testing.T) {
	e := NewEngine(predict.NewPredictor(predict.DefaultCoefficients()))
	ctx := context.Background()

	a, err := e.Run(ctx, testInput())
	require.NoError(t, err)
	b, err := e.Run(ctx, testInput())
	require.NoError(t, err)

	assert.Equal(t, a, b, "same seed must give identical results")
}

func TestRunResultShape(t *testing.T) {
	e := NewEngine(predict.NewPredictor(predict.DefaultCoefficients()))

	res, err := e.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, 500, res.Runs)
	assert.Equal(t, int64(42), res.Seed)
	assert.Equal(t, 4, res.FieldSize)
	assert.Equal(t, 50, res.StrategyLapsRun)
	assert.InDelta(t, 1.0, res.MeanPitStops, 1e-9)

	// Percentiles must bracket the mean.
	assert.LessOrEqual(t, res.P5TotalSec, res.P50TotalSec)
	assert.LessOrEqual(t, res.P50TotalSec, res.P95TotalSec)
	assert.Greater(t, res.MeanTotalSec, 0.0)

	// Probabilities and positions stay in range.
	assert.GreaterOrEqual(t, res.WinProb, 0.0)
	assert.LessOrEqual(t, res.WinProb, 1.0)
	assert.GreaterOrEqual(t, res.PodiumProb, res.WinProb)
	assert.GreaterOrEqual(t, res.MeanPosition, 1.0)
	assert.LessOrEqual(t, res.MeanPosition, 4.0)
}

func TestRunDefaultsRunsAndSeed(t *testing.T) {
	e := NewEngine(predict.NewPredictor(predict.DefaultCoefficients()),
		WithDefaultRuns(50),
	)

	in := testInput()
	in.Runs = 0
	in.Seed = 0

	res, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Runs)
	assert.NotZero(t, res.Seed, "a random seed must be reported for reproducibility")
}

func TestFasterDriverWinsMoreOften(t *testing.T) {
	e := NewEngine(predict.NewPredictor(predict.DefaultCoefficients()))
	ctx := context.Background()

	fast := testInput()
	fast.DriverDelta = -0.5

	slow := testInput()
	slow.DriverDelta = 1.5

	fastRes, err := e.Run(ctx, fast)
	require.NoError(t, err)
	slowRes, err := e.Run(ctx, slow)
	require.NoError(t, err)

	assert.Greater(t, fastRes.WinProb, slowRes.WinProb)
	assert.Less(t, fastRes.MeanPosition, slowRes.MeanPosition)
}

func TestSafetyCarSlowsRaces(t *testing.T) {
	quiet := NewEngine(predict.NewPredictor(predict.DefaultCoefficients()),
		WithSafetyCar(0, 0),
	)
	busy := NewEngine(predict.NewPredictor(predict.DefaultCoefficients()),
		WithSafetyCar(0.2, 20),
	)
	ctx := context.Background()

	quietRes, err := quiet.Run(ctx, testInput())
	require.NoError(t, err)
	busyRes, err := busy.Run(ctx, testInput())
	require.NoError(t, err)

	assert.Zero(t, quietRes.MeanSafetyCars)
	assert.Greater(t, busyRes.MeanSafetyCars, quietRes.MeanSafetyCars)
	assert.Greater(t, busyRes.MeanTotalSec, quietRes.MeanTotalSec)
}
