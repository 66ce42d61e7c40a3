package predict

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(n int) []Entrant {
	codes := []string{"VER", "NOR", "LEC", "PIA", "SAI", "RUS", "HAM", "PER", "ALO", "GAS"}
	entrants := make([]Entrant, 0, n)
	for i := 0; i < n; i++ {
		entrants = append(entrants, Entrant{
			DriverCode:   codes[i%len(codes)],
			GridPosition: i + 1,
			Rating:       1600 - float64(i)*20,
		})
	}
	return entrants
}

func TestPodiumForecastEmptyField(t *testing.T) {
	p := NewPredictor(DefaultCoefficients())

	_, err := p.PodiumForecast(context.Background(), nil, Conditions{})
	require.ErrorIs(t, err, ErrNoEntrants)
}

func TestPodiumForecastProbabilities(t *testing.T) {
	p := NewPredictor(DefaultCoefficients())

	forecasts, err := p.PodiumForecast(context.Background(), field(10), Conditions{TrackTempC: 35})
	require.NoError(t, err)
	require.Len(t, forecasts, 10)

	var winSum float64
	for _, f := range forecasts {
		assert.GreaterOrEqual(t, f.WinProb, 0.0)
		assert.LessOrEqual(t, f.WinProb, 1.0)
		assert.GreaterOrEqual(t, f.PodiumProb, f.WinProb,
			"podium probability can never be below win probability for %s", f.DriverCode)
		assert.LessOrEqual(t, f.PodiumProb, 1.0)
		winSum += f.WinProb
	}
	assert.InDelta(t, 1.0, winSum, 1e-9, "win probabilities must sum to one")
}

func TestPodiumForecastOrdering(t *testing.T) {
	p := NewPredictor(DefaultCoefficients())

	// Strongest driver on pole versus a weak backmarker.
	entrants := []Entrant{
		{DriverCode: "VER", GridPosition: 1, Rating: 1700},
		{DriverCode: "NOR", GridPosition: 2, Rating: 1600},
		{DriverCode: "ZHO", GridPosition: 20, Rating: 1400},
	}

	forecasts, err := p.PodiumForecast(context.Background(), entrants, Conditions{})
	require.NoError(t, err)

	byCode := map[string]DriverForecast{}
	for _, f := range forecasts {
		byCode[f.DriverCode] = f
	}
	assert.Greater(t, byCode["VER"].WinProb, byCode["NOR"].WinProb)
	assert.Greater(t, byCode["NOR"].WinProb, byCode["ZHO"].WinProb)
	assert.Greater(t, byCode["VER"].PodiumProb, byCode["ZHO"].PodiumProb)
}

func TestPodiumForecastRainRewardsWetSkill(t *testing.T) {
	p := NewPredictor(DefaultCoefficients())

	entrants := []Entrant{
		{DriverCode: "WET", GridPosition: 2, Rating: 1500, WetSkill: 1},
		{DriverCode: "DRY", GridPosition: 1, Rating: 1500, WetSkill: -1},
	}

	dry, err := p.PodiumForecast(context.Background(), entrants, Conditions{Rainfall: false})
	require.NoError(t, err)
	wet, err := p.PodiumForecast(context.Background(), entrants, Conditions{Rainfall: true})
	require.NoError(t, err)

	dryProb := map[string]float64{}
	wetProb := map[string]float64{}
	for i := range dry {
		dryProb[dry[i].DriverCode] = dry[i].WinProb
		wetProb[wet[i].DriverCode] = wet[i].WinProb
	}
	assert.Greater(t, wetProb["WET"], dryProb["WET"])
	assert.Less(t, wetProb["DRY"], dryProb["DRY"])
}

func TestPodiumForecastCircuitFamiliarity(t *testing.T) {
	p := NewPredictor(DefaultCoefficients())

	// Identical drivers except for prior starts at the circuit.
	entrants := []Entrant{
		{DriverCode: "VET", GridPosition: 1, Rating: 1500, Familiarity: 1},
		{DriverCode: "ROO", GridPosition: 2, Rating: 1500, Familiarity: 0},
	}

	forecasts, err := p.PodiumForecast(context.Background(), entrants, Conditions{})
	require.NoError(t, err)

	byCode := map[string]float64{}
	for _, f := range forecasts {
		byCode[f.DriverCode] = f.WinProb
	}
	assert.Greater(t, byCode["VET"], byCode["ROO"],
		"circuit experience must raise the win probability")

	// Zeroing the coefficient removes the edge beyond grid position.
	coeffs := DefaultCoefficients()
	coeffs.FamiliarityGain = 0
	flat := NewPredictor(coeffs)
	flatForecasts, err := flat.PodiumForecast(context.Background(), entrants, Conditions{})
	require.NoError(t, err)
	flatByCode := map[string]float64{}
	for _, f := range flatForecasts {
		flatByCode[f.DriverCode] = f.WinProb
	}
	assert.Less(t, flatByCode["VET"]-flatByCode["ROO"], byCode["VET"]-byCode["ROO"])
}

func TestPodiumForecastLargeFieldUsesApproximation(t *testing.T) {
	p := NewPredictor(DefaultCoefficients())

	forecasts, err := p.PodiumForecast(context.Background(), field(10), Conditions{})
	require.NoError(t, err)

	// Points probability uses the rank approximation; it must still be a
	// probability and at least the podium probability.
	for _, f := range forecasts {
		assert.GreaterOrEqual(t, f.PointsProb, 0.0)
		assert.LessOrEqual(t, f.PointsProb, 1.0)
	}
}

func TestLapTimeFuelEffect(t *testing.T) {
	p := NewPredictor(DefaultCoefficients())

	heavy := p.LapTime(context.Background(), LapInput{
		CircuitLengthKM: 5.0,
		Compound:        "MEDIUM",
		TyreAge:         0,
		FuelLapsLeft:    50,
	})
	light := p.LapTime(context.Background(), LapInput{
		CircuitLengthKM: 5.0,
		Compound:        "MEDIUM",
		TyreAge:         0,
		FuelLapsLeft:    1,
	})
	assert.Greater(t, heavy, light, "a heavier car must lap slower")
}

func TestLapTimeCompoundDegradation(t *testing.T) {
	coeffs := DefaultCoefficients()
	p := NewPredictor(coeffs)

	fresh := p.LapTime(context.Background(), LapInput{
		CircuitLengthKM: 5.0,
		Compound:        "SOFT",
		TyreAge:         0,
		FuelLapsLeft:    10,
	})
	worn := p.LapTime(context.Background(), LapInput{
		CircuitLengthKM: 5.0,
		Compound:        "SOFT",
		TyreAge:         15,
		FuelLapsLeft:    10,
	})
	assert.Greater(t, worn, fresh, "tyre wear must cost lap time")

	// Past the cliff the penalty jumps.
	soft := coeffs.Compound("SOFT")
	beforeCliff := p.LapTime(context.Background(), LapInput{
		CircuitLengthKM: 5.0,
		Compound:        "SOFT",
		TyreAge:         soft.CliffLap - 1,
		FuelLapsLeft:    10,
	})
	afterCliff := p.LapTime(context.Background(), LapInput{
		CircuitLengthKM: 5.0,
		Compound:        "SOFT",
		TyreAge:         soft.CliffLap + 1,
		FuelLapsLeft:    10,
	})
	assert.Greater(t, afterCliff-beforeCliff, soft.CliffPenaltySec*0.9)
}

func TestLapTimeRainPenalty(t *testing.T) {
	p := NewPredictor(DefaultCoefficients())

	in := LapInput{
		CircuitLengthKM: 5.0,
		Compound:        "INTERMEDIATE",
		TyreAge:         3,
		FuelLapsLeft:    20,
	}
	dry := p.LapTime(context.Background(), in)
	in.Conditions.Rainfall = true
	wet := p.LapTime(context.Background(), in)

	assert.Greater(t, wet, dry)
}

func TestLapTimeUnknownCompoundFallsBack(t *testing.T) {
	p := NewPredictor(DefaultCoefficients())

	got := p.LapTime(context.Background(), LapInput{
		CircuitLengthKM: 5.0,
		Compound:        "UNOBTAINIUM",
		FuelLapsLeft:    10,
	})
	assert.False(t, math.IsNaN(got))
	assert.Greater(t, got, 0.0)
}

func TestPaceDelta(t *testing.T) {
	coeffs := DefaultCoefficients()

	assert.Less(t, coeffs.PaceDelta(1600, 1500), 0.0, "stronger driver laps faster")
	assert.Greater(t, coeffs.PaceDelta(1400, 1500), 0.0)
	assert.Zero(t, coeffs.PaceDelta(1500, 1500))
}
