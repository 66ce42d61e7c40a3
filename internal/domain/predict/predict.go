// Package predict implements the podium classifier and lap-time regressor.
//
// The classifier turns driver strength composites into a Plackett-Luce
// choice model: win probabilities are a softmax over strengths, and podium
// probabilities come from exact top-three enumeration (O(n^3), fine for a
// 20-car field). The regressor is a linear model over fuel load, tyre
// state and weather, parameterized by the Coefficients table.
package predict

import (
	"context"
	"math"
	"sort"
)

// Entrant is one driver in the prediction context.
type Entrant struct {
	DriverCode   string  `json:"driver_code"`
	GridPosition int     `json:"grid_position"`
	Rating       float64 `json:"rating"`
	WetSkill     float64 `json:"wet_skill,omitempty"`   // [-1, 1], 0 = neutral
	Familiarity  float64 `json:"familiarity,omitempty"` // [0, 1], prior starts at this circuit
}

// Conditions describes the expected race conditions.
type Conditions struct {
	TrackTempC float64 `json:"track_temp_c"`
	Rainfall   bool    `json:"rainfall"`
}

// DriverForecast is the classifier output for one driver.
type DriverForecast struct {
	DriverCode string  `json:"driver_code"`
	WinProb    float64 `json:"win_prob"`
	PodiumProb float64 `json:"podium_prob"`
	PointsProb float64 `json:"points_prob"`
}

// Predictor computes race forecasts from entrant strengths.
type Predictor struct {
	coeffs Coefficients
}

// NewPredictor constructs a Predictor around a coefficient table.
func NewPredictor(coeffs Coefficients) *Predictor {
	if len(coeffs.Compounds) == 0 {
		coeffs = DefaultCoefficients()
	}
	return &Predictor{coeffs: coeffs}
}

// Coefficients exposes the active parameter table.
func (p *Predictor) Coefficients() Coefficients {
	return p.coeffs
}

// strength maps an entrant to a positive Plackett-Luce weight.
func (p *Predictor) strength(e Entrant, cond Conditions) float64 {
	s := e.Rating / p.coeffs.RatingScale
	s -= p.coeffs.GridWeight * float64(e.GridPosition-1)
	s += p.coeffs.FamiliarityGain * e.Familiarity
	if cond.Rainfall {
		s += p.coeffs.WetSkillGain * e.WetSkill
	}
	return math.Exp(s)
}

// PodiumForecast computes per-driver win, podium and points probabilities.
// Win probabilities across the field sum to one.
func (p *Predictor) PodiumForecast(ctx context.Context, entrants []Entrant, cond Conditions) ([]DriverForecast, error) {
	n := len(entrants)
	if n == 0 {
		return nil, ErrNoEntrants
	}

	w := make([]float64, n)
	var total float64
	for i, e := range entrants {
		w[i] = p.strength(e, cond)
		total += w[i]
	}

	out := make([]DriverForecast, n)
	for i, e := range entrants {
		out[i] = DriverForecast{
			DriverCode: e.DriverCode,
			WinProb:    w[i] / total,
			PodiumProb: topKProb(w, total, i, 3),
			PointsProb: topKProb(w, total, i, 10),
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].WinProb != out[j].WinProb {
			return out[i].WinProb > out[j].WinProb
		}
		return out[i].DriverCode < out[j].DriverCode
	})
	return out, nil
}

// topKProb returns the probability that entrant i finishes in the top k
// under the Plackett-Luce model with weights w.
//
// Exact enumeration for k=1..3; for larger k it falls back to a rank
// expectation approximation, which keeps /api/predict cheap for the
// points-position (top-10) estimate.
func topKProb(w []float64, total float64, i int, k int) float64 {
	n := len(w)
	if k >= n {
		return 1
	}
	switch k {
	case 1:
		return w[i] / total
	case 2:
		p := w[i] / total
		for j := range w {
			if j == i {
				continue
			}
			p += (w[j] / total) * (w[i] / (total - w[j]))
		}
		return p
	case 3:
		p := topKProb(w, total, i, 2)
		for j := range w {
			if j == i {
				continue
			}
			for l := range w {
				if l == i || l == j {
					continue
				}
				p += (w[j] / total) * (w[l] / (total - w[j])) * (w[i] / (total - w[j] - w[l]))
			}
		}
		return p
	default:
		// Expected rank of i: 1 + sum_j P(j beats i).
		expRank := 1.0
		for j := range w {
			if j == i {
				continue
			}
			expRank += w[j] / (w[i] + w[j])
		}
		// Logistic cutoff around position k with unit spread.
		return 1.0 / (1.0 + math.Exp(expRank-float64(k)-0.5))
	}
}

// LapInput describes one lap for the regressor.
type LapInput struct {
	CircuitLengthKM float64 `json:"circuit_length_km"`
	Compound        string  `json:"compound"`
	TyreAge         int     `json:"tyre_age"` // laps already run on this set
	FuelLapsLeft    int     `json:"fuel_laps_left"`
	DriverDelta     float64 `json:"driver_delta"` // per-lap offset vs field, seconds
	Conditions      Conditions
}

// LapTime predicts a single lap time in seconds.
func (p *Predictor) LapTime(ctx context.Context, in LapInput) float64 {
	cc := p.coeffs.Compound(in.Compound)

	t := p.coeffs.BasePaceSecPerKM * in.CircuitLengthKM
	t += cc.PaceOffsetSec
	t += cc.DegSecPerLap * float64(in.TyreAge)
	if cc.CliffLap > 0 && in.TyreAge > cc.CliffLap {
		t += cc.CliffPenaltySec * float64(in.TyreAge-cc.CliffLap)
	}
	t += p.coeffs.FuelEffectSecPerLap * float64(in.FuelLapsLeft)
	t += p.coeffs.TempSensitivity * (in.Conditions.TrackTempC - p.coeffs.ReferenceTrackTemp)
	if in.Conditions.Rainfall {
		t += p.coeffs.RainPenaltySec
	}
	t += in.DriverDelta
	if t < 0 {
		t = 0
	}
	return t
}
