// Package rating maintains Elo-style strength ratings for drivers.
//
// Ratings are updated from race classifications: every pair of classified
// drivers is treated as a head-to-head result and scored with the usual
// logistic expectation. The per-pair K factor is scaled down by field size
// so a single race moves a rating by at most ~K points.
//
// On top of the Elo base, each driver carries a form score: an
// exponentially decayed average of recent finishes, +1 for a win down to
// -1 for last place. The published rating is the Elo base plus the
// weighted form score, so a driver on a streak ranks above an equally
// rated driver in a slump.
package rating

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Default model parameters.
const (
	defaultBaseRating = 1500.0
	defaultKFactor    = 24.0
	defaultFloor      = 100.0
	eloScale          = 400.0

	defaultFormWeight = 12.0
	defaultFormDecay  = 0.7
)

// Outcome is one driver's classification in a race. Position 0 means the
// driver was not classified (DNF, DSQ) and is excluded from updates.
type Outcome struct {
	DriverCode string
	Position   int
}

// Change reports a single driver's rating move after an update.
type Change struct {
	DriverCode string
	Rating     float64
	Delta      float64
}

// Model computes and stores driver ratings.
type Model interface {
	// ApplyRace updates ratings from a race classification and returns
	// the per-driver changes, ordered by driver code.
	ApplyRace(ctx context.Context, outcomes []Outcome) ([]Change, error)

	// Rating returns the current rating for a driver, or the base rating
	// if the driver has never been rated.
	Rating(ctx context.Context, driverCode string) float64

	// Snapshot returns a copy of all current ratings.
	Snapshot(ctx context.Context) map[string]float64
}

// Option applies a configuration option to the EloModel.
type Option func(*EloModel)

// WithBaseRating sets the rating assigned to unseen drivers.
func WithBaseRating(base float64) Option {
	return func(m *EloModel) {
		if base > 0 {
			m.base = base
		}
	}
}

// WithKFactor sets the K factor controlling rating volatility.
func WithKFactor(k float64) Option {
	return func(m *EloModel) {
		if k > 0 {
			m.kFactor = k
		}
	}
}

// WithFloor sets the minimum rating a driver can reach.
func WithFloor(floor float64) Option {
	return func(m *EloModel) {
		if floor >= 0 {
			m.floor = floor
		}
	}
}

// WithFormWeight sets how many rating points a full form swing is worth.
// Zero disables the form component.
func WithFormWeight(weight float64) Option {
	return func(m *EloModel) {
		if weight >= 0 {
			m.formWeight = weight
		}
	}
}

// WithFormDecay sets the per-race decay of the form score, in (0, 1).
func WithFormDecay(decay float64) Option {
	return func(m *EloModel) {
		if decay > 0 && decay < 1 {
			m.formDecay = decay
		}
	}
}

// EloModel implements Model with pairwise Elo updates.
type EloModel struct {
	mu      sync.RWMutex
	ratings map[string]float64
	form    map[string]float64
	base    float64
	kFactor float64
	floor   float64

	formWeight float64
	formDecay  float64
}

// NewEloModel constructs an EloModel with configuration options.
func NewEloModel(opts ...Option) *EloModel {
	m := &EloModel{
		ratings:    make(map[string]float64),
		form:       make(map[string]float64),
		base:       defaultBaseRating,
		kFactor:    defaultKFactor,
		floor:      defaultFloor,
		formWeight: defaultFormWeight,
		formDecay:  defaultFormDecay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// expected returns the probability that a beats b under the logistic model.
func expected(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/eloScale))
}

// ApplyRace updates ratings from a race classification.
func (m *EloModel) ApplyRace(ctx context.Context, outcomes []Outcome) ([]Change, error) {
	classified := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Position > 0 && o.DriverCode != "" {
			classified = append(classified, o)
		}
	}
	if len(classified) < 2 {
		return nil, ErrTooFewDrivers
	}
	sort.Slice(classified, func(i, j int) bool {
		return classified[i].Position < classified[j].Position
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	before := make(map[string]float64, len(classified))
	for _, o := range classified {
		before[o.DriverCode] = m.publishedLocked(o.DriverCode)
	}

	// Per-pair K so the aggregate move per race stays near kFactor.
	pairK := m.kFactor / float64(len(classified)-1)

	deltas := make(map[string]float64, len(classified))
	for i := 0; i < len(classified); i++ {
		for j := i + 1; j < len(classified); j++ {
			winner := classified[i].DriverCode
			loser := classified[j].DriverCode
			rw := m.ratingLocked(winner)
			rl := m.ratingLocked(loser)
			gain := pairK * (1 - expected(rw, rl))
			deltas[winner] += gain
			deltas[loser] -= gain
		}
	}

	for code, delta := range deltas {
		next := m.ratingLocked(code) + delta
		if next < m.floor {
			next = m.floor
		}
		m.ratings[code] = next
	}

	// Form: winner scores +1, last place -1, linear in between.
	span := float64(len(classified) - 1)
	for _, o := range classified {
		score := 1 - 2*float64(o.Position-1)/span
		m.form[o.DriverCode] = m.formDecay*m.form[o.DriverCode] + (1-m.formDecay)*score
	}

	changes := make([]Change, 0, len(classified))
	for _, o := range classified {
		after := m.publishedLocked(o.DriverCode)
		changes = append(changes, Change{
			DriverCode: o.DriverCode,
			Rating:     after,
			Delta:      after - before[o.DriverCode],
		})
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].DriverCode < changes[j].DriverCode
	})
	return changes, nil
}

// Rating returns the current published rating for a driver, form included.
func (m *EloModel) Rating(ctx context.Context, driverCode string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publishedLocked(driverCode)
}

// Form returns the current form score for a driver, in [-1, 1].
func (m *EloModel) Form(ctx context.Context, driverCode string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.form[driverCode]
}

// Snapshot returns a copy of all current published ratings.
func (m *EloModel) Snapshot(ctx context.Context) map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.ratings))
	for code := range m.ratings {
		out[code] = m.publishedLocked(code)
	}
	return out
}

func (m *EloModel) ratingLocked(driverCode string) float64 {
	if r, ok := m.ratings[driverCode]; ok {
		return r
	}
	return m.base
}

// publishedLocked folds the weighted form score into the Elo base. The
// floor applies to the published value too.
func (m *EloModel) publishedLocked(driverCode string) float64 {
	r := m.ratingLocked(driverCode) + m.formWeight*m.form[driverCode]
	if r < m.floor {
		r = m.floor
	}
	return r
}
