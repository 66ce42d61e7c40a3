// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/predict"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/simulate"
)

// SimulateDependencies defines the interface for strategy simulation.
type SimulateDependencies interface {
	Simulate(ctx context.Context, in simulate.Input) (simulate.Result, error)
	DriverDelta(ctx context.Context, driverCode string) float64
}

// SimulateHandler handles Monte Carlo strategy requests.
type SimulateHandler struct {
	deps SimulateDependencies
}

// NewSimulateHandler creates a new simulate handler.
func NewSimulateHandler(deps SimulateDependencies) *SimulateHandler {
	return &SimulateHandler{deps: deps}
}

// simulateRequest mirrors the OpenAPI schema for POST /api/simulate.
// When driver_code is set and driver_delta is omitted, the delta is
// derived from the driver's current rating.
type simulateRequest struct {
	DriverCode      string             `json:"driver_code,omitempty"`
	RaceLaps        int                `json:"race_laps"`
	CircuitLengthKM float64            `json:"circuit_length_km"`
	PitLossSec      float64            `json:"pit_loss_sec"`
	DriverDelta     float64            `json:"driver_delta,omitempty"`
	Conditions      predict.Conditions `json:"conditions"`
	Strategy        simulate.Strategy  `json:"strategy"`
	Rivals          []simulate.Rival   `json:"rivals,omitempty"`
	Runs            int                `json:"runs,omitempty"`
	Seed            int64              `json:"seed,omitempty"`
}

func (req *simulateRequest) validate() error {
	switch {
	case req.RaceLaps < 1:
		return errors.New("race_laps must be >= 1")
	case req.CircuitLengthKM <= 0:
		return errors.New("circuit_length_km must be positive")
	case len(req.Strategy.Stints) == 0:
		return errors.New("strategy requires at least one stint")
	case req.Runs < 0:
		return errors.New("runs must not be negative")
	}
	return nil
}

// HandleSimulate handles POST /api/simulate requests.
func (h *SimulateHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "api.simulate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	delta := req.DriverDelta
	if delta == 0 && req.DriverCode != "" {
		delta = h.deps.DriverDelta(r.Context(), strings.ToUpper(req.DriverCode))
	}

	result, err := h.deps.Simulate(r.Context(), simulate.Input{
		RaceLaps:        req.RaceLaps,
		CircuitLengthKM: req.CircuitLengthKM,
		PitLossSec:      req.PitLossSec,
		DriverDelta:     delta,
		Conditions:      req.Conditions,
		Strategy:        req.Strategy,
		Rivals:          req.Rivals,
		Runs:            req.Runs,
		Seed:            req.Seed,
	})
	if err != nil {
		switch {
		case errors.Is(err, simulate.ErrInvalidRace),
			errors.Is(err, simulate.ErrEmptyStrategy),
			errors.Is(err, simulate.ErrStrategyLaps),
			errors.Is(err, simulate.ErrTooManyRuns):
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}
