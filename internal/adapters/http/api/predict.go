// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/predict"
)

// PredictDependencies defines the interface for forecast operations.
type PredictDependencies interface {
	Forecast(ctx context.Context, raceID int64, entrants []predict.Entrant, cond predict.Conditions) ([]predict.DriverForecast, error)
}

// PredictHandler handles podium forecast requests.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// predictRequest mirrors the OpenAPI schema for POST /api/predict.
// Either race_id or an explicit entrant list must be provided.
type predictRequest struct {
	RaceID     int64              `json:"race_id,omitempty"`
	Entrants   []predict.Entrant  `json:"entrants,omitempty"`
	Conditions predict.Conditions `json:"conditions"`
}

func (req *predictRequest) validate() error {
	if req.RaceID <= 0 && len(req.Entrants) == 0 {
		return errors.New("either race_id or entrants is required")
	}
	for i := range req.Entrants {
		if strings.TrimSpace(req.Entrants[i].DriverCode) == "" {
			return errors.New("entrant missing driver_code")
		}
		if req.Entrants[i].GridPosition < 1 {
			return errors.New("entrant grid_position must be >= 1")
		}
	}
	return nil
}

// predictResponse is the forecast payload.
type predictResponse struct {
	RaceID    int64                    `json:"race_id,omitempty"`
	Forecasts []predict.DriverForecast `json:"forecasts"`
}

// HandlePredict handles POST /api/predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	for i := range req.Entrants {
		req.Entrants[i].DriverCode = strings.ToUpper(req.Entrants[i].DriverCode)
	}

	forecasts, err := h.deps.Forecast(r.Context(), req.RaceID, req.Entrants, req.Conditions)
	if err != nil {
		switch {
		case errors.Is(err, predict.ErrNoEntrants):
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{RaceID: req.RaceID, Forecasts: forecasts})
}
