// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
)

// DriverDependencies defines the interface for driver read operations.
type DriverDependencies interface {
	ListDrivers(ctx context.Context, limit int) ([]model.Driver, error)
}

// DriversHandler handles driver listing requests.
type DriversHandler struct {
	deps     DriverDependencies
	maxLimit int
}

// NewDriversHandler creates a new drivers handler.
func NewDriversHandler(deps DriverDependencies, maxLimit int) *DriversHandler {
	return &DriversHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleListDrivers handles GET /api/drivers?limit=N requests.
func (h *DriversHandler) HandleListDrivers(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_drivers"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := h.maxLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	drivers, err := h.deps.ListDrivers(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}
