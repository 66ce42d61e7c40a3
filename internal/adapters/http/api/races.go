// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
)

// RaceDependencies defines the interface for race read operations.
type RaceDependencies interface {
	ListRaces(ctx context.Context, season, limit int) ([]model.Race, error)
	GetRaceDetail(ctx context.Context, id int64) (model.RaceDetail, error)
}

// RacesHandler handles race listing and detail requests.
type RacesHandler struct {
	deps     RaceDependencies
	maxLimit int
}

// NewRacesHandler creates a new races handler.
func NewRacesHandler(deps RaceDependencies, maxLimit int) *RacesHandler {
	return &RacesHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleListRaces handles GET /api/races?season=YYYY&limit=N requests.
func (h *RacesHandler) HandleListRaces(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_races"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	season := 0
	if s := r.URL.Query().Get("season"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1950 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		season = n
	}

	limit := h.maxLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	races, err := h.deps.ListRaces(r.Context(), season, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, races)
}

// HandleGetRace handles GET /api/races/{id} requests.
func (h *RacesHandler) HandleGetRace(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_race"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	// Extract path parameter after /api/races/
	path := strings.TrimPrefix(r.URL.Path, "/api/races/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	detail, err := h.deps.GetRaceDetail(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
