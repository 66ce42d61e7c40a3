// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
)

// IngestDependencies defines the interface for record ingestion.
type IngestDependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	Enqueue(ctx context.Context, record model.IngestRecord) bool
}

// IngestHandler handles ingestion requests.
type IngestHandler struct {
	deps IngestDependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps IngestDependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// ingestRequest mirrors the OpenAPI schema for POST /api/ingest.
type ingestRequest struct {
	model.IngestRecord
}

func (req ingestRequest) validate() error { //nolint:gocritic // hugeParam
	switch {
	case strings.TrimSpace(req.EventID) == "":
		return errors.New("missing event_id")
	case req.Season < 1950:
		return errors.New("invalid season")
	case req.Round < 1:
		return errors.New("invalid round")
	}

	switch req.Kind {
	case model.KindRace:
		if strings.TrimSpace(req.CircuitKey) == "" {
			return errors.New("race record requires circuit_key")
		}
	case model.KindQualifying:
		if strings.TrimSpace(req.DriverCode) == "" || req.QualiPosition < 1 {
			return errors.New("qualifying record requires driver_code and quali_position")
		}
	case model.KindResult:
		if strings.TrimSpace(req.DriverCode) == "" {
			return errors.New("result record requires driver_code")
		}
	case model.KindLap:
		if strings.TrimSpace(req.DriverCode) == "" || req.Lap < 1 {
			return errors.New("lap record requires driver_code and lap")
		}
	case model.KindPitStop:
		if strings.TrimSpace(req.DriverCode) == "" || req.Lap < 1 {
			return errors.New("pit stop record requires driver_code and lap")
		}
	case model.KindWeather:
		// Weather rows are race-scoped; no extra fields required.
	default:
		return errors.New("unknown record kind")
	}
	return nil
}

// HandlePostRecord handles POST /api/ingest requests.
//
// Duplicates are acknowledged with 200, accepted records with 202, and a
// full queue produces 429 so the producer can back off and retry.
func (h *IngestHandler) HandlePostRecord(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_record"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	// Try to enqueue for async loading
	record := req.IngestRecord
	record.DriverCode = strings.ToUpper(record.DriverCode)
	if ok := h.deps.Enqueue(r.Context(), record); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), req.EventID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
