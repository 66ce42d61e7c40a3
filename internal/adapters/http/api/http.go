// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/repository"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/predict"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/simulate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SeenAndRecord atomically checks and records an idempotency key.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord releases an idempotency key after a failed enqueue.
	Unrecord(ctx context.Context, id string)

	// Enqueue pushes a record for async loading. Returns false on backpressure.
	Enqueue(ctx context.Context, record model.IngestRecord) bool

	// Read operations expose stored race data.
	ListRaces(ctx context.Context, season, limit int) ([]model.Race, error)
	GetRaceDetail(ctx context.Context, id int64) (model.RaceDetail, error)
	ListDrivers(ctx context.Context, limit int) ([]model.Driver, error)

	// Rankings expose the driver rating order.
	TopN(ctx context.Context, n int) ([]RankingEntry, error)
	DriverRank(ctx context.Context, driverCode string) (RankingEntry, error)

	// Model operations.
	Forecast(ctx context.Context, raceID int64, entrants []predict.Entrant, cond predict.Conditions) ([]predict.DriverForecast, error)
	Simulate(ctx context.Context, in simulate.Input) (simulate.Result, error)
	DriverDelta(ctx context.Context, driverCode string) float64
}

// RankingEntry mirrors the read shape returned by ranking queries.
type RankingEntry = repository.RankingEntry

// Server wires HTTP routes for the business API.
type Server struct {
	infoHandler     *InfoHandler
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	racesHandler    *RacesHandler
	driversHandler  *DriversHandler
	rankingsHandler *RankingsHandler
	ingestHandler   *IngestHandler
	predictHandler  *PredictHandler
	simulateHandler *SimulateHandler
}

// Limits caps list and ranking response sizes.
type Limits struct {
	MaxRankingLimit int
	MaxListLimit    int
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, limits Limits) *Server {
	return &Server{
		infoHandler:     NewInfoHandler(),
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		racesHandler:    NewRacesHandler(deps, limits.MaxListLimit),
		driversHandler:  NewDriversHandler(deps, limits.MaxListLimit),
		rankingsHandler: NewRankingsHandler(deps, limits.MaxRankingLimit),
		ingestHandler:   NewIngestHandler(deps),
		predictHandler:  NewPredictHandler(deps),
		simulateHandler: NewSimulateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/races", MetricsMiddleware(s.racesHandler.HandleListRaces, "races"))
	mux.HandleFunc("/api/races/", MetricsMiddleware(s.racesHandler.HandleGetRace, "race_detail"))
	mux.HandleFunc("/api/drivers", MetricsMiddleware(s.driversHandler.HandleListDrivers, "drivers"))
	mux.HandleFunc("/api/rankings", MetricsMiddleware(s.rankingsHandler.HandleTopN, "rankings"))
	mux.HandleFunc("/api/rankings/", MetricsMiddleware(s.rankingsHandler.HandleDriverRank, "driver_rank"))
	mux.HandleFunc("/api/ingest", MetricsMiddleware(s.ingestHandler.HandlePostRecord, "ingest"))
	mux.HandleFunc("/api/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/api/simulate", MetricsMiddleware(s.simulateHandler.HandleSimulate, "simulate"))
	mux.HandleFunc("/", MetricsMiddleware(s.infoHandler.HandleInfo, "info"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, repository.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
