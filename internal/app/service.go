// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	recordqueue "github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/mq/queue"
	workerpool "github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/mq/worker"
	repository "github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/repository"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/dedupe"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/predict"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/rating"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/simulate"
	"github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
	"github.com/Shivam-Lahoti/F1-Predictor/pkg/metrics"
)

// Default rating refresh cadence. A race is only rated once its result
// row count has been stable for a full interval, so mid-ingest races are
// never scored on partial classifications.
const defaultRatingRefreshInterval = 3 * time.Second

// familiaritySaturation is the number of prior starts at a circuit after
// which a driver counts as fully familiar with it.
const familiaritySaturation = 5.0

// Service wires the race store, ingestion pipeline, rating model and the
// prediction engines behind a single facade.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.RaceStore
	rankings    repository.Rankings
	deduper     dedupe.Deduper
	recordQueue recordqueue.Queue
	workerPool  *workerpool.Pool
	ratingModel rating.Model
	predictor   *predict.Predictor
	simEngine   *simulate.Engine

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	baseRating      float64
	ratingKFactor   float64
	coeffs          predict.Coefficients
	simDefaultRuns  int
	simMaxRuns      int
	refreshInterval time.Duration

	// Rating bookkeeping: races already scored, and the last observed
	// result count for races still filling up.
	appliedRaces map[int64]bool
	pendingRaces map[int64]int

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects the race store backend. Defaults to the in-memory
// store when unset.
func WithStore(store repository.RaceStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRatingParams sets the base rating and K factor of the Elo model.
func WithRatingParams(base, kFactor float64) Option {
	return func(s *Service) {
		if base > 0 {
			s.baseRating = base
		}
		if kFactor > 0 {
			s.ratingKFactor = kFactor
		}
	}
}

// WithCoefficients sets the lap-time model coefficient table.
func WithCoefficients(coeffs predict.Coefficients) Option {
	return func(s *Service) {
		s.coeffs = coeffs
	}
}

// WithSimulationRuns sets the default and maximum Monte Carlo run counts.
func WithSimulationRuns(defaultRuns, maxRuns int) Option {
	return func(s *Service) {
		if defaultRuns > 0 {
			s.simDefaultRuns = defaultRuns
		}
		if maxRuns > 0 {
			s.simMaxRuns = maxRuns
		}
	}
}

// WithRatingRefreshInterval sets the rating refresh loop cadence.
func WithRatingRefreshInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.refreshInterval = interval
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       100000,
		dedupeSize:      500000,
		baseRating:      1500,
		ratingKFactor:   24,
		coeffs:          predict.DefaultCoefficients(),
		simDefaultRuns:  2000,
		simMaxRuns:      50000,
		refreshInterval: defaultRatingRefreshInterval,
		appliedRaces:    make(map[int64]bool),
		pendingRaces:    make(map[int64]int),
		stopCh:          make(chan struct{}),
		logger:          nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting prediction service...")

	// Initialize components
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory race store")
	}
	s.rankings = repository.NewTreapRankings(ctx)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.recordQueue = recordqueue.NewInMemoryQueue(
		recordqueue.WithCapacity(s.queueSize),
		recordqueue.WithBufferSize(s.queueSize),
	)
	s.ratingModel = rating.NewEloModel(
		rating.WithBaseRating(s.baseRating),
		rating.WithKFactor(s.ratingKFactor),
	)
	// The model starts empty again, so previously scored races must be
	// re-applied by the refresh loop.
	s.appliedRaces = make(map[int64]bool)
	s.predictor = predict.NewPredictor(s.coeffs)
	s.simEngine = simulate.NewEngine(s.predictor,
		simulate.WithDefaultRuns(s.simDefaultRuns),
		simulate.WithMaxRuns(s.simMaxRuns),
	)

	// Create and start worker pool loading records into the store
	s.workerPool = workerpool.NewPool(s.workerCount, s.recordQueue, s.store)
	s.workerPool.Start(ctx)

	// Rating refresh loop folds new race results into driver ratings.
	// The stop channel is remade here so a stopped service can start
	// again with a live loop.
	s.stopCh = make(chan struct{})
	go s.ratingLoop(ctx, s.stopCh)

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping prediction service...")

	// Close the queue first so workers drain and exit
	if q, ok := s.recordQueue.(*recordqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	// Stop worker pool
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	// Close rankings snapshot loop
	if r, ok := s.rankings.(interface{ Close() error }); ok {
		_ = r.Close()
	}

	// Close the store
	if s.store != nil {
		_ = s.store.Close(context.Background())
	}

	// Signal the rating loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "prediction service stopped")
}

// SeenAndRecord atomically checks if a record id was seen and records it
// if not. Returns true if the record was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordIngestRecordDuplicate()
	}
	return seen
}

// Unrecord removes a record ID from the seen list, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits an ingestion record for asynchronous loading.
// Idempotency is handled by the caller via SeenAndRecord.
func (s *Service) Enqueue(ctx context.Context, record model.IngestRecord) bool { //nolint:gocritic // hugeParam
	s.logger.Debug(ctx, "enqueueing record",
		logger.String("eventID", record.EventID),
		logger.String("kind", string(record.Kind)),
	)
	return s.recordQueue.Enqueue(ctx, record)
}

// ListRaces returns races, optionally filtered by season.
func (s *Service) ListRaces(ctx context.Context, season, limit int) ([]model.Race, error) {
	return s.store.ListRaces(ctx, season, limit)
}

// GetRaceDetail returns a race with its related rows.
func (s *Service) GetRaceDetail(ctx context.Context, id int64) (model.RaceDetail, error) {
	return s.store.GetRaceDetail(ctx, id)
}

// ListDrivers returns known drivers.
func (s *Service) ListDrivers(ctx context.Context, limit int) ([]model.Driver, error) {
	return s.store.ListDrivers(ctx, limit)
}

// TopN returns the top N driver power rankings.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.RankingEntry, error) {
	return s.rankings.TopN(ctx, n)
}

// DriverRank returns the ranking entry for a driver code.
func (s *Service) DriverRank(ctx context.Context, driverCode string) (repository.RankingEntry, error) {
	return s.rankings.Rank(ctx, driverCode)
}

// Forecast computes podium probabilities. When entrants is empty the
// field is derived from the race's qualifying classification and the
// current driver ratings.
func (s *Service) Forecast(ctx context.Context, raceID int64, entrants []predict.Entrant, cond predict.Conditions) ([]predict.DriverForecast, error) {
	start := time.Now()
	defer func() {
		metrics.RecordPredictionLatency(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordPredictionRequest()

	if len(entrants) == 0 {
		derived, err := s.raceEntrants(ctx, raceID)
		if err != nil {
			return nil, err
		}
		entrants = derived
	}

	// Fill missing ratings from the model so callers may omit them.
	for i := range entrants {
		if entrants[i].Rating == 0 {
			entrants[i].Rating = s.ratingModel.Rating(ctx, entrants[i].DriverCode)
		}
	}

	return s.predictor.PodiumForecast(ctx, entrants, cond)
}

// Simulate runs the Monte Carlo strategy engine.
func (s *Service) Simulate(ctx context.Context, in simulate.Input) (simulate.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSimulationLatency(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordSimulationRequest()

	result, err := s.simEngine.Run(ctx, in)
	if err != nil {
		metrics.RecordErrorByComponent("simulate", "run_failed")
		return simulate.Result{}, err
	}
	metrics.RecordSimulationRuns(result.Runs)
	return result, nil
}

// DriverDelta converts a driver's rating into a per-lap pace delta
// against the field average, for simulation requests keyed by driver.
func (s *Service) DriverDelta(ctx context.Context, driverCode string) float64 {
	return s.coeffs.PaceDelta(s.ratingModel.Rating(ctx, driverCode), s.baseRating)
}

// raceEntrants builds the prediction field for a race from qualifying,
// falling back to race-result grid slots when qualifying is missing.
func (s *Service) raceEntrants(ctx context.Context, raceID int64) ([]predict.Entrant, error) {
	if raceID <= 0 {
		return nil, predict.ErrNoEntrants
	}

	quali, err := s.store.QualifyingForRace(ctx, raceID)
	if err != nil {
		return nil, err
	}
	familiarity := s.circuitFamiliarity(ctx, raceID)

	entrants := make([]predict.Entrant, 0, len(quali))
	for _, q := range quali {
		driver, err := s.store.GetDriver(ctx, q.DriverID)
		if err != nil {
			continue
		}
		entrants = append(entrants, predict.Entrant{
			DriverCode:   driver.Code,
			GridPosition: q.Position,
			Rating:       s.ratingModel.Rating(ctx, driver.Code),
			Familiarity:  familiarity[q.DriverID],
		})
	}
	if len(entrants) > 0 {
		return entrants, nil
	}

	results, err := s.store.ResultsForRace(ctx, raceID)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		driver, err := s.store.GetDriver(ctx, r.DriverID)
		if err != nil {
			continue
		}
		entrants = append(entrants, predict.Entrant{
			DriverCode:   driver.Code,
			GridPosition: r.GridPosition,
			Rating:       s.ratingModel.Rating(ctx, driver.Code),
			Familiarity:  familiarity[r.DriverID],
		})
	}
	if len(entrants) == 0 {
		return nil, fmt.Errorf("%w: race %d has no field", predict.ErrNoEntrants, raceID)
	}
	return entrants, nil
}

// circuitFamiliarity scores each driver's prior starts at the circuit
// hosting raceID, saturating at familiaritySaturation starts. A missing
// circuit or store error degrades to zero familiarity for everyone.
func (s *Service) circuitFamiliarity(ctx context.Context, raceID int64) map[int64]float64 {
	races, err := s.store.ListRaces(ctx, 0, 0)
	if err != nil {
		return nil
	}
	var circuitID int64
	for _, r := range races {
		if r.ID == raceID {
			circuitID = r.CircuitID
			break
		}
	}
	if circuitID == 0 {
		return nil
	}

	starts := make(map[int64]int)
	for _, r := range races {
		if r.ID == raceID || r.CircuitID != circuitID {
			continue
		}
		results, err := s.store.ResultsForRace(ctx, r.ID)
		if err != nil {
			continue
		}
		for _, res := range results {
			starts[res.DriverID]++
		}
	}

	out := make(map[int64]float64, len(starts))
	for id, n := range starts {
		f := float64(n) / familiaritySaturation
		if f > 1 {
			f = 1
		}
		out[id] = f
	}
	return out
}

// ratingLoop periodically folds newly loaded race results into the
// rating model and the rankings treap. The stop channel is passed in so
// a restart cannot race the loop against a remade s.stopCh.
func (s *Service) ratingLoop(ctx context.Context, stopCh <-chan struct{}) {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if err := s.refreshRatings(ctx); err != nil {
				s.logger.Warn(ctx, "rating refresh failed", logger.Error(err))
			}
		}
	}
}

// refreshRatings walks races in season/round order and applies the
// rating update once per race. Records arrive out of order, so a race is
// scored only after its classified result count has been stable for one
// full refresh interval.
func (s *Service) refreshRatings(ctx context.Context) error {
	races, err := s.store.ListRaces(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("list races: %w", err)
	}

	for _, race := range races {
		s.mu.RLock()
		applied := s.appliedRaces[race.ID]
		s.mu.RUnlock()
		if applied {
			continue
		}

		results, err := s.store.ResultsForRace(ctx, race.ID)
		if err != nil {
			return fmt.Errorf("results for race %d: %w", race.ID, err)
		}

		outcomes := make([]rating.Outcome, 0, len(results))
		for _, r := range results {
			if r.FinalPosition <= 0 {
				continue
			}
			driver, err := s.store.GetDriver(ctx, r.DriverID)
			if err != nil {
				continue
			}
			outcomes = append(outcomes, rating.Outcome{
				DriverCode: driver.Code,
				Position:   r.FinalPosition,
			})
		}

		s.mu.Lock()
		stable := len(outcomes) >= 2 && s.pendingRaces[race.ID] == len(outcomes)
		s.pendingRaces[race.ID] = len(outcomes)
		s.mu.Unlock()
		if !stable {
			continue
		}

		if err := s.applyRace(ctx, race, outcomes); err != nil {
			s.logger.Warn(ctx, "rating update failed",
				logger.Int64("raceID", race.ID),
				logger.Error(err),
			)
		}
	}

	metrics.UpdateRankedDrivers(s.rankings.Count(ctx))
	return nil
}

// applyRace scores one race and pushes the changed ratings into the
// rankings treap.
func (s *Service) applyRace(ctx context.Context, race model.Race, outcomes []rating.Outcome) error { //nolint:gocritic // hugeParam
	changes, err := s.ratingModel.ApplyRace(ctx, outcomes)
	if err != nil {
		return err
	}

	for _, change := range changes {
		if _, err := s.rankings.SetRating(ctx, change.DriverCode, change.Rating, change.Delta); err != nil {
			return fmt.Errorf("set rating for %s: %w", change.DriverCode, err)
		}
		metrics.RecordRatingUpdate()
	}

	s.mu.Lock()
	s.appliedRaces[race.ID] = true
	delete(s.pendingRaces, race.ID)
	s.mu.Unlock()

	metrics.RecordRatingRaceApplied()
	s.logger.Info(ctx, "applied race to ratings",
		logger.Int("season", race.Season),
		logger.Int("round", race.Round),
		logger.String("race", race.Name),
		logger.Int("drivers", len(outcomes)),
	)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.recordQueue.Len(ctx)
		rankedDrivers := s.rankings.Count(ctx)

		stats["queueLength"] = queueLen
		stats["rankedDrivers"] = rankedDrivers
		stats["appliedRaces"] = len(s.appliedRaces)
		stats["dedupeEntries"] = s.deduper.Size()

		if counts, err := s.store.Counts(ctx); err == nil {
			stats["storeRows"] = counts
			for table, count := range counts {
				metrics.UpdateStoreRows(table, count)
			}
		}

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateRankedDrivers(rankedDrivers)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
