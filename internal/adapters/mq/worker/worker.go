// Package worker defines the ingestion workers that transform queued
// records and load them into the race store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/mq/queue"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
	"github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
	"github.com/Shivam-Lahoti/F1-Predictor/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Record abstracts what workers read off the queue.
type Record = model.IngestRecord

// Loader is the write side of the race store as seen by workers.
type Loader interface {
	EnsureCircuit(ctx context.Context, c model.Circuit) (model.Circuit, error)
	EnsureDriver(ctx context.Context, d model.Driver) (model.Driver, error)
	EnsureTeam(ctx context.Context, t model.Team) (model.Team, error)
	EnsureRace(ctx context.Context, r model.Race) (model.Race, error)
	AddQualifyingResult(ctx context.Context, q model.QualifyingResult) error
	AddRaceResult(ctx context.Context, r model.RaceResult) error
	AddLapTime(ctx context.Context, l model.LapTime) error
	AddPitStop(ctx context.Context, p model.PitStop) error
	AddWeather(ctx context.Context, w model.Weather) error
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Record
}

// Worker processes ingestion records using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// LoadWorker implements Worker for loading ingestion records.
type LoadWorker struct {
	queue  Queue
	loader Loader
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewLoadWorker creates a new worker with configuration options.
func NewLoadWorker(queue Queue, loader Loader, opts ...Option) *LoadWorker {
	w := &LoadWorker{
		queue:    queue,
		loader:   loader,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *LoadWorker) Run(ctx context.Context) {
	defer close(w.done)

	recordChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case record, ok := <-recordChan:
			if !ok {
				return
			}
			if err := w.processRecord(ctx, record); err != nil {
				w.logger.Error(ctx, "error processing record",
					logger.String("eventID", record.EventID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *LoadWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processRecord transforms one queued record and loads it into the store.
func (w *LoadWorker) processRecord(ctx context.Context, record queue.Record) error { //nolint:gocritic // hugeParam: Record passes by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	race, err := w.ensureRace(ctx, record)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "ensure_race")
		return fmt.Errorf("ensure race for %s: %w", record.EventID, err)
	}

	switch record.Kind {
	case model.KindRace:
		// Race header work already done by ensureRace.
		err = nil
	case model.KindQualifying:
		err = w.loadQualifying(ctx, race, record)
	case model.KindResult:
		err = w.loadResult(ctx, race, record)
	case model.KindLap:
		err = w.loadLap(ctx, race, record)
	case model.KindPitStop:
		err = w.loadPitStop(ctx, race, record)
	case model.KindWeather:
		err = w.loader.AddWeather(ctx, model.Weather{
			RaceID:    race.ID,
			Lap:       record.Lap,
			AirTemp:   record.AirTemp,
			TrackTemp: record.TrackTemp,
			Humidity:  record.Humidity,
			Pressure:  record.Pressure,
			WindSpeed: record.WindSpeed,
			Rainfall:  record.Rainfall,
		})
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, record.Kind)
	}

	if err != nil {
		metrics.RecordIngestLoadError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "load_error")
		return fmt.Errorf("load %s record %s: %w", record.Kind, record.EventID, err)
	}

	metrics.RecordIngestRecordProcessed(string(record.Kind))
	return nil
}

// ensureRace resolves the race row for a record, creating the circuit and
// race when the header has not been seen yet. Records may arrive out of
// order across workers, so every kind can create the race skeleton.
func (w *LoadWorker) ensureRace(ctx context.Context, record queue.Record) (model.Race, error) { //nolint:gocritic // hugeParam
	var circuitID int64
	if record.CircuitKey != "" {
		circuit, err := w.loader.EnsureCircuit(ctx, model.Circuit{
			Key:      record.CircuitKey,
			Name:     record.CircuitName,
			Location: record.Location,
			Country:  record.Country,
		})
		if err != nil {
			return model.Race{}, err
		}
		circuitID = circuit.ID
	}

	return w.loader.EnsureRace(ctx, model.Race{
		Season:    record.Season,
		Round:     record.Round,
		Name:      record.RaceName,
		CircuitID: circuitID,
		Date:      record.Date,
	})
}

func (w *LoadWorker) ensureDriver(ctx context.Context, record queue.Record) (model.Driver, error) { //nolint:gocritic // hugeParam
	return w.loader.EnsureDriver(ctx, model.Driver{
		Number:        record.DriverNumber,
		Code:          record.DriverCode,
		FirstName:     record.FirstName,
		LastName:      record.LastName,
		BroadcastName: record.BroadcastName,
		Nationality:   record.Nationality,
	})
}

func (w *LoadWorker) loadQualifying(ctx context.Context, race model.Race, record queue.Record) error { //nolint:gocritic // hugeParam
	driver, err := w.ensureDriver(ctx, record)
	if err != nil {
		return err
	}
	return w.loader.AddQualifyingResult(ctx, model.QualifyingResult{
		RaceID:   race.ID,
		DriverID: driver.ID,
		Position: record.QualiPosition,
		Q1:       record.Q1,
		Q2:       record.Q2,
		Q3:       record.Q3,
	})
}

func (w *LoadWorker) loadResult(ctx context.Context, race model.Race, record queue.Record) error { //nolint:gocritic // hugeParam
	driver, err := w.ensureDriver(ctx, record)
	if err != nil {
		return err
	}
	var teamID int64
	if record.TeamKey != "" {
		team, err := w.loader.EnsureTeam(ctx, model.Team{
			Key:  record.TeamKey,
			Name: record.TeamName,
		})
		if err != nil {
			return err
		}
		teamID = team.ID
	}
	return w.loader.AddRaceResult(ctx, model.RaceResult{
		RaceID:         race.ID,
		DriverID:       driver.ID,
		TeamID:         teamID,
		GridPosition:   record.GridPosition,
		FinalPosition:  record.FinalPosition,
		Points:         record.Points,
		Status:         record.Status,
		FastestLap:     record.FastestLap,
		FastestLapTime: record.FastestLapTime,
	})
}

func (w *LoadWorker) loadLap(ctx context.Context, race model.Race, record queue.Record) error { //nolint:gocritic // hugeParam
	driver, err := w.ensureDriver(ctx, record)
	if err != nil {
		return err
	}
	return w.loader.AddLapTime(ctx, model.LapTime{
		RaceID:       race.ID,
		DriverID:     driver.ID,
		Lap:          record.Lap,
		Seconds:      record.LapSeconds,
		Sector1:      record.Sector1,
		Sector2:      record.Sector2,
		Sector3:      record.Sector3,
		Compound:     record.Compound,
		TyreLife:     record.TyreLife,
		PersonalBest: record.PersonalBest,
	})
}

func (w *LoadWorker) loadPitStop(ctx context.Context, race model.Race, record queue.Record) error { //nolint:gocritic // hugeParam
	driver, err := w.ensureDriver(ctx, record)
	if err != nil {
		return err
	}
	return w.loader.AddPitStop(ctx, model.PitStop{
		RaceID:         race.ID,
		DriverID:       driver.ID,
		Lap:            record.Lap,
		Duration:       record.PitDuration,
		CompoundBefore: record.CompoundBefore,
		CompoundAfter:  record.CompoundAfter,
	})
}

// Pool manages multiple workers.
type Pool struct {
	workers []*LoadWorker
	queue   Queue
	loader  Loader

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, loader Loader) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*LoadWorker, workerCount),
		queue:    queue,
		loader:   loader,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewLoadWorker(
			queue,
			loader,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// Close the queue first so workers drain and exit. A queue that was
	// already stopped is not an error worth reporting.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil && !errors.Is(err, queue.ErrStopped) {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
