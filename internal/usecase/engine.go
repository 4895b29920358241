package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"
	"flightops-service/pkg/logger"
	"flightops-service/pkg/metrics"
)

// EngineConfig carries the scheduling engine's tunables
type EngineConfig struct {
	MaterializeHorizon   time.Duration
	GateAlertWindow      time.Duration
	SelfMonitorInterval  time.Duration
	RetryInitialInterval time.Duration
	RetryMaxAttempts     uint64
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaterializeHorizon <= 0 {
		c.MaterializeHorizon = 48 * time.Hour
	}
	if c.GateAlertWindow <= 0 {
		c.GateAlertWindow = 3 * time.Hour
	}
	if c.SelfMonitorInterval <= 0 {
		c.SelfMonitorInterval = 5 * time.Minute
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = 500 * time.Millisecond
	}
	if c.RetryMaxAttempts == 0 {
		c.RetryMaxAttempts = 4
	}
	return c
}

// Engine builds and rehydrates workers. It is the router's worker factory,
// the spawner schedule workers hand materialized flights to, and the
// recovery coordinator run at startup.
type Engine struct {
	schedules repository.ScheduleRepository
	flights   repository.FlightRepository
	publisher repository.EventPublisher
	catalog   *CatalogCache
	cfg       EngineConfig
	logger    logger.Logger
	metrics   *metrics.Metrics

	ctx      context.Context
	registry Registry
}

// NewEngine creates the engine; workers live until ctx is cancelled.
// catalog may be nil when no reference database is configured, which
// disables reference validation.
func NewEngine(
	ctx context.Context,
	schedules repository.ScheduleRepository,
	flights repository.FlightRepository,
	publisher repository.EventPublisher,
	catalog *CatalogCache,
	cfg EngineConfig,
	logger logger.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		schedules: schedules,
		flights:   flights,
		publisher: publisher,
		catalog:   catalog,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		metrics:   m,
		ctx:       ctx,
	}
}

// Bind attaches the worker registry; must happen before Recover or the
// first dispatched command
func (e *Engine) Bind(reg Registry) {
	e.registry = reg
}

// NewWorker builds the worker for a command's key, rehydrating from the
// store when the entity already exists. Validation failures and conflicts
// that need no live worker are rejected here.
func (e *Engine) NewWorker(ctx context.Context, cmd Command, evict func()) (Worker, error) {
	switch c := cmd.(type) {
	case CreateScheduleCommand:
		if err := c.Recurrence.Validate(); err != nil {
			return nil, err
		}
		if err := e.validateRefs(ctx, c.AirlineID, c.DestinationID); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		schedule := &entity.FlightSchedule{
			ID:            c.ScheduleID,
			AirlineID:     c.AirlineID,
			FlightNumber:  c.FlightNumber,
			DestinationID: c.DestinationID,
			Recurrence:    c.Recurrence,
			CreatedAt:     now,
		}
		return e.newScheduleWorker(schedule, false, evict), nil

	case EditScheduleCommand, DeleteScheduleCommand:
		schedule, err := e.loadSchedule(ctx, cmd.Key())
		if err != nil {
			return nil, err
		}
		return e.newScheduleWorker(schedule, true, evict), nil

	case CreateFlightCommand:
		if c.ScheduledDeparture.IsZero() {
			return nil, entity.ErrInvalidDeparture
		}
		if err := e.validateRefs(ctx, c.AirlineID, c.DestinationID); err != nil {
			return nil, err
		}
		flight := &entity.Flight{
			ID:                    c.FlightID,
			AirlineID:             c.AirlineID,
			FlightNumber:          c.FlightNumber,
			DestinationID:         c.DestinationID,
			Status:                entity.StatusOnTime,
			ScheduledDepartureUTC: c.ScheduledDeparture.UTC(),
		}
		return e.newFlightWorker(flight, true, evict), nil

	case EditFlightCommand, AssignGateCommand:
		flight, err := e.loadFlight(ctx, cmd.Key())
		if err != nil {
			return nil, err
		}
		return e.newFlightWorker(flight, false, evict), nil

	default:
		return nil, fmt.Errorf("unknown command type %T", cmd)
	}
}

// SpawnFlight registers a worker for a flight a schedule worker just
// materialized
func (e *Engine) SpawnFlight(flight *entity.Flight) {
	w := e.newFlightWorker(flight, false, nil)
	e.startRegistered(flight.ID, w)
}

// Recover rehydrates every non-deleted schedule and every non-terminal
// flight from the store and re-establishes their timers. Corrupt entities
// are skipped: their workers refuse to start, the process carries on.
func (e *Engine) Recover(ctx context.Context) error {
	schedules, err := e.schedules.FindAllActive(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}
	recovered := 0
	for _, schedule := range schedules {
		if err := schedule.Recurrence.Validate(); err != nil {
			e.logger.Error("Refusing to start worker on corrupt schedule",
				"scheduleId", schedule.ID, "error", err)
			e.metrics.ErrorsCount.WithLabelValues("recover").Inc()
			continue
		}
		if e.startRegistered(schedule.ID, e.newScheduleWorker(schedule, true, nil)) {
			recovered++
		}
	}

	flights, err := e.flights.LoadActive(ctx)
	if err != nil {
		return fmt.Errorf("load active flights: %w", err)
	}
	for _, flight := range flights {
		if !flight.Status.IsValid() {
			e.logger.Error("Refusing to start worker on corrupt flight",
				"flightId", flight.ID, "status", flight.Status)
			e.metrics.ErrorsCount.WithLabelValues("recover").Inc()
			continue
		}
		if e.startRegistered(flight.ID, e.newFlightWorker(flight, false, nil)) {
			recovered++
		}
	}

	e.logger.Info("Recovery complete",
		"schedules", len(schedules),
		"activeFlights", len(flights),
		"workers", recovered)
	return nil
}

// startRegistered registers the worker under its key and starts it; a taken
// key means a live worker already owns the entity
func (e *Engine) startRegistered(key string, w Worker) bool {
	if e.registry == nil {
		w.Start()
		return true
	}
	evict, ok := e.registry.Register(key, w)
	if !ok {
		e.logger.Warn("Worker already registered", "key", key)
		return false
	}
	switch worker := w.(type) {
	case *ScheduleWorker:
		worker.evict = evict
	case *FlightWorker:
		worker.evict = evict
	}
	w.Start()
	return true
}

func (e *Engine) newScheduleWorker(schedule *entity.FlightSchedule, rehydrated bool, evict func()) *ScheduleWorker {
	w := &ScheduleWorker{
		mailbox:   newMailbox(),
		schedule:  schedule,
		schedules: e.schedules,
		flights:   e.flights,
		publisher: e.publisher,
		spawner:   e,
		cfg:       e.cfg,
		logger:    e.logger,
		metrics:   e.metrics,
		runCtx:    e.ctx,
		evict:     evict,
	}
	if rehydrated {
		// Recomputing from the rule and the clock is enough: occurrences
		// already materialized are caught by the idempotency check.
		w.armNext(time.Now())
	}
	return w
}

func (e *Engine) newFlightWorker(flight *entity.Flight, pendingCreate bool, evict func()) *FlightWorker {
	return &FlightWorker{
		mailbox:       newMailbox(),
		flight:        flight,
		pendingCreate: pendingCreate,
		flights:       e.flights,
		publisher:     e.publisher,
		catalog:       e.catalog,
		cfg:           e.cfg,
		logger:        e.logger,
		metrics:       e.metrics,
		runCtx:        e.ctx,
		evict:         evict,
	}
}

func (e *Engine) loadSchedule(ctx context.Context, id string) (*entity.FlightSchedule, error) {
	var schedule *entity.FlightSchedule
	err := withRetry(ctx, e.cfg, func() error {
		var loadErr error
		schedule, loadErr = e.schedules.Load(ctx, id)
		if errors.Is(loadErr, entity.ErrScheduleNotFound) {
			return backoff.Permanent(loadErr)
		}
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	if schedule.Deleted {
		return nil, entity.ErrScheduleNotFound
	}
	if err := schedule.Recurrence.Validate(); err != nil {
		return nil, fmt.Errorf("%w: schedule %s: %v", entity.ErrCorruptState, id, err)
	}
	return schedule, nil
}

func (e *Engine) loadFlight(ctx context.Context, id string) (*entity.Flight, error) {
	var flight *entity.Flight
	err := withRetry(ctx, e.cfg, func() error {
		var loadErr error
		flight, loadErr = e.flights.Load(ctx, id)
		if errors.Is(loadErr, entity.ErrFlightNotFound) {
			return backoff.Permanent(loadErr)
		}
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	if !flight.Status.IsValid() {
		return nil, fmt.Errorf("%w: flight %s has status %q", entity.ErrCorruptState, id, flight.Status)
	}
	if flight.Status.IsTerminal() {
		// No worker is rehydrated for finished flights; the command can
		// only be rejected.
		return nil, entity.ErrTerminalState
	}
	return flight, nil
}

func (e *Engine) validateRefs(ctx context.Context, airlineID, destinationID string) error {
	if e.catalog == nil {
		return nil
	}
	ok, err := e.catalog.HasAirline(ctx, airlineID)
	if err != nil {
		return fmt.Errorf("airline lookup: %w", err)
	}
	if !ok {
		return entity.ErrUnknownAirline
	}
	ok, err = e.catalog.HasDestination(ctx, destinationID)
	if err != nil {
		return fmt.Errorf("destination lookup: %w", err)
	}
	if !ok {
		return entity.ErrUnknownDestination
	}
	return nil
}
