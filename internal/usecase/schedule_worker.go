package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"
	"flightops-service/pkg/logger"
	"flightops-service/pkg/metrics"
	"flightops-service/pkg/recurrence"
)

// materializeRetryDelay is how long a schedule worker waits before retrying
// a materialization that failed on infrastructure errors.
const materializeRetryDelay = time.Minute

// FlightSpawner registers a worker for a freshly materialized flight
type FlightSpawner interface {
	SpawnFlight(flight *entity.Flight)
}

// ScheduleWorker owns one FlightSchedule. It serializes all commands for
// the schedule and fires its own materialization timer at each occurrence's
// horizon. All fields below the mailbox are touched only by the worker
// goroutine.
type ScheduleWorker struct {
	mailbox

	schedule  *entity.FlightSchedule
	schedules repository.ScheduleRepository
	flights   repository.FlightRepository
	publisher repository.EventPublisher
	spawner   FlightSpawner
	cfg       EngineConfig
	logger    logger.Logger
	metrics   *metrics.Metrics

	runCtx  context.Context
	timer   *time.Timer
	armed   bool
	nextDue time.Time // departure instant of the next occurrence, UTC
	evict   func()
}

// Start launches the worker goroutine
func (w *ScheduleWorker) Start() {
	go w.run(w.runCtx)
}

func (w *ScheduleWorker) run(ctx context.Context) {
	defer func() {
		w.disarm()
		w.close()
		if w.evict != nil {
			w.evict()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-w.inbox:
			if retire := w.handle(env); retire {
				return
			}
		case <-w.timerC():
			w.armed = false
			w.onMaterializeTimer(ctx)
		}
	}
}

func (w *ScheduleWorker) timerC() <-chan time.Time {
	if !w.armed {
		return nil
	}
	return w.timer.C
}

// arm schedules the timer for the given wall-clock instant; past instants
// fire immediately (catch-up)
func (w *ScheduleWorker) arm(fireAt time.Time) {
	d := time.Until(fireAt)
	if d < 0 {
		d = 0
	}
	if w.timer == nil {
		w.timer = time.NewTimer(d)
	} else {
		w.disarm()
		w.timer.Reset(d)
	}
	w.armed = true
}

func (w *ScheduleWorker) disarm() {
	if w.timer != nil && !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.armed = false
}

// armNext computes the occurrence strictly after the given instant and arms
// the materialization timer at its horizon. A recurrence that has exhausted
// its bound leaves the timer disarmed.
func (w *ScheduleWorker) armNext(after time.Time) {
	next, ok := recurrence.NextOccurrence(w.schedule.Recurrence, after)
	if !ok {
		w.disarm()
		w.logger.Info("Recurrence exhausted", "scheduleId", w.schedule.ID)
		return
	}
	w.nextDue = next
	w.arm(next.Add(-w.cfg.MaterializeHorizon))
}

func (w *ScheduleWorker) handle(env envelope) (retire bool) {
	var err error
	switch cmd := env.cmd.(type) {
	case CreateScheduleCommand:
		err = w.initialize(env.ctx)
	case EditScheduleCommand:
		err = w.edit(env.ctx, cmd)
	case DeleteScheduleCommand:
		err = w.delete(env.ctx)
		retire = err == nil
	default:
		err = fmt.Errorf("unexpected command %T for schedule %s", env.cmd, w.schedule.ID)
	}
	env.reply <- err
	return retire
}

// initialize persists the freshly created schedule and arms its first
// materialization timer. Validation already happened before the worker was
// spawned.
func (w *ScheduleWorker) initialize(ctx context.Context) error {
	if err := w.persist(ctx); err != nil {
		return err
	}
	w.armNext(time.Now())
	w.logger.Info("Schedule created",
		"scheduleId", w.schedule.ID,
		"flightNumber", w.schedule.FlightNumber,
		"nextDeparture", w.nextDue)
	return nil
}

// edit replaces the recurrence unless the schedule is locked by an already
// materialized, still-active flight
func (w *ScheduleWorker) edit(ctx context.Context, cmd EditScheduleCommand) error {
	active, err := w.findActiveFlights(ctx)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return entity.ErrScheduleLocked
	}

	if err := cmd.Recurrence.Validate(); err != nil {
		return err
	}

	w.schedule.Recurrence = cmd.Recurrence
	if err := w.persist(ctx); err != nil {
		return err
	}
	w.armNext(time.Now())
	w.logger.Info("Schedule edited", "scheduleId", w.schedule.ID, "nextDeparture", w.nextDue)
	return nil
}

// delete marks the schedule deleted and cancels the pending timer. The
// worker retires afterwards, so no materialization can fire once a delete
// has been accepted.
func (w *ScheduleWorker) delete(ctx context.Context) error {
	active, err := w.findActiveFlights(ctx)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return entity.ErrScheduleHasActiveFlight
	}

	w.schedule.Deleted = true
	if err := w.persist(ctx); err != nil {
		w.schedule.Deleted = false
		return err
	}
	w.disarm()
	w.logger.Info("Schedule deleted", "scheduleId", w.schedule.ID)
	return nil
}

func (w *ScheduleWorker) onMaterializeTimer(ctx context.Context) {
	occurrence := w.nextDue
	if err := w.materialize(ctx, occurrence); err != nil {
		w.logger.Error("Materialization failed",
			"scheduleId", w.schedule.ID,
			"departure", occurrence,
			"error", err)
		w.metrics.ErrorsCount.WithLabelValues("materialize").Inc()
		w.arm(time.Now().Add(materializeRetryDelay))
		return
	}
	w.armNext(occurrence)
}

// materialize turns one occurrence into a concrete Flight exactly once. An
// occurrence already present in the store (a crash between persist and
// re-arm, or a replayed recovery) is skipped.
func (w *ScheduleWorker) materialize(ctx context.Context, departure time.Time) error {
	var existing *entity.Flight
	err := withRetry(ctx, w.cfg, func() error {
		var findErr error
		existing, findErr = w.flights.FindByScheduleAndDeparture(ctx, w.schedule.ID, departure)
		return findErr
	})
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if existing != nil {
		w.logger.Info("Occurrence already materialized",
			"scheduleId", w.schedule.ID,
			"flightId", existing.ID,
			"departure", departure)
		return nil
	}

	now := time.Now()
	flight := w.schedule.MaterializeFlight(uuid.NewString(), departure, now)
	seq := flight.NextSequence()

	err = withRetry(ctx, w.cfg, func() error {
		return w.flights.Save(ctx, flight)
	})
	if err != nil {
		return fmt.Errorf("persist flight: %w", err)
	}

	event := entity.NewFlightCreatedEvent(flight, seq, now)
	err = withRetry(ctx, w.cfg, func() error {
		return w.publisher.Publish(ctx, flight.ID, event)
	})
	if err != nil {
		// The flight row is the source of truth; delivery is at least once
		// and consumers reconcile from the store.
		w.logger.Error("FlightCreated emission failed", "flightId", flight.ID, "error", err)
		w.metrics.ErrorsCount.WithLabelValues("publish").Inc()
	} else {
		w.metrics.EventsPublished.Inc()
	}

	w.metrics.FlightsMaterialized.Inc()
	w.logger.Info("Flight materialized",
		"scheduleId", w.schedule.ID,
		"flightId", flight.ID,
		"departure", departure)

	w.spawner.SpawnFlight(flight)
	return nil
}

func (w *ScheduleWorker) persist(ctx context.Context) error {
	return withRetry(ctx, w.cfg, func() error {
		return w.schedules.Save(ctx, w.schedule)
	})
}

func (w *ScheduleWorker) findActiveFlights(ctx context.Context) ([]*entity.Flight, error) {
	var active []*entity.Flight
	err := withRetry(ctx, w.cfg, func() error {
		var findErr error
		active, findErr = w.flights.FindActiveBySchedule(ctx, w.schedule.ID)
		return findErr
	})
	return active, err
}
