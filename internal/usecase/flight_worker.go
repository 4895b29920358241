package usecase

import (
	"context"
	"fmt"
	"time"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"
	"flightops-service/pkg/logger"
	"flightops-service/pkg/metrics"
)

// checkinRetryDelay is how long a flight worker waits before retrying the
// automatic OnTime to CheckIn transition after an infrastructure failure.
const checkinRetryDelay = time.Minute

// FlightWorker owns one Flight. It serializes status commands, runs the
// elapsed-horizon check for ad hoc flights still OnTime, and self-monitors
// gate assignment as departure approaches. It retires once the flight
// reaches a terminal status; the store keeps the row.
type FlightWorker struct {
	mailbox

	flight        *entity.Flight
	pendingCreate bool
	flights       repository.FlightRepository
	publisher     repository.EventPublisher
	catalog       *CatalogCache
	cfg           EngineConfig
	logger        logger.Logger
	metrics       *metrics.Metrics

	runCtx       context.Context
	checkinTimer *time.Timer
	checkinArmed bool
	alerted      bool
	evict        func()
}

// Start launches the worker goroutine
func (w *FlightWorker) Start() {
	go w.run(w.runCtx)
}

func (w *FlightWorker) run(ctx context.Context) {
	defer func() {
		w.disarmCheckin()
		w.close()
		if w.evict != nil {
			w.evict()
		}
	}()

	// Rehydrated OnTime flights re-arm their horizon check; an instant in
	// the past fires immediately (catch-up).
	if !w.pendingCreate && w.flight.Status == entity.StatusOnTime {
		w.armCheckin(w.flight.ScheduledDepartureUTC.Add(-w.cfg.MaterializeHorizon))
	}

	monitor := time.NewTicker(w.cfg.SelfMonitorInterval)
	defer monitor.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-w.inbox:
			if retire := w.handle(env); retire {
				return
			}
		case <-w.checkinC():
			w.checkinArmed = false
			w.onCheckinTimer(ctx)
		case <-monitor.C:
			w.selfMonitor(ctx)
		}
	}
}

func (w *FlightWorker) checkinC() <-chan time.Time {
	if !w.checkinArmed {
		return nil
	}
	return w.checkinTimer.C
}

func (w *FlightWorker) armCheckin(fireAt time.Time) {
	d := time.Until(fireAt)
	if d < 0 {
		d = 0
	}
	if w.checkinTimer == nil {
		w.checkinTimer = time.NewTimer(d)
	} else {
		w.disarmCheckin()
		w.checkinTimer.Reset(d)
	}
	w.checkinArmed = true
}

func (w *FlightWorker) disarmCheckin() {
	if w.checkinTimer != nil && !w.checkinTimer.Stop() {
		select {
		case <-w.checkinTimer.C:
		default:
		}
	}
	w.checkinArmed = false
}

func (w *FlightWorker) handle(env envelope) (retire bool) {
	var err error
	switch cmd := env.cmd.(type) {
	case CreateFlightCommand:
		err = w.create(env.ctx)
	case EditFlightCommand:
		err = w.setStatus(env.ctx, cmd.Status, cmd.EstimatedDeparture)
	case AssignGateCommand:
		err = w.assignGate(env.ctx, cmd.GateID)
	default:
		err = fmt.Errorf("unexpected command %T for flight %s", env.cmd, w.flight.ID)
	}
	env.reply <- err
	return err == nil && w.flight.Status.IsTerminal()
}

// create persists an ad hoc flight. Departures already inside the horizon
// start in CheckIn, everything else starts OnTime with a timer to cross
// over at the horizon.
func (w *FlightWorker) create(ctx context.Context) error {
	now := time.Now()
	if time.Until(w.flight.ScheduledDepartureUTC) <= w.cfg.MaterializeHorizon {
		w.flight.Status = entity.StatusCheckIn
	} else {
		w.flight.Status = entity.StatusOnTime
	}
	w.flight.CreatedAt = now.UTC()
	w.flight.UpdatedAt = now.UTC()
	seq := w.flight.NextSequence()

	err := withRetry(ctx, w.cfg, func() error {
		return w.flights.Save(ctx, w.flight)
	})
	if err != nil {
		return fmt.Errorf("persist flight: %w", err)
	}
	w.pendingCreate = false

	w.emit(ctx, entity.NewFlightCreatedEvent(w.flight, seq, now))

	if w.flight.Status == entity.StatusOnTime {
		w.armCheckin(w.flight.ScheduledDepartureUTC.Add(-w.cfg.MaterializeHorizon))
	}
	w.logger.Info("Flight created",
		"flightId", w.flight.ID,
		"flightNumber", w.flight.FlightNumber,
		"status", w.flight.Status,
		"departure", w.flight.ScheduledDepartureUTC)
	return nil
}

// setStatus applies one transition. The mutation is done on a copy and only
// adopted after it has been persisted, so a failed command leaves the
// worker in its last persisted-consistent state.
func (w *FlightWorker) setStatus(ctx context.Context, target entity.FlightStatus, estimated *time.Time) error {
	now := time.Now()
	next := *w.flight
	if err := next.TransitionTo(target, estimated, now); err != nil {
		return err
	}
	seq := next.NextSequence()

	err := withRetry(ctx, w.cfg, func() error {
		return w.flights.Save(ctx, &next)
	})
	if err != nil {
		return fmt.Errorf("persist status change: %w", err)
	}
	*w.flight = next

	w.emit(ctx, entity.NewFlightStatusChangedEvent(w.flight, seq, now))
	w.metrics.StatusTransitions.WithLabelValues(string(target)).Inc()
	w.logger.Info("Flight status changed",
		"flightId", w.flight.ID,
		"status", target,
		"sequence", seq)
	return nil
}

// assignGate sets the departure gate; only legal while boarding, and freely
// reassignable while still boarding
func (w *FlightWorker) assignGate(ctx context.Context, gateID string) error {
	if w.flight.Status != entity.StatusBoarding {
		return entity.ErrNotBoarding
	}
	if w.catalog != nil {
		known, err := w.catalog.HasGate(ctx, gateID)
		if err != nil {
			return fmt.Errorf("gate lookup: %w", err)
		}
		if !known {
			return entity.ErrUnknownGate
		}
	}

	now := time.Now()
	next := *w.flight
	next.GateID = gateID
	next.UpdatedAt = now.UTC()
	seq := next.NextSequence()

	err := withRetry(ctx, w.cfg, func() error {
		return w.flights.Save(ctx, &next)
	})
	if err != nil {
		return fmt.Errorf("persist gate assignment: %w", err)
	}
	*w.flight = next

	w.emit(ctx, entity.NewGateAssignedEvent(w.flight, seq, now))
	w.logger.Info("Departure gate assigned", "flightId", w.flight.ID, "gateId", gateID, "sequence", seq)
	return nil
}

// onCheckinTimer runs the elapsed-horizon check for flights still OnTime
func (w *FlightWorker) onCheckinTimer(ctx context.Context) {
	if w.flight.Status != entity.StatusOnTime {
		return
	}
	if err := w.setStatus(ctx, entity.StatusCheckIn, nil); err != nil {
		w.logger.Error("Automatic check-in failed", "flightId", w.flight.ID, "error", err)
		w.metrics.ErrorsCount.WithLabelValues("checkin").Inc()
		w.armCheckin(time.Now().Add(checkinRetryDelay))
	}
}

// selfMonitor raises a side-channel alert when departure approaches with no
// gate assigned. It never mutates flight state and alerts at most once.
func (w *FlightWorker) selfMonitor(ctx context.Context) {
	if w.alerted || w.flight.GateID != "" {
		return
	}
	status := w.flight.Status
	if status != entity.StatusCheckIn && status != entity.StatusBoarding {
		return
	}
	now := time.Now()
	if now.Before(w.flight.ScheduledDepartureUTC.Add(-w.cfg.GateAlertWindow)) {
		return
	}

	event := entity.NewGateOverdueEvent(w.flight, now)
	if err := w.publisher.Publish(ctx, w.flight.ID, event); err != nil {
		w.logger.Error("Gate-overdue alert emission failed", "flightId", w.flight.ID, "error", err)
		w.metrics.ErrorsCount.WithLabelValues("publish").Inc()
		return
	}
	w.alerted = true
	w.logger.Warn("Gate assignment overdue",
		"flightId", w.flight.ID,
		"status", status,
		"departure", w.flight.ScheduledDepartureUTC)
}

// emit publishes an event with bounded retry. The persisted state is the
// source of truth; exhausted retries are logged, not surfaced to the caller.
func (w *FlightWorker) emit(ctx context.Context, event entity.DomainEvent) {
	err := withRetry(ctx, w.cfg, func() error {
		return w.publisher.Publish(ctx, w.flight.ID, event)
	})
	if err != nil {
		w.logger.Error("Event emission failed",
			"flightId", w.flight.ID,
			"type", event.Type,
			"error", err)
		w.metrics.ErrorsCount.WithLabelValues("publish").Inc()
		return
	}
	w.metrics.EventsPublished.Inc()
}
