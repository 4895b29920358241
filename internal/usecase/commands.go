package usecase

import (
	"context"
	"time"

	"flightops-service/internal/domain/entity"
)

// Command is an inbound command addressed to a single schedule or flight.
// Key returns the partition key commands are serialized on.
type Command interface {
	Key() string
}

// CreateScheduleCommand creates a recurring departure definition
type CreateScheduleCommand struct {
	ScheduleID    string
	AirlineID     string
	FlightNumber  string
	DestinationID string
	Recurrence    entity.Recurrence
}

func (c CreateScheduleCommand) Key() string { return c.ScheduleID }

// EditScheduleCommand replaces a schedule's recurrence definition
type EditScheduleCommand struct {
	ScheduleID string
	Recurrence entity.Recurrence
}

func (c EditScheduleCommand) Key() string { return c.ScheduleID }

// DeleteScheduleCommand marks a schedule deleted
type DeleteScheduleCommand struct {
	ScheduleID string
}

func (c DeleteScheduleCommand) Key() string { return c.ScheduleID }

// CreateFlightCommand creates an ad hoc, non-recurring flight
type CreateFlightCommand struct {
	FlightID           string
	AirlineID          string
	FlightNumber       string
	DestinationID      string
	ScheduledDeparture time.Time
}

func (c CreateFlightCommand) Key() string { return c.FlightID }

// EditFlightCommand requests a status transition, optionally carrying a new
// estimated departure (for delays)
type EditFlightCommand struct {
	FlightID           string
	Status             entity.FlightStatus
	EstimatedDeparture *time.Time
}

func (c EditFlightCommand) Key() string { return c.FlightID }

// AssignGateCommand assigns or reassigns the departure gate
type AssignGateCommand struct {
	FlightID string
	GateID   string
}

func (c AssignGateCommand) Key() string { return c.FlightID }

// Worker is a live single-writer processor for one entity key. Deliver
// blocks until the command has been processed and returns its result.
type Worker interface {
	Start()
	Deliver(ctx context.Context, cmd Command) error
}

// Registry tracks live workers by key. Register returns an evict callback
// the worker invokes on retirement, or ok=false when the key is taken.
type Registry interface {
	Register(key string, w Worker) (evict func(), ok bool)
}

// envelope pairs a command with its reply channel
type envelope struct {
	ctx   context.Context
	cmd   Command
	reply chan error
}

// mailbox is the single-consumer command queue embedded in every worker.
// Only the worker goroutine reads inbox; stopped is closed when the worker
// retires so racing senders get ErrWorkerStopped instead of blocking.
type mailbox struct {
	inbox   chan envelope
	stopped chan struct{}
}

func newMailbox() mailbox {
	return mailbox{
		inbox:   make(chan envelope, 16),
		stopped: make(chan struct{}),
	}
}

// Deliver enqueues the command and waits for the worker's reply
func (m *mailbox) Deliver(ctx context.Context, cmd Command) error {
	env := envelope{ctx: ctx, cmd: cmd, reply: make(chan error, 1)}

	select {
	case m.inbox <- env:
	case <-m.stopped:
		return entity.ErrWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-env.reply:
		return err
	case <-m.stopped:
		// The worker retired between enqueue and processing; it may still
		// have drained the envelope with a reply.
		select {
		case err := <-env.reply:
			return err
		default:
			return entity.ErrWorkerStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close marks the mailbox stopped and fails any queued envelopes
func (m *mailbox) close() {
	close(m.stopped)
	for {
		select {
		case env := <-m.inbox:
			env.reply <- entity.ErrWorkerStopped
		default:
			return
		}
	}
}
