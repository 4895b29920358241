package entity

import "errors"

// Validation errors: rejected synchronously, no state change.
var (
	ErrInvalidRecurrence = errors.New("invalid recurrence definition")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrInvalidDeparture  = errors.New("invalid scheduled departure")
)

// Conflict errors: the command is well formed but the entity's current
// state forbids it; the caller must resubmit with corrected intent.
var (
	ErrScheduleLocked          = errors.New("schedule locked: next occurrence already materialized")
	ErrScheduleHasActiveFlight = errors.New("schedule has an active flight")
	ErrTerminalState           = errors.New("flight is in a terminal state")
	ErrNotBoarding             = errors.New("flight is not boarding")
)

// Lookup and reference-data errors.
var (
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrFlightNotFound     = errors.New("flight not found")
	ErrUnknownAirline     = errors.New("unknown airline")
	ErrUnknownDestination = errors.New("unknown destination")
	ErrUnknownGate        = errors.New("unknown departure gate")
)

// Infrastructure errors.
var (
	// ErrWorkerStopped is returned when a command races a worker that is
	// retiring; the router rehydrates and redelivers.
	ErrWorkerStopped = errors.New("worker stopped")
	// ErrCorruptState marks persisted state a worker refuses to start on.
	ErrCorruptState = errors.New("corrupt persisted state")
)
