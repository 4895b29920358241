package entity

import "time"

// EventType identifies a domain event
type EventType string

const (
	EventFlightCreated               EventType = "FlightCreated"
	EventFlightStatusChanged         EventType = "FlightStatusChanged"
	EventFlightDepartureGateAssigned EventType = "FlightDepartureGateAssigned"
	// EventGateAssignmentOverdue is a side-channel alert for the monitoring
	// collaborator; it carries no sequence number and mutates no state.
	EventGateAssignmentOverdue EventType = "GateAssignmentOverdue"
)

// DomainEvent is the envelope emitted to the transport. Events for one
// flight are ordered by Sequence; consumers deduplicate on it.
type DomainEvent struct {
	Type       EventType   `json:"type"`
	FlightID   string      `json:"flightId"`
	Sequence   uint64      `json:"sequence,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// FlightCreatedPayload is the full initial snapshot of a new flight
type FlightCreatedPayload struct {
	FlightID              string     `json:"flightId"`
	ScheduleID            string     `json:"scheduleId,omitempty"`
	AirlineID             string     `json:"airlineId"`
	FlightNumber          string     `json:"flightNumber"`
	Status                string     `json:"status"`
	DestinationID         string     `json:"destinationId"`
	ScheduledDepartureUTC time.Time  `json:"scheduledDepartureUtc"`
	EstimatedDepartureUTC *time.Time `json:"estimatedDepartureUtc,omitempty"`
	ActualDepartureUTC    *time.Time `json:"actualDepartureUtc,omitempty"`
	GateID                string     `json:"gateId,omitempty"`
}

// FlightStatusChangedPayload carries the new status
type FlightStatusChangedPayload struct {
	FlightID string `json:"flightId"`
	Status   string `json:"status"`
	Sequence uint64 `json:"sequence"`
}

// FlightDepartureGateAssignedPayload carries the assigned gate
type FlightDepartureGateAssignedPayload struct {
	FlightID string `json:"flightId"`
	GateID   string `json:"gateId"`
	Sequence uint64 `json:"sequence"`
}

// GateAssignmentOverduePayload alerts that a flight nears departure with no
// gate assigned
type GateAssignmentOverduePayload struct {
	FlightID              string    `json:"flightId"`
	Status                string    `json:"status"`
	ScheduledDepartureUTC time.Time `json:"scheduledDepartureUtc"`
}

// NewFlightCreatedEvent builds the FlightCreated event for a flight
func NewFlightCreatedEvent(f *Flight, seq uint64, now time.Time) DomainEvent {
	return DomainEvent{
		Type:       EventFlightCreated,
		FlightID:   f.ID,
		Sequence:   seq,
		OccurredAt: now.UTC(),
		Payload: FlightCreatedPayload{
			FlightID:              f.ID,
			ScheduleID:            f.ScheduleID,
			AirlineID:             f.AirlineID,
			FlightNumber:          f.FlightNumber,
			Status:                string(f.Status),
			DestinationID:         f.DestinationID,
			ScheduledDepartureUTC: f.ScheduledDepartureUTC,
			EstimatedDepartureUTC: f.EstimatedDepartureUTC,
			ActualDepartureUTC:    f.ActualDepartureUTC,
			GateID:                f.GateID,
		},
	}
}

// NewFlightStatusChangedEvent builds the FlightStatusChanged event
func NewFlightStatusChangedEvent(f *Flight, seq uint64, now time.Time) DomainEvent {
	return DomainEvent{
		Type:       EventFlightStatusChanged,
		FlightID:   f.ID,
		Sequence:   seq,
		OccurredAt: now.UTC(),
		Payload: FlightStatusChangedPayload{
			FlightID: f.ID,
			Status:   string(f.Status),
			Sequence: seq,
		},
	}
}

// NewGateAssignedEvent builds the FlightDepartureGateAssigned event
func NewGateAssignedEvent(f *Flight, seq uint64, now time.Time) DomainEvent {
	return DomainEvent{
		Type:       EventFlightDepartureGateAssigned,
		FlightID:   f.ID,
		Sequence:   seq,
		OccurredAt: now.UTC(),
		Payload: FlightDepartureGateAssignedPayload{
			FlightID: f.ID,
			GateID:   f.GateID,
			Sequence: seq,
		},
	}
}

// NewGateOverdueEvent builds the side-channel gate-overdue alert
func NewGateOverdueEvent(f *Flight, now time.Time) DomainEvent {
	return DomainEvent{
		Type:       EventGateAssignmentOverdue,
		FlightID:   f.ID,
		OccurredAt: now.UTC(),
		Payload: GateAssignmentOverduePayload{
			FlightID:              f.ID,
			Status:                string(f.Status),
			ScheduledDepartureUTC: f.ScheduledDepartureUTC,
		},
	}
}
