package entity

import "time"

// FlightStatus is the lifecycle status of a flight
type FlightStatus string

const (
	StatusOnTime    FlightStatus = "ONTIME"
	StatusCheckIn   FlightStatus = "CHECKIN"
	StatusBoarding  FlightStatus = "BOARDING"
	StatusDeparted  FlightStatus = "DEPARTED"
	StatusCancelled FlightStatus = "CANCELLED"
	StatusDelayed   FlightStatus = "DELAYED"
)

// statusTransitions lists the reachable target statuses per current status.
// Departed and Cancelled are terminal and accept nothing.
var statusTransitions = map[FlightStatus][]FlightStatus{
	StatusOnTime:    {StatusCheckIn, StatusDelayed, StatusCancelled},
	StatusCheckIn:   {StatusBoarding, StatusDelayed, StatusCancelled},
	StatusBoarding:  {StatusDeparted, StatusDelayed, StatusCancelled},
	StatusDelayed:   {StatusBoarding, StatusCancelled},
	StatusDeparted:  {},
	StatusCancelled: {},
}

// IsValid reports whether the status is one of the known lifecycle statuses
func (s FlightStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are accepted
func (s FlightStatus) IsTerminal() bool {
	return s == StatusDeparted || s == StatusCancelled
}

// CanTransitionTo reports whether target is reachable from s in one step
func (s FlightStatus) CanTransitionTo(target FlightStatus) bool {
	for _, t := range statusTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Flight is a concrete, independently evolving departure. It is either
// materialized from a FlightSchedule occurrence or created ad hoc, in which
// case ScheduleID is empty.
type Flight struct {
	ID                    string       `bson:"_id,omitempty"`
	ScheduleID            string       `bson:"scheduleId,omitempty"`
	AirlineID             string       `bson:"airlineId"`
	FlightNumber          string       `bson:"flightNumber"`
	DestinationID         string       `bson:"destinationId"`
	GateID                string       `bson:"gateId,omitempty"`
	Status                FlightStatus `bson:"status"`
	ScheduledDepartureUTC time.Time    `bson:"scheduledDepartureUtc"`
	EstimatedDepartureUTC *time.Time   `bson:"estimatedDepartureUtc,omitempty"`
	ActualDepartureUTC    *time.Time   `bson:"actualDepartureUtc,omitempty"`
	EventSeq              uint64       `bson:"eventSeq"`
	CreatedAt             time.Time    `bson:"createdAt"`
	UpdatedAt             time.Time    `bson:"updatedAt"`
}

// NextSequence increments and returns the per-flight event sequence number
func (f *Flight) NextSequence() uint64 {
	f.EventSeq++
	return f.EventSeq
}

// TransitionTo applies a status change after checking the transition table.
// It stamps the actual departure on Departed and records the estimated
// departure when one accompanies the change.
func (f *Flight) TransitionTo(target FlightStatus, estimated *time.Time, now time.Time) error {
	if !target.IsValid() {
		return ErrIllegalTransition
	}
	if f.Status.IsTerminal() {
		return ErrTerminalState
	}
	if !f.Status.CanTransitionTo(target) {
		return ErrIllegalTransition
	}

	f.Status = target
	if estimated != nil {
		utc := estimated.UTC()
		f.EstimatedDepartureUTC = &utc
	}
	if target == StatusDeparted {
		utc := now.UTC()
		f.ActualDepartureUTC = &utc
	}
	f.UpdatedAt = now.UTC()
	return nil
}
