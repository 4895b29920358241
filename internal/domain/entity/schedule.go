package entity

import (
	"time"
)

// Recurrence describes repeating daily departures: a local time-of-day on a
// set of weekdays in a named timezone, optionally bounded by a count or an
// end instant. Granularity is daily, at most one departure per day.
type Recurrence struct {
	TimeOfDay string         `bson:"timeOfDay" json:"timeOfDay"` // "15:04" wall clock
	Weekdays  []time.Weekday `bson:"weekdays" json:"weekdays"`
	Timezone  string         `bson:"timezone" json:"timezone"` // IANA zone name
	StartDate time.Time      `bson:"startDate" json:"startDate"`
	Count     int            `bson:"count,omitempty" json:"count,omitempty"` // 0 = unbounded
	Until     *time.Time     `bson:"until,omitempty" json:"until,omitempty"`
}

// Validate rejects malformed recurrence definitions at schedule-creation
// time so that expansion never has to deal with them.
func (r Recurrence) Validate() error {
	if len(r.Weekdays) == 0 {
		return ErrInvalidRecurrence
	}
	seen := make(map[time.Weekday]bool)
	for _, d := range r.Weekdays {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			return ErrInvalidRecurrence
		}
		seen[d] = true
	}
	if _, err := time.Parse("15:04", r.TimeOfDay); err != nil {
		return ErrInvalidRecurrence
	}
	if r.Timezone == "" {
		return ErrInvalidRecurrence
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return ErrInvalidRecurrence
	}
	if r.Count < 0 {
		return ErrInvalidRecurrence
	}
	if r.Until != nil && r.Until.Before(r.StartDate) {
		return ErrInvalidRecurrence
	}
	return nil
}

// FlightSchedule is a recurring departure definition. Flights materialized
// from it evolve independently; edits only affect occurrences that have not
// been materialized yet.
type FlightSchedule struct {
	ID            string     `bson:"_id,omitempty"`
	AirlineID     string     `bson:"airlineId"`
	FlightNumber  string     `bson:"flightNumber"`
	DestinationID string     `bson:"destinationId"`
	Recurrence    Recurrence `bson:"recurrence"`
	Deleted       bool       `bson:"deleted"`
	CreatedAt     time.Time  `bson:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt"`
}

// MaterializeFlight builds the concrete Flight for one occurrence of this
// schedule. Materialized flights start in CheckIn.
func (s *FlightSchedule) MaterializeFlight(id string, departure time.Time, now time.Time) *Flight {
	return &Flight{
		ID:                    id,
		ScheduleID:            s.ID,
		AirlineID:             s.AirlineID,
		FlightNumber:          s.FlightNumber,
		DestinationID:         s.DestinationID,
		Status:                StatusCheckIn,
		ScheduledDepartureUTC: departure.UTC(),
		CreatedAt:             now.UTC(),
		UpdatedAt:             now.UTC(),
	}
}
