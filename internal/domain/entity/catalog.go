package entity

import "time"

// Airline is reference-catalog data owned by an external collaborator
type Airline struct {
	ID        uint
	Code      string // IATA code, e.g. "GA"
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Destination is an airport the system can schedule departures to
type Destination struct {
	ID          uint
	AirportCode string
	AirportName string
	CityName    string
	TzName      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DepartureGate is a gate identifier from the external gate catalog; the
// core only references it, availability is not owned here
type DepartureGate struct {
	ID        uint
	Code      string // e.g. "A12"
	Terminal  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
