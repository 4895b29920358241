package repository

import (
	"context"
	"time"

	"flightops-service/internal/domain/entity"
)

// FlightRepository defines the persistence contract for flights
type FlightRepository interface {
	Load(ctx context.Context, id string) (*entity.Flight, error)
	Save(ctx context.Context, flight *entity.Flight) error
	// LoadActive returns every flight in a non-terminal status, used on
	// recovery.
	LoadActive(ctx context.Context) ([]*entity.Flight, error)
	// FindByScheduleAndDeparture returns the flight materialized for the
	// given schedule occurrence, or (nil, nil) when none exists. Backs
	// materialization idempotency.
	FindByScheduleAndDeparture(ctx context.Context, scheduleID string, departure time.Time) (*entity.Flight, error)
	// FindActiveBySchedule returns the non-terminal flights of a schedule,
	// used for the edit/delete lock checks.
	FindActiveBySchedule(ctx context.Context, scheduleID string) ([]*entity.Flight, error)
}
