package repository

import (
	"context"

	"flightops-service/internal/domain/entity"
)

// ScheduleRepository defines the persistence contract for flight schedules
type ScheduleRepository interface {
	Load(ctx context.Context, id string) (*entity.FlightSchedule, error)
	Save(ctx context.Context, schedule *entity.FlightSchedule) error
	// FindAllActive returns every non-deleted schedule, used on recovery.
	FindAllActive(ctx context.Context) ([]*entity.FlightSchedule, error)
}
