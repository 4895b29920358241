package repository

import (
	"context"

	"flightops-service/internal/domain/entity"
)

// AirlineRepository defines the interface for airline reference data
type AirlineRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.Airline, error)
	ListAll(ctx context.Context) ([]*entity.Airline, error)
}

// DestinationRepository defines the interface for destination reference data
type DestinationRepository interface {
	GetByAirportCode(ctx context.Context, code string) (*entity.Destination, error)
	ListAll(ctx context.Context) ([]*entity.Destination, error)
}

// GateRepository defines the interface for the departure gate catalog
type GateRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.DepartureGate, error)
	ListAll(ctx context.Context) ([]*entity.DepartureGate, error)
}
