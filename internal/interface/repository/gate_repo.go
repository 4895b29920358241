package repository

import (
	"context"
	"errors"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormGateRepository implements the GateRepository interface
type GormGateRepository struct {
	db *gorm.DB
}

// NewGormGateRepository creates a new GORM departure gate repository
func NewGormGateRepository(db *gorm.DB) repository.GateRepository {
	return &GormGateRepository{
		db: db,
	}
}

// DepartureGates GORM model for database mapping
type DepartureGates struct {
	gorm.Model
	Code     string `gorm:"column:code;unique"`
	Terminal string `gorm:"column:terminal"`
}

// TableName overrides the default table name
func (DepartureGates) TableName() string {
	return "m_departure_gates"
}

// GetByCode finds a departure gate by its code
func (r *GormGateRepository) GetByCode(ctx context.Context, code string) (*entity.DepartureGate, error) {
	var gate DepartureGates
	result := r.db.WithContext(ctx).Where("code = ?", code).First(&gate)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, entity.ErrUnknownGate
		}
		return nil, result.Error
	}

	return &entity.DepartureGate{
		ID:        gate.ID,
		Code:      gate.Code,
		Terminal:  gate.Terminal,
		CreatedAt: gate.CreatedAt,
		UpdatedAt: gate.UpdatedAt,
	}, nil
}

// ListAll returns every gate in the catalog
func (r *GormGateRepository) ListAll(ctx context.Context) ([]*entity.DepartureGate, error) {
	var gates []DepartureGates
	result := r.db.WithContext(ctx).Find(&gates)

	if result.Error != nil {
		return nil, result.Error
	}

	var entities []*entity.DepartureGate
	for _, gate := range gates {
		entities = append(entities, &entity.DepartureGate{
			ID:        gate.ID,
			Code:      gate.Code,
			Terminal:  gate.Terminal,
			CreatedAt: gate.CreatedAt,
			UpdatedAt: gate.UpdatedAt,
		})
	}
	return entities, nil
}
