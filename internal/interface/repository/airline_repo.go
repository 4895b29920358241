package repository

import (
	"context"
	"errors"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormAirlineRepository implements the AirlineRepository interface
type GormAirlineRepository struct {
	db *gorm.DB
}

// NewGormAirlineRepository creates a new GORM airline repository
func NewGormAirlineRepository(db *gorm.DB) repository.AirlineRepository {
	return &GormAirlineRepository{
		db: db,
	}
}

// Airlines GORM model for database mapping
type Airlines struct {
	gorm.Model
	Code string `gorm:"column:code;unique"`
	Name string `gorm:"column:name"`
}

// TableName overrides the default table name
func (Airlines) TableName() string {
	return "m_airlines"
}

// GetByCode finds an airline by its IATA code
func (r *GormAirlineRepository) GetByCode(ctx context.Context, code string) (*entity.Airline, error) {
	var airline Airlines
	result := r.db.WithContext(ctx).Where("code = ?", code).First(&airline)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, entity.ErrUnknownAirline
		}
		return nil, result.Error
	}

	return &entity.Airline{
		ID:        airline.ID,
		Code:      airline.Code,
		Name:      airline.Name,
		CreatedAt: airline.CreatedAt,
		UpdatedAt: airline.UpdatedAt,
	}, nil
}

// ListAll returns every airline in the catalog
func (r *GormAirlineRepository) ListAll(ctx context.Context) ([]*entity.Airline, error) {
	var airlines []Airlines
	result := r.db.WithContext(ctx).Find(&airlines)

	if result.Error != nil {
		return nil, result.Error
	}

	var entities []*entity.Airline
	for _, airline := range airlines {
		entities = append(entities, &entity.Airline{
			ID:        airline.ID,
			Code:      airline.Code,
			Name:      airline.Name,
			CreatedAt: airline.CreatedAt,
			UpdatedAt: airline.UpdatedAt,
		})
	}
	return entities, nil
}
