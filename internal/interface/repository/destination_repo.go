package repository

import (
	"context"
	"errors"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormDestinationRepository implements the DestinationRepository interface
type GormDestinationRepository struct {
	db *gorm.DB
}

// NewGormDestinationRepository creates a new GORM destination repository
func NewGormDestinationRepository(db *gorm.DB) repository.DestinationRepository {
	return &GormDestinationRepository{
		db: db,
	}
}

// Destinations GORM model for database mapping
type Destinations struct {
	gorm.Model
	AirportCode string `gorm:"column:airportcode;unique"`
	AirportName string `gorm:"column:airport_name"`
	CityName    string `gorm:"column:cityname"`
	TzName      string `gorm:"column:tzname"`
}

// TableName overrides the default table name
func (Destinations) TableName() string {
	return "m_destinations"
}

// GetByAirportCode finds a destination by airport code
func (r *GormDestinationRepository) GetByAirportCode(ctx context.Context, code string) (*entity.Destination, error) {
	var destination Destinations
	result := r.db.WithContext(ctx).Where("airportcode = ?", code).First(&destination)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, entity.ErrUnknownDestination
		}
		return nil, result.Error
	}

	return &entity.Destination{
		ID:          destination.ID,
		AirportCode: destination.AirportCode,
		AirportName: destination.AirportName,
		CityName:    destination.CityName,
		TzName:      destination.TzName,
		CreatedAt:   destination.CreatedAt,
		UpdatedAt:   destination.UpdatedAt,
	}, nil
}

// ListAll returns every destination in the catalog
func (r *GormDestinationRepository) ListAll(ctx context.Context) ([]*entity.Destination, error) {
	var destinations []Destinations
	result := r.db.WithContext(ctx).Find(&destinations)

	if result.Error != nil {
		return nil, result.Error
	}

	var entities []*entity.Destination
	for _, destination := range destinations {
		entities = append(entities, &entity.Destination{
			ID:          destination.ID,
			AirportCode: destination.AirportCode,
			AirportName: destination.AirportName,
			CityName:    destination.CityName,
			TzName:      destination.TzName,
			CreatedAt:   destination.CreatedAt,
			UpdatedAt:   destination.UpdatedAt,
		})
	}
	return entities, nil
}
