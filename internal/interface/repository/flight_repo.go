package repository

import (
	"context"
	"errors"
	"time"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"
	"flightops-service/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFlightRepository implements FlightRepository
type MongoFlightRepository struct {
	collection *mongo.Collection
}

// NewMongoFlightRepository creates a new flight repository
func NewMongoFlightRepository(db *mongo.Database, logger logger.Logger) repository.FlightRepository {
	collection := db.Collection("flights")

	// Unique index on (scheduleId, scheduledDepartureUtc) backs the
	// materialization idempotency check; partial so ad hoc flights with no
	// schedule are exempt.
	ctx := context.Background()
	occurrenceIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "scheduleId", Value: 1},
			{Key: "scheduledDepartureUtc", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"scheduleId": bson.M{"$exists": true, "$gt": ""}}),
	}
	if _, err := collection.Indexes().CreateOne(ctx, occurrenceIndex); err != nil {
		logger.Warn("Failed to create occurrence uniqueness index; duplicate materializations are guarded by the store lookup only",
			"error", err)
	}

	// Index on status for LoadActive
	statusIndex := mongo.IndexModel{
		Keys: bson.M{"status": 1},
	}
	if _, err := collection.Indexes().CreateOne(ctx, statusIndex); err != nil {
		logger.Warn("Failed to create status index", "error", err)
	}

	return &MongoFlightRepository{
		collection: collection,
	}
}

// Load finds a flight by id
func (r *MongoFlightRepository) Load(ctx context.Context, id string) (*entity.Flight, error) {
	var flight entity.Flight
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&flight)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrFlightNotFound
		}
		return nil, err
	}
	return &flight, nil
}

// Save upserts a flight by id
func (r *MongoFlightRepository) Save(ctx context.Context, flight *entity.Flight) error {
	flight.UpdatedAt = time.Now().UTC()

	updateDoc := bson.M{
		"scheduleId":            flight.ScheduleID,
		"airlineId":             flight.AirlineID,
		"flightNumber":          flight.FlightNumber,
		"destinationId":         flight.DestinationID,
		"gateId":                flight.GateID,
		"status":                flight.Status,
		"scheduledDepartureUtc": flight.ScheduledDepartureUTC,
		"estimatedDepartureUtc": flight.EstimatedDepartureUTC,
		"actualDepartureUtc":    flight.ActualDepartureUTC,
		"eventSeq":              flight.EventSeq,
		"createdAt":             flight.CreatedAt,
		"updatedAt":             flight.UpdatedAt,
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": flight.ID}, bson.M{"$set": updateDoc}, opts)
	return err
}

// LoadActive returns all flights in a non-terminal status
func (r *MongoFlightRepository) LoadActive(ctx context.Context) ([]*entity.Flight, error) {
	filter := bson.M{"status": bson.M{"$nin": []entity.FlightStatus{
		entity.StatusDeparted,
		entity.StatusCancelled,
	}}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flights []*entity.Flight
	for cursor.Next(ctx) {
		var flight entity.Flight
		if err := cursor.Decode(&flight); err != nil {
			return nil, err
		}
		flights = append(flights, &flight)
	}
	return flights, cursor.Err()
}

// FindByScheduleAndDeparture returns the flight materialized for the given
// schedule occurrence, or (nil, nil) when none exists
func (r *MongoFlightRepository) FindByScheduleAndDeparture(ctx context.Context, scheduleID string, departure time.Time) (*entity.Flight, error) {
	var flight entity.Flight
	filter := bson.M{
		"scheduleId":            scheduleID,
		"scheduledDepartureUtc": departure.UTC(),
	}
	err := r.collection.FindOne(ctx, filter).Decode(&flight)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &flight, nil
}

// FindActiveBySchedule returns the non-terminal flights of a schedule
func (r *MongoFlightRepository) FindActiveBySchedule(ctx context.Context, scheduleID string) ([]*entity.Flight, error) {
	filter := bson.M{
		"scheduleId": scheduleID,
		"status": bson.M{"$nin": []entity.FlightStatus{
			entity.StatusDeparted,
			entity.StatusCancelled,
		}},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flights []*entity.Flight
	for cursor.Next(ctx) {
		var flight entity.Flight
		if err := cursor.Decode(&flight); err != nil {
			return nil, err
		}
		flights = append(flights, &flight)
	}
	return flights, cursor.Err()
}
