package repository

import (
	"context"
	"errors"
	"time"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoScheduleRepository implements ScheduleRepository
type MongoScheduleRepository struct {
	collection *mongo.Collection
}

// NewMongoScheduleRepository creates a new schedule repository
func NewMongoScheduleRepository(db *mongo.Database) repository.ScheduleRepository {
	collection := db.Collection("flight_schedules")

	ctx := context.Background()
	deletedIndex := mongo.IndexModel{
		Keys: bson.M{"deleted": 1},
	}
	collection.Indexes().CreateOne(ctx, deletedIndex)

	return &MongoScheduleRepository{
		collection: collection,
	}
}

// Load finds a schedule by id
func (r *MongoScheduleRepository) Load(ctx context.Context, id string) (*entity.FlightSchedule, error) {
	var schedule entity.FlightSchedule
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&schedule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrScheduleNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

// Save upserts a schedule by id
func (r *MongoScheduleRepository) Save(ctx context.Context, schedule *entity.FlightSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()

	updateDoc := bson.M{
		"airlineId":     schedule.AirlineID,
		"flightNumber":  schedule.FlightNumber,
		"destinationId": schedule.DestinationID,
		"recurrence":    schedule.Recurrence,
		"deleted":       schedule.Deleted,
		"createdAt":     schedule.CreatedAt,
		"updatedAt":     schedule.UpdatedAt,
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": schedule.ID}, bson.M{"$set": updateDoc}, opts)
	return err
}

// FindAllActive returns every non-deleted schedule
func (r *MongoScheduleRepository) FindAllActive(ctx context.Context) ([]*entity.FlightSchedule, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"deleted": false})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var schedules []*entity.FlightSchedule
	for cursor.Next(ctx) {
		var schedule entity.FlightSchedule
		if err := cursor.Decode(&schedule); err != nil {
			return nil, err
		}
		schedules = append(schedules, &schedule)
	}
	return schedules, cursor.Err()
}
