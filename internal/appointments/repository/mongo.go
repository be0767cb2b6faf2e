package repository

import (
	"context"
	"errors"

	appointmenterrors "carebook/internal/appointments/errors"
	"carebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const appointmentCollection = "Appointments"

type mongoAppointmentRepository struct {
	collection *mongo.Collection
}

func NewMongoAppointmentRepository(db *mongo.Database) AppointmentRepository {
	return &mongoAppointmentRepository{
		collection: db.Collection(appointmentCollection),
	}
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	_, err := r.collection.InsertOne(ctx, appointment)
	return err
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appointmenterrors.ErrNotFound
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *mongoAppointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": appointment.ID}, appointment)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return appointmenterrors.ErrNotFound
	}
	return nil
}

func (r *mongoAppointmentRepository) List(ctx context.Context, filter model.AppointmentFilter, limit, offset int) ([]*model.Appointment, int, error) {
	query := bson.M{}
	if filter.ProviderID != "" {
		query["provider_id"] = filter.ProviderID
	}
	if filter.LocationID != "" {
		query["location_id"] = filter.LocationID
	}
	if filter.PatientID != "" {
		query["patient_id"] = filter.PatientID
	}
	if filter.Date != nil {
		query["date"] = *filter.Date
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, 0, err
	}
	return appointments, int(total), nil
}
