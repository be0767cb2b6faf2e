package repository

import (
	"context"
	"errors"

	waitlisterrors "carebook/internal/waitlist/errors"
	"carebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const waitlistCollection = "Waitlist_entries"

type mongoWaitlistRepository struct {
	collection *mongo.Collection
}

func NewMongoWaitlistRepository(db *mongo.Database) WaitlistRepository {
	return &mongoWaitlistRepository{
		collection: db.Collection(waitlistCollection),
	}
}

func (r *mongoWaitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *mongoWaitlistRepository) FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	var entry model.WaitlistEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, waitlisterrors.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *mongoWaitlistRepository) Update(ctx context.Context, entry *model.WaitlistEntry) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": entry.ID}, entry)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return waitlisterrors.ErrNotFound
	}
	return nil
}

func (r *mongoWaitlistRepository) FindByProvider(ctx context.Context, providerID string, status model.WaitlistStatus, limit int) ([]*model.WaitlistEntry, error) {
	filter := bson.M{"provider_id": providerID}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.WaitlistEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *mongoWaitlistRepository) FindByPatient(ctx context.Context, patientID string, status model.WaitlistStatus) ([]*model.WaitlistEntry, error) {
	filter := bson.M{"patient_id": patientID}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.WaitlistEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *mongoWaitlistRepository) CountByProvider(ctx context.Context, providerID string, status model.WaitlistStatus) (int, error) {
	filter := bson.M{"provider_id": providerID}
	if status != "" {
		filter["status"] = status
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *mongoWaitlistRepository) All(ctx context.Context, filter model.WaitlistFilter) ([]*model.WaitlistEntry, error) {
	query := bson.M{}
	if filter.ProviderID != "" {
		query["provider_id"] = filter.ProviderID
	}
	if filter.LocationID != "" {
		query["location_id"] = filter.LocationID
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.WaitlistEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
