package locks

import (
	"context"
	"time"

	"carebook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const lockCollection = "Slot_locks"

type lockDocument struct {
	ID         string    `bson:"_id"`
	AcquiredAt time.Time `bson:"acquired_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// mongoManager implements the lock contract on a Mongo collection. The
// atomic compare-and-insert is the unique index on _id: the first InsertOne
// wins, every concurrent loser gets a duplicate key error.
type mongoManager struct {
	collection *mongo.Collection
	log        *logger.Logger
	now        func() time.Time
}

func NewMongoManager(client *mongo.Client, database string, log *logger.Logger) Manager {
	return &mongoManager{
		collection: client.Database(database).Collection(lockCollection),
		log:        log,
		now:        time.Now,
	}
}

func (m *mongoManager) Acquire(ctx context.Context, key string, ttl time.Duration) bool {
	now := m.now()
	doc := lockDocument{
		ID:         key,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	_, err := m.collection.InsertOne(ctx, doc)
	if err == nil {
		return true
	}
	if !mongo.IsDuplicateKeyError(err) {
		m.log.Error("Failed to insert lock record", "key", key, "error", err)
		return false
	}

	// A record exists. Reclaim it only if its expiry has passed; the delete
	// is conditioned on the stored expiry so two reclaimers cannot both
	// succeed against a still-live lock.
	res, err := m.collection.DeleteOne(ctx, bson.M{
		"_id":        key,
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil || res.DeletedCount == 0 {
		return false
	}

	_, err = m.collection.InsertOne(ctx, doc)
	if err != nil {
		return false
	}
	return true
}

func (m *mongoManager) Release(ctx context.Context, key string) {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		m.log.Warn("Failed to release lock", "key", key, "error", err)
	}
}

func (m *mongoManager) Extend(ctx context.Context, key string, ttl time.Duration) bool {
	res, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"expires_at": m.now().Add(ttl)}},
	)
	if err != nil {
		m.log.Warn("Failed to extend lock", "key", key, "error", err)
		return false
	}
	return res.MatchedCount > 0
}
