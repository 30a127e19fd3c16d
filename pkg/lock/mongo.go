package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName    = "Entity_locks"
	defaultRetryDelay = 50 * time.Millisecond
)

// MongoLocker holds advisory locks as documents keyed by _id, so a second insert for the
// same key fails with a duplicate key error until the holder deletes it. Locks left by a
// crashed holder expire after ttl.
type MongoLocker struct {
	collection *mongo.Collection
	ttl        time.Duration
	retryDelay time.Duration
	log        *logger.Logger
}

func NewMongoLocker(db *mongo.Database, ttl time.Duration, log *logger.Logger) *MongoLocker {
	return &MongoLocker{
		collection: db.Collection(CollectionName),
		ttl:        ttl,
		retryDelay: defaultRetryDelay,
		log:        log,
	}
}

func (l *MongoLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	token := uuid.NewString()

	for {
		now := time.Now().UTC()
		lock := &model.EntityLock{
			ID:        key,
			Owner:     token,
			ExpiresAt: now.Add(l.ttl),
			CreatedAt: now,
		}

		_, err := l.collection.InsertOne(ctx, lock)
		if err == nil {
			var once sync.Once
			return func() { once.Do(func() { l.release(key, token) }) }, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}

		// The TTL monitor runs once a minute; clear an expired holder ourselves.
		res, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lt": now}})
		if err == nil && res.DeletedCount > 0 {
			l.log.Warn("Reclaimed expired lock", "key", key)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *MongoLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": token}); err != nil {
		l.log.Warn("Failed to release lock", "key", key, "error", err)
	}
}
