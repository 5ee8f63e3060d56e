package repository

import (
	"context"
	"errors"
	"fmt"
	"roombook/pkg/config"
	mongotx "roombook/pkg/db/mongo"
	"roombook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollectionName = "Booking_locks"
)

// ErrLockHeld is returned by Create when another owner holds the lock.
var ErrLockHeld = errors.New("booking lock is held")

// BookingLockRepository provides operations for advisory locks
type BookingLockRepository interface {
	Create(ctx context.Context, lock *model.BookingLock) error
	// Delete removes the lock only while it is still held by owner.
	Delete(ctx context.Context, lockID, owner string) error
	// DeleteExpired removes the lock if it expired before now. It reports
	// whether a stale lock was removed.
	DeleteExpired(ctx context.Context, lockID string, now time.Time) (bool, error)
	// Extend moves expires_at forward while owner still holds an unexpired
	// lock. It reports whether the lock matched.
	Extend(ctx context.Context, lockID, owner string, now, expiresAt time.Time) (bool, error)
}

type mongoBookingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

// The _id is the scope key, so a concurrent holder makes InsertOne fail
// with a duplicate key error.
func (r *mongoBookingLockRepository) Create(ctx context.Context, lock *model.BookingLock) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	lock.CreatedAt = time.Now().UTC()
	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrLockHeld
		}
		return fmt.Errorf("failed to create booking lock: %w", err)
	}
	return nil
}

func (r *mongoBookingLockRepository) Delete(ctx context.Context, lockID, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner}); err != nil {
		return fmt.Errorf("failed to delete booking lock: %w", err)
	}
	return nil
}

// The TTL index reaps expired locks only about once a minute, so writers
// clear a stale lock themselves before retrying.
func (r *mongoBookingLockRepository) DeleteExpired(ctx context.Context, lockID string, now time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "expires_at": bson.M{"$lt": now}})
	if err != nil {
		return false, fmt.Errorf("failed to delete expired booking lock: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// Extend runs inside the commit transaction when given a session context,
// so a takeover racing the commit surfaces as a write conflict.
func (r *mongoBookingLockRepository) Extend(ctx context.Context, lockID, owner string, now, expiresAt time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":        lockID,
		"owner":      owner,
		"expires_at": bson.M{"$gt": now},
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"expires_at": expiresAt}})
	if err != nil {
		return false, fmt.Errorf("failed to extend booking lock: %w", err)
	}
	return result.MatchedCount > 0, nil
}
