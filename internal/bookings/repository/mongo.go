package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "pawwalk/internal/bookings/errors"
	"pawwalk/pkg/config"
	mongodb "pawwalk/pkg/db/mongo"
	"pawwalk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBookingRepository) Save(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	stamp(booking, time.Now())
	current := booking.Version
	doc := *booking
	doc.Version = current + 1

	if current == 0 {
		if _, err := r.collection.InsertOne(ctx, &doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: %s already exists", bookingserrors.ErrVersionConflict, booking.ID)
			}
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		booking.Version = doc.Version
		return nil
	}

	filter := bson.M{"_id": booking.ID, "version": current}
	result, err := r.collection.ReplaceOne(ctx, filter, &doc)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s at version %d", bookingserrors.ErrVersionConflict, booking.ID, current)
	}

	booking.Version = doc.Version
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "scheduled_at", Value: -1},
		{Key: "_id", Value: 1},
	})

	return r.find(ctx, bson.M{"owner_id": ownerID}, opts)
}

func (r *mongoBookingRepository) FindStale(ctx context.Context, status model.BookingStatus, before time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     status,
		"updated_at": bson.M{"$lt": before.UTC()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) FindUpdatedSince(ctx context.Context, status model.BookingStatus, since time.Time, afterID string, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	since = since.UTC()
	filter := bson.M{
		"status": status,
		"$or": bson.A{
			bson.M{"updated_at": bson.M{"$gt": since}},
			bson.M{"updated_at": since, "_id": bson.M{"$gt": afterID}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*model.Booking, 0)
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}
