package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	paymentserrors "pawwalk/internal/payments/errors"
	"pawwalk/pkg/config"
	mongodb "pawwalk/pkg/db/mongo"
	"pawwalk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Payments"
)

type mongoPaymentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPaymentRepository(cfg *config.Config) PaymentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPaymentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPaymentRepository) Save(ctx context.Context, payment *model.Payment) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	stamp(payment, time.Now())
	current := payment.Version
	doc := *payment
	doc.Version = current + 1

	if current == 0 {
		if _, err := r.collection.InsertOne(ctx, &doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: %s already exists", paymentserrors.ErrVersionConflict, payment.ID)
			}
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		payment.Version = doc.Version
		return nil
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": payment.ID, "version": current}, &doc)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s at version %d", paymentserrors.ErrVersionConflict, payment.ID, current)
	}

	payment.Version = doc.Version
	return nil
}

func (r *mongoPaymentRepository) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var payment model.Payment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, paymentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return &payment, nil
}

func (r *mongoPaymentRepository) FindStale(ctx context.Context, status model.PaymentStatus, before time.Time, limit int) ([]*model.Payment, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     status,
		"updated_at": bson.M{"$lt": before.UTC()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := make([]*model.Payment, 0)
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}
