package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/internal/domain/types"
	"github.com/mineworlds/leaderboard/pkg/logger"
	"github.com/mineworlds/leaderboard/pkg/metrics"
)

const updatesCollection = "leaderboard_updates"

// UpdateQueueStore is the durable backing source of the update queue. One
// collection feeds every timeframe board; drains oldest block first.
type UpdateQueueStore struct {
	coll *mongo.Collection
	lgr  logger.Logger
}

// NewUpdateQueueStore binds the store to its collection and ensures the
// unique (wallet, update id) key.
func NewUpdateQueueStore(ctx context.Context, db *mongo.Database, opts ...StoreOption) (*UpdateQueueStore, error) {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := types.ValidateCollectionName(updatesCollection); err != nil {
		return nil, err
	}

	u := &UpdateQueueStore{
		coll: db.Collection(updatesCollection),
		lgr:  cfg.lgr.Named("updates"),
	}

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "wallet_id", Value: 1},
				{Key: "update_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "block_timestamp", Value: 1}},
		},
	}
	if _, err := u.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("creating update queue indexes: %w", err)
	}
	return u, nil
}

// Add enqueues updates. Re-sent (wallet, update id) pairs are skipped.
func (u *UpdateQueueStore) Add(ctx context.Context, updates []*model.MiningUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	started := time.Now()
	defer u.observe("add", started)

	docs := make([]interface{}, 0, len(updates))
	for _, update := range updates {
		docs = append(docs, newUpdateDocument(update))
	}

	_, err := u.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicateKeys(err) {
		return fmt.Errorf("enqueueing updates: %w", err)
	}
	return nil
}

// Next atomically removes and returns the oldest queued update by block
// timestamp, or ErrNoUpdates when the queue is empty.
func (u *UpdateQueueStore) Next(ctx context.Context) (*model.MiningUpdate, error) {
	started := time.Now()
	defer u.observe("next", started)

	var doc updateDocument
	err := u.coll.FindOneAndDelete(ctx, bson.M{},
		options.FindOneAndDelete().SetSort(bson.D{{Key: "block_timestamp", Value: 1}})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoUpdates
		}
		return nil, fmt.Errorf("dequeueing update: %w", err)
	}
	return doc.toModel(), nil
}

// Count returns the number of queued updates.
func (u *UpdateQueueStore) Count(ctx context.Context) (int64, error) {
	return u.coll.CountDocuments(ctx, bson.M{})
}

func (u *UpdateQueueStore) observe(op string, started time.Time) {
	metrics.RecordStoreLatency("updates", op, float64(time.Since(started).Milliseconds()))
}
