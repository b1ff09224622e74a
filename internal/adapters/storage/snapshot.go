package storage

import (
	"context"
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

// SnapshotStore persists the live aggregate per wallet for one timeframe
// window. One document per wallet, replaced wholesale on every write.
type SnapshotStore struct {
	timeframe types.Timeframe
	coll      *mongo.Collection
	lgr       logger.Logger
}

// NewSnapshotStore binds the store to its collection and ensures the unique
// wallet index exists.
func NewSnapshotStore(ctx context.Context, db *mongo.Database, timeframe types.Timeframe, opts ...StoreOption) (*SnapshotStore, error) {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	name := fmt.Sprintf("%s_leaderboard_snapshot", timeframe)
	if err := types.ValidateCollectionName(name); err != nil {
		return nil, err
	}

	s := &SnapshotStore{
		timeframe: timeframe,
		coll:      db.Collection(name),
		lgr:       cfg.lgr.Named("snapshot"),
	}

	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "wallet_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("creating snapshot index: %w", err)
	}
	return s, nil
}

// Timeframe returns the window this snapshot belongs to.
func (s *SnapshotStore) Timeframe() types.Timeframe { return s.timeframe }

// Find returns the aggregates of the given wallets. Wallets without a
// snapshot document are simply absent from the result.
func (s *SnapshotStore) Find(ctx context.Context, wallets []string) ([]*model.Aggregate, error) {
	if len(wallets) == 0 {
		return nil, nil
	}

	started := time.Now()
	defer s.observe("find", started)

	cursor, err := s.coll.Find(ctx, bson.M{"wallet_id": bson.M{"$in": wallets}})
	if err != nil {
		return nil, fmt.Errorf("finding snapshots: %w", err)
	}
	return decodeAggregates(ctx, cursor)
}

// UpsertMany replaces each wallet's snapshot document, inserting when absent.
func (s *SnapshotStore) UpsertMany(ctx context.Context, aggregates []*model.Aggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	started := time.Now()
	defer s.observe("upsert_many", started)

	writes := make([]mongo.WriteModel, 0, len(aggregates))
	for _, agg := range aggregates {
		doc := newLeaderboardDocument(s.timeframe, agg)
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"wallet_id": agg.WalletID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	if _, err := s.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("upserting snapshots: %w", err)
	}
	return nil
}

// All streams every snapshot document in the window.
func (s *SnapshotStore) All(ctx context.Context) ([]*model.Aggregate, error) {
	started := time.Now()
	defer s.observe("all", started)

	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return decodeAggregates(ctx, cursor)
}

// Count returns the number of wallets with a snapshot in the window.
func (s *SnapshotStore) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{})
}

// Clear drops every snapshot document. Used at window rollover.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	started := time.Now()
	defer s.observe("clear", started)

	res, err := s.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("clearing snapshots: %w", err)
	}
	s.lgr.Info(ctx, "snapshot cleared",
		logger.String("timeframe", string(s.timeframe)),
		logger.Int64("deleted", res.DeletedCount))
	return nil
}

func (s *SnapshotStore) observe(op string, started time.Time) {
	metrics.RecordStoreLatency("snapshot", op, float64(time.Since(started).Milliseconds()))
}

func decodeAggregates(ctx context.Context, cursor *mongo.Cursor) ([]*model.Aggregate, error) {
	defer cursor.Close(ctx)

	var out []*model.Aggregate
	for cursor.Next(ctx) {
		var doc leaderboardDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding aggregate document: %w", err)
		}
		out = append(out, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating aggregate documents: %w", err)
	}
	return out, nil
}
