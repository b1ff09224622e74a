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

// ArchiveStore persists closed-window aggregates for one timeframe. Records
// accumulate across rollovers; each is keyed by wallet and the block
// timestamp its window closed on.
type ArchiveStore struct {
	timeframe types.Timeframe
	coll      *mongo.Collection
	lgr       logger.Logger
}

// NewArchiveStore binds the store to its collection and ensures the unique
// record key plus one sort index per ranked metric field.
func NewArchiveStore(ctx context.Context, db *mongo.Database, timeframe types.Timeframe, opts ...StoreOption) (*ArchiveStore, error) {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	name := fmt.Sprintf("%s_leaderboard_archive", timeframe)
	if err := types.ValidateCollectionName(name); err != nil {
		return nil, err
	}

	a := &ArchiveStore{
		timeframe: timeframe,
		coll:      db.Collection(name),
		lgr:       cfg.lgr.Named("archive"),
	}

	indexes := []mongo.IndexModel{{
		Keys: bson.D{
			{Key: "wallet_id", Value: 1},
			{Key: "last_block_timestamp", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}}
	for _, metric := range types.Metrics() {
		field, ok := metricField(metric)
		if !ok {
			continue
		}
		indexes = append(indexes, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: -1}},
		})
	}
	if _, err := a.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("creating archive indexes: %w", err)
	}
	return a, nil
}

// Timeframe returns the window this archive belongs to.
func (a *ArchiveStore) Timeframe() types.Timeframe { return a.timeframe }

// Add appends closed-window aggregates. Records already archived under the
// same (wallet, block timestamp) key are skipped rather than duplicated.
func (a *ArchiveStore) Add(ctx context.Context, aggregates []*model.Aggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	started := time.Now()
	defer a.observe("add", started)

	docs := make([]interface{}, 0, len(aggregates))
	for _, agg := range aggregates {
		docs = append(docs, newLeaderboardDocument(a.timeframe, agg))
	}

	_, err := a.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicateKeys(err) {
		return fmt.Errorf("archiving aggregates: %w", err)
	}

	metrics.RecordArchiveRecords(string(a.timeframe), len(aggregates))
	return nil
}

// Find returns archived records for the given wallets whose window closed
// inside [from, to].
func (a *ArchiveStore) Find(ctx context.Context, wallets []string, from, to time.Time) ([]*model.Aggregate, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	if len(wallets) == 0 {
		return nil, nil
	}

	started := time.Now()
	defer a.observe("find", started)

	filter := a.rangeFilter(from, to)
	filter["wallet_id"] = bson.M{"$in": wallets}

	cursor, err := a.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("finding archived records: %w", err)
	}
	return decodeAggregates(ctx, cursor)
}

// List returns one metric-ordered page of records whose window closed inside
// [from, to]. Ties break on wallet id ascending so pages are stable.
func (a *ArchiveStore) List(ctx context.Context, metric types.Metric, order types.Order, from, to time.Time, skip, limit int64) ([]*model.Aggregate, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	field, ok := metricField(metric)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownMetric, metric)
	}

	started := time.Now()
	defer a.observe("list", started)

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: int(order)}, {Key: "wallet_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := a.coll.Find(ctx, a.rangeFilter(from, to), opts)
	if err != nil {
		return nil, fmt.Errorf("listing archived records: %w", err)
	}
	return decodeAggregates(ctx, cursor)
}

// Count returns the number of records whose window closed inside [from, to].
func (a *ArchiveStore) Count(ctx context.Context, from, to time.Time) (int64, error) {
	if to.Before(from) {
		return 0, ErrInvalidRange
	}
	return a.coll.CountDocuments(ctx, a.rangeFilter(from, to))
}

// FindAccount returns the wallet's best archived record in [from, to] for the
// metric, along with its 1-based historical rank: one more than the number of
// in-range records scoring strictly higher.
func (a *ArchiveStore) FindAccount(ctx context.Context, wallet string, metric types.Metric, from, to time.Time) (*model.Aggregate, int, error) {
	if to.Before(from) {
		return nil, 0, ErrInvalidRange
	}
	field, ok := metricField(metric)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", types.ErrUnknownMetric, metric)
	}

	started := time.Now()
	defer a.observe("find_account", started)

	filter := a.rangeFilter(from, to)
	filter["wallet_id"] = wallet

	var doc leaderboardDocument
	err := a.coll.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: field, Value: -1}})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("finding archived account: %w", err)
	}

	agg := doc.toModel()
	better := a.rangeFilter(from, to)
	better[field] = bson.M{"$gt": agg.Score(metric)}

	ahead, err := a.coll.CountDocuments(ctx, better)
	if err != nil {
		return nil, 0, fmt.Errorf("counting higher-scored records: %w", err)
	}
	return agg, int(ahead) + 1, nil
}

func (a *ArchiveStore) rangeFilter(from, to time.Time) bson.M {
	return bson.M{"last_block_timestamp": bson.M{"$gte": from.UTC(), "$lte": to.UTC()}}
}

func (a *ArchiveStore) observe(op string, started time.Time) {
	metrics.RecordStoreLatency("archive", op, float64(time.Since(started).Milliseconds()))
}

// onlyDuplicateKeys reports whether every write error in err is a unique key
// collision.
func onlyDuplicateKeys(err error) bool {
	var bulk mongo.BulkWriteException
	if !errors.As(err, &bulk) {
		return false
	}
	if bulk.WriteConcernError != nil || len(bulk.WriteErrors) == 0 {
		return false
	}
	for _, we := range bulk.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}
