package rankings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/internal/domain/types"
	"github.com/mineworlds/leaderboard/pkg/logger"
	"github.com/mineworlds/leaderboard/pkg/metrics"
)

// CollectionFactory builds the sorted collection backing one ranked metric.
type CollectionFactory func(name string) (SortedCollection, error)

// Index maintains one sorted collection per ranked metric for a single
// timeframe window. Collections are named "<timeframe>_<metric>".
type Index struct {
	timeframe   types.Timeframe
	collections map[types.Metric]SortedCollection
	lgr         logger.Logger
}

// NewIndex constructs an index with one collection per known metric.
func NewIndex(timeframe types.Timeframe, opts ...Option) (*Index, error) {
	cfg := defaultIndexConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	idx := &Index{
		timeframe:   timeframe,
		collections: make(map[types.Metric]SortedCollection, len(types.Metrics())),
		lgr:         cfg.lgr.Named("rankings"),
	}
	for _, metric := range types.Metrics() {
		name := fmt.Sprintf("%s_%s", timeframe, metric)
		coll, err := cfg.factory(name)
		if err != nil {
			return nil, fmt.Errorf("building collection %q: %w", name, err)
		}
		idx.collections[metric] = coll
	}
	return idx, nil
}

// Timeframe returns the window this index ranks.
func (i *Index) Timeframe() types.Timeframe { return i.timeframe }

// UpsertMany writes every aggregate's score into every metric collection.
// Last write wins per member.
func (i *Index) UpsertMany(ctx context.Context, aggregates []*model.Aggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	for metric, coll := range i.collections {
		for _, agg := range aggregates {
			if err := coll.Upsert(ctx, agg.WalletID, agg.Score(metric)); err != nil {
				return fmt.Errorf("upserting %s into %s: %w", agg.WalletID, coll.Name(), err)
			}
		}
	}
	metrics.RecordRankingUpserts(len(aggregates) * len(i.collections))
	return nil
}

// Upsert writes a single aggregate's scores into every metric collection.
func (i *Index) Upsert(ctx context.Context, aggregate *model.Aggregate) error {
	if aggregate == nil {
		return nil
	}
	return i.UpsertMany(ctx, []*model.Aggregate{aggregate})
}

// Rankings looks up the display rank of every wallet in every requested
// metric concurrently. Ranks are 1-based; a wallet absent from a collection
// gets -1. An empty metric list means all known metrics.
func (i *Index) Rankings(ctx context.Context, wallets []string, requested []types.Metric, order types.Order) (map[string]map[types.Metric]int, error) {
	started := time.Now()
	defer func() {
		metrics.RecordRankingQueryLatency(float64(time.Since(started).Milliseconds()))
	}()

	selected, err := i.selectMetrics(requested)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[types.Metric]int, len(wallets))
	for _, wallet := range wallets {
		out[wallet] = make(map[types.Metric]int, len(selected))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, metric := range selected {
		coll := i.collections[metric]
		for _, wallet := range wallets {
			wg.Add(1)
			go func(metric types.Metric, wallet string) {
				defer wg.Done()
				rank, rerr := coll.Rank(ctx, wallet, order)
				mu.Lock()
				defer mu.Unlock()
				if rerr != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("ranking %s in %s: %w", wallet, coll.Name(), rerr)
					}
					return
				}
				if rank >= 0 {
					rank++
				}
				out[wallet][metric] = rank
			}(metric, wallet)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Scores returns the raw score of every wallet in every requested metric.
// Wallets absent from a collection are omitted from that metric's map.
func (i *Index) Scores(ctx context.Context, wallets []string, requested []types.Metric) (map[string]map[types.Metric]float64, error) {
	selected, err := i.selectMetrics(requested)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[types.Metric]float64, len(wallets))
	for _, wallet := range wallets {
		scores := make(map[types.Metric]float64, len(selected))
		for _, metric := range selected {
			score, serr := i.collections[metric].Score(ctx, wallet)
			if serr != nil {
				if errors.Is(serr, ErrMemberNotFound) {
					continue
				}
				return nil, fmt.Errorf("scoring %s in %s: %w", wallet, i.collections[metric].Name(), serr)
			}
			scores[metric] = score
		}
		out[wallet] = scores
	}
	return out, nil
}

// List returns one rank-ordered page of the metric's collection with 1-based
// display ranks.
func (i *Index) List(ctx context.Context, metric types.Metric, offset, limit int, order types.Order) ([]RankedMember, error) {
	coll, ok := i.collections[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}

	page, err := coll.List(ctx, offset, limit, order)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", coll.Name(), err)
	}
	for idx := range page {
		page[idx].Rank++
	}
	return page, nil
}

// Count returns the number of ranked wallets in the metric's collection.
func (i *Index) Count(ctx context.Context, metric types.Metric) (int, error) {
	coll, ok := i.collections[metric]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	return coll.Count(ctx)
}

// Clear empties every metric collection. Used at window rollover.
func (i *Index) Clear(ctx context.Context) error {
	for _, coll := range i.collections {
		if err := coll.Clear(ctx); err != nil {
			return fmt.Errorf("clearing %s: %w", coll.Name(), err)
		}
	}
	i.lgr.Debug(ctx, "ranking index cleared", logger.String("timeframe", string(i.timeframe)))
	return nil
}

// ClearMetric empties a single metric's collection, leaving the rest intact.
func (i *Index) ClearMetric(ctx context.Context, metric types.Metric) error {
	coll, ok := i.collections[metric]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	if err := coll.Clear(ctx); err != nil {
		return fmt.Errorf("clearing %s: %w", coll.Name(), err)
	}
	return nil
}

func (i *Index) selectMetrics(requested []types.Metric) ([]types.Metric, error) {
	if len(requested) == 0 {
		return types.Metrics(), nil
	}
	for _, metric := range requested {
		if _, ok := i.collections[metric]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
		}
	}
	return requested, nil
}
