// Package board coordinates the live snapshot, the ranking index, and the
// archive of one timeframe window, and fans updates out across timeframes.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mineworlds/leaderboard/internal/adapters/rankings"
	"github.com/mineworlds/leaderboard/internal/domain/merge"
	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/internal/domain/types"
	"github.com/mineworlds/leaderboard/pkg/logger"
	"github.com/mineworlds/leaderboard/pkg/metrics"
)

// SnapshotSource is the live per-wallet aggregate store of one window.
type SnapshotSource interface {
	Find(ctx context.Context, wallets []string) ([]*model.Aggregate, error)
	UpsertMany(ctx context.Context, aggregates []*model.Aggregate) error
	All(ctx context.Context) ([]*model.Aggregate, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// ArchiveSource keeps the closed windows of one timeframe.
type ArchiveSource interface {
	Add(ctx context.Context, aggregates []*model.Aggregate) error
	Find(ctx context.Context, wallets []string, from, to time.Time) ([]*model.Aggregate, error)
	List(ctx context.Context, metric types.Metric, order types.Order, from, to time.Time, skip, limit int64) ([]*model.Aggregate, error)
	Count(ctx context.Context, from, to time.Time) (int64, error)
	FindAccount(ctx context.Context, wallet string, metric types.Metric, from, to time.Time) (*model.Aggregate, int, error)
}

// RankingSource answers rank and ordering queries over the live window.
type RankingSource interface {
	UpsertMany(ctx context.Context, aggregates []*model.Aggregate) error
	Rankings(ctx context.Context, wallets []string, metrics []types.Metric, order types.Order) (map[string]map[types.Metric]int, error)
	List(ctx context.Context, metric types.Metric, offset, limit int, order types.Order) ([]rankings.RankedMember, error)
	Count(ctx context.Context, metric types.Metric) (int, error)
	Clear(ctx context.Context) error
}

// Board is the coordinator of one timeframe window. Queries that bracket the
// current moment read the live snapshot and index; purely historical ranges
// read the archive.
type Board struct {
	timeframe types.Timeframe
	snapshot  SnapshotSource
	archive   ArchiveSource
	index     RankingSource
	lgr       logger.Logger
	now       func() time.Time
}

// NewBoard wires a coordinator over its three sources.
func NewBoard(timeframe types.Timeframe, snapshot SnapshotSource, archive ArchiveSource, index RankingSource, opts ...Option) *Board {
	cfg := defaultBoardConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Board{
		timeframe: timeframe,
		snapshot:  snapshot,
		archive:   archive,
		index:     index,
		lgr:       cfg.lgr.Named("board").Named(string(timeframe)),
		now:       cfg.now,
	}
}

// Timeframe returns the window this board coordinates.
func (b *Board) Timeframe() types.Timeframe { return b.timeframe }

// live reports whether [from, to] covers the current moment. Zero bounds
// always mean the live window.
func (b *Board) live(from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	now := b.now()
	return !from.After(now) && !to.Before(now)
}

// FindAccounts returns the aggregates of the given wallets inside [from, to].
// Zero bounds select the live window. When rankings are requested on a live
// read, each aggregate carries its 1-based rank per metric (-1 if unranked);
// archived reads never carry rankings.
func (b *Board) FindAccounts(ctx context.Context, wallets []string, from, to time.Time, includeRankings bool) ([]*model.Aggregate, error) {
	if len(wallets) == 0 {
		return nil, nil
	}

	if !b.live(from, to) {
		found, err := b.archive.Find(ctx, wallets, from, to)
		if err != nil {
			return nil, fmt.Errorf("reading %s archive: %w", b.timeframe, err)
		}
		return found, nil
	}

	found, err := b.snapshot.Find(ctx, wallets)
	if err != nil {
		return nil, fmt.Errorf("reading %s snapshot: %w", b.timeframe, err)
	}
	if !includeRankings || len(found) == 0 {
		return found, nil
	}

	present := make([]string, 0, len(found))
	for _, agg := range found {
		present = append(present, agg.WalletID)
	}
	ranks, err := b.index.Rankings(ctx, present, nil, types.OrderDesc)
	if err != nil {
		return nil, fmt.Errorf("ranking %s accounts: %w", b.timeframe, err)
	}
	for _, agg := range found {
		agg.Rankings = ranks[agg.WalletID]
	}
	return found, nil
}

// FindAccount returns one wallet's aggregate in [from, to], with its 1-based
// rank for the metric. Historical ranks are derived from the archive.
func (b *Board) FindAccount(ctx context.Context, wallet string, metric types.Metric, from, to time.Time) (*model.Aggregate, int, error) {
	if !b.live(from, to) {
		agg, rank, err := b.archive.FindAccount(ctx, wallet, metric, from, to)
		if err != nil {
			return nil, 0, fmt.Errorf("reading %s archive: %w", b.timeframe, err)
		}
		return agg, rank, nil
	}

	found, err := b.FindAccounts(ctx, []string{wallet}, from, to, true)
	if err != nil {
		return nil, 0, err
	}
	if len(found) == 0 {
		return nil, 0, ErrNotFound
	}
	return found[0], found[0].Rankings[metric], nil
}

// List returns one metric-ordered page of the window and the total number of
// ranked accounts. Live pages hydrate aggregates from the snapshot and carry
// the page rank for the metric.
func (b *Board) List(ctx context.Context, metric types.Metric, order types.Order, from, to time.Time, offset, limit int) ([]*model.Aggregate, int64, error) {
	if !b.live(from, to) {
		page, err := b.archive.List(ctx, metric, order, from, to, int64(offset), int64(limit))
		if err != nil {
			return nil, 0, fmt.Errorf("listing %s archive: %w", b.timeframe, err)
		}
		total, err := b.archive.Count(ctx, from, to)
		if err != nil {
			return nil, 0, fmt.Errorf("counting %s archive: %w", b.timeframe, err)
		}
		return page, total, nil
	}

	rows, err := b.index.List(ctx, metric, offset, limit, order)
	if err != nil {
		return nil, 0, fmt.Errorf("listing %s index: %w", b.timeframe, err)
	}

	wallets := make([]string, 0, len(rows))
	for _, row := range rows {
		wallets = append(wallets, row.Member)
	}
	found, err := b.snapshot.Find(ctx, wallets)
	if err != nil {
		return nil, 0, fmt.Errorf("hydrating %s page: %w", b.timeframe, err)
	}
	byWallet := make(map[string]*model.Aggregate, len(found))
	for _, agg := range found {
		byWallet[agg.WalletID] = agg
	}

	page := make([]*model.Aggregate, 0, len(rows))
	for _, row := range rows {
		agg, ok := byWallet[row.Member]
		if !ok {
			// Index/snapshot divergence mid-write, skip the row.
			b.lgr.Warn(ctx, "ranked wallet missing from snapshot",
				logger.String("wallet", row.Member))
			continue
		}
		agg.Rankings = map[types.Metric]int{metric: row.Rank}
		page = append(page, agg)
	}

	total, err := b.index.Count(ctx, metric)
	if err != nil {
		return nil, 0, fmt.Errorf("counting %s index: %w", b.timeframe, err)
	}
	return page, int64(total), nil
}

// Count returns the number of accounts in the window. Live cardinality comes
// from the ranking index, which every account is written to on update.
func (b *Board) Count(ctx context.Context, from, to time.Time) (int64, error) {
	if !b.live(from, to) {
		return b.archive.Count(ctx, from, to)
	}
	count, err := b.index.Count(ctx, types.DefaultMetric)
	if err != nil {
		return 0, fmt.Errorf("counting %s index: %w", b.timeframe, err)
	}
	return int64(count), nil
}

// Update writes the aggregates into the snapshot and the ranking index
// concurrently. Either write failing fails the whole operation so the two
// views never drift apart silently.
func (b *Board) Update(ctx context.Context, aggregates []*model.Aggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	errs := make(chan error, 2)
	go func() { errs <- b.snapshot.UpsertMany(ctx, aggregates) }()
	go func() { errs <- b.index.UpsertMany(ctx, aggregates) }()

	var failure error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && failure == nil {
			failure = err
		}
	}
	if failure != nil {
		metrics.RecordErrorByComponent("board", "update")
		return fmt.Errorf("updating %s board: %w", b.timeframe, failure)
	}
	return nil
}

// ApplyUpdates merges a batch of mining updates into the window. Later
// updates for an account merge onto the results of earlier ones in the same
// batch. Failures surface as *UpdateError carrying the updates that were not
// applied.
func (b *Board) ApplyUpdates(ctx context.Context, updates []*model.MiningUpdate, assets []model.ToolAsset) error {
	if len(updates) == 0 {
		return nil
	}

	started := time.Now()
	defer func() {
		metrics.RecordBatchLatency(float64(time.Since(started).Milliseconds()))
	}()

	wallets := make([]string, 0, len(updates))
	seen := make(map[string]bool, len(updates))
	for _, update := range updates {
		if update.WalletID != "" && !seen[update.WalletID] {
			seen[update.WalletID] = true
			wallets = append(wallets, update.WalletID)
		}
	}

	current, err := b.snapshot.Find(ctx, wallets)
	if err != nil {
		metrics.RecordUpdatesFailed(string(b.timeframe), len(updates))
		return &UpdateError{Total: len(updates), Failed: updates,
			Err: fmt.Errorf("loading %s aggregates: %w", b.timeframe, err)}
	}
	working := make(map[string]*model.Aggregate, len(current))
	for _, agg := range current {
		working[agg.WalletID] = agg
	}

	var failed []*model.MiningUpdate
	for _, update := range updates {
		if update.WalletID == "" || update.UpdateID == "" {
			failed = append(failed, update)
			continue
		}
		mergeStarted := time.Now()
		if agg, ok := working[update.WalletID]; ok {
			working[update.WalletID] = merge.Merge(agg, update, assets)
		} else {
			working[update.WalletID] = merge.Create(update, assets)
		}
		metrics.RecordMergeLatency(float64(time.Since(mergeStarted).Microseconds()) / 1000)
	}

	merged := make([]*model.Aggregate, 0, len(working))
	for _, agg := range working {
		merged = append(merged, agg)
	}
	if err := b.Update(ctx, merged); err != nil {
		metrics.RecordUpdatesFailed(string(b.timeframe), len(updates))
		return &UpdateError{Total: len(updates), Failed: updates, Err: err}
	}

	applied := len(updates) - len(failed)
	for i := 0; i < applied; i++ {
		metrics.RecordUpdateApplied()
	}
	if count, cerr := b.index.Count(ctx, types.DefaultMetric); cerr == nil {
		metrics.UpdateBoardAccounts(string(b.timeframe), count)
	}

	if len(failed) > 0 {
		metrics.RecordUpdatesFailed(string(b.timeframe), len(failed))
		return &UpdateError{Total: len(updates), Failed: failed, Err: errors.New("updates missing wallet or update id")}
	}
	return nil
}

// Clear empties the live snapshot and ranking index.
func (b *Board) Clear(ctx context.Context) error {
	if err := b.snapshot.Clear(ctx); err != nil {
		return fmt.Errorf("clearing %s snapshot: %w", b.timeframe, err)
	}
	if err := b.index.Clear(ctx); err != nil {
		return fmt.Errorf("clearing %s index: %w", b.timeframe, err)
	}
	metrics.UpdateBoardAccounts(string(b.timeframe), 0)
	return nil
}

// Rollover closes the current window: the live snapshot is archived, then
// snapshot and index are cleared for the next window.
func (b *Board) Rollover(ctx context.Context) error {
	all, err := b.snapshot.All(ctx)
	if err != nil {
		return fmt.Errorf("reading %s snapshot for rollover: %w", b.timeframe, err)
	}
	if len(all) > 0 {
		if err := b.archive.Add(ctx, all); err != nil {
			return fmt.Errorf("archiving %s window: %w", b.timeframe, err)
		}
	}
	if err := b.Clear(ctx); err != nil {
		return err
	}
	b.lgr.Info(ctx, "window rolled over", logger.Int("archived", len(all)))
	return nil
}
