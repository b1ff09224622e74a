// Package worker drains the update queue into the timeframe dispatcher with
// a pool of batching consumers.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mineworlds/leaderboard/internal/adapters/mq/queue"
	"github.com/mineworlds/leaderboard/internal/board"
	"github.com/mineworlds/leaderboard/internal/domain/dedupe"
	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/pkg/logger"
	"github.com/mineworlds/leaderboard/pkg/metrics"
)

// Source hands out pending updates and takes failed ones back.
type Source interface {
	Next(ctx context.Context) (*model.MiningUpdate, error)
	Add(ctx context.Context, updates []*model.MiningUpdate) error
}

// Applier merges batches into every configured timeframe board.
type Applier interface {
	ApplyUpdates(ctx context.Context, updates []*model.MiningUpdate, assets []model.ToolAsset) error
}

// AssetResolver looks up the tool assets referenced by a batch's bag items.
type AssetResolver interface {
	Assets(ctx context.Context, ids []uint64) ([]model.ToolAsset, error)
}

// Pool consumes the queue in batches. Each dequeued update passes the
// idempotency cache before merging; duplicates are dropped. Updates a batch
// fails to apply are un-recorded and requeued so a later attempt passes.
type Pool struct {
	source   Source
	applier  Applier
	resolver AssetResolver
	deduper  dedupe.Deduper
	lgr      logger.Logger

	workers   int
	batchSize int
	pollEvery time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewPool builds a worker pool over the queue and dispatcher.
func NewPool(source Source, applier Applier, opts ...Option) *Pool {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Pool{
		source:    source,
		applier:   applier,
		resolver:  cfg.resolver,
		deduper:   cfg.deduper,
		lgr:       cfg.lgr.Named("worker"),
		workers:   cfg.workers,
		batchSize: cfg.batchSize,
		pollEvery: cfg.pollEvery,
		stop:      make(chan struct{}),
	}
}

// Start launches the workers. They run until Stop is called or the context
// is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	metrics.UpdateWorkerCount(p.workers)
	p.lgr.Info(ctx, "workers started", logger.Int("count", p.workers))
}

// Stop signals the workers and waits for them to drain their current batch.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
	metrics.UpdateWorkerCount(0)
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		default:
		}

		batch := p.collect(ctx)
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-time.After(p.pollEvery):
			}
			continue
		}
		p.apply(ctx, batch)
	}
}

// collect dequeues up to one batch, dropping duplicate update ids as it goes.
func (p *Pool) collect(ctx context.Context) []*model.MiningUpdate {
	var batch []*model.MiningUpdate
	for len(batch) < p.batchSize {
		update, err := p.source.Next(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrNoUpdates) {
				p.lgr.Error(ctx, "dequeue failed", logger.Error(err))
				metrics.RecordErrorByComponent("worker", "dequeue")
			}
			break
		}
		if p.deduper.SeenAndRecord(ctx, update.UpdateID) {
			metrics.RecordUpdateDuplicate()
			p.lgr.Debug(ctx, "dropping duplicate update",
				logger.String("update_id", update.UpdateID),
				logger.String("wallet", update.WalletID))
			continue
		}
		batch = append(batch, update)
	}
	return batch
}

func (p *Pool) apply(ctx context.Context, batch []*model.MiningUpdate) {
	assets, err := p.resolveAssets(ctx, batch)
	if err != nil {
		p.lgr.Error(ctx, "asset lookup failed, requeueing batch",
			logger.Int("count", len(batch)), logger.Error(err))
		metrics.RecordErrorByComponent("worker", "assets")
		p.requeue(ctx, batch)
		return
	}

	if err := p.applier.ApplyUpdates(ctx, batch, assets); err != nil {
		failed := failedUpdates(err, batch)
		p.lgr.Error(ctx, "batch apply failed",
			logger.Int("count", len(batch)),
			logger.Int("failed", len(failed)),
			logger.Error(err))
		metrics.RecordErrorByComponent("worker", "apply")
		p.requeue(ctx, failed)
	}
}

// failedUpdates extracts the updates an apply error reports as failed, or the
// whole batch when the error carries no detail.
func failedUpdates(err error, batch []*model.MiningUpdate) []*model.MiningUpdate {
	var updErr *board.UpdateError
	if errors.As(err, &updErr) && len(updErr.Failed) > 0 {
		return updErr.Failed
	}
	return batch
}

// requeue un-records the updates' ids so a retry passes the idempotency
// check, then puts them back on the queue.
func (p *Pool) requeue(ctx context.Context, updates []*model.MiningUpdate) {
	for _, update := range updates {
		p.deduper.Unrecord(ctx, update.UpdateID)
	}
	if err := p.source.Add(ctx, updates); err != nil {
		p.lgr.Error(ctx, "requeue failed, updates lost",
			logger.Int("count", len(updates)), logger.Error(err))
		metrics.RecordErrorByComponent("worker", "requeue")
	}
}

func (p *Pool) resolveAssets(ctx context.Context, batch []*model.MiningUpdate) ([]model.ToolAsset, error) {
	if p.resolver == nil {
		return nil, nil
	}

	var ids []uint64
	seen := make(map[uint64]bool)
	for _, update := range batch {
		for _, item := range update.BagItems {
			if !seen[item] {
				seen[item] = true
				ids = append(ids, item)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return p.resolver.Assets(ctx, ids)
}
