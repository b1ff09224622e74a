// Package queue wraps the durable update source with a bounded in-process
// overflow buffer so short storage outages do not drop updates.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mineworlds/leaderboard/internal/adapters/storage"
	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/pkg/logger"
	"github.com/mineworlds/leaderboard/pkg/metrics"
)

// Source is the durable backing queue. storage.UpdateQueueStore satisfies it.
type Source interface {
	Add(ctx context.Context, updates []*model.MiningUpdate) error
	Next(ctx context.Context) (*model.MiningUpdate, error)
	Count(ctx context.Context) (int64, error)
}

// Queue accepts mining updates and hands them out oldest first. Writes that
// the source rejects are held in a bounded overflow buffer and retried on the
// next successful write; once the buffer is full further writes fail.
type Queue struct {
	source Source
	lgr    logger.Logger

	mu          sync.Mutex
	overflow    []*model.MiningUpdate
	overflowCap int
}

// New builds a queue over the given source.
func New(source Source, opts ...Option) *Queue {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Queue{
		source:      source,
		lgr:         cfg.lgr.Named("queue"),
		overflowCap: cfg.overflowCap,
	}
}

// Add enqueues updates into the source. On source failure the updates are
// buffered; when the buffer cannot hold them all, the remainder is dropped
// and ErrOverflowFull returned.
func (q *Queue) Add(ctx context.Context, updates []*model.MiningUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	if err := q.source.Add(ctx, updates); err != nil {
		metrics.RecordQueueError()
		q.lgr.Warn(ctx, "source rejected updates, buffering",
			logger.Int("count", len(updates)), logger.Error(err))
		return q.buffer(ctx, updates)
	}

	q.flush(ctx)
	return nil
}

// Next returns the oldest pending update, draining the overflow buffer before
// the source. Returns ErrNoUpdates when both are empty.
func (q *Queue) Next(ctx context.Context) (*model.MiningUpdate, error) {
	if update := q.popOverflow(); update != nil {
		return update, nil
	}

	update, err := q.source.Next(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoUpdates) {
			return nil, ErrNoUpdates
		}
		metrics.RecordQueueError()
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return update, nil
}

// Count returns the number of pending updates across source and buffer.
func (q *Queue) Count(ctx context.Context) (int64, error) {
	pending, err := q.source.Count(ctx)
	if err != nil {
		metrics.RecordQueueError()
		return 0, fmt.Errorf("counting source: %w", err)
	}

	q.mu.Lock()
	pending += int64(len(q.overflow))
	q.mu.Unlock()

	metrics.UpdateQueuePending(pending)
	return pending, nil
}

// OverflowDepth returns the number of updates held in the overflow buffer.
func (q *Queue) OverflowDepth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.overflow)
}

func (q *Queue) buffer(ctx context.Context, updates []*model.MiningUpdate) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	free := q.overflowCap - len(q.overflow)
	if free > len(updates) {
		free = len(updates)
	}
	if free > 0 {
		q.overflow = append(q.overflow, updates[:free]...)
	}
	metrics.UpdateOverflowDepth(len(q.overflow))

	if free < len(updates) {
		dropped := len(updates) - free
		q.lgr.Error(ctx, "overflow buffer full, dropping updates",
			logger.Int("dropped", dropped))
		return fmt.Errorf("%w: dropped %d updates", ErrOverflowFull, dropped)
	}
	return nil
}

// flush retries buffered updates against the source after a successful write.
func (q *Queue) flush(ctx context.Context) {
	q.mu.Lock()
	buffered := q.overflow
	q.overflow = nil
	q.mu.Unlock()

	if len(buffered) == 0 {
		metrics.UpdateOverflowDepth(0)
		return
	}

	if err := q.source.Add(ctx, buffered); err != nil {
		metrics.RecordQueueError()
		q.mu.Lock()
		q.overflow = append(buffered, q.overflow...)
		depth := len(q.overflow)
		q.mu.Unlock()
		metrics.UpdateOverflowDepth(depth)
		return
	}

	q.lgr.Info(ctx, "overflow buffer flushed", logger.Int("count", len(buffered)))
	metrics.UpdateOverflowDepth(q.OverflowDepth())
}

func (q *Queue) popOverflow() *model.MiningUpdate {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.overflow) == 0 {
		return nil
	}
	update := q.overflow[0]
	q.overflow = q.overflow[1:]
	metrics.UpdateOverflowDepth(len(q.overflow))
	return update
}
