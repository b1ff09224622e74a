package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/internal/domain/types"
	"github.com/mineworlds/leaderboard/pkg/logger"
)

// Dispatcher fans writes out to every configured timeframe board. Boards are
// independent: a failure on one does not stop the others, and all failures
// are reported together.
type Dispatcher struct {
	boards map[types.Timeframe]*Board
	order  []types.Timeframe
	lgr    logger.Logger
}

// NewDispatcher wires a dispatcher over the given boards.
func NewDispatcher(boards []*Board, opts ...Option) (*Dispatcher, error) {
	if len(boards) == 0 {
		return nil, ErrNoTimeframes
	}

	cfg := defaultBoardConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	d := &Dispatcher{
		boards: make(map[types.Timeframe]*Board, len(boards)),
		lgr:    cfg.lgr.Named("dispatcher"),
	}
	for _, b := range boards {
		if _, dup := d.boards[b.Timeframe()]; dup {
			return nil, fmt.Errorf("duplicate %s board", b.Timeframe())
		}
		d.boards[b.Timeframe()] = b
		d.order = append(d.order, b.Timeframe())
	}
	return d, nil
}

// Board returns the coordinator of one timeframe.
func (d *Dispatcher) Board(timeframe types.Timeframe) (*Board, error) {
	b, ok := d.boards[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownTimeframe, timeframe)
	}
	return b, nil
}

// Timeframes returns the configured timeframes in wiring order.
func (d *Dispatcher) Timeframes() []types.Timeframe {
	return append([]types.Timeframe(nil), d.order...)
}

// Update writes the aggregates into every board concurrently.
func (d *Dispatcher) Update(ctx context.Context, aggregates []*model.Aggregate) error {
	return d.fanOut(ctx, func(ctx context.Context, b *Board) error {
		return b.Update(ctx, aggregates)
	})
}

// ApplyUpdates merges the batch into every board concurrently. Per-board
// failures are joined; each carries its timeframe in the wrapped error.
func (d *Dispatcher) ApplyUpdates(ctx context.Context, updates []*model.MiningUpdate, assets []model.ToolAsset) error {
	return d.fanOut(ctx, func(ctx context.Context, b *Board) error {
		return b.ApplyUpdates(ctx, updates, assets)
	})
}

// Clear empties every board.
func (d *Dispatcher) Clear(ctx context.Context) error {
	return d.fanOut(ctx, func(ctx context.Context, b *Board) error {
		return b.Clear(ctx)
	})
}

func (d *Dispatcher) fanOut(ctx context.Context, op func(context.Context, *Board) error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, timeframe := range d.order {
		b := d.boards[timeframe]
		wg.Add(1)
		go func(b *Board) {
			defer wg.Done()
			if err := op(ctx, b); err != nil {
				d.lgr.Error(ctx, "board operation failed",
					logger.String("timeframe", string(b.Timeframe())),
					logger.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", b.Timeframe(), err))
				mu.Unlock()
			}
		}(b)
	}
	wg.Wait()
	return errors.Join(errs...)
}
