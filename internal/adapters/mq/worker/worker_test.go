package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mineworlds/leaderboard/internal/adapters/mq/queue"
	"github.com/mineworlds/leaderboard/internal/adapters/mq/worker"
	"github.com/mineworlds/leaderboard/internal/domain/dedupe"
	"github.com/mineworlds/leaderboard/internal/domain/model"
)

// fakeSource is a thread-safe in-memory update source.
type fakeSource struct {
	mu      sync.Mutex
	pending []*model.MiningUpdate
}

func (f *fakeSource) Next(_ context.Context) (*model.MiningUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, queue.ErrNoUpdates
	}
	update := f.pending[0]
	f.pending = f.pending[1:]
	return update, nil
}

func (f *fakeSource) Add(_ context.Context, updates []*model.MiningUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, updates...)
	return nil
}

func (f *fakeSource) depth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// fakeApplier records applied batches and can fail a number of times.
type fakeApplier struct {
	mu       sync.Mutex
	failures int
	applied  []*model.MiningUpdate
}

func (f *fakeApplier) ApplyUpdates(_ context.Context, updates []*model.MiningUpdate, _ []model.ToolAsset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("boards unavailable")
	}
	f.applied = append(f.applied, updates...)
	return nil
}

func (f *fakeApplier) appliedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.applied))
	for _, update := range f.applied {
		ids = append(ids, update.UpdateID)
	}
	return ids
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func update(id string) *model.MiningUpdate {
	return &model.MiningUpdate{WalletID: "miner.wam", UpdateID: id, MiningCounter: 1}
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pool over a source with pending updates", t, func() {
		src := &fakeSource{}
		applier := &fakeApplier{}
		pool := worker.NewPool(src, applier,
			worker.WithWorkers(1),
			worker.WithBatchSize(10),
			worker.WithPollInterval(5*time.Millisecond))

		Convey("When it runs over distinct updates", func() {
			So(src.Add(ctx, []*model.MiningUpdate{update("u-1"), update("u-2")}), ShouldBeNil)
			pool.Start(ctx)
			defer pool.Stop()

			Convey("Then every update is applied exactly once", func() {
				So(eventually(func() bool { return len(applier.appliedIDs()) == 2 }), ShouldBeTrue)
				So(applier.appliedIDs(), ShouldResemble, []string{"u-1", "u-2"})
				So(src.depth(), ShouldEqual, 0)
			})
		})

		Convey("When the source replays an already-seen update id", func() {
			So(src.Add(ctx, []*model.MiningUpdate{update("u-1"), update("u-1"), update("u-2")}), ShouldBeNil)
			pool.Start(ctx)
			defer pool.Stop()

			Convey("Then the duplicate is dropped before merging", func() {
				So(eventually(func() bool { return len(applier.appliedIDs()) == 2 }), ShouldBeTrue)
				So(applier.appliedIDs(), ShouldResemble, []string{"u-1", "u-2"})
			})
		})

		Convey("When every board write fails once", func() {
			applier.failures = 1
			So(src.Add(ctx, []*model.MiningUpdate{update("u-1")}), ShouldBeNil)
			pool.Start(ctx)
			defer pool.Stop()

			Convey("Then the batch is requeued and applied on retry", func() {
				So(eventually(func() bool { return len(applier.appliedIDs()) == 1 }), ShouldBeTrue)
				So(applier.appliedIDs(), ShouldResemble, []string{"u-1"})
			})
		})

		Convey("When a bounded idempotency cache is supplied", func() {
			deduper := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			pool := worker.NewPool(src, applier,
				worker.WithWorkers(1),
				worker.WithBatchSize(1),
				worker.WithPollInterval(5*time.Millisecond),
				worker.WithDeduper(deduper))

			So(src.Add(ctx, []*model.MiningUpdate{update("u-1"), update("u-2"), update("u-3")}), ShouldBeNil)
			pool.Start(ctx)
			defer pool.Stop()

			Convey("Then throughput is unaffected and the cache stays bounded", func() {
				So(eventually(func() bool { return len(applier.appliedIDs()) == 3 }), ShouldBeTrue)
				So(deduper.Size(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a started pool", t, func() {
		src := &fakeSource{}
		pool := worker.NewPool(src, &fakeApplier{},
			worker.WithWorkers(3),
			worker.WithPollInterval(5*time.Millisecond))
		pool.Start(context.Background())

		Convey("When it is stopped", func() {
			done := make(chan struct{})
			go func() {
				pool.Stop()
				close(done)
			}()

			Convey("Then every worker exits promptly and Stop is idempotent", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					So("stop timed out", ShouldBeEmpty)
				}
				pool.Stop()
			})
		})
	})
}
