// Package app wires configuration, storage, boards, queue, workers, and the
// rollover scheduler into one runnable service.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mineworlds/leaderboard/internal/adapters/mq/queue"
	"github.com/mineworlds/leaderboard/internal/adapters/mq/worker"
	"github.com/mineworlds/leaderboard/internal/adapters/rankings"
	"github.com/mineworlds/leaderboard/internal/adapters/storage"
	"github.com/mineworlds/leaderboard/internal/board"
	"github.com/mineworlds/leaderboard/internal/domain/dedupe"
	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/internal/domain/types"
	"github.com/mineworlds/leaderboard/pkg/logger"
	"github.com/mineworlds/leaderboard/pkg/precise"
)

// rollover schedules, one cron expression per timeframe that closes on a
// calendar boundary. Season boards roll over manually.
var rolloverCrons = map[types.Timeframe]string{
	types.TimeframeDaily:   "0 0 * * *",
	types.TimeframeWeekly:  "0 0 * * 1",
	types.TimeframeMonthly: "0 0 1 * *",
}

// Service runs the leaderboard pipeline: it drains queued mining updates
// into every configured timeframe board and rolls windows over on schedule.
type Service struct {
	mu sync.Mutex

	mongoURL      string
	mongoDatabase string
	timeframes    []types.Timeframe
	workerCount   int
	batchSize     int
	pollEvery     time.Duration
	overflowSize  int
	dedupeSize    int
	precision     int
	archive       bool
	resolver      worker.AssetResolver
	lgr           logger.Logger

	db         *mongo.Database
	queue      *queue.Queue
	dispatcher *board.Dispatcher
	pool       *worker.Pool
	scheduler  gocron.Scheduler

	started bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMongo sets the document store connection.
func WithMongo(url, database string) Option {
	return func(s *Service) {
		if url != "" {
			s.mongoURL = url
		}
		if database != "" {
			s.mongoDatabase = database
		}
	}
}

// WithTimeframes sets which boards to run.
func WithTimeframes(timeframes []types.Timeframe) Option {
	return func(s *Service) {
		if len(timeframes) > 0 {
			s.timeframes = timeframes
		}
	}
}

// WithWorkerCount sets the number of queue consumers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithBatchSize bounds how many updates one consumer merges at a time.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithPollInterval sets how long an idle consumer waits before re-polling.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollEvery = d
		}
	}
}

// WithOverflowSize bounds the queue's in-process overflow buffer.
func WithOverflowSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.overflowSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDecimalPrecision sets the fixed-point precision used when converting
// decimal TLM amounts at the ingestion boundary.
func WithDecimalPrecision(precision int) Option {
	return func(s *Service) {
		if precision >= 0 {
			s.precision = precision
		}
	}
}

// WithArchive toggles scheduled window rollover.
func WithArchive(enabled bool) Option {
	return func(s *Service) {
		s.archive = enabled
	}
}

// WithAssetResolver sets the tool asset lookup used when merging batches.
func WithAssetResolver(r worker.AssetResolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(lgr logger.Logger) Option {
	return func(s *Service) {
		if lgr != nil {
			s.lgr = lgr
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		mongoURL:      "mongodb://localhost:27017",
		mongoDatabase: "leaderboard",
		timeframes:    []types.Timeframe{types.TimeframeDaily, types.TimeframeWeekly, types.TimeframeMonthly},
		workerCount:   2,
		batchSize:     100,
		pollEvery:     500 * time.Millisecond,
		overflowSize:  1000,
		dedupeSize:    50_000,
		precision:     4,
		archive:       true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start connects storage, builds every board, and launches the consumers and
// the rollover scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.lgr == nil {
		s.lgr = logger.Get().Named("app")
	}

	db, err := storage.Connect(ctx, s.mongoURL, s.mongoDatabase)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	s.db = db

	updatesStore, err := storage.NewUpdateQueueStore(ctx, db)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	s.queue = queue.New(updatesStore, queue.WithOverflowCap(s.overflowSize))

	boards := make([]*board.Board, 0, len(s.timeframes))
	for _, timeframe := range s.timeframes {
		b, berr := s.buildBoard(ctx, timeframe)
		if berr != nil {
			return fmt.Errorf("starting service: %w", berr)
		}
		boards = append(boards, b)
	}
	s.dispatcher, err = board.NewDispatcher(boards)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}

	s.pool = worker.NewPool(s.queue, s.dispatcher,
		worker.WithWorkers(s.workerCount),
		worker.WithBatchSize(s.batchSize),
		worker.WithPollInterval(s.pollEvery),
		worker.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))),
		worker.WithAssetResolver(s.resolver))
	s.pool.Start(ctx)

	if s.archive {
		if err := s.scheduleRollovers(ctx, boards); err != nil {
			return fmt.Errorf("starting service: %w", err)
		}
	}

	s.started = true
	s.lgr.Info(ctx, "service started",
		logger.Int("boards", len(boards)),
		logger.Int("workers", s.workerCount),
		logger.Int("batch_size", s.batchSize))
	return nil
}

func (s *Service) buildBoard(ctx context.Context, timeframe types.Timeframe) (*board.Board, error) {
	snapshot, err := storage.NewSnapshotStore(ctx, s.db, timeframe)
	if err != nil {
		return nil, fmt.Errorf("building %s board: %w", timeframe, err)
	}
	archive, err := storage.NewArchiveStore(ctx, s.db, timeframe)
	if err != nil {
		return nil, fmt.Errorf("building %s board: %w", timeframe, err)
	}
	index, err := rankings.NewIndex(timeframe)
	if err != nil {
		return nil, fmt.Errorf("building %s board: %w", timeframe, err)
	}
	return board.NewBoard(timeframe, snapshot, archive, index), nil
}

func (s *Service) scheduleRollovers(ctx context.Context, boards []*board.Board) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}

	for _, b := range boards {
		cron, ok := rolloverCrons[b.Timeframe()]
		if !ok {
			continue
		}
		b := b
		_, err := scheduler.NewJob(
			gocron.CronJob(cron, false),
			gocron.NewTask(func() {
				if rerr := b.Rollover(context.Background()); rerr != nil {
					s.lgr.Error(context.Background(), "rollover failed",
						logger.String("timeframe", string(b.Timeframe())),
						logger.Error(rerr))
				}
			}),
		)
		if err != nil {
			return fmt.Errorf("scheduling %s rollover: %w", b.Timeframe(), err)
		}
		s.lgr.Info(ctx, "rollover scheduled",
			logger.String("timeframe", string(b.Timeframe())),
			logger.String("cron", cron))
	}

	scheduler.Start()
	s.scheduler = scheduler
	return nil
}

// Stop drains the workers, stops the scheduler, and closes storage.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.pool.Stop()
	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			s.lgr.Warn(ctx, "scheduler shutdown failed", logger.Error(err))
		}
	}
	if err := storage.Disconnect(ctx, s.db); err != nil {
		return fmt.Errorf("stopping service: %w", err)
	}

	s.started = false
	s.lgr.Info(ctx, "service stopped")
	return nil
}

// Enqueue adds mining updates to the durable queue for the workers to merge.
// Each update's Bounty must already be in fixed-point form; ingestion
// adapters convert raw chain amounts through NormalizeBounty first.
func (s *Service) Enqueue(ctx context.Context, updates []*model.MiningUpdate) error {
	return s.queue.Add(ctx, updates)
}

// NormalizeBounty converts a raw decimal TLM amount into the fixed-point
// integer carried on MiningUpdate.Bounty.
func (s *Service) NormalizeBounty(amount float64) int64 {
	return precise.FloatToInt(amount, s.precision)
}

// DisplayBounty reverses NormalizeBounty for read responses.
func (s *Service) DisplayBounty(bounty int64) float64 {
	return precise.IntToFloat(bounty, s.precision)
}

// Dispatcher exposes the timeframe boards for read queries.
func (s *Service) Dispatcher() *board.Dispatcher { return s.dispatcher }

// QueueDepth returns pending updates across source and overflow buffer.
func (s *Service) QueueDepth(ctx context.Context) (int64, error) {
	return s.queue.Count(ctx)
}
