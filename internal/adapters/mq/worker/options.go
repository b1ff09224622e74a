package worker

import (
	"time"

	"github.com/mineworlds/leaderboard/internal/domain/dedupe"
	"github.com/mineworlds/leaderboard/pkg/logger"
)

const (
	defaultWorkers   = 2
	defaultBatchSize = 100
	defaultPollEvery = 500 * time.Millisecond
)

type config struct {
	lgr       logger.Logger
	deduper   dedupe.Deduper
	resolver  AssetResolver
	workers   int
	batchSize int
	pollEvery time.Duration
}

func defaultConfig() *config {
	return &config{
		lgr:       logger.Get(),
		deduper:   dedupe.NewInMemoryDeduper(),
		workers:   defaultWorkers,
		batchSize: defaultBatchSize,
		pollEvery: defaultPollEvery,
	}
}

// Option customises pool construction.
type Option func(*config)

// WithWorkers sets the number of concurrent consumers.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithBatchSize bounds how many updates one worker merges at a time.
func WithBatchSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithPollInterval sets how long an idle worker waits before re-polling.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollEvery = d
		}
	}
}

// WithDeduper swaps the idempotency cache.
func WithDeduper(d dedupe.Deduper) Option {
	return func(c *config) {
		c.deduper = d
	}
}

// WithAssetResolver sets the tool asset lookup for dequeued batches.
func WithAssetResolver(r AssetResolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// WithLogger sets the logger for the pool.
func WithLogger(lgr logger.Logger) Option {
	return func(c *config) {
		c.lgr = lgr
	}
}
