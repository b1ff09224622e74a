package queue

import "github.com/mineworlds/leaderboard/pkg/logger"

const defaultOverflowCap = 1000

type config struct {
	lgr         logger.Logger
	overflowCap int
}

func defaultConfig() *config {
	return &config{
		lgr:         logger.Get(),
		overflowCap: defaultOverflowCap,
	}
}

// Option customises queue construction.
type Option func(*config)

// WithOverflowCap bounds the in-process overflow buffer.
func WithOverflowCap(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.overflowCap = capacity
		}
	}
}

// WithLogger sets the logger for the queue.
func WithLogger(lgr logger.Logger) Option {
	return func(c *config) {
		c.lgr = lgr
	}
}
