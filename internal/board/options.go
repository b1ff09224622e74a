package board

import (
	"time"

	"github.com/mineworlds/leaderboard/pkg/logger"
)

type boardConfig struct {
	lgr logger.Logger
	now func() time.Time
}

func defaultBoardConfig() *boardConfig {
	return &boardConfig{
		lgr: logger.Get(),
		now: time.Now,
	}
}

// Option customises board construction.
type Option func(*boardConfig)

// WithLogger sets the logger for the board.
func WithLogger(lgr logger.Logger) Option {
	return func(c *boardConfig) {
		c.lgr = lgr
	}
}

// WithNow overrides the clock used for live-window bracketing.
func WithNow(now func() time.Time) Option {
	return func(c *boardConfig) {
		c.now = now
	}
}
