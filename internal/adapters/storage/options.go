package storage

import "github.com/mineworlds/leaderboard/pkg/logger"

type storeConfig struct {
	lgr logger.Logger
}

func defaultStoreConfig() *storeConfig {
	return &storeConfig{lgr: logger.Get()}
}

// StoreOption customises store construction.
type StoreOption func(*storeConfig)

// WithLogger sets the logger for the store.
func WithLogger(lgr logger.Logger) StoreOption {
	return func(c *storeConfig) {
		c.lgr = lgr
	}
}
