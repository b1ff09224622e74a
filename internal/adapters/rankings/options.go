package rankings

import "github.com/mineworlds/leaderboard/pkg/logger"

type indexConfig struct {
	factory CollectionFactory
	lgr     logger.Logger
}

func defaultIndexConfig() *indexConfig {
	return &indexConfig{
		factory: func(name string) (SortedCollection, error) {
			return NewTreapCollection(name)
		},
		lgr: logger.Get(),
	}
}

// Option customises index construction.
type Option func(*indexConfig)

// WithCollectionFactory swaps the sorted-collection implementation backing
// each metric.
func WithCollectionFactory(factory CollectionFactory) Option {
	return func(c *indexConfig) {
		c.factory = factory
	}
}

// WithLogger sets the logger for the index.
func WithLogger(lgr logger.Logger) Option {
	return func(c *indexConfig) {
		c.lgr = lgr
	}
}
