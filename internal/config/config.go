// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address for metrics and health.
	Addr string `koanf:"addr"`

	// MongoURL is the connection string of the document store.
	MongoURL string `koanf:"mongo_url"`

	// MongoDatabase names the database holding every collection.
	MongoDatabase string `koanf:"mongo_database"`

	// Timeframes lists the boards to run: daily, weekly, monthly, season.
	Timeframes []string `koanf:"timeframes"`

	// DecimalPrecision sets the fixed-point precision of TLM amounts.
	DecimalPrecision int `koanf:"decimal_precision"`

	// UpdateBatchSize bounds how many updates one worker merges at a time.
	UpdateBatchSize int `koanf:"update_batch_size"`

	// QueueOverflowSize bounds the in-process overflow buffer of the queue.
	QueueOverflowSize int `koanf:"queue_overflow_size"`

	// WorkerCount sets the number of queue consumers.
	WorkerCount int `koanf:"worker_count"`

	// WorkerPollMS sets how long an idle consumer waits before re-polling.
	WorkerPollMS int `koanf:"worker_poll_ms"`

	// DedupeSize sets the size of the idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ArchiveEnabled schedules window rollover jobs when true.
	ArchiveEnabled bool `koanf:"archive_enabled"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9090",
		MongoURL:          "mongodb://localhost:27017",
		MongoDatabase:     "leaderboard",
		Timeframes:        []string{"daily", "weekly", "monthly"},
		DecimalPrecision:  4,
		UpdateBatchSize:   100,
		QueueOverflowSize: 1000,
		WorkerCount:       2,
		WorkerPollMS:      500,
		DedupeSize:        50_000,
		ArchiveEnabled:    true,
	}
}
