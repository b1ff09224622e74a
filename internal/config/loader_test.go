package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/mineworlds/leaderboard/internal/config"
	"github.com/mineworlds/leaderboard/internal/domain/types"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"LEADERBOARD_CONFIG",
		"LEADERBOARD_ADDR",
		"LEADERBOARD_MONGO_URL",
		"LEADERBOARD_MONGO_DATABASE",
		"LEADERBOARD_DECIMAL_PRECISION",
		"LEADERBOARD_UPDATE_BATCH_SIZE",
		"LEADERBOARD_QUEUE_OVERFLOW_SIZE",
		"LEADERBOARD_WORKER_COUNT",
		"LEADERBOARD_DEDUPE_SIZE",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MongoDatabase, convey.ShouldEqual, "leaderboard")
				convey.So(cfg.DecimalPrecision, convey.ShouldEqual, 4)
				convey.So(cfg.UpdateBatchSize, convey.ShouldEqual, 100)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.Timeframes, convey.ShouldResemble, []string{"daily", "weekly", "monthly"})
				convey.So(cfg.ParsedTimeframes(), convey.ShouldResemble, []types.Timeframe{
					types.TimeframeDaily, types.TimeframeWeekly, types.TimeframeMonthly,
				})
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LEADERBOARD_ADDR", ":8080")
			_ = os.Setenv("LEADERBOARD_MONGO_URL", "mongodb://mongo:27017")
			_ = os.Setenv("LEADERBOARD_DECIMAL_PRECISION", "6")
			_ = os.Setenv("LEADERBOARD_WORKER_COUNT", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MongoURL, convey.ShouldEqual, "mongodb://mongo:27017")
				convey.So(cfg.DecimalPrecision, convey.ShouldEqual, 6)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars()

			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := "addr: \":7070\"\ntimeframes:\n  - daily\n  - season\nupdate_batch_size: 25\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("LEADERBOARD_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then file values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.UpdateBatchSize, convey.ShouldEqual, 25)
				convey.So(cfg.ParsedTimeframes(), convey.ShouldResemble, []types.Timeframe{
					types.TimeframeDaily, types.TimeframeSeason,
				})
			})
		})

		convey.Convey("When an environment variable is invalid", func() {
			_ = os.Setenv("LEADERBOARD_ADDR", "")
			defer clearConfigEnvVars()

			_, err := config.Load()

			convey.Convey("Then loading fails with a typed error", func() {
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})
		})

		convey.Convey("When a timeframe name is unknown", func() {
			clearConfigEnvVars()

			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := "timeframes:\n  - hourly\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("LEADERBOARD_CONFIG", path)
			defer clearConfigEnvVars()

			_, err := config.Load()

			convey.Convey("Then loading fails with a typed error", func() {
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})
		})
	})
}
