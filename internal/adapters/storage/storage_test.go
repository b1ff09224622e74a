package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/internal/domain/types"
)

func TestLeaderboardDocument(t *testing.T) {
	Convey("Given an account aggregate", t, func() {
		ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		agg := &model.Aggregate{
			WalletID:        "miner.wam",
			Username:        "Miner",
			TlmGainsTotal:   123456,
			TlmGainsHighest: 99000,
			TotalNftPoints:  5,

			ChargeTime:  model.StatPair{Total: 3, Avg: 1.5},
			MiningPower: model.StatPair{Total: 10, Avg: 5},
			NftPower:    model.StatPair{Total: 2, Avg: 1},

			ToolChargeTime:  model.StatPair{Total: 2, Avg: 1},
			ToolMiningPower: model.StatPair{Total: 3, Avg: 1.5},
			ToolNftPower:    model.StatPair{Total: 2, Avg: 1},

			ToolsUsed: []uint64{1099511627776, 42},
			Lands:     []uint64{7},
			Planets:   []string{"magor", "veles"},

			MiningCounter:       4,
			LastBlockNumber:     250000000,
			LastBlockTimestamp:  ts,
			LastUpdateTimestamp: ts.Add(time.Second),
			LastUpdateID:        "u-1",
		}

		Convey("When it is converted to a document", func() {
			doc := newLeaderboardDocument(types.TimeframeDaily, agg)

			Convey("Then the derived counts are denormalised", func() {
				So(doc.Timeframe, ShouldEqual, "daily")
				So(doc.UniqueToolsUsed, ShouldEqual, 2)
				So(doc.LandsMinedOn, ShouldEqual, 1)
				So(doc.PlanetsMinedOn, ShouldEqual, 2)
			})

			Convey("Then converting back preserves every stat", func() {
				back := doc.toModel()
				So(back.WalletID, ShouldEqual, agg.WalletID)
				So(back.TlmGainsTotal, ShouldEqual, agg.TlmGainsTotal)
				So(back.TlmGainsHighest, ShouldEqual, agg.TlmGainsHighest)
				So(back.ChargeTime, ShouldResemble, agg.ChargeTime)
				So(back.MiningPower, ShouldResemble, agg.MiningPower)
				So(back.NftPower, ShouldResemble, agg.NftPower)
				So(back.ToolChargeTime, ShouldResemble, agg.ToolChargeTime)
				So(back.ToolMiningPower, ShouldResemble, agg.ToolMiningPower)
				So(back.ToolNftPower, ShouldResemble, agg.ToolNftPower)
				So(back.ToolsUsed, ShouldResemble, agg.ToolsUsed)
				So(back.Lands, ShouldResemble, agg.Lands)
				So(back.Planets, ShouldResemble, agg.Planets)
				So(back.MiningCounter, ShouldEqual, agg.MiningCounter)
				So(back.LastBlockNumber, ShouldEqual, agg.LastBlockNumber)
				So(back.LastBlockTimestamp.Equal(agg.LastBlockTimestamp), ShouldBeTrue)
				So(back.LastUpdateID, ShouldEqual, agg.LastUpdateID)
			})

			Convey("Then the document does not alias the aggregate's slices", func() {
				doc.ToolsUsed[0] = 0
				doc.Planets[0] = "kavian"
				So(agg.ToolsUsed[0], ShouldEqual, uint64(1099511627776))
				So(agg.Planets[0], ShouldEqual, "magor")
			})
		})
	})

	Convey("Given a queued mining update", t, func() {
		update := &model.MiningUpdate{
			WalletID:       "miner.wam",
			BlockNumber:    250000000,
			BlockTimestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			Bounty:         123456,
			Points:         5,
			Ease:           10,
			Luck:           2,
			Difficulty:     1,
			Delay:          3,
			LandID:         7,
			PlanetName:     "magor",
			BagItems:       []uint64{1, 2},
			UpdateID:       "u-1",
			MiningCounter:  1,
		}

		Convey("When it round-trips through its document", func() {
			back := newUpdateDocument(update).toModel()

			Convey("Then the update is unchanged", func() {
				So(back, ShouldResemble, update)
			})
		})
	})
}

func TestMetricField(t *testing.T) {
	Convey("Given the closed metric enumeration", t, func() {
		Convey("Then every metric maps to a document field", func() {
			seen := make(map[string]bool)
			for _, metric := range types.Metrics() {
				field, ok := metricField(metric)
				So(ok, ShouldBeTrue)
				So(field, ShouldNotBeEmpty)
				So(seen[field], ShouldBeFalse)
				seen[field] = true
			}
		})

		Convey("Then the tool power metric ranks on the tool mining power average", func() {
			field, ok := metricField(types.MetricAvgToolPower)
			So(ok, ShouldBeTrue)
			So(field, ShouldEqual, "avg_tool_mining_power")
		})

		Convey("Then an unknown metric maps to nothing", func() {
			_, ok := metricField(types.Metric("tlm_burned"))
			So(ok, ShouldBeFalse)
		})
	})
}

func TestArchiveRangeValidation(t *testing.T) {
	ctx := context.Background()

	Convey("Given an archive store and an inverted time range", t, func() {
		store := &ArchiveStore{timeframe: types.TimeframeDaily}
		from := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
		to := from.Add(-24 * time.Hour)

		Convey("Then every range query rejects it before touching storage", func() {
			_, err := store.Find(ctx, []string{"miner.wam"}, from, to)
			So(err, ShouldEqual, ErrInvalidRange)

			_, err = store.List(ctx, types.MetricTlmGainsTotal, types.OrderDesc, from, to, 0, 10)
			So(err, ShouldEqual, ErrInvalidRange)

			_, err = store.Count(ctx, from, to)
			So(err, ShouldEqual, ErrInvalidRange)

			_, _, err = store.FindAccount(ctx, "miner.wam", types.MetricTlmGainsTotal, from, to)
			So(err, ShouldEqual, ErrInvalidRange)
		})
	})

	Convey("Given an unknown metric", t, func() {
		store := &ArchiveStore{timeframe: types.TimeframeDaily}
		from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		to := from.Add(24 * time.Hour)

		Convey("Then metric-keyed queries reject it before touching storage", func() {
			_, err := store.List(ctx, types.Metric("tlm_burned"), types.OrderDesc, from, to, 0, 10)
			So(err, ShouldWrap, types.ErrUnknownMetric)

			_, _, err = store.FindAccount(ctx, "miner.wam", types.Metric("tlm_burned"), from, to)
			So(err, ShouldWrap, types.ErrUnknownMetric)
		})
	})
}

func TestOnlyDuplicateKeys(t *testing.T) {
	Convey("Given bulk write failures", t, func() {
		dup := mongo.BulkWriteException{
			WriteErrors: []mongo.BulkWriteError{
				{WriteError: mongo.WriteError{Code: 11000}},
				{WriteError: mongo.WriteError{Code: 11000}},
			},
		}
		mixed := mongo.BulkWriteException{
			WriteErrors: []mongo.BulkWriteError{
				{WriteError: mongo.WriteError{Code: 11000}},
				{WriteError: mongo.WriteError{Code: 121}},
			},
		}

		Convey("Then pure key collisions are tolerated", func() {
			So(onlyDuplicateKeys(dup), ShouldBeTrue)
		})

		Convey("Then any other write error is not", func() {
			So(onlyDuplicateKeys(mixed), ShouldBeFalse)
			So(onlyDuplicateKeys(errors.New("network down")), ShouldBeFalse)
		})
	})
}
