package rankings

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/internal/domain/types"
)

func rankedAggregate(wallet string, tlm int64, avgPower float64) *model.Aggregate {
	return &model.Aggregate{
		WalletID:      wallet,
		TlmGainsTotal: tlm,
		MiningPower:   model.StatPair{Total: tlm, Avg: avgPower},
	}
}

func TestIndex(t *testing.T) {
	ctx := context.Background()

	Convey("Given a daily index with three ranked accounts", t, func() {
		idx, err := NewIndex(types.TimeframeDaily)
		So(err, ShouldBeNil)

		aggs := []*model.Aggregate{
			rankedAggregate("alpha.wam", 300, 1.5),
			rankedAggregate("beta.wam", 100, 4.5),
			rankedAggregate("gamma.wam", 200, 3.0),
		}
		So(idx.UpsertMany(ctx, aggs), ShouldBeNil)

		Convey("Then every known metric has a populated collection", func() {
			for _, metric := range types.Metrics() {
				count, cerr := idx.Count(ctx, metric)
				So(cerr, ShouldBeNil)
				So(count, ShouldEqual, 3)
			}
		})

		Convey("When ranks are queried for all accounts", func() {
			ranks, rerr := idx.Rankings(ctx,
				[]string{"alpha.wam", "beta.wam", "gamma.wam"},
				[]types.Metric{types.MetricTlmGainsTotal, types.MetricAvgMiningPower},
				types.OrderDesc)

			Convey("Then display ranks are 1-based per metric", func() {
				So(rerr, ShouldBeNil)
				So(ranks["alpha.wam"][types.MetricTlmGainsTotal], ShouldEqual, 1)
				So(ranks["gamma.wam"][types.MetricTlmGainsTotal], ShouldEqual, 2)
				So(ranks["beta.wam"][types.MetricTlmGainsTotal], ShouldEqual, 3)

				So(ranks["beta.wam"][types.MetricAvgMiningPower], ShouldEqual, 1)
				So(ranks["gamma.wam"][types.MetricAvgMiningPower], ShouldEqual, 2)
				So(ranks["alpha.wam"][types.MetricAvgMiningPower], ShouldEqual, 3)
			})
		})

		Convey("When ranks are queried with no metric filter", func() {
			ranks, rerr := idx.Rankings(ctx, []string{"alpha.wam"}, nil, types.OrderDesc)

			Convey("Then every known metric is answered", func() {
				So(rerr, ShouldBeNil)
				So(len(ranks["alpha.wam"]), ShouldEqual, len(types.Metrics()))
			})
		})

		Convey("When an unranked wallet is queried", func() {
			ranks, rerr := idx.Rankings(ctx, []string{"ghost.wam"},
				[]types.Metric{types.MetricTlmGainsTotal}, types.OrderDesc)

			Convey("Then its rank is -1", func() {
				So(rerr, ShouldBeNil)
				So(ranks["ghost.wam"][types.MetricTlmGainsTotal], ShouldEqual, -1)
			})
		})

		Convey("When scores are fetched", func() {
			scores, serr := idx.Scores(ctx, []string{"alpha.wam", "ghost.wam"},
				[]types.Metric{types.MetricTlmGainsTotal})

			Convey("Then ranked wallets carry scores and unranked wallets carry none", func() {
				So(serr, ShouldBeNil)
				So(scores["alpha.wam"][types.MetricTlmGainsTotal], ShouldEqual, 300)
				So(scores["ghost.wam"], ShouldBeEmpty)
			})
		})

		Convey("When a metric page is listed", func() {
			page, perr := idx.List(ctx, types.MetricTlmGainsTotal, 0, 2, types.OrderDesc)

			Convey("Then rows carry 1-based display ranks", func() {
				So(perr, ShouldBeNil)
				So(len(page), ShouldEqual, 2)
				So(page[0].Rank, ShouldEqual, 1)
				So(page[0].Member, ShouldEqual, "alpha.wam")
				So(page[1].Rank, ShouldEqual, 2)
				So(page[1].Member, ShouldEqual, "gamma.wam")
			})
		})

		Convey("When an account's aggregate is upserted again", func() {
			So(idx.Upsert(ctx, rankedAggregate("beta.wam", 900, 0.1)), ShouldBeNil)

			ranks, rerr := idx.Rankings(ctx, []string{"beta.wam"},
				[]types.Metric{types.MetricTlmGainsTotal}, types.OrderDesc)

			Convey("Then its rank reflects the replaced score", func() {
				So(rerr, ShouldBeNil)
				So(ranks["beta.wam"][types.MetricTlmGainsTotal], ShouldEqual, 1)
			})
		})

		Convey("When an unknown metric is requested", func() {
			_, rerr := idx.Rankings(ctx, []string{"alpha.wam"},
				[]types.Metric{types.Metric("tlm_burned")}, types.OrderDesc)
			_, lerr := idx.List(ctx, types.Metric("tlm_burned"), 0, 10, types.OrderDesc)
			_, cerr := idx.Count(ctx, types.Metric("tlm_burned"))

			Convey("Then every query path rejects it", func() {
				So(rerr, ShouldWrap, ErrUnknownMetric)
				So(lerr, ShouldWrap, ErrUnknownMetric)
				So(cerr, ShouldWrap, ErrUnknownMetric)
			})
		})

		Convey("When a single metric is cleared", func() {
			So(idx.ClearMetric(ctx, types.MetricTlmGainsTotal), ShouldBeNil)

			Convey("Then only that metric's collection is emptied", func() {
				cleared, cerr := idx.Count(ctx, types.MetricTlmGainsTotal)
				So(cerr, ShouldBeNil)
				So(cleared, ShouldEqual, 0)

				kept, kerr := idx.Count(ctx, types.MetricAvgToolPower)
				So(kerr, ShouldBeNil)
				So(kept, ShouldEqual, 3)
			})

			Convey("Then an unknown metric is rejected", func() {
				So(idx.ClearMetric(ctx, types.Metric("tlm_burned")), ShouldWrap, ErrUnknownMetric)
			})
		})

		Convey("When the index is cleared at rollover", func() {
			So(idx.Clear(ctx), ShouldBeNil)

			Convey("Then no metric retains members", func() {
				for _, metric := range types.Metrics() {
					count, cerr := idx.Count(ctx, metric)
					So(cerr, ShouldBeNil)
					So(count, ShouldEqual, 0)
				}
			})
		})
	})
}
