package mockapi

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/stratdesk/pkg/backtest"
	"github.com/okian/stratdesk/pkg/strategy"
)

func fixedClock() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestStoreStrategies(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := NewStore(WithClock(fixedClock))

		Convey("When creating without a name", func() {
			_, err := s.Create(ctx, strategy.CreateRequest{})

			Convey("Then it is a bad request", func() {
				So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			})
		})

		Convey("When creating strategies for two users", func() {
			a, err := s.Create(ctx, strategy.CreateRequest{UserID: 1, StrategyName: "a"})
			So(err, ShouldBeNil)
			b, err := s.Create(ctx, strategy.CreateRequest{UserID: 2, StrategyName: "b"})
			So(err, ShouldBeNil)

			Convey("Then ids are sequential and strategies start stopped", func() {
				So(a.ID, ShouldEqual, 1)
				So(b.ID, ShouldEqual, 2)
				So(a.Status, ShouldEqual, StatusStopped)
				So(a.CreatedAt, ShouldEqual, fixedClock().Unix())
			})

			Convey("Then listing filters by user", func() {
				So(s.List(ctx, 0), ShouldHaveLength, 2)
				only := s.List(ctx, 2)
				So(only, ShouldHaveLength, 1)
				So(only[0].StrategyName, ShouldEqual, "b")
			})

			Convey("Then a partial update keeps untouched fields", func() {
				upd, err := s.Update(ctx, a.ID, strategy.UpdateRequest{TradingConfig: strategy.Config{"leverage": 3}})
				So(err, ShouldBeNil)
				So(upd.StrategyName, ShouldEqual, "a")
				So(upd.TradingConfig["leverage"], ShouldEqual, 3)
			})

			Convey("Then start and stop flip status and are counted", func() {
				So(s.SetStatus(ctx, a.ID, StatusRunning), ShouldBeNil)
				total, running := s.Counts()
				So(total, ShouldEqual, 2)
				So(running, ShouldEqual, 1)
				So(s.SetStatus(ctx, a.ID, StatusStopped), ShouldBeNil)
				_, running = s.Counts()
				So(running, ShouldEqual, 0)
			})

			Convey("Then unknown ids are not found", func() {
				_, err := s.Get(ctx, 99)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(errors.Is(s.Delete(ctx, 99), ErrNotFound), ShouldBeTrue)
				So(errors.Is(s.SetStatus(ctx, 99, StatusRunning), ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When batch creating", func() {
			group, ids, err := s.BatchCreate(ctx, strategy.BatchCreateRequest{
				StrategyName: "trend",
				Symbols:      []string{"Crypto:BTC/USDT", "Crypto:ETH/USDT"},
			})
			So(err, ShouldBeNil)

			Convey("Then one strategy per symbol shares the group", func() {
				So(ids, ShouldResemble, []int64{1, 2})
				st, _ := s.Get(ctx, 2)
				So(st.StrategyGroupID, ShouldEqual, group)
				So(st.StrategyName, ShouldEqual, "trend-ETH/USDT")
				So(st.Symbol, ShouldEqual, "Crypto:ETH/USDT")
			})

			Convey("Then selecting by group resolves both, ids win over group", func() {
				sel, err := s.Select(ctx, strategy.BatchRequest{StrategyGroupID: group})
				So(err, ShouldBeNil)
				So(sel, ShouldResemble, []int64{1, 2})
				sel, err = s.Select(ctx, strategy.BatchRequest{StrategyIDs: []int64{2, 7}, StrategyGroupID: group})
				So(err, ShouldBeNil)
				So(sel, ShouldResemble, []int64{2})
			})

			Convey("Then an empty selection is rejected", func() {
				_, err := s.Select(ctx, strategy.BatchRequest{})
				So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			})

			Convey("Then batch status and delete report affected rows", func() {
				So(s.SetStatusMany(ctx, []int64{1, 2, 3}, StatusRunning), ShouldEqual, 2)
				So(s.DeleteMany(ctx, []int64{1, 3}), ShouldEqual, 1)
				So(s.List(ctx, 0), ShouldHaveLength, 1)
			})
		})

		Convey("When batch creating without symbols", func() {
			_, _, err := s.BatchCreate(ctx, strategy.BatchCreateRequest{StrategyName: "x"})
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
		})
	})
}

func TestStoreNotifications(t *testing.T) {
	Convey("Given strategies that produced notifications", t, func() {
		ctx := context.Background()
		s := NewStore()
		a, _ := s.Create(ctx, strategy.CreateRequest{StrategyName: "a"}) // 1
		b, _ := s.Create(ctx, strategy.CreateRequest{StrategyName: "b"}) // 2
		_ = s.SetStatus(ctx, a.ID, StatusRunning)                        // 3
		_ = s.Sync(ctx, a.ID)                                            // 4

		Convey("Then since_id acts as a cursor", func() {
			items := s.Notifications(ctx, 0, 0, 2)
			So(items, ShouldHaveLength, 2)
			So(items[0].ID, ShouldEqual, 3)
		})

		Convey("Then limit caps and id filters", func() {
			So(s.Notifications(ctx, 0, 1, 0), ShouldHaveLength, 1)
			only := s.Notifications(ctx, b.ID, 0, 0)
			So(only, ShouldHaveLength, 1)
			So(only[0].StrategyID, ShouldEqual, b.ID)
		})

		Convey("Then setting the same status again does not notify", func() {
			_ = s.SetStatus(ctx, a.ID, StatusRunning)
			So(s.Notifications(ctx, 0, 0, 0), ShouldHaveLength, 4)
		})
	})
}

func TestStoreMarketData(t *testing.T) {
	Convey("Given a strategy", t, func() {
		ctx := context.Background()
		s := NewStore()
		st, _ := s.Create(ctx, strategy.CreateRequest{
			StrategyName:   "grid",
			ExchangeConfig: strategy.Config{"exchange_id": "binance", "api_key": "k", "secret_key": "s"},
			TradingConfig:  strategy.Config{"symbol": "ETH/USDT"},
		})

		Convey("Then generated trades are stable across reads", func() {
			t1, err := s.Trades(ctx, st.ID)
			So(err, ShouldBeNil)
			t2, _ := s.Trades(ctx, st.ID)
			So(t1, ShouldResemble, t2)
			So(t1[0].Symbol, ShouldEqual, "ETH/USDT")
		})

		Convey("Then a stopped strategy holds no positions", func() {
			p, err := s.Positions(ctx, st.ID)
			So(err, ShouldBeNil)
			So(p, ShouldBeEmpty)
			_ = s.SetStatus(ctx, st.ID, StatusRunning)
			p, _ = s.Positions(ctx, st.ID)
			So(p, ShouldHaveLength, 1)
		})

		Convey("Then the equity curve has one point per day", func() {
			curve, err := s.EquityCurve(ctx, st.ID)
			So(err, ShouldBeNil)
			So(curve, ShouldHaveLength, equityPoints)
			So(curve[1].Time-curve[0].Time, ShouldEqual, daySeconds)
		})

		Convey("Then export drops credentials and import recreates it", func() {
			doc, err := s.Export(ctx, st.ID)
			So(err, ShouldBeNil)
			So(doc.ExchangeConfig, ShouldContainKey, "exchange_id")
			So(doc.ExchangeConfig, ShouldNotContainKey, "api_key")
			So(doc.ExchangeConfig, ShouldNotContainKey, "secret_key")

			imported, err := s.Import(ctx, 9, doc)
			So(err, ShouldBeNil)
			So(imported.ID, ShouldNotEqual, st.ID)
			So(imported.UserID, ShouldEqual, 9)
			So(imported.StrategyName, ShouldEqual, "grid")
		})

		Convey("Then importing a nameless document fails", func() {
			_, err := s.Import(ctx, 0, ExportDoc{})
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
		})
	})
}

func TestStoreJobs(t *testing.T) {
	Convey("Given a store with a deterministic job id", t, func() {
		ctx := context.Background()
		s := NewStore(WithJobIDFunc(func() string { return "job-1" }), WithMaxJobLogs(3))

		Convey("When starting with defaults", func() {
			id := s.StartJob(ctx, backtest.StartRequest{})
			st, err := s.PollJob(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then target and iterations fall back to defaults", func() {
				So(id, ShouldEqual, "job-1")
				So(st.TargetMetric, ShouldEqual, backtest.TargetTotalReturn)
				So(st.MaxIterations, ShouldEqual, defaultMaxIterations)
				So(st.CurrentIteration, ShouldEqual, 1)
			})

			Convey("Then logs are capped", func() {
				So(len(st.Logs), ShouldBeLessThanOrEqualTo, 3)
			})
		})

		Convey("When polling a two-iteration job", func() {
			id := s.StartJob(ctx, backtest.StartRequest{TargetMetric: backtest.TargetSharpeRatio, MaxIterations: 2})
			first, _ := s.PollJob(ctx, id)
			second, _ := s.PollJob(ctx, id)
			third, _ := s.PollJob(ctx, id)

			Convey("Then it runs, then completes and stops advancing", func() {
				So(first.Status, ShouldEqual, backtest.StateRunning)
				So(second.Status, ShouldEqual, backtest.StateCompleted)
				So(third.CurrentIteration, ShouldEqual, 2)
				So(third.History, ShouldHaveLength, 2)
				So(third.BestResult, ShouldNotBeNil)
			})

			Convey("Then snapshots do not alias store state", func() {
				first.History[0].Reasoning = "changed"
				again, _ := s.PollJob(ctx, id)
				So(again.History[0].Reasoning, ShouldNotEqual, "changed")
			})
		})

		Convey("When controlling a job", func() {
			id := s.StartJob(ctx, backtest.StartRequest{MaxIterations: 5})

			Convey("Then pause freezes progress and resume continues", func() {
				st, err := s.ControlJob(ctx, id, backtest.ActionPause)
				So(err, ShouldBeNil)
				So(st.Status, ShouldEqual, backtest.StatePaused)
				st, _ = s.PollJob(ctx, id)
				So(st.CurrentIteration, ShouldEqual, 0)

				_, _ = s.ControlJob(ctx, id, backtest.ActionResume)
				st, _ = s.PollJob(ctx, id)
				So(st.Status, ShouldEqual, backtest.StateRunning)
				So(st.CurrentIteration, ShouldEqual, 1)
			})

			Convey("Then stop cancels", func() {
				st, err := s.ControlJob(ctx, id, backtest.ActionStop)
				So(err, ShouldBeNil)
				So(st.Status, ShouldEqual, backtest.StateCancelled)
				So(s.JobCounts(), ShouldResemble, map[string]int{"cancelled": 1})
			})

			Convey("Then an unknown action is rejected", func() {
				_, err := s.ControlJob(ctx, id, "rewind")
				So(errors.Is(err, ErrUnknownAction), ShouldBeTrue)
			})

			Convey("Then a cancelled job cannot be resumed", func() {
				_, _ = s.ControlJob(ctx, id, backtest.ActionStop)
				st, err := s.ControlJob(ctx, id, backtest.ActionResume)
				So(err, ShouldBeNil)
				So(st.Status, ShouldEqual, backtest.StateCancelled)
				st, _ = s.PollJob(ctx, id)
				So(st.CurrentIteration, ShouldEqual, 0)
				So(st.History, ShouldBeEmpty)
			})
		})

		Convey("When a one-iteration job has finished", func() {
			id := s.StartJob(ctx, backtest.StartRequest{MaxIterations: 1})
			done, _ := s.PollJob(ctx, id)
			So(done.Status, ShouldEqual, backtest.StateCompleted)

			Convey("Then control on a finished job leaves it terminal", func() {
				for _, action := range []backtest.Action{backtest.ActionResume, backtest.ActionPause, backtest.ActionStop} {
					st, err := s.ControlJob(ctx, id, action)
					So(err, ShouldBeNil)
					So(st.Status, ShouldEqual, backtest.StateCompleted)
				}
				st, _ := s.PollJob(ctx, id)
				So(st.Status, ShouldEqual, backtest.StateCompleted)
				So(st.CurrentIteration, ShouldEqual, 1)
				So(st.History, ShouldHaveLength, 1)
			})
		})

		Convey("When addressing an unknown job", func() {
			_, err := s.PollJob(ctx, "missing")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = s.ControlJob(ctx, "missing", backtest.ActionStop)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}
