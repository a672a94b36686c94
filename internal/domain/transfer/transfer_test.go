package transfer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/internal/domain/transfer"
	"github.com/m-mukund/fpl-optimizer/internal/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

const gw = 12

func proj(id int, pos model.Position, cost int, points float64) model.PlayerProjection {
	return model.PlayerProjection{PlayerID: id, WebName: "p", Position: pos, Cost: cost, Points: points, PeriodID: gw}
}

func roster(ids ...int) []model.RosterSlot {
	out := make([]model.RosterSlot, len(ids))
	for i, id := range ids {
		out[i] = model.RosterSlot{PlayerID: id}
	}
	return out
}

func TestOptimize(t *testing.T) {
	ctx := context.Background()

	Convey("Given a single defender and a better affordable defender", t, func() {
		store := testutil.NewProjectionStore(
			proj(7, model.DEF, 4, 3.0),
			proj(99, model.DEF, 8, 6.0),
		)
		opt := transfer.New(store)

		Convey("When optimizing with remaining budget 5", func() {
			p, err := opt.Optimize(ctx, roster(7), gw, 5)

			Convey("Then the swap 7 -> 99 gains 3 points", func() {
				So(err, ShouldBeNil)
				So(p, ShouldNotBeNil)
				So(p.Outgoing.PlayerID, ShouldEqual, 7)
				So(p.Outgoing.Cost, ShouldEqual, 4)
				So(p.Incoming.PlayerID, ShouldEqual, 99)
				So(p.Improvement, ShouldAlmostEqual, 3.0)
			})
		})

		Convey("When the replacement costs more than budget plus outgoing cost", func() {
			p, err := opt.Optimize(ctx, roster(7), gw, 3)

			Convey("Then nothing is proposed", func() {
				So(err, ShouldBeNil)
				So(p, ShouldBeNil)
			})
		})
	})

	Convey("Given a mixed roster", t, func() {
		store := testutil.NewProjectionStore(
			proj(1, model.DEF, 45, 2.0),
			proj(2, model.MID, 80, 5.0),
			proj(3, model.FWD, 75, 4.0),
			proj(10, model.DEF, 50, 4.0),  // +2 for slot 1
			proj(20, model.MID, 90, 9.0),  // +4 for slot 2
			proj(21, model.MID, 200, 20),  // never affordable
			proj(30, model.FWD, 70, 5.0),  // +1 for slot 3
			proj(31, model.GK, 40, 30.0),  // wrong position for everyone
			proj(22, model.MID, 10, 50.0), // other gameweek below
		)
		store.Add(model.PlayerProjection{PlayerID: 23, Position: model.MID, Cost: 1, Points: 99, PeriodID: gw + 1})
		opt := transfer.New(store)

		Convey("When optimizing", func() {
			p, err := opt.Optimize(ctx, roster(1, 2, 3, 22), gw, 10)

			Convey("Then the globally best swap is returned", func() {
				So(err, ShouldBeNil)
				So(p.Outgoing.PlayerID, ShouldEqual, 2)
				So(p.Incoming.PlayerID, ShouldEqual, 20)
				So(p.Improvement, ShouldAlmostEqual, 4.0)
			})

			Convey("And the incoming player is never on the roster", func() {
				for _, id := range []int{1, 2, 3, 22} {
					So(p.Incoming.PlayerID, ShouldNotEqual, id)
				}
			})

			Convey("And the incoming player matches position and ceiling", func() {
				So(p.Incoming.Position, ShouldEqual, p.Outgoing.Position)
				So(p.Incoming.Cost, ShouldBeLessThanOrEqualTo, 10+p.Outgoing.Cost)
				So(p.Incoming.PeriodID, ShouldEqual, gw)
			})
		})
	})

	Convey("Given two slots with the same best improvement", t, func() {
		store := testutil.NewProjectionStore(
			proj(1, model.DEF, 40, 2.0),
			proj(2, model.MID, 40, 3.0),
			proj(10, model.DEF, 40, 5.0),
			proj(20, model.MID, 40, 6.0),
		)
		opt := transfer.New(store)

		Convey("When optimizing", func() {
			p, err := opt.Optimize(ctx, roster(1, 2), gw, 0)

			Convey("Then the earlier slot wins", func() {
				So(err, ShouldBeNil)
				So(p.Outgoing.PlayerID, ShouldEqual, 1)
				So(p.Incoming.PlayerID, ShouldEqual, 10)
			})
		})

		Convey("When the roster order is reversed", func() {
			p, err := opt.Optimize(ctx, roster(2, 1), gw, 0)

			Convey("Then the other slot wins", func() {
				So(err, ShouldBeNil)
				So(p.Outgoing.PlayerID, ShouldEqual, 2)
			})
		})
	})

	Convey("Given only worse replacements", t, func() {
		store := testutil.NewProjectionStore(
			proj(1, model.FWD, 100, 9.0),
			proj(5, model.FWD, 50, 4.0),
		)
		opt := transfer.New(store)

		Convey("When optimizing", func() {
			p, err := opt.Optimize(ctx, roster(1), gw, 0)

			Convey("Then the least bad swap is still proposed", func() {
				So(err, ShouldBeNil)
				So(p, ShouldNotBeNil)
				So(p.Improvement, ShouldAlmostEqual, -5.0)
			})
		})
	})

	Convey("Given roster players without projections", t, func() {
		store := testutil.NewProjectionStore(proj(50, model.DEF, 10, 8.0))
		opt := transfer.New(store)

		Convey("When no slot resolves", func() {
			p, err := opt.Optimize(ctx, roster(1, 2, 3), gw, 100)

			Convey("Then the result is empty rather than an error", func() {
				So(err, ShouldBeNil)
				So(p, ShouldBeNil)
			})
		})

		Convey("When the roster is empty", func() {
			p, err := opt.Optimize(ctx, nil, gw, 100)

			So(err, ShouldBeNil)
			So(p, ShouldBeNil)
		})
	})

	Convey("Given a caller-supplied display name", t, func() {
		store := testutil.NewProjectionStore(
			model.PlayerProjection{PlayerID: 1, WebName: "Saka", Position: model.MID, Cost: 90, Points: 5, PeriodID: gw},
			proj(2, model.MID, 90, 7),
		)
		opt := transfer.New(store)

		Convey("When the slot omits the name", func() {
			p, err := opt.Optimize(ctx, roster(1), gw, 0)

			Convey("Then it is filled from the directory", func() {
				So(err, ShouldBeNil)
				So(p.Outgoing.WebName, ShouldEqual, "Saka")
			})
		})

		Convey("When the slot carries a name", func() {
			p, err := opt.Optimize(ctx, []model.RosterSlot{{PlayerID: 1, WebName: "B. Saka"}}, gw, 0)

			Convey("Then it is echoed back", func() {
				So(err, ShouldBeNil)
				So(p.Outgoing.WebName, ShouldEqual, "B. Saka")
			})
		})
	})

	Convey("Given an unreachable store", t, func() {
		store := testutil.NewProjectionStore(proj(1, model.DEF, 40, 2.0))
		store.Err = errors.New("dial tcp: connection refused")
		opt := transfer.New(store)

		Convey("When optimizing", func() {
			p, err := opt.Optimize(ctx, roster(1), gw, 0)

			Convey("Then an upstream error is returned", func() {
				So(p, ShouldBeNil)
				So(errors.Is(err, model.ErrUpstreamUnavailable), ShouldBeTrue)
			})
		})
	})

	Convey("Given a cancelled request", t, func() {
		store := testutil.NewProjectionStore(proj(1, model.DEF, 40, 2.0))
		opt := transfer.New(store)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		Convey("When optimizing", func() {
			_, err := opt.Optimize(cctx, roster(1), gw, 0)

			Convey("Then the scan stops before querying", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(store.Calls(), ShouldEqual, 0)
			})
		})
	})
}
