package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
)

const bootstrapBody = `{
  "events": [
    {"id": 1, "deadline_time": "2024-08-16T17:30:00Z", "finished": true, "name": "Gameweek 1"},
    {"id": 2, "deadline_time": "2024-08-24T10:00:00Z", "finished": false, "name": "Gameweek 2"}
  ],
  "teams": []
}`

type scripted struct {
	hits     atomic.Int32
	statuses []int
}

func (s *scripted) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	n := int(s.hits.Add(1)) - 1
	if n < len(s.statuses) && s.statuses[n] != http.StatusOK {
		w.WriteHeader(s.statuses[n])
		_, _ = w.Write([]byte(`{"detail":"nope"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(bootstrapBody))
}

func newTestClient(url string, opts ...Option) *Client {
	base := []Option{
		WithURL(url),
		WithRateLimit(1000, 10),
		WithRetries(3, time.Millisecond),
	}
	return New(append(base, opts...)...)
}

func TestPeriods(t *testing.T) {
	ctx := context.Background()

	Convey("Given a healthy bootstrap endpoint", t, func() {
		h := &scripted{}
		srv := httptest.NewServer(h)
		defer srv.Close()

		periods, err := newTestClient(srv.URL).Periods(ctx)

		So(err, ShouldBeNil)
		So(periods, ShouldResemble, []model.ScoringPeriod{
			{ID: 1, Deadline: time.Date(2024, 8, 16, 17, 30, 0, 0, time.UTC), Finished: true},
			{ID: 2, Deadline: time.Date(2024, 8, 24, 10, 0, 0, 0, time.UTC), Finished: false},
		})
		So(h.hits.Load(), ShouldEqual, 1)
	})

	Convey("Transient failures are retried", t, func() {
		h := &scripted{statuses: []int{http.StatusInternalServerError, http.StatusTooManyRequests}}
		srv := httptest.NewServer(h)
		defer srv.Close()

		periods, err := newTestClient(srv.URL).Periods(ctx)

		So(err, ShouldBeNil)
		So(len(periods), ShouldEqual, 2)
		So(h.hits.Load(), ShouldEqual, 3)
	})

	Convey("Client errors fail fast as upstream errors", t, func() {
		h := &scripted{statuses: []int{http.StatusNotFound}}
		srv := httptest.NewServer(h)
		defer srv.Close()

		_, err := newTestClient(srv.URL).Periods(ctx)

		So(errors.Is(err, model.ErrUpstreamUnavailable), ShouldBeTrue)
		So(errors.Is(err, errClientStatus), ShouldBeTrue)
		var ue *model.UpstreamError
		So(errors.As(err, &ue), ShouldBeTrue)
		So(ue.Source, ShouldEqual, "schedule")
		So(h.hits.Load(), ShouldEqual, 1)
	})

	Convey("Retries are bounded", t, func() {
		h := &scripted{statuses: []int{502, 502, 502, 502, 502}}
		srv := httptest.NewServer(h)
		defer srv.Close()

		_, err := newTestClient(srv.URL, WithRetries(2, time.Millisecond)).Periods(ctx)

		So(errors.Is(err, model.ErrUpstreamUnavailable), ShouldBeTrue)
		So(errors.Is(err, errServerStatus), ShouldBeTrue)
		So(h.hits.Load(), ShouldEqual, 3)
	})

	Convey("A malformed body is an upstream error", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"events": [`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Periods(ctx)
		So(errors.Is(err, model.ErrUpstreamUnavailable), ShouldBeTrue)
	})

	Convey("An unreachable endpoint is an upstream error", t, func() {
		srv := httptest.NewServer(&scripted{})
		url := srv.URL
		srv.Close()

		_, err := newTestClient(url, WithRetries(1, time.Millisecond)).Periods(ctx)
		So(errors.Is(err, model.ErrUpstreamUnavailable), ShouldBeTrue)
	})

	Convey("Caller cancellation is returned as is", t, func() {
		srv := httptest.NewServer(&scripted{})
		defer srv.Close()

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newTestClient(srv.URL).Periods(cctx)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
		So(errors.Is(err, model.ErrUpstreamUnavailable), ShouldBeFalse)
	})
}

func TestPeriodsCache(t *testing.T) {
	Convey("Given a client caching the schedule for a minute", t, func() {
		h := &scripted{}
		srv := httptest.NewServer(h)
		defer srv.Close()

		now := time.Date(2024, 8, 20, 12, 0, 0, 0, time.UTC)
		c := newTestClient(srv.URL,
			WithCacheTTL(time.Minute),
			WithClock(func() time.Time { return now }),
		)
		ctx := context.Background()

		first, err := c.Periods(ctx)
		So(err, ShouldBeNil)

		Convey("Reads within the TTL do not hit the endpoint", func() {
			now = now.Add(59 * time.Second)
			second, err := c.Periods(ctx)
			So(err, ShouldBeNil)
			So(second, ShouldResemble, first)
			So(h.hits.Load(), ShouldEqual, 1)
		})

		Convey("Reads after the TTL refetch", func() {
			now = now.Add(time.Minute)
			_, err := c.Periods(ctx)
			So(err, ShouldBeNil)
			So(h.hits.Load(), ShouldEqual, 2)
		})

		Convey("Callers cannot mutate the cached copy", func() {
			first[0].ID = 42
			again, err := c.Periods(ctx)
			So(err, ShouldBeNil)
			So(again[0].ID, ShouldEqual, 1)
		})
	})
}
