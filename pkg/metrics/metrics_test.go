package metrics

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then its metrics are registered there", func() {
				So(manager, ShouldNotBeNil)
				manager.cacheHits.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("x_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.cacheMisses.Inc()

			Convey("Then names and labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_x_cache_misses_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording cache outcomes", func() {
			hits := testutil.ToFloat64(globalManager.cacheHits)
			misses := testutil.ToFloat64(globalManager.cacheMisses)
			RecordCacheHit()
			RecordCacheMiss()
			RecordCacheMiss()

			So(testutil.ToFloat64(globalManager.cacheHits), ShouldEqual, hits+1)
			So(testutil.ToFloat64(globalManager.cacheMisses), ShouldEqual, misses+2)
		})

		Convey("When recording transfer outcomes", func() {
			before := testutil.ToFloat64(globalManager.transfersRecommended)
			none := testutil.ToFloat64(globalManager.transfersNoResult)
			RecordTransferRecommended(3.0)
			RecordTransferNoResult()
			RecordOptimizeLatency(12.5)

			So(testutil.ToFloat64(globalManager.transfersRecommended), ShouldEqual, before+1)
			So(testutil.ToFloat64(globalManager.transfersNoResult), ShouldEqual, none+1)
		})

		Convey("When recording best team and gameweek gauges", func() {
			RecordBestTeamRequest(10)
			UpdateActiveGameweek(7)

			So(testutil.ToFloat64(globalManager.bestTeamPlayers), ShouldEqual, 10)
			So(testutil.ToFloat64(globalManager.activeGameweek), ShouldEqual, 7)
		})

		Convey("When recording store queries", func() {
			before := testutil.ToFloat64(globalManager.storeQueryErrors.WithLabelValues("projection"))
			RecordStoreQuery("projection", 1.2, nil)
			RecordStoreQuery("projection", 3.4, errors.New("boom"))

			Convey("Then only failures count as errors", func() {
				So(testutil.ToFloat64(globalManager.storeQueryErrors.WithLabelValues("projection")), ShouldEqual, before+1)
			})
		})

		Convey("When recording upstream and schedule metrics", func() {
			before := testutil.ToFloat64(globalManager.upstreamErrors.WithLabelValues("schedule"))
			RecordUpstreamError("schedule")
			RecordScheduleFetch(40)
			RecordScheduleRetry()

			So(testutil.ToFloat64(globalManager.upstreamErrors.WithLabelValues("schedule")), ShouldEqual, before+1)
		})

		Convey("When recording HTTP and error metrics", func() {
			before := testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("best_team", "GET", "200"))
			RecordHTTPRequest("best_team", "GET", "200")
			RecordHTTPRequestDuration("best_team", "GET", "200", 4.2)
			RecordErrorByType("server_error", "high")
			RecordErrorByEndpoint("best_team", "GET", "server_error")
			RecordErrorLatency("http", "server_error", 9.9)

			So(testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("best_team", "GET", "200")), ShouldEqual, before+1)
		})

		Convey("When recording system metrics", func() {
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.3)

			So(testutil.ToFloat64(globalManager.systemMemoryUsage), ShouldEqual, 1024)
			So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 12)
		})

		Convey("Then the registry exposes the service namespace", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "fpl_optimizer_"), ShouldBeTrue)
			}
		})
	})
}

func TestSinceMs(t *testing.T) {
	Convey("Given a start time in the past", t, func() {
		start := time.Now().Add(-25 * time.Millisecond)

		So(SinceMs(start), ShouldBeGreaterThanOrEqualTo, 25)
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					RecordCacheHit()
					RecordStoreQuery("top_by_position", float64(j), nil)
					RecordHTTPRequest("recommend_transfer", "POST", "200")
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.cacheHits), ShouldBeGreaterThanOrEqualTo, 1000)
	})
}
