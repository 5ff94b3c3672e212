package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every collector should be registered on it", func() {
				So(manager, ShouldNotBeNil)
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
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithRefreshInterval(2*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and labels should follow the options", func() {
				manager.queriesTotal.Inc()
				So(manager.refreshInterval, ShouldEqual, 2*time.Second)
				So(testutil.ToFloat64(manager.queriesTotal), ShouldEqual, 1)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_queries_total" {
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
	Convey("Given the global recorders", t, func() {
		Convey("When recording hotspot queries", func() {
			before := testutil.ToFloat64(globalManager.queriesTotal)
			RecordQuery(3)
			RecordCatalogHits(2)
			RecordGeneratedSpots(4)
			RecordDedupeDropped(1)
			RecordGenerationClamped()

			Convey("Then the counters should advance", func() {
				So(testutil.ToFloat64(globalManager.queriesTotal), ShouldEqual, before+1)
			})
		})

		Convey("When recording alert fan-out", func() {
			before := testutil.ToFloat64(globalManager.alertsSent)
			RecordAlertSent()
			RecordAlertFailed("sender_error")
			RecordOutcome("within alert radius")
			RecordDispatch("ok")

			Convey("Then sent and failed should be tracked separately", func() {
				So(testutil.ToFloat64(globalManager.alertsSent), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.alertsFailed.WithLabelValues("sender_error")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating the queue size", func() {
			UpdateQueueSize(5, 10)

			Convey("Then utilization should be derived from capacity", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.5)
			})
		})

		Convey("When the registry is scraped", func() {
			RecordHTTPRequest("hotspots_query", "POST", "200", 1.5)
			rec := httptest.NewRecorder()
			promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the exposition should contain service metrics", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.Contains(rec.Body.String(), "hotspot_alerts_http_requests_total"), ShouldBeTrue)
			})
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global manager rebuilt from settings", t, func() {
		prevManager, prevRegistry := globalManager, customRegistry
		defer func() { globalManager, customRegistry = prevManager, prevRegistry }()

		Init(
			WithNamespace("city"),
			WithSubsystem("risk"),
			WithConstLabels(map[string]string{"region": "eu"}),
			WithHistogramBuckets([]float64{5, 50, 500}),
			WithRefreshInterval(3*time.Second),
		)
		RecordQuery(20)

		Convey("Then recorders and the registry follow the new settings", func() {
			So(GetRegistry(), ShouldNotEqual, prevRegistry)
			So(RefreshInterval(), ShouldEqual, 3*time.Second)

			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
				if f.GetName() == "city_risk_query_latency_milliseconds" {
					m := f.GetMetric()[0]
					So(m.GetLabel()[0].GetName(), ShouldEqual, "region")
					So(len(m.GetHistogram().GetBucket()), ShouldEqual, 3)
					So(m.GetHistogram().GetSampleCount(), ShouldEqual, 1)
				}
			}
			So(names["city_risk_queries_total"], ShouldBeTrue)
			So(names["city_risk_query_latency_milliseconds"], ShouldBeTrue)
			So(names["hotspot_alerts_queries_total"], ShouldBeFalse)
		})
	})
}
