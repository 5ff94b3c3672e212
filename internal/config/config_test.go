package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/hotspot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DatabaseURL, convey.ShouldEqual, "sqlite://alerts.db")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.TopFraction, convey.ShouldEqual, 0.10)
			convey.So(cfg.DefaultRadiusKm, convey.ShouldEqual, 2)
			convey.So(cfg.MaxRadiusKm, convey.ShouldEqual, 5)
			convey.So(cfg.DedupeThresholdKm, convey.ShouldEqual, 0.1)
			convey.So(cfg.ObserverMultiplier, convey.ShouldEqual, 1.5)
			convey.So(cfg.LocationlessPolicy, convey.ShouldEqual, "notify")
			convey.So(cfg.AlertMessage, convey.ShouldEqual, config.DefaultAlertMessage)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then derived durations follow the raw values", func() {
			convey.So(cfg.DeliveryTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.CatalogRefreshInterval(), convey.ShouldEqual, time.Duration(0))
			lo, hi := cfg.ScoringLatency()
			convey.So(lo, convey.ShouldEqual, time.Duration(0))
			convey.So(hi, convey.ShouldEqual, time.Duration(0))
		})
	})

	convey.Convey("Given a comma separated broker list", t, func() {
		cfg := config.New()
		cfg.KafkaBrokers = " a:9092, ,b:9092 "

		convey.Convey("Then blanks are dropped", func() {
			convey.So(cfg.Brokers(), convey.ShouldResemble, []string{"a:9092", "b:9092"})
		})
	})
}

func TestConfig_MetricsSettings(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("Then dispatch and metrics settings have defaults", func() {
			convey.So(cfg.DispatchTimeout(), convey.ShouldEqual, 8*time.Second)
			convey.So(cfg.MetricsRefreshInterval(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "hotspot")
			convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "alerts")

			labels, err := cfg.MetricsLabels()
			convey.So(err, convey.ShouldBeNil)
			convey.So(labels, convey.ShouldBeEmpty)

			buckets, err := cfg.MetricsBuckets()
			convey.So(err, convey.ShouldBeNil)
			convey.So(buckets, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given const labels and latency buckets", t, func() {
		cfg := config.New()
		cfg.MetricsConstLabels = " region = eu , ,env=prod"
		cfg.MetricsLatencyBucketsMS = "5, 25,100"

		convey.Convey("Then both parse", func() {
			labels, err := cfg.MetricsLabels()
			convey.So(err, convey.ShouldBeNil)
			convey.So(labels, convey.ShouldResemble, map[string]string{"region": "eu", "env": "prod"})

			buckets, err := cfg.MetricsBuckets()
			convey.So(err, convey.ShouldBeNil)
			convey.So(buckets, convey.ShouldResemble, []float64{5, 25, 100})
		})
	})

	convey.Convey("Given malformed metrics settings", t, func() {
		cfg := config.New()

		convey.Convey("Then a label without a key is rejected", func() {
			cfg.MetricsConstLabels = "=eu"
			_, err := cfg.MetricsLabels()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("Then a non numeric bucket is rejected", func() {
			cfg.MetricsLatencyBucketsMS = "5,ten"
			_, err := cfg.MetricsBuckets()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
