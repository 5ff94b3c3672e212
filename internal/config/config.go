// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file named by
// HOTSPOT_CONFIG, then HOTSPOT_* environment variables.
package config

import (
	"runtime"
	"strconv"
	"strings"
	"time"
)

// DefaultAlertMessage is the alert text template. {count} and {radius} are
// substituted per dispatch.
const DefaultAlertMessage = "High accident-risk area near your location. {count} dangerous spots detected within {radius}km. Drive carefully!"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatabaseURL selects the observer store: sqlite://path, postgres://...
	// or memory://.
	DatabaseURL string `koanf:"database_url"`

	// DatasetPath points at a CSV or JSON catalog. Empty loads demo data.
	DatasetPath string `koanf:"dataset_path"`
	DemoPoints  int    `koanf:"demo_points"`
	DemoSeed    int64  `koanf:"demo_seed"`

	// ScoringModel scores rows that carry no risk score: beta or uniform.
	ScoringModel        string `koanf:"scoring_model"`
	ScoringLatencyMinMS int    `koanf:"scoring_latency_min_ms"`
	ScoringLatencyMaxMS int    `koanf:"scoring_latency_max_ms"`

	TopFraction float64 `koanf:"top_fraction"`

	// CatalogIndex is rtree or linear.
	CatalogIndex            string `koanf:"catalog_index"`
	CatalogRefreshIntervalS int    `koanf:"catalog_refresh_interval_s"`

	DefaultRadiusKm float64 `koanf:"default_radius_km"`
	MaxRadiusKm     float64 `koanf:"max_radius_km"`

	DedupeThresholdKm float64 `koanf:"dedupe_threshold_km"`

	GeneratorEnabled     bool    `koanf:"generator_enabled"`
	GeneratorBaseCount   int     `koanf:"generator_base_count"`
	GeneratorDensity     float64 `koanf:"generator_density"`
	GeneratorMinOffsetKm float64 `koanf:"generator_min_offset_km"`
	GeneratorRiskMin     float64 `koanf:"generator_risk_min"`
	GeneratorRiskMax     float64 `koanf:"generator_risk_max"`

	ObserverMultiplier float64 `koanf:"observer_multiplier"`

	// LocationlessPolicy is notify or skip.
	LocationlessPolicy string `koanf:"locationless_policy"`
	AlertMessage       string `koanf:"alert_message"`

	// Notifier is auto, log, twilio or kafka.
	Notifier         string `koanf:"notifier"`
	TwilioAccountSID string `koanf:"twilio_account_sid"`
	TwilioAuthToken  string `koanf:"twilio_auth_token"`
	TwilioFromNumber string `koanf:"twilio_from_number"`

	// KafkaBrokers is a comma separated broker list.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`

	// EventQueueSize bounds the delivery queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of delivery workers.
	WorkerCount       int `koanf:"worker_count"`
	DeliveryTimeoutMS int `koanf:"delivery_timeout_ms"`

	// SecretKey enables bearer auth on privileged routes when set.
	SecretKey string `koanf:"secret_key"`

	// MaxAlertsLimit caps GET /alerts?limit.
	MaxAlertsLimit int `koanf:"max_alerts_limit"`

	// DispatchTimeoutMS bounds how long POST /alerts/dispatch waits for
	// deliveries. The server write timeout is raised to stay above it.
	DispatchTimeoutMS int `koanf:"dispatch_timeout_ms"`

	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsConstLabels is a comma separated key=value list added to
	// every metric.
	MetricsConstLabels string `koanf:"metrics_const_labels"`

	// MetricsLatencyBucketsMS is a comma separated list of histogram bucket
	// bounds. Empty keeps the Prometheus defaults.
	MetricsLatencyBucketsMS string `koanf:"metrics_latency_buckets_ms"`
	MetricsRefreshIntervalS int    `koanf:"metrics_refresh_interval_s"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		DatabaseURL:             "sqlite://alerts.db",
		DemoPoints:              5000,
		DemoSeed:                42,
		ScoringModel:            "beta",
		TopFraction:             0.10,
		CatalogIndex:            "rtree",
		DefaultRadiusKm:         2,
		MaxRadiusKm:             5,
		DedupeThresholdKm:       0.1,
		GeneratorEnabled:        true,
		GeneratorBaseCount:      2,
		GeneratorDensity:        1.5,
		GeneratorMinOffsetKm:    0.1,
		GeneratorRiskMin:        0.7,
		GeneratorRiskMax:        0.95,
		ObserverMultiplier:      1.5,
		LocationlessPolicy:      "notify",
		AlertMessage:            DefaultAlertMessage,
		Notifier:                "auto",
		KafkaTopic:              "hotspot-alerts",
		EventQueueSize:          1024,
		WorkerCount:             runtime.NumCPU() * 2,
		DeliveryTimeoutMS:       10_000,
		MaxAlertsLimit:          100,
		DispatchTimeoutMS:       8_000,
		MetricsNamespace:        "hotspot",
		MetricsSubsystem:        "alerts",
		MetricsRefreshIntervalS: 10,
	}
}

// Brokers splits KafkaBrokers, dropping blanks.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// DeliveryTimeout is DeliveryTimeoutMS as a duration.
func (c *Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutMS) * time.Millisecond
}

// CatalogRefreshInterval is CatalogRefreshIntervalS as a duration. Zero
// disables periodic reloads.
func (c *Config) CatalogRefreshInterval() time.Duration {
	return time.Duration(c.CatalogRefreshIntervalS) * time.Second
}

// ScoringLatency returns the simulated scorer latency bounds.
func (c *Config) ScoringLatency() (time.Duration, time.Duration) {
	return time.Duration(c.ScoringLatencyMinMS) * time.Millisecond,
		time.Duration(c.ScoringLatencyMaxMS) * time.Millisecond
}

// DispatchTimeout is DispatchTimeoutMS as a duration.
func (c *Config) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutMS) * time.Millisecond
}

// MetricsRefreshInterval is MetricsRefreshIntervalS as a duration.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshIntervalS) * time.Second
}

// MetricsLabels parses MetricsConstLabels.
func (c *Config) MetricsLabels() (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(c.MetricsConstLabels, ",") {
		if pair = strings.TrimSpace(pair); pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, invalid("metrics_const_labels entry %q is not key=value", pair)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// MetricsBuckets parses MetricsLatencyBucketsMS. Nil means the defaults.
func (c *Config) MetricsBuckets() ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(c.MetricsLatencyBucketsMS, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v <= 0 {
			return nil, invalid("metrics_latency_buckets_ms entry %q must be a positive number", f)
		}
		if n := len(out); n > 0 && v <= out[n-1] {
			return nil, invalid("metrics_latency_buckets_ms must be increasing")
		}
		out = append(out, v)
	}
	return out, nil
}
