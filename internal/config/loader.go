package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "HOTSPOT_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if HOTSPOT_CONFIG is set
//  3. env (prefix HOTSPOT_)
func Load(_ context.Context) (*Config, error) {
	cfg := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	// HOTSPOT_QUEUE_SIZE -> queue_size. Underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.DatabaseURL == "":
		return invalid("database_url must not be empty")
	case c.DemoPoints < 0:
		return invalid("demo_points must not be negative")
	case c.ScoringLatencyMinMS < 0 || c.ScoringLatencyMaxMS < c.ScoringLatencyMinMS:
		return invalid("scoring latency range [%d, %d] ms is invalid", c.ScoringLatencyMinMS, c.ScoringLatencyMaxMS)
	case !(c.TopFraction > 0 && c.TopFraction <= 1):
		return invalid("top_fraction %v must be in (0, 1]", c.TopFraction)
	case c.CatalogRefreshIntervalS < 0:
		return invalid("catalog_refresh_interval_s must not be negative")
	case !finitePositive(c.MaxRadiusKm):
		return invalid("max_radius_km must be positive")
	case !finitePositive(c.DefaultRadiusKm) || c.DefaultRadiusKm > c.MaxRadiusKm:
		return invalid("default_radius_km %v must be in (0, %v]", c.DefaultRadiusKm, c.MaxRadiusKm)
	case c.DedupeThresholdKm < 0 || math.IsNaN(c.DedupeThresholdKm) || math.IsInf(c.DedupeThresholdKm, 0):
		return invalid("dedupe_threshold_km must be a non-negative number")
	case c.GeneratorBaseCount < 0 || c.GeneratorDensity < 0 || c.GeneratorMinOffsetKm < 0:
		return invalid("generator counts and offsets must not be negative")
	case c.GeneratorRiskMin < 0 || c.GeneratorRiskMax > 1 || c.GeneratorRiskMin > c.GeneratorRiskMax:
		return invalid("generator risk range [%v, %v] is invalid", c.GeneratorRiskMin, c.GeneratorRiskMax)
	case c.ObserverMultiplier < 1 || math.IsInf(c.ObserverMultiplier, 0):
		return invalid("observer_multiplier %v must be at least 1", c.ObserverMultiplier)
	case c.EventQueueSize <= 0:
		return invalid("queue_size must be positive")
	case c.WorkerCount <= 0:
		return invalid("worker_count must be positive")
	case c.DeliveryTimeoutMS <= 0:
		return invalid("delivery_timeout_ms must be positive")
	case c.MaxAlertsLimit <= 0:
		return invalid("max_alerts_limit must be positive")
	case c.DispatchTimeoutMS <= 0:
		return invalid("dispatch_timeout_ms must be positive")
	case c.MetricsNamespace == "":
		return invalid("metrics_namespace must not be empty")
	case c.MetricsRefreshIntervalS <= 0:
		return invalid("metrics_refresh_interval_s must be positive")
	}

	if _, err := c.MetricsLabels(); err != nil {
		return err
	}
	if _, err := c.MetricsBuckets(); err != nil {
		return err
	}

	if err := oneOf("log_format", c.LogFormat, "text", "json"); err != nil {
		return err
	}
	if err := oneOf("scoring_model", c.ScoringModel, "beta", "uniform"); err != nil {
		return err
	}
	if err := oneOf("catalog_index", c.CatalogIndex, "rtree", "linear"); err != nil {
		return err
	}
	if err := oneOf("locationless_policy", c.LocationlessPolicy, "notify", "skip"); err != nil {
		return err
	}
	if err := oneOf("notifier", c.Notifier, "auto", "log", "twilio", "kafka"); err != nil {
		return err
	}
	if c.Notifier == "kafka" && len(c.Brokers()) == 0 {
		return invalid("notifier kafka needs kafka_brokers")
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func oneOf(key, val string, allowed ...string) error {
	for _, a := range allowed {
		if val == a {
			return nil
		}
	}
	return invalid("%s %q must be one of %s", key, val, strings.Join(allowed, ", "))
}
