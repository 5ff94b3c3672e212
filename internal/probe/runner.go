// Package probe exercises a running hotspot server with generated queries
// and checks the answers it gives.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/hotspot/internal/domain/types"
	"github.com/okian/hotspot/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrViolations is returned by Run when any check failed.
var ErrViolations = errors.New("probe found violations")

// Run executes the complete probe and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting hotspot probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("queries", config.NumQueries),
		logger.Float64("radiusKm", config.RadiusKm),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	queries := generateQueries(config, stats)
	runQueries(ctx, config, queries, stats)
	verifyResults(ctx, config, queries, stats)

	var catalog types.HotspotsResponse
	if err := newHTTPClient(config.Timeout).getJSON(ctx, config.BaseURL+"/hotspots", &catalog); err != nil {
		return stats, fmt.Errorf("catalog listing failed: %w", err)
	}
	stats.CatalogHotspots = len(catalog.Hotspots)

	if config.OutputFile != "-" {
		if err := saveResults(ctx, config, queries); err != nil {
			logger.Get().Warn(ctx, "failed to save results", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if n := stats.Violations(); n > 0 {
		return stats, fmt.Errorf("%w: %d", ErrViolations, n)
	}
	if stats.QueriesFailed > 0 {
		return stats, fmt.Errorf("%d queries failed", stats.QueriesFailed)
	}
	logger.Get().Info(ctx, "probe completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	resp, err := newHTTPClient(config.Timeout).Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The service answers /healthz with Prometheus metrics; any 200 is healthy.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveResults writes every query and answer as a JSON array.
func saveResults(ctx context.Context, config *Config, queries []Query) error {
	filename := config.OutputFile
	if filename == "" {
		filename = "probe_results_" + time.Now().Format("20060102_150405") + ".json"
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(queries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logger.Get().Info(ctx, "results saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(stats *Stats) {
	var successRate, queriesPerSecond float64
	if stats.QueriesGenerated > 0 {
		successRate = float64(stats.QueriesSucceeded) / float64(stats.QueriesGenerated) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		queriesPerSecond = float64(stats.QueriesGenerated*2) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("queriesGenerated", stats.QueriesGenerated),
		logger.Int("queriesSucceeded", stats.QueriesSucceeded),
		logger.Int("queriesFailed", stats.QueriesFailed),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("orderViolations", stats.OrderViolations),
		logger.Int("spacingViolations", stats.SpacingViolations),
		logger.Int("radiusViolations", stats.RadiusViolations),
		logger.Int("hotspotsReturned", stats.HotspotsReturned),
		logger.Int("catalogHotspots", stats.CatalogHotspots),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("queriesPerSecond", queriesPerSecond))
}
