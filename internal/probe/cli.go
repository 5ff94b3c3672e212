package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/hotspot/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging logs to both console and file. If logFile is empty, a
// timestamped filename is generated.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "probe_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Hotspot Probe
=============

Issues hotspot queries against a running server and checks the answers.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -queries int
        Number of query points to generate (default 200)
  -radius float
        Radius in km sent with every query (default 2)
  -dedupe-km float
        Minimum separation expected between results (default 0.1)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -seed int
        Seed for query point generation (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for query results (default: probe_results_TIMESTAMP.json)
  -log string
        Log file for probe output (default: probe_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Checks:
  every query is sent twice concurrently and both answers must match;
  results are sorted by distance, spaced at least dedupe-km apart, and
  catalog hotspots lie within the radius.
`)
}
