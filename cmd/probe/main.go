package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/hotspot/internal/probe"
)

// Default configuration constants.
const (
	defaultNumQueries   = 200
	defaultRadiusKm     = 2.0
	defaultDedupeKm     = 0.1
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultSeed         = 1
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numQueries = flag.Int("queries", defaultNumQueries, "Number of query points to generate")
		radiusKm   = flag.Float64("radius", defaultRadiusKm, "Radius in km sent with every query")
		dedupeKm   = flag.Float64("dedupe-km", defaultDedupeKm, "Minimum separation expected between results")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		seed       = flag.Int64("seed", defaultSeed, "Seed for query point generation")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for query results (default: probe_results_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for probe output (default: probe_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	closer, err := probe.SetupLogging(*logFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)

	config := &probe.Config{
		BaseURL:    *baseURL,
		NumQueries: *numQueries,
		RadiusKm:   *radiusKm,
		DedupeKm:   *dedupeKm,
		Workers:    *workers,
		Seed:       *seed,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	_, err = probe.Run(ctx, config)
	cancel()
	_ = closer.Close()
	if err != nil {
		_, _ = os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
