package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/okian/hotspot/internal/adapters/dataset"
	"github.com/okian/hotspot/internal/adapters/http/api"
	"github.com/okian/hotspot/internal/adapters/http/site"
	"github.com/okian/hotspot/internal/adapters/http/stream"
	"github.com/okian/hotspot/internal/adapters/http/swagger"
	"github.com/okian/hotspot/internal/adapters/notify"
	"github.com/okian/hotspot/internal/adapters/repository"
	app "github.com/okian/hotspot/internal/app"
	"github.com/okian/hotspot/internal/config"
	"github.com/okian/hotspot/internal/domain/alerting"
	"github.com/okian/hotspot/internal/domain/dedupe"
	"github.com/okian/hotspot/internal/domain/generator"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/scoring"
	"github.com/okian/hotspot/pkg/logger"
	"github.com/okian/hotspot/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	writeTimeoutMargin        = 2 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// components are the long-lived parts main wires together.
type components struct {
	svc    *app.Service
	store  repository.Store
	sender notify.Sender
	hub    *stream.Hub
}

// close releases everything but the service, which is stopped separately.
func (c *components) close(ctx context.Context) {
	l := logger.Get()
	if c.hub != nil {
		c.hub.Close()
	}
	if c.sender != nil {
		if err := notify.Close(c.sender); err != nil {
			l.Warn(ctx, "notifier close failed", logger.Error(err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			l.Warn(ctx, "store close failed", logger.Error(err))
		}
	}
}

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(context.Background())
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metricsOpts, err := metricsOptions(cfg)
	if err != nil {
		loggerInstance.Error(ctx, "invalid metrics settings", logger.Error(err))
		os.Exit(1)
	}
	metrics.Init(metricsOpts...)

	comp, err := build(ctx, cfg)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}
	if err := comp.svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		comp.close(ctx)
		os.Exit(1)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, comp.svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, comp),
		ReadTimeout:       readTimeout,
		WriteTimeout:      serverWriteTimeout(cfg),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := comp.svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "service stop failed", logger.Error(err))
	}
	comp.close(shutdownCtx)

	loggerInstance.Info(shutdownCtx, "server stopped")
}

// build creates the store, notifier, stream hub and service described by
// cfg. The service is returned unstarted.
func build(ctx context.Context, cfg *config.Config) (*components, error) {
	l := logger.Get()
	comp := &components{}

	policy, err := alerting.ParseLocationPolicy(cfg.LocationlessPolicy)
	if err != nil {
		return nil, err
	}

	minLatency, maxLatency := cfg.ScoringLatency()
	scorer, err := scoring.New(cfg.ScoringModel,
		scoring.WithSeed(cfg.DemoSeed),
		scoring.WithLatencyRange(minLatency, maxLatency),
	)
	if err != nil {
		return nil, err
	}

	comp.store, err = repository.Open(ctx, cfg.DatabaseURL,
		repository.WithLogger(l.Named("repository")),
		repository.WithMetricsUpdateInterval(metrics.RefreshInterval()),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	comp.sender, err = notify.New(notify.Settings{
		Notifier:         cfg.Notifier,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		TwilioFromNumber: cfg.TwilioFromNumber,
		KafkaBrokers:     cfg.Brokers(),
		KafkaTopic:       cfg.KafkaTopic,
	}, l.Named("notify"))
	if err != nil {
		comp.close(ctx)
		return nil, fmt.Errorf("create notifier: %w", err)
	}

	comp.hub = stream.NewHub(stream.WithLogger(l.Named("stream")))

	comp.svc = app.New(
		app.WithLogger(l.Named("service")),
		app.WithStore(comp.store),
		app.WithSender(comp.sender),
		app.WithPublisher(comp.hub),
		app.WithCatalogSource(catalogSource(cfg, scorer)),
		app.WithTopFraction(cfg.TopFraction),
		app.WithLinearScan(cfg.CatalogIndex == "linear"),
		app.WithCatalogRefresh(cfg.CatalogRefreshInterval()),
		app.WithGenerator(newGenerator(cfg)),
		app.WithAggregator(dedupe.NewAggregator(dedupe.WithThreshold(cfg.DedupeThresholdKm))),
		app.WithEngine(alerting.New(
			alerting.WithMultiplier(cfg.ObserverMultiplier),
			alerting.WithLocationPolicy(policy),
		)),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithSendTimeout(cfg.DeliveryTimeout()),
		app.WithMessageTemplate(cfg.AlertMessage),
	)
	return comp, nil
}

// catalogSource reads the configured dataset file, or generates demo data
// when none is set.
func catalogSource(cfg *config.Config, scorer scoring.Scorer) app.CatalogSource {
	if cfg.DatasetPath != "" {
		path := cfg.DatasetPath
		return func(ctx context.Context) ([]model.ScoredPoint, error) {
			return dataset.LoadFile(ctx, path, scorer)
		}
	}
	n, seed := cfg.DemoPoints, cfg.DemoSeed
	return func(ctx context.Context) ([]model.ScoredPoint, error) {
		return dataset.Demo(ctx, n, seed, scorer)
	}
}

// newGenerator returns nil when synthetic hotspots are disabled.
func newGenerator(cfg *config.Config) *generator.Generator {
	if !cfg.GeneratorEnabled {
		return nil
	}
	return generator.New(
		generator.WithBaseCount(cfg.GeneratorBaseCount),
		generator.WithDensity(cfg.GeneratorDensity),
		generator.WithMinOffset(cfg.GeneratorMinOffsetKm),
		generator.WithRiskRange(cfg.GeneratorRiskMin, cfg.GeneratorRiskMax),
	)
}

// newHandler builds the routed, CORS-wrapped HTTP handler.
func newHandler(ctx context.Context, cfg *config.Config, comp *components) http.Handler {
	mux := http.NewServeMux()

	api.NewServer(comp.svc, comp.svc,
		api.WithRadius(cfg.DefaultRadiusKm, cfg.MaxRadiusKm),
		api.WithMaxAlertsLimit(cfg.MaxAlertsLimit),
		api.WithDispatchTimeout(cfg.DispatchTimeout()),
		api.WithSecretKey(cfg.SecretKey),
		api.WithStream(comp.hub),
	).Register(ctx, mux)

	swagger.Register(ctx, mux)

	// The console owns "/" and must not shadow the routes above.
	site.Register(ctx, mux)

	return api.CORSMiddleware(mux)
}

// metricsOptions maps the metrics settings onto manager options.
func metricsOptions(cfg *config.Config) ([]metrics.Option, error) {
	labels, err := cfg.MetricsLabels()
	if err != nil {
		return nil, err
	}
	buckets, err := cfg.MetricsBuckets()
	if err != nil {
		return nil, err
	}
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithConstLabels(labels),
		metrics.WithHistogramBuckets(buckets),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval()),
	}, nil
}

// serverWriteTimeout keeps the write deadline past the longest dispatch wait.
func serverWriteTimeout(cfg *config.Config) time.Duration {
	return max(writeTimeout, cfg.DispatchTimeout()+writeTimeoutMargin)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)

	queueLen, _ := stats["queue_length"].(int)
	queueCap, _ := stats["queue_capacity"].(int)
	metrics.UpdateQueueSize(queueLen, queueCap)

	if workers, ok := stats["worker_count"].(int); ok {
		metrics.UpdateWorkerCount(workers)
	}
	if observers, ok := stats["observers"].(int); ok {
		metrics.UpdateObserverCount(observers)
	}
}
