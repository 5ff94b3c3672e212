// Package service wires the hotspot pipeline: catalog lookups, synthetic
// generation, merging, alert selection and delivery.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hotspot/internal/adapters/mq/queue"
	"github.com/okian/hotspot/internal/adapters/mq/worker"
	"github.com/okian/hotspot/internal/adapters/notify"
	"github.com/okian/hotspot/internal/adapters/repository"
	"github.com/okian/hotspot/internal/domain/alerting"
	"github.com/okian/hotspot/internal/domain/catalog"
	"github.com/okian/hotspot/internal/domain/dedupe"
	"github.com/okian/hotspot/internal/domain/generator"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/types"
	"github.com/okian/hotspot/pkg/logger"
	"github.com/okian/hotspot/pkg/metrics"
)

const (
	defaultWorkerCount = 4
	defaultQueueSize   = 1024
	defaultSendTimeout = 10 * time.Second

	// DefaultMessageTemplate is the alert text sent to observers.
	DefaultMessageTemplate = "High accident-risk area near your location. {count} dangerous spots detected within {radius}km. Drive carefully!"

	// NoHotspotsMessage is returned by DispatchAlerts when the area is clear.
	NoHotspotsMessage = "No hotspots found in the area"

	shutdownTimeout = 30 * time.Second
)

// DispatchResult summarizes one DispatchAlerts call.
type DispatchResult struct {
	DispatchID       string
	HotspotsDetected int
	AlertsSent       int
	AlertsFailed     int
	Message          string
	Outcomes         []model.AlertOutcome
}

// CatalogInfo describes the catalog snapshot currently served.
type CatalogInfo struct {
	Points   int
	Hotspots int
}

// Service owns the pipeline and its background workers.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	ownsStore bool
	sender    notify.Sender
	source    CatalogSource
	publisher Publisher

	catalog    *catalog.Holder
	generator  *generator.Generator
	aggregator *dedupe.Aggregator
	engine     *alerting.Engine

	queue *queue.InMemoryQueue
	pool  *worker.Pool

	topFraction     float64
	linearScan      bool
	refreshInterval time.Duration
	workerCount     int
	queueSize       int
	sendTimeout     time.Duration
	messageTemplate string

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	logger logger.Logger
}

// New creates a Service. Without WithStore an in-memory store is used.
func New(opts ...Option) *Service {
	s := &Service{
		catalog:         catalog.NewHolder(nil),
		generator:       generator.New(),
		aggregator:      dedupe.NewAggregator(),
		engine:          alerting.New(),
		topFraction:     catalog.DefaultTopFraction,
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		sendTimeout:     defaultSendTimeout,
		messageTemplate: DefaultMessageTemplate,
		cancel:          func() {},
		logger:          logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore(context.Background())
		s.ownsStore = true
	}
	if s.sender == nil {
		s.sender = notify.NewLogSender(s.logger)
	}
	if s.source == nil {
		s.source = func(context.Context) ([]model.ScoredPoint, error) { return nil, nil }
	}
	return s
}

// Start loads the catalog and starts the delivery workers and, when
// configured, the catalog refresher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if started {
		return nil
	}

	// Loaded without the lock; the snapshot swap is atomic and readers of
	// the service state must not wait on a slow source.
	if _, err := s.ReloadCatalog(ctx); err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.sender, s.store,
		worker.WithLogger(s.logger),
		worker.WithSendTimeout(s.sendTimeout),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.pool.Start(runCtx)

	if s.refreshInterval > 0 {
		s.wg.Add(1)
		go s.refreshLoop(runCtx)
	}

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.String("notifier", s.sender.Name()),
		logger.Duration("catalog_refresh", s.refreshInterval))
	return nil
}

// Stop drains pending deliveries and stops background work.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.pool.Shutdown(shutdownCtx)
	s.cancel()
	s.wg.Wait()
	if s.ownsStore {
		if cerr := s.store.Close(); cerr != nil {
			s.logger.Warn(ctx, "error closing store", logger.Error(cerr))
		}
	}

	s.started = false
	s.logger.Info(ctx, "service stopped")
	return err
}

func (s *Service) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReloadCatalog(ctx); err != nil {
				s.logger.Warn(ctx, "catalog refresh failed, keeping previous snapshot", logger.Error(err))
			}
		}
	}
}

// ReloadCatalog rebuilds the catalog from the source and publishes it.
// On failure the previous snapshot keeps serving.
func (s *Service) ReloadCatalog(ctx context.Context) (CatalogInfo, error) {
	points, err := s.source(ctx)
	if err != nil {
		metrics.RecordCatalogReload(false)
		metrics.RecordErrorByComponent("catalog", "load")
		return CatalogInfo{}, fmt.Errorf("load catalog points: %w", err)
	}

	opts := []catalog.Option{catalog.WithTopFraction(s.topFraction)}
	if s.linearScan {
		opts = append(opts, catalog.WithLinearScan())
	}
	c, err := catalog.New(points, opts...)
	if err != nil {
		metrics.RecordCatalogReload(false)
		metrics.RecordErrorByComponent("catalog", "build")
		return CatalogInfo{}, err
	}
	s.catalog.Swap(c)

	metrics.RecordCatalogReload(true)
	metrics.UpdateCatalogPoints(c.Len())
	metrics.UpdateCatalogHotspots(c.HotspotCount())
	s.logger.Info(ctx, "catalog loaded",
		logger.Int("points", c.Len()),
		logger.Int("hotspots", c.HotspotCount()))
	return CatalogInfo{Points: c.Len(), Hotspots: c.HotspotCount()}, nil
}

// QueryHotspots returns catalog and generated hotspots within radiusKm of
// center, merged and sorted nearest first.
func (s *Service) QueryHotspots(ctx context.Context, center model.Point, radiusKm float64) ([]model.HotspotResult, error) {
	start := time.Now()
	if err := model.ValidateQuery(center, radiusKm); err != nil {
		metrics.RecordErrorByType("invalid_coordinate", "warning")
		return nil, err
	}

	snapshot := s.catalog.Load()
	fromCatalog := snapshot.Query(center, radiusKm)
	metrics.RecordCatalogHits(len(fromCatalog))

	var generated []model.HotspotResult
	if s.generator != nil {
		generated = s.generator.Generate(center, radiusKm)
		metrics.RecordGeneratedSpots(len(generated))
		if s.generator.Clamped(radiusKm) {
			metrics.RecordGenerationClamped()
		}
	}

	merged := s.aggregator.Merge(fromCatalog, generated)
	metrics.RecordDedupeDropped(len(fromCatalog) + len(generated) - len(merged))
	metrics.RecordQuery(float64(time.Since(start).Microseconds()) / 1000)

	s.logger.Debug(ctx, "hotspot query",
		logger.Float64("lat", center.Lat),
		logger.Float64("lng", center.Lng),
		logger.Float64("radius_km", radiusKm),
		logger.Int("catalog", len(fromCatalog)),
		logger.Int("generated", len(generated)),
		logger.Int("returned", len(merged)))
	return merged, nil
}

// ListHotspots returns every catalog hotspot in load order.
func (s *Service) ListHotspots(_ context.Context) []model.ScoredPoint {
	return s.catalog.Load().Hotspots()
}

// RegisterObserver adds or updates an observer. It reports whether the
// observer is new.
func (s *Service) RegisterObserver(ctx context.Context, o model.Observer) (bool, error) {
	o.ID = strings.TrimSpace(o.ID)
	if o.ID == "" {
		return false, ErrInvalidContact
	}
	if o.Location != nil {
		if err := model.ValidatePoint(*o.Location); err != nil {
			return false, err
		}
	}

	created, err := s.store.UpsertObserver(ctx, o)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "upsert_observer")
		return false, err
	}
	if created {
		metrics.RecordObserverRegistered()
	}
	s.logger.Info(ctx, "observer registered",
		logger.String("observer", o.ID),
		logger.Bool("created", created),
		logger.Bool("located", o.Location != nil))
	return created, nil
}

// RecentAlerts returns up to limit sent alerts, newest first.
func (s *Service) RecentAlerts(ctx context.Context, limit int) ([]model.AlertRecord, error) {
	return s.store.RecentAlerts(ctx, limit)
}

// DispatchAlerts finds hotspots around center and notifies every
// qualifying observer. A full queue delays the dispatch rather than
// dropping deliveries. Deliveries still unqueued or unanswered when ctx
// ends, and those the sender rejects, count as failed; they never abort
// the dispatch.
func (s *Service) DispatchAlerts(ctx context.Context, center model.Point, radiusKm float64) (DispatchResult, error) {
	hotspots, err := s.QueryHotspots(ctx, center, radiusKm)
	if err != nil {
		return DispatchResult{}, err
	}
	if len(hotspots) == 0 {
		metrics.RecordDispatch("no_hotspots")
		return DispatchResult{Message: NoHotspotsMessage, Outcomes: []model.AlertOutcome{}}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return DispatchResult{}, ErrNotStarted
	}

	observers, err := s.store.Observers(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "list_observers")
		return DispatchResult{}, err
	}

	outcomes := s.engine.Select(hotspots, observers, center, radiusKm)
	for _, o := range outcomes {
		metrics.RecordOutcome(o.Reason.Code())
	}

	res := DispatchResult{
		DispatchID:       uuid.NewString(),
		HotspotsDetected: len(hotspots),
		Message:          s.renderMessage(len(hotspots), radiusKm),
		Outcomes:         outcomes,
	}

	targets := alerting.Qualifying(outcomes)
	replies := make(chan model.DeliveryReport, len(targets))
	pending := 0
	for _, o := range targets {
		d := model.Delivery{
			ID:         uuid.NewString(),
			DispatchID: res.DispatchID,
			Observer:   o,
			Message:    res.Message,
			Center:     center,
			Reply:      replies,
		}
		// Workers drain the queue while this loop waits, so every target is
		// queued unless ctx ends first.
		if err := s.queue.EnqueueWait(ctx, d); err != nil {
			res.AlertsFailed++
			metrics.RecordAlertFailed("not_queued")
			s.logger.Warn(ctx, "delivery not queued",
				logger.String("dispatch_id", res.DispatchID),
				logger.String("observer", o.ID),
				logger.Error(err))
			continue
		}
		pending++
	}

wait:
	for pending > 0 {
		select {
		case rep := <-replies:
			pending--
			if rep.Err != nil {
				res.AlertsFailed++
			} else {
				res.AlertsSent++
			}
		case <-ctx.Done():
			res.AlertsFailed += pending
			s.logger.Warn(ctx, "dispatch abandoned waiting for deliveries",
				logger.String("dispatch_id", res.DispatchID),
				logger.Int("pending", pending))
			break wait
		}
	}

	switch {
	case res.AlertsFailed == 0:
		metrics.RecordDispatch("ok")
	case res.AlertsSent == 0:
		metrics.RecordDispatch("failed")
	default:
		metrics.RecordDispatch("partial")
	}

	s.logger.Info(ctx, "alerts dispatched",
		logger.String("dispatch_id", res.DispatchID),
		logger.Int("hotspots", res.HotspotsDetected),
		logger.Int("observers", len(observers)),
		logger.Int("sent", res.AlertsSent),
		logger.Int("failed", res.AlertsFailed))

	if s.publisher != nil {
		s.publisher.Publish(ctx, types.DispatchEvent{
			Type:             "dispatch",
			DispatchID:       res.DispatchID,
			Location:         types.Location{Lat: center.Lat, Lng: center.Lng},
			RadiusKm:         radiusKm,
			HotspotsDetected: res.HotspotsDetected,
			AlertsSent:       res.AlertsSent,
			AlertsFailed:     res.AlertsFailed,
			At:               time.Now().UTC(),
		})
	}
	return res, nil
}

func (s *Service) renderMessage(count int, radiusKm float64) string {
	return strings.NewReplacer(
		"{count}", strconv.Itoa(count),
		"{radius}", strconv.FormatFloat(radiusKm, 'f', -1, 64),
	).Replace(s.messageTemplate)
}

// GetStats returns a snapshot of service state.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.catalog.Load()
	stats := map[string]any{
		"started":           s.started,
		"catalog_points":    c.Len(),
		"catalog_hotspots":  c.HotspotCount(),
		"top_fraction":      s.topFraction,
		"generator_enabled": s.generator != nil,
		"dedupe_km":         s.aggregator.Threshold(),
		"multiplier":        s.engine.Multiplier(),
		"location_policy":   s.engine.Policy().String(),
		"notifier":          s.sender.Name(),
		"worker_count":      s.workerCount,
		"queue_capacity":    s.queueSize,
		"queue_length":      0,
	}
	if s.queue != nil {
		stats["queue_length"] = s.queue.Len(ctx)
	}
	if n, err := s.store.CountObservers(ctx); err == nil {
		stats["observers"] = n
	} else {
		s.logger.Warn(ctx, "count observers failed", logger.Error(err))
	}
	return stats
}
