package service

import (
	"context"
	"time"

	"github.com/okian/hotspot/internal/adapters/notify"
	"github.com/okian/hotspot/internal/adapters/repository"
	"github.com/okian/hotspot/internal/domain/alerting"
	"github.com/okian/hotspot/internal/domain/dedupe"
	"github.com/okian/hotspot/internal/domain/generator"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/types"
	"github.com/okian/hotspot/pkg/logger"
)

// CatalogSource supplies the points a catalog is built from.
type CatalogSource func(ctx context.Context) ([]model.ScoredPoint, error)

// Publisher receives an event after every dispatch that found hotspots.
type Publisher interface {
	Publish(ctx context.Context, ev types.DispatchEvent)
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the observer store and alert log.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSender sets the notification sender. Defaults to logging only.
func WithSender(sender notify.Sender) Option {
	return func(s *Service) {
		if sender != nil {
			s.sender = sender
		}
	}
}

// WithCatalogSource sets where catalog points are loaded from on start and
// on reload.
func WithCatalogSource(src CatalogSource) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithTopFraction sets the share of catalog points flagged as hotspots.
func WithTopFraction(f float64) Option {
	return func(s *Service) {
		if f > 0 && f <= 1 {
			s.topFraction = f
		}
	}
}

// WithLinearScan disables the catalog spatial index.
func WithLinearScan(linear bool) Option {
	return func(s *Service) {
		s.linearScan = linear
	}
}

// WithCatalogRefresh reloads the catalog every interval. Zero disables it.
func WithCatalogRefresh(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.refreshInterval = interval
		}
	}
}

// WithGenerator sets the synthetic hotspot generator. A nil generator
// disables generation.
func WithGenerator(g *generator.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

// WithAggregator sets the merge step.
func WithAggregator(a *dedupe.Aggregator) Option {
	return func(s *Service) {
		if a != nil {
			s.aggregator = a
		}
	}
}

// WithEngine sets the alert decision engine.
func WithEngine(e *alerting.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithPublisher sets where dispatch events are published.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the delivery queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSendTimeout bounds each call to the sender.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// WithMessageTemplate sets the alert text. {count} and {radius} are
// replaced with the hotspot count and the radius in kilometers.
func WithMessageTemplate(tmpl string) Option {
	return func(s *Service) {
		if tmpl != "" {
			s.messageTemplate = tmpl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
