package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/hotspot/pkg/logger"
	"github.com/okian/hotspot/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	metricsUpdateInterval time.Duration
	logger                logger.Logger
}

func newOptions(opts []Option) options {
	o := options{metricsUpdateInterval: defaultMetricsUpdateInterval, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets the logger used by the store.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// updater refreshes the observer gauge until stopped.
type updater struct {
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

func (u *updater) start(ctx context.Context, interval time.Duration, count func(context.Context) (int, error)) {
	u.stopChan = make(chan struct{})
	refresh := func() {
		if n, err := count(ctx); err == nil {
			metrics.UpdateObserverCount(n)
		}
	}
	refresh()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-u.stopChan:
				return
			case <-ticker.C:
				refresh()
			}
		}
	}()
}

func (u *updater) stop() {
	u.stopOnce.Do(func() {
		if u.stopChan != nil {
			close(u.stopChan)
		}
	})
	u.wg.Wait()
}
