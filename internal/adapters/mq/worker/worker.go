// Package worker delivers queued alerts through a notification sender.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/pkg/logger"
	"github.com/okian/hotspot/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultSendTimeout      = 10 * time.Second
	recordTimeout           = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Delivery is what workers read off the queue.
type Delivery = model.Delivery

// Sender delivers one message and returns a provider receipt.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Recorder logs successful deliveries.
type Recorder interface {
	RecordAlert(ctx context.Context, rec model.AlertRecord) error
}

// Queue defines how workers receive deliveries.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Delivery
}

// Worker processes deliveries until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is
	// closed and drained.
	Run(ctx context.Context)

	// Shutdown waits for Run to return.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	sender      Sender
	recorder    Recorder
	name        string
	sendTimeout time.Duration
	now         func() time.Time

	done chan struct{}

	base   logger.Logger
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, sender Sender, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		sender:      sender,
		recorder:    recorder,
		name:        "worker",
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
		done:        make(chan struct{}),
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.base = w.logger
	w.logger = w.logger.Named(w.name)
	return w
}

// Run implements Worker.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	deliveries := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.reply(ctx, d, w.process(ctx, d))
		}
	}
}

// Shutdown implements Worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process sends one delivery and logs it on success. A failed alert log
// write does not turn a delivered message into a failure.
func (w *InMemoryWorker) process(ctx context.Context, d Delivery) model.DeliveryReport { //nolint:gocritic // hugeParam: passed by value for channel semantics
	metrics.AddWorkerBusy(1)
	defer metrics.AddWorkerBusy(-1)

	rep := model.DeliveryReport{DeliveryID: d.ID, ObserverID: d.Observer.ID}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	start := time.Now()
	receipt, err := w.sender.Send(sendCtx, d.Observer.ID, d.Message)
	cancel()
	metrics.RecordDeliveryLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordAlertFailed("send_error")
		metrics.RecordErrorByComponent("worker", "send_error")
		w.logger.Error(ctx, "alert delivery failed",
			logger.String("delivery_id", d.ID),
			logger.String("observer", d.Observer.ID),
			logger.Error(err),
		)
		rep.Err = err
		return rep
	}
	metrics.RecordAlertSent()
	rep.Receipt = receipt

	if w.recorder != nil {
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		rec := model.AlertRecord{
			ID:         uuid.NewString(),
			DispatchID: d.DispatchID,
			ObserverID: d.Observer.ID,
			Message:    d.Message,
			Location:   d.Center,
			Receipt:    receipt,
			SentAt:     w.now().UTC(),
		}
		if err := w.recorder.RecordAlert(recCtx, rec); err != nil {
			metrics.RecordErrorByComponent("worker", "record_error")
			metrics.RecordErrorByType("record_error", "medium")
			w.logger.Error(ctx, "failed to log delivered alert",
				logger.String("delivery_id", d.ID),
				logger.Error(err),
			)
		}
	}
	return rep
}

func (w *InMemoryWorker) reply(ctx context.Context, d Delivery, rep model.DeliveryReport) { //nolint:gocritic // hugeParam: passed by value for channel semantics
	if d.Reply == nil {
		return
	}
	select {
	case d.Reply <- rep:
	case <-ctx.Done():
	}
}

// Pool manages multiple workers reading from one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	cancel  context.CancelFunc
	once    sync.Once
	started atomic.Bool

	logger logger.Logger
}

// NewPool creates a worker pool. A workerCount below one selects
// runtime.NumCPU()*2 workers. opts are applied to every worker.
func NewPool(workerCount int, queue Queue, sender Sender, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		cancel:  func() {},
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(queue, sender, recorder, workerOpts...)
	}
	pool.logger = pool.workers[0].base.Named("worker-pool")

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stop cancels all workers without draining the queue.
func (p *Pool) Stop() {
	if !p.started.Load() {
		return
	}
	p.once.Do(p.cancel)
	for _, w := range p.workers {
		<-w.done
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them. If
// ctx expires first the remaining workers are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		if werr := w.Shutdown(shutdownCtx); werr != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			err = werr
			break
		}
	}
	p.once.Do(p.cancel)
	return err
}
