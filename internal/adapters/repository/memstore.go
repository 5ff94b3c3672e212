package repository

import (
	"context"
	"sync"

	"github.com/okian/hotspot/internal/domain/model"
)

// MemoryStore keeps observers and alerts in process memory. Data is lost
// on restart; it backs memory:// URLs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	index     map[string]int
	observers []model.Observer
	alerts    []model.AlertRecord

	updater updater
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := newOptions(opts)
	s := &MemoryStore{index: make(map[string]int)}
	s.updater.start(ctx, o.metricsUpdateInterval, s.CountObservers)
	return s
}

// UpsertObserver implements Store.
func (s *MemoryStore) UpsertObserver(_ context.Context, o model.Observer) (bool, error) {
	if err := validateObserver(o); err != nil {
		return false, err
	}
	o = copyObserver(o)

	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[o.ID]; ok {
		s.observers[i] = o
		return false, nil
	}
	s.index[o.ID] = len(s.observers)
	s.observers = append(s.observers, o)
	return true, nil
}

// Observers implements Store.
func (s *MemoryStore) Observers(_ context.Context) ([]model.Observer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Observer, len(s.observers))
	for i, o := range s.observers {
		out[i] = copyObserver(o)
	}
	return out, nil
}

// CountObservers implements Store.
func (s *MemoryStore) CountObservers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers), nil
}

// RecordAlert implements Store.
func (s *MemoryStore) RecordAlert(_ context.Context, rec model.AlertRecord) error {
	s.mu.Lock()
	s.alerts = append(s.alerts, rec)
	s.mu.Unlock()
	return nil
}

// RecentAlerts implements Store.
func (s *MemoryStore) RecentAlerts(_ context.Context, limit int) ([]model.AlertRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit > len(s.alerts) {
		limit = len(s.alerts)
	}
	out := make([]model.AlertRecord, 0, limit)
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.alerts[i])
	}
	return out, nil
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.updater.stop()
	return nil
}

func copyObserver(o model.Observer) model.Observer {
	if o.Location != nil {
		loc := *o.Location
		o.Location = &loc
	}
	return o
}
