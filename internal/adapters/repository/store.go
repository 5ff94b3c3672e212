// Package repository persists observers and the log of delivered alerts.
package repository

import (
	"context"

	"github.com/okian/hotspot/internal/domain/model"
)

// Store provides read/write access to observers and the alert log.
type Store interface {
	// UpsertObserver inserts the observer or replaces the location of an
	// existing one with the same ID. A nil location is stored as absent.
	// It reports whether a new row was created.
	UpsertObserver(ctx context.Context, o model.Observer) (bool, error)

	// Observers returns every observer in registration order.
	Observers(ctx context.Context) ([]model.Observer, error)

	// CountObservers returns the number of stored observers.
	CountObservers(ctx context.Context) (int, error)

	// RecordAlert appends a delivered alert to the log.
	RecordAlert(ctx context.Context, rec model.AlertRecord) error

	// RecentAlerts returns up to limit alerts, newest first.
	// Returns ErrInvalidLimit if limit is not positive.
	RecentAlerts(ctx context.Context, limit int) ([]model.AlertRecord, error)

	Close() error
}

func validateObserver(o model.Observer) error {
	if o.ID == "" {
		return ErrInvalidObserver
	}
	if o.Location != nil {
		if err := model.ValidatePoint(*o.Location); err != nil {
			return err
		}
	}
	return nil
}
