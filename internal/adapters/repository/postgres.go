package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/pkg/logger"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	phone_number TEXT UNIQUE NOT NULL,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS alerts_sent (
	id TEXT PRIMARY KEY,
	dispatch_id TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	message TEXT NOT NULL,
	location_lat DOUBLE PRECISION NOT NULL,
	location_lng DOUBLE PRECISION NOT NULL,
	receipt TEXT NOT NULL,
	sent_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS alerts_sent_sent_at ON alerts_sent (sent_at);
`

// PostgresStore is a Store backed by a PostgreSQL connection pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	log     logger.Logger
	updater updater
}

// NewPostgresStore connects to url and ensures the schema exists.
func NewPostgresStore(ctx context.Context, url string, opts ...Option) (*PostgresStore, error) {
	o := newOptions(opts)

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: init schema: %w", err)
	}

	s := &PostgresStore{pool: pool, log: o.logger}
	s.updater.start(ctx, o.metricsUpdateInterval, s.CountObservers)
	s.log.Info(ctx, "database initialized", logger.String("driver", "postgres"))
	return s, nil
}

// UpsertObserver implements Store.
func (s *PostgresStore) UpsertObserver(ctx context.Context, o model.Observer) (bool, error) {
	if err := validateObserver(o); err != nil {
		return false, err
	}
	lat, lng := nullableLocation(o.Location)

	// xmax is zero only for freshly inserted rows.
	var inserted bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (phone_number, latitude, longitude) VALUES ($1, $2, $3)
		ON CONFLICT (phone_number) DO UPDATE SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
		RETURNING (xmax = 0)`, o.ID, lat, lng).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("postgres: upsert observer: %w", err)
	}
	return inserted, nil
}

// Observers implements Store.
func (s *PostgresStore) Observers(ctx context.Context) ([]model.Observer, error) {
	rows, err := s.pool.Query(ctx, `SELECT phone_number, latitude, longitude FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query observers: %w", err)
	}
	defer rows.Close()

	var out []model.Observer
	for rows.Next() {
		var (
			o        model.Observer
			lat, lng *float64
		)
		if err := rows.Scan(&o.ID, &lat, &lng); err != nil {
			return nil, fmt.Errorf("postgres: scan observer: %w", err)
		}
		if lat != nil && lng != nil {
			o.Location = &model.Point{Lat: *lat, Lng: *lng}
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate observers: %w", err)
	}
	return out, nil
}

// CountObservers implements Store.
func (s *PostgresStore) CountObservers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count observers: %w", err)
	}
	return n, nil
}

// RecordAlert implements Store.
func (s *PostgresStore) RecordAlert(ctx context.Context, rec model.AlertRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts_sent (id, dispatch_id, phone_number, message, location_lat, location_lng, receipt, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.DispatchID, rec.ObserverID, rec.Message, rec.Location.Lat, rec.Location.Lng, rec.Receipt, rec.SentAt)
	if err != nil {
		return fmt.Errorf("postgres: record alert: %w", err)
	}
	return nil
}

// RecentAlerts implements Store.
func (s *PostgresStore) RecentAlerts(ctx context.Context, limit int) ([]model.AlertRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, dispatch_id, phone_number, message, location_lat, location_lng, receipt, sent_at
		FROM alerts_sent ORDER BY sent_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]model.AlertRecord, 0, limit)
	for rows.Next() {
		var (
			rec    model.AlertRecord
			sentAt time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.DispatchID, &rec.ObserverID, &rec.Message,
			&rec.Location.Lat, &rec.Location.Lng, &rec.Receipt, &sentAt); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		rec.SentAt = sentAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate alerts: %w", err)
	}
	return out, nil
}

// Close stops the metrics updater and the pool.
func (s *PostgresStore) Close() error {
	s.updater.stop()
	s.pool.Close()
	return nil
}
