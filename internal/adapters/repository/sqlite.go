package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/pkg/logger"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	phone_number TEXT UNIQUE NOT NULL,
	latitude REAL,
	longitude REAL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS alerts_sent (
	id TEXT PRIMARY KEY,
	dispatch_id TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	message TEXT NOT NULL,
	location_lat REAL NOT NULL,
	location_lng REAL NOT NULL,
	receipt TEXT NOT NULL,
	sent_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS alerts_sent_sent_at ON alerts_sent (sent_at);
`

// SQLiteStore is a Store backed by a SQLite file.
type SQLiteStore struct {
	db      *sql.DB
	log     logger.Logger
	updater updater
}

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := newOptions(opts)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: init %s: %w", path, err)
		}
	}

	s := &SQLiteStore{db: db, log: o.logger}
	s.updater.start(ctx, o.metricsUpdateInterval, s.CountObservers)
	s.log.Info(ctx, "database initialized", logger.String("driver", "sqlite"), logger.String("path", path))
	return s, nil
}

// UpsertObserver implements Store.
func (s *SQLiteStore) UpsertObserver(ctx context.Context, o model.Observer) (bool, error) {
	if err := validateObserver(o); err != nil {
		return false, err
	}
	lat, lng := nullableLocation(o.Location)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE phone_number = ?`, o.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("sqlite: lookup observer: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (phone_number, latitude, longitude) VALUES (?, ?, ?)
		ON CONFLICT (phone_number) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude`,
		o.ID, lat, lng); err != nil {
		return false, fmt.Errorf("sqlite: upsert observer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: commit: %w", err)
	}
	return exists == 0, nil
}

// Observers implements Store.
func (s *SQLiteStore) Observers(ctx context.Context) ([]model.Observer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phone_number, latitude, longitude FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query observers: %w", err)
	}
	defer rows.Close()

	var out []model.Observer
	for rows.Next() {
		var (
			o        model.Observer
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&o.ID, &lat, &lng); err != nil {
			return nil, fmt.Errorf("sqlite: scan observer: %w", err)
		}
		if lat.Valid && lng.Valid {
			o.Location = &model.Point{Lat: lat.Float64, Lng: lng.Float64}
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate observers: %w", err)
	}
	return out, nil
}

// CountObservers implements Store.
func (s *SQLiteStore) CountObservers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count observers: %w", err)
	}
	return n, nil
}

// RecordAlert implements Store.
func (s *SQLiteStore) RecordAlert(ctx context.Context, rec model.AlertRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts_sent (id, dispatch_id, phone_number, message, location_lat, location_lng, receipt, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DispatchID, rec.ObserverID, rec.Message, rec.Location.Lat, rec.Location.Lng, rec.Receipt,
		rec.SentAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite: record alert: %w", err)
	}
	return nil
}

// RecentAlerts implements Store.
func (s *SQLiteStore) RecentAlerts(ctx context.Context, limit int) ([]model.AlertRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dispatch_id, phone_number, message, location_lat, location_lng, receipt, sent_at
		FROM alerts_sent ORDER BY sent_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]model.AlertRecord, 0, limit)
	for rows.Next() {
		var (
			rec    model.AlertRecord
			sentAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.DispatchID, &rec.ObserverID, &rec.Message,
			&rec.Location.Lat, &rec.Location.Lng, &rec.Receipt, &sentAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan alert: %w", err)
		}
		rec.SentAt = time.Unix(0, sentAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate alerts: %w", err)
	}
	return out, nil
}

// Close stops the metrics updater and closes the database.
func (s *SQLiteStore) Close() error {
	s.updater.stop()
	return s.db.Close()
}

func nullableLocation(p *model.Point) (lat, lng any) {
	if p == nil {
		return nil, nil
	}
	return p.Lat, p.Lng
}
