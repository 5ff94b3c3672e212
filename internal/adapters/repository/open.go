package repository

import (
	"context"
	"fmt"
	"strings"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ParseURL splits a database URL into a driver name and the DSN that driver
// expects. A bare path is a SQLite file.
func ParseURL(url string) (driver, dsn string, err error) {
	switch {
	case url == "":
		return "", "", fmt.Errorf("%w: empty", ErrUnsupportedURL)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("%w: %s has no path", ErrUnsupportedURL, url)
		}
		return DriverSQLite, path, nil
	case url == "memory://":
		return DriverMemory, "", nil
	case strings.Contains(url, "://"):
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	default:
		return DriverSQLite, url, nil
	}
}

// Open returns the Store for url: sqlite://path or a bare path,
// postgres:// or postgresql://, or memory://.
func Open(ctx context.Context, url string, opts ...Option) (Store, error) {
	driver, dsn, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn, opts...)
	case DriverMemory:
		return NewMemoryStore(ctx, opts...), nil
	default:
		return NewSQLiteStore(ctx, dsn, opts...)
	}
}
