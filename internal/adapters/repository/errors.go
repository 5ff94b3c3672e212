package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrInvalidObserver = errors.New("observer id is required")
	ErrInvalidLimit    = errors.New("invalid alert limit")
	ErrUnsupportedURL  = errors.New("unsupported database url")
)
