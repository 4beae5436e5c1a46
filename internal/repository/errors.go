package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrUnauthorized is returned when the acting user does not own the
	// target trip. Never retried, surfaced verbatim to the caller.
	ErrUnauthorized = errors.New("acting user does not own this trip")

	// ErrInvalidCursor is returned when a page cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid page cursor")

	// ErrUnsupported is returned by a backend that cannot perform the
	// requested operation (e.g. password updates on the document store,
	// where credentials live with the auth provider).
	ErrUnsupported = errors.New("operation not supported by this backend")
)
