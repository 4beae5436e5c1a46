package recorder

import "errors"

var (
	// ErrEmptyTripName is returned when Start is called without a trip name.
	// The caller is expected to validate before invoking; the session fails
	// fast with no state change.
	ErrEmptyTripName = errors.New("trip name is required")

	// ErrPermissionDenied is returned when the location permission was not
	// granted. The session returns to idle.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrServiceDisabled is returned when the location service is off.
	// The session returns to idle.
	ErrServiceDisabled = errors.New("location service disabled")

	// ErrNotIdle is returned when Start is called on a stopped session.
	ErrNotIdle = errors.New("session already used; construct a new session")

	// ErrNotSampling is returned when Stop is called outside sampling.
	ErrNotSampling = errors.New("session is not sampling")
)
