package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when a mutating call carries no acting
	// user identity. Never retried automatically; the caller must
	// re-authenticate.
	ErrUnauthenticated = errors.New("no acting user identity")

	// ErrInvalidTripName is returned when a trip name is empty.
	ErrInvalidTripName = errors.New("trip name is required")

	// ErrInvalidTripType is returned for an unknown trip type.
	ErrInvalidTripType = errors.New("trip type must be personal or business")

	// ErrInvalidPosition is returned when a position has out-of-range
	// coordinates.
	ErrInvalidPosition = errors.New("position coordinates are out of range")

	// ErrNothingToSave is returned when a commit is attempted with an empty
	// buffer; rejected before any write.
	ErrNothingToSave = errors.New("nothing to save: no recorded positions")

	// ErrNoActiveRecording is returned when a recording operation targets a
	// user with no session.
	ErrNoActiveRecording = errors.New("no active recording session")

	// ErrCommitInProgress is returned when another commit already holds the
	// user's commit lock.
	ErrCommitInProgress = errors.New("another commit is already in progress")

	// Validation errors shared by handlers.
	ErrInvalidEmail    = errors.New("email is required")
	ErrInvalidPassword = errors.New("password is required")
	ErrBadCredentials  = errors.New("invalid email or password")
	ErrEmailTaken      = errors.New("email already registered")
)

// PartialCommitError reports a legacy-path commit that created the trip but
// failed partway through the per-position appends. The trip is left in the
// store with the persisted subset; it is surfaced, not auto-repaired.
type PartialCommitError struct {
	TripID    string
	Persisted int
	Expected  int
	Err       error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("trip %s committed partially: %d of %d positions persisted: %v",
		e.TripID, e.Persisted, e.Expected, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}
