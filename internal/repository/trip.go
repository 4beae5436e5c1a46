package repository

import (
	"context"

	"triplog/internal/domain"
)

// DefaultPageSize is used when a listing request does not specify one.
const DefaultPageSize = 10

// ListQuery filters and paginates an owner's trip listing.
type ListQuery struct {
	// Type narrows the listing to one trip type when non-empty.
	Type domain.TripType
	// Cursor continues a previous page; empty starts from the head.
	Cursor string
	// PageSize caps the page; DefaultPageSize when non-positive.
	PageSize int
}

// TripStore persists trips and their positions and answers point and
// paginated queries. Implemented once per backend (embedded relational,
// remote document store) behind this one interface; callers never depend on
// a concrete backend.
//
// Mutating operations take the acting user's id and fail with
// ErrUnauthorized when it does not match the trip's owner. Owner ids are
// opaque tokens compared for equality only.
type TripStore interface {
	// CreateTrip persists the trip and all positions as one logically
	// indivisible unit with a backend-assigned id. If any position write
	// fails the whole create fails and no partial trip is visible.
	// PositionsCount is set to len(positions).
	CreateTrip(ctx context.Context, trip *domain.Trip, positions []domain.Position) (*domain.Trip, error)

	// CreateTripShell persists the trip row/document alone, obtaining its
	// id, for the legacy per-position commit path.
	CreateTripShell(ctx context.Context, trip *domain.Trip) (*domain.Trip, error)

	// AppendPosition appends one position to the trip in timestamp order.
	AppendPosition(ctx context.Context, actorID, tripID string, pos domain.Position) error

	// RecountPositions recomputes positionsCount from the true child count
	// and returns it. The single invariant-restoring step after legacy
	// commits and standalone appends.
	RecountPositions(ctx context.Context, tripID string) (int, error)

	// ListTrips returns a page of the owner's trips ordered by createdAt
	// descending plus an opaque continuation cursor (empty when exhausted).
	// Already-issued cursors stay valid under concurrent head inserts.
	ListTrips(ctx context.Context, ownerID string, q ListQuery) (*domain.TripPage, error)

	// GetTripByID returns the trip, its resolved owner display name
	// ("unknown user" when unresolved) and the full ordered position list.
	GetTripByID(ctx context.Context, tripID string) (*domain.TripDetail, error)

	// UpdateTrip persists only the provided fields (name/description/type)
	// and bumps updatedAt. OwnerID, createdAt and id never change.
	UpdateTrip(ctx context.Context, actorID, tripID string, upd domain.TripUpdate) (*domain.Trip, error)

	// DeleteTrip removes the trip and all its positions as a single
	// observable unit; no orphaned positions survive.
	DeleteTrip(ctx context.Context, actorID, tripID string) error
}
