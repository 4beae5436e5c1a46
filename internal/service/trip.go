package service

import (
	"context"
	"strings"
	"time"

	"triplog/internal/domain"
	"triplog/internal/redis"
	"triplog/internal/repository"
)

// TripService fronts the trip store: it gates every mutation on an acting
// identity, runs the commit protocol, and keeps the read cache coherent.
type TripService struct {
	store        repository.TripStore
	cache        redis.TripCache
	atomicCommit bool
}

// NewTripService creates a TripService. cache may be nil to disable read
// caching. atomicCommit selects the commit path: the atomic unit by default,
// or the legacy trip-then-appends path kept for backend parity.
func NewTripService(store repository.TripStore, cache redis.TripCache, atomicCommit bool) *TripService {
	return &TripService{
		store:        store,
		cache:        cache,
		atomicCommit: atomicCommit,
	}
}

// CommitRequest carries a stopped session's buffer plus trip metadata.
type CommitRequest struct {
	Name        string
	Description string
	Type        domain.TripType
	Positions   []domain.Position
}

// Commit durably persists the buffered positions as a new trip. An empty
// buffer is rejected before any write. On the legacy path a partial failure
// leaves the trip with the persisted subset and returns a
// *PartialCommitError; positionsCount is recomputed to match whatever
// actually persisted either way.
func (s *TripService) Commit(ctx context.Context, actorID string, req CommitRequest) (*domain.Trip, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidTripName
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, ErrInvalidTripType
	}
	if len(req.Positions) == 0 {
		return nil, ErrNothingToSave
	}

	now := time.Now()
	trip := &domain.Trip{
		OwnerID:     actorID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Type:        req.Type,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.atomicCommit {
		return s.store.CreateTrip(ctx, trip, req.Positions)
	}
	return s.commitLegacy(ctx, actorID, trip, req.Positions)
}

// commitLegacy creates the trip first and appends positions one at a time.
// A failure partway through leaves the trip with a strict subset of its
// intended positions; this weak point is preserved deliberately rather than
// silently strengthened.
func (s *TripService) commitLegacy(ctx context.Context, actorID string, trip *domain.Trip, positions []domain.Position) (*domain.Trip, error) {
	created, err := s.store.CreateTripShell(ctx, trip)
	if err != nil {
		return nil, err
	}

	persisted := 0
	for _, pos := range positions {
		if err := s.store.AppendPosition(ctx, actorID, created.ID, pos); err != nil {
			if count, rerr := s.store.RecountPositions(ctx, created.ID); rerr == nil {
				created.PositionsCount = count
			}
			return created, &PartialCommitError{
				TripID:    created.ID,
				Persisted: persisted,
				Expected:  len(positions),
				Err:       err,
			}
		}
		persisted++
	}

	count, err := s.store.RecountPositions(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	created.PositionsCount = count
	return created, nil
}

// List returns one page of the acting user's trips, newest first.
func (s *TripService) List(ctx context.Context, actorID string, q repository.ListQuery) (*domain.TripPage, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	if q.Type != "" && !q.Type.Valid() {
		return nil, ErrInvalidTripType
	}
	return s.store.ListTrips(ctx, actorID, q)
}

// Get returns the trip with its owner display name and ordered positions,
// served from cache when fresh.
func (s *TripService) Get(ctx context.Context, tripID string) (*domain.TripDetail, error) {
	if s.cache != nil {
		if detail, err := s.cache.GetTripDetail(ctx, tripID); err == nil && detail != nil {
			return detail, nil
		}
	}

	detail, err := s.store.GetTripByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetTripDetail(ctx, detail)
	}
	return detail, nil
}

// Update persists the provided fields on the acting user's trip.
func (s *TripService) Update(ctx context.Context, actorID, tripID string, upd domain.TripUpdate) (*domain.Trip, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, ErrInvalidTripName
	}
	if upd.Type != nil && !upd.Type.Valid() {
		return nil, ErrInvalidTripType
	}

	trip, err := s.store.UpdateTrip(ctx, actorID, tripID, upd)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tripID)
	return trip, nil
}

// Delete removes the acting user's trip and all its positions as one unit.
func (s *TripService) Delete(ctx context.Context, actorID, tripID string) error {
	if actorID == "" {
		return ErrUnauthenticated
	}
	if err := s.store.DeleteTrip(ctx, actorID, tripID); err != nil {
		return err
	}
	s.invalidate(ctx, tripID)
	return nil
}

// AppendPosition appends one position to the acting user's trip and returns
// the restored positions count.
func (s *TripService) AppendPosition(ctx context.Context, actorID, tripID string, pos domain.Position) (int, error) {
	if actorID == "" {
		return 0, ErrUnauthenticated
	}
	if !validCoordinates(pos.Latitude, pos.Longitude) {
		return 0, ErrInvalidPosition
	}
	if pos.Timestamp == "" {
		pos.Timestamp = time.Now().Format(domain.TimestampLayout)
	}

	if err := s.store.AppendPosition(ctx, actorID, tripID, pos); err != nil {
		return 0, err
	}
	count, err := s.store.RecountPositions(ctx, tripID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, tripID)
	return count, nil
}

func (s *TripService) invalidate(ctx context.Context, tripID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateTrip(ctx, tripID)
	}
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
