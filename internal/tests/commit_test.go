package tests

import (
	"context"
	"errors"
	"testing"

	"triplog/internal/domain"
	"triplog/internal/service"
)

// ──────────────────────────────────────────────
// COMMIT PROTOCOL
// ──────────────────────────────────────────────

func commitPositions(n int) []domain.Position {
	positions := make([]domain.Position, 0, n)
	for i := 0; i < n; i++ {
		positions = append(positions, domain.Position{
			Latitude:  48.0 + float64(i)*0.01,
			Longitude: 11.0 + float64(i)*0.01,
			Timestamp: "2024-03-01 09:00:00",
		})
	}
	return positions
}

func TestCommit_EmptyBufferRejectedBeforeAnyWrite(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	svc := service.NewTripService(store, nil, true)

	_, err := svc.Commit(context.Background(), "alice", service.CommitRequest{Name: "ride"})
	if !errors.Is(err, service.ErrNothingToSave) {
		t.Fatalf("expected ErrNothingToSave, got %v", err)
	}
	if store.CreateTripCallCount != 0 {
		t.Error("empty commit must not touch the store")
	}
}

func TestCommit_RejectsInvalidMetadata(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	svc := service.NewTripService(store, nil, true)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, "alice", service.CommitRequest{Name: "  ", Positions: commitPositions(1)}); !errors.Is(err, service.ErrInvalidTripName) {
		t.Errorf("expected ErrInvalidTripName, got %v", err)
	}
	if _, err := svc.Commit(ctx, "alice", service.CommitRequest{Name: "ride", Type: "motorcycle", Positions: commitPositions(1)}); !errors.Is(err, service.ErrInvalidTripType) {
		t.Errorf("expected ErrInvalidTripType, got %v", err)
	}
	if store.CountTrips() != 0 {
		t.Error("rejected commits must not create trips")
	}
}

func TestCommit_AtomicPersistsAllOrNothing(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	svc := service.NewTripService(store, nil, true)

	trip, err := svc.Commit(context.Background(), "alice", service.CommitRequest{
		Name:        "  weekend ride  ",
		Description: "to the lake",
		Type:        domain.TripTypePersonal,
		Positions:   commitPositions(8),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.ID == "" {
		t.Error("expected a backend-assigned id")
	}
	if trip.Name != "weekend ride" {
		t.Errorf("expected trimmed name, got %q", trip.Name)
	}
	if trip.OwnerID != "alice" {
		t.Errorf("expected owner alice, got %q", trip.OwnerID)
	}
	if trip.PositionsCount != 8 {
		t.Errorf("expected positionsCount 8, got %d", trip.PositionsCount)
	}
	if got := len(store.PositionsFor(trip.ID)); got != 8 {
		t.Errorf("expected 8 persisted positions, got %d", got)
	}
	if store.AppendPositionCallCount != 0 {
		t.Error("atomic path must not append positions one at a time")
	}

	// Failure on the atomic path leaves nothing behind.
	failing := NewMockTripStore()
	failing.CreateTripError = errors.New("backend down")
	svc = service.NewTripService(failing, nil, true)
	if _, err := svc.Commit(context.Background(), "alice", service.CommitRequest{Name: "ride", Positions: commitPositions(3)}); err == nil {
		t.Fatal("expected commit to fail")
	}
	if failing.CountTrips() != 0 {
		t.Error("failed atomic commit must not leave a partial trip")
	}
}

func TestCommit_LegacyPathAppendsAndRecounts(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	svc := service.NewTripService(store, nil, false)

	trip, err := svc.Commit(context.Background(), "alice", service.CommitRequest{
		Name:      "ride",
		Positions: commitPositions(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.PositionsCount != 5 {
		t.Errorf("expected positionsCount 5, got %d", trip.PositionsCount)
	}
	if store.AppendPositionCallCount != 5 {
		t.Errorf("expected 5 appends, got %d", store.AppendPositionCallCount)
	}
	if store.RecountCallCount == 0 {
		t.Error("legacy commit must recount to restore the invariant")
	}
}

func TestCommit_LegacyPartialFailureKeepsPersistedSubset(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	store.AppendPositionError = errors.New("connection lost")
	store.AppendPositionFailAfter = 3
	svc := service.NewTripService(store, nil, false)

	trip, err := svc.Commit(context.Background(), "alice", service.CommitRequest{
		Name:      "ride",
		Positions: commitPositions(5),
	})
	if err == nil {
		t.Fatal("expected a partial commit error")
	}

	var partial *service.PartialCommitError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialCommitError, got %T: %v", err, err)
	}
	if partial.Persisted != 3 || partial.Expected != 5 {
		t.Errorf("expected 3/5 persisted, got %d/%d", partial.Persisted, partial.Expected)
	}

	// The trip survives with the strict subset; positionsCount matches it.
	if trip == nil {
		t.Fatal("partial commit should still return the created trip")
	}
	stored := store.GetTrip(partial.TripID)
	if stored == nil {
		t.Fatal("partially committed trip should exist")
	}
	if stored.PositionsCount != 3 {
		t.Errorf("expected positionsCount 3 after recount, got %d", stored.PositionsCount)
	}
	if got := len(store.PositionsFor(partial.TripID)); got != 3 {
		t.Errorf("expected 3 surviving positions, got %d", got)
	}
}
