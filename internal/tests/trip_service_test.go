package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"triplog/internal/domain"
	"triplog/internal/repository"
	"triplog/internal/service"
)

// ──────────────────────────────────────────────
// OWNERSHIP AND IDENTITY GATES
// ──────────────────────────────────────────────

func TestTripService_MutationsRequireIdentity(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	svc := service.NewTripService(store, nil, true)
	ctx := context.Background()

	if _, err := svc.List(ctx, "", repository.ListQuery{}); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("List: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Update(ctx, "", "1", domain.TripUpdate{}); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Update: expected ErrUnauthenticated, got %v", err)
	}
	if err := svc.Delete(ctx, "", "1"); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Delete: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Commit(ctx, "", service.CommitRequest{Name: "x"}); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Commit: expected ErrUnauthenticated, got %v", err)
	}
}

func TestTripService_NonOwnerMutationsRejectedUnchanged(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	trip := &domain.Trip{OwnerID: "alice", Name: "weekend ride", CreatedAt: time.Now()}
	store.AddTrip(trip, []domain.Position{{Latitude: 1, Longitude: 1, Timestamp: "2024-03-01 09:00:00"}})

	svc := service.NewTripService(store, nil, true)
	ctx := context.Background()

	newName := "hijacked"
	if _, err := svc.Update(ctx, "mallory", trip.ID, domain.TripUpdate{Name: &newName}); !errors.Is(err, repository.ErrUnauthorized) {
		t.Errorf("Update: expected ErrUnauthorized, got %v", err)
	}
	if err := svc.Delete(ctx, "mallory", trip.ID); !errors.Is(err, repository.ErrUnauthorized) {
		t.Errorf("Delete: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.AppendPosition(ctx, "mallory", trip.ID, domain.Position{Latitude: 2, Longitude: 2}); !errors.Is(err, repository.ErrUnauthorized) {
		t.Errorf("AppendPosition: expected ErrUnauthorized, got %v", err)
	}

	// The rejected mutations left the trip untouched.
	stored := store.GetTrip(trip.ID)
	if stored == nil {
		t.Fatal("trip should still exist")
	}
	if stored.Name != "weekend ride" {
		t.Errorf("trip renamed by rejected update: %q", stored.Name)
	}
	if stored.PositionsCount != 1 {
		t.Errorf("expected 1 position, got %d", stored.PositionsCount)
	}
}

// ──────────────────────────────────────────────
// DELETE CASCADES
// ──────────────────────────────────────────────

func TestTripService_DeleteCascadesToPositions(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	trip := &domain.Trip{OwnerID: "alice", Name: "ride", CreatedAt: time.Now()}
	store.AddTrip(trip, []domain.Position{
		{Latitude: 1, Longitude: 1, Timestamp: "2024-03-01 09:00:00"},
		{Latitude: 2, Longitude: 2, Timestamp: "2024-03-01 09:00:05"},
	})

	svc := service.NewTripService(store, nil, true)
	if err := svc.Delete(context.Background(), "alice", trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.GetTrip(trip.ID) != nil {
		t.Error("trip should be gone")
	}
	if positions := store.PositionsFor(trip.ID); positions != nil {
		t.Errorf("expected no surviving positions, got %d", len(positions))
	}

	if err := svc.Delete(context.Background(), "alice", trip.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

// ──────────────────────────────────────────────
// LISTING AND PAGINATION
// ──────────────────────────────────────────────

func seedTrips(store *MockTripStore, owner string, n int, tripType domain.TripType) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		store.AddTrip(&domain.Trip{
			OwnerID:   owner,
			Name:      "trip",
			Type:      tripType,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}, nil)
	}
}

func TestTripService_ListPaginatesNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	seedTrips(store, "alice", 15, domain.TripTypePersonal)
	seedTrips(store, "bob", 5, domain.TripTypePersonal)

	svc := service.NewTripService(store, nil, true)
	ctx := context.Background()

	first, err := svc.List(ctx, "alice", repository.ListQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Trips) != 10 {
		t.Fatalf("expected 10 trips on first page, got %d", len(first.Trips))
	}
	if first.NextCursor == "" {
		t.Fatal("expected a continuation cursor")
	}
	for i := 1; i < len(first.Trips); i++ {
		if first.Trips[i].CreatedAt.After(first.Trips[i-1].CreatedAt) {
			t.Fatal("page not ordered newest first")
		}
	}

	second, err := svc.List(ctx, "alice", repository.ListQuery{Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Trips) != 5 {
		t.Fatalf("expected 5 trips on second page, got %d", len(second.Trips))
	}

	// No overlap between pages, no foreign trips anywhere.
	seen := make(map[string]bool)
	for _, trip := range append(first.Trips, second.Trips...) {
		if trip.OwnerID != "alice" {
			t.Errorf("foreign trip %s leaked into listing", trip.ID)
		}
		if seen[trip.ID] {
			t.Errorf("trip %s returned on both pages", trip.ID)
		}
		seen[trip.ID] = true
	}
}

func TestTripService_ListFiltersByType(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	seedTrips(store, "alice", 4, domain.TripTypePersonal)
	seedTrips(store, "alice", 3, domain.TripTypeBusiness)

	svc := service.NewTripService(store, nil, true)
	page, err := svc.List(context.Background(), "alice", repository.ListQuery{Type: domain.TripTypeBusiness})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Trips) != 3 {
		t.Fatalf("expected 3 business trips, got %d", len(page.Trips))
	}
	for _, trip := range page.Trips {
		if trip.Type != domain.TripTypeBusiness {
			t.Errorf("trip %s has type %s", trip.ID, trip.Type)
		}
	}
}

func TestTripService_ListRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	svc := service.NewTripService(store, nil, true)
	ctx := context.Background()

	if _, err := svc.List(ctx, "alice", repository.ListQuery{Type: "motorcycle"}); !errors.Is(err, service.ErrInvalidTripType) {
		t.Errorf("expected ErrInvalidTripType, got %v", err)
	}
	if _, err := svc.List(ctx, "alice", repository.ListQuery{Cursor: "!!garbage!!"}); !errors.Is(err, repository.ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

// ──────────────────────────────────────────────
// DETAIL READS AND APPENDS
// ──────────────────────────────────────────────

func TestTripService_GetResolvesOwnerName(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	trip := &domain.Trip{OwnerID: "alice", Name: "ride", CreatedAt: time.Now()}
	store.AddTrip(trip, nil)
	store.SetOwnerName("alice", "Alice Doe")

	svc := service.NewTripService(store, nil, true)
	detail, err := svc.Get(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.OwnerName != "Alice Doe" {
		t.Errorf("expected owner name resolved, got %q", detail.OwnerName)
	}

	orphan := &domain.Trip{OwnerID: "ghost", Name: "ride", CreatedAt: time.Now()}
	store.AddTrip(orphan, nil)
	detail, err = svc.Get(context.Background(), orphan.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.OwnerName != "unknown user" {
		t.Errorf("expected fallback owner name, got %q", detail.OwnerName)
	}
}

func TestTripService_AppendPositionRestoresCount(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	trip := &domain.Trip{OwnerID: "alice", Name: "ride", CreatedAt: time.Now()}
	store.AddTrip(trip, []domain.Position{{Latitude: 1, Longitude: 1, Timestamp: "2024-03-01 09:00:00"}})

	svc := service.NewTripService(store, nil, true)
	count, err := svc.AppendPosition(context.Background(), "alice", trip.ID, domain.Position{Latitude: 2, Longitude: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2 after append, got %d", count)
	}
	if stored := store.GetTrip(trip.ID); stored.PositionsCount != 2 {
		t.Errorf("stored count %d diverged from child count", stored.PositionsCount)
	}
}

func TestTripService_AppendPositionRejectsBadCoordinates(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	trip := &domain.Trip{OwnerID: "alice", Name: "ride", CreatedAt: time.Now()}
	store.AddTrip(trip, nil)

	svc := service.NewTripService(store, nil, true)
	if _, err := svc.AppendPosition(context.Background(), "alice", trip.ID, domain.Position{Latitude: 91, Longitude: 0}); !errors.Is(err, service.ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
	if _, err := svc.AppendPosition(context.Background(), "alice", trip.ID, domain.Position{Latitude: 0, Longitude: -181}); !errors.Is(err, service.ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
}
