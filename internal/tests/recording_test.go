package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"triplog/internal/domain"
	"triplog/internal/recorder"
	"triplog/internal/service"
)

// ──────────────────────────────────────────────
// RECORDING SESSIONS OVER HTTP-PUSHED FIXES
// ──────────────────────────────────────────────

// stepClock is a manually advanced wall clock shared across goroutines.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRecordingFixture(store *MockTripStore) (*service.RecordingService, *stepClock) {
	clock := newStepClock()
	trips := service.NewTripService(store, nil, true)
	recordings := service.NewRecordingService(trips, nil, nil, service.WithClock(clock.Now))
	return recordings, clock
}

func TestRecording_FullLifecycle(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	recordings, clock := newRecordingFixture(store)
	ctx := context.Background()

	status, err := recordings.Start(ctx, "alice", service.StartRequest{
		Name:        "morning commute",
		Description: "office run",
		Type:        domain.TripTypeBusiness,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != recorder.StatusSampling {
		t.Fatalf("expected sampling, got %s", status.Status)
	}

	// Three fixes five seconds apart, one squeezed in between.
	for i := 0; i < 3; i++ {
		if _, err := recordings.Fix(ctx, "alice", 48.0+float64(i), 11.0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		clock.Advance(2 * time.Second)
		if _, err := recordings.Fix(ctx, "alice", 99.0, 99.0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		clock.Advance(3 * time.Second)
	}

	status, err = recordings.Status(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status.Positions) != 3 {
		t.Fatalf("expected 3 throttled positions, got %d", len(status.Positions))
	}

	if _, err := recordings.Stop(ctx, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trip, err := recordings.Commit(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Name != "morning commute" || trip.Type != domain.TripTypeBusiness {
		t.Errorf("trip metadata lost in commit: %+v", trip)
	}
	if trip.PositionsCount != 3 {
		t.Errorf("expected positionsCount 3, got %d", trip.PositionsCount)
	}

	// The session is gone once committed.
	if _, err := recordings.Status(ctx, "alice"); !errors.Is(err, service.ErrNoActiveRecording) {
		t.Errorf("expected ErrNoActiveRecording after commit, got %v", err)
	}
}

func TestRecording_CommitStopsSamplingFirst(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	recordings, _ := newRecordingFixture(store)
	ctx := context.Background()

	if _, err := recordings.Start(ctx, "alice", service.StartRequest{Name: "ride"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := recordings.Fix(ctx, "alice", 48.1, 11.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Commit without an explicit Stop.
	trip, err := recordings.Commit(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.PositionsCount != 1 {
		t.Errorf("expected 1 position, got %d", trip.PositionsCount)
	}
}

func TestRecording_FailedCommitRetainsBufferForRetry(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	recordings, _ := newRecordingFixture(store)
	ctx := context.Background()

	if _, err := recordings.Start(ctx, "alice", service.StartRequest{Name: "ride"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := recordings.Fix(ctx, "alice", 48.1, 11.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.CreateTripError = errors.New("backend down")
	if _, err := recordings.Commit(ctx, "alice"); err == nil {
		t.Fatal("expected commit to fail")
	}

	// Buffer survives the failure; a retry succeeds without re-recording.
	status, err := recordings.Status(ctx, "alice")
	if err != nil {
		t.Fatalf("expected session retained after failed commit, got %v", err)
	}
	if len(status.Positions) != 1 {
		t.Fatalf("expected buffer retained, got %d positions", len(status.Positions))
	}

	store.CreateTripError = nil
	trip, err := recordings.Commit(ctx, "alice")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if trip.PositionsCount != 1 {
		t.Errorf("expected 1 position, got %d", trip.PositionsCount)
	}
}

func TestRecording_CommitEmptyBufferFails(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	recordings, _ := newRecordingFixture(store)
	ctx := context.Background()

	if _, err := recordings.Start(ctx, "alice", service.StartRequest{Name: "ride"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := recordings.Commit(ctx, "alice"); !errors.Is(err, service.ErrNothingToSave) {
		t.Errorf("expected ErrNothingToSave, got %v", err)
	}
}

func TestRecording_ConcurrentCommitBlockedByLock(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	clock := newStepClock()
	locks := NewMockCommitLocker()
	trips := service.NewTripService(store, nil, true)
	recordings := service.NewRecordingService(trips, locks, nil, service.WithClock(clock.Now))
	ctx := context.Background()

	if _, err := recordings.Start(ctx, "alice", service.StartRequest{Name: "ride"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := recordings.Fix(ctx, "alice", 48.1, 11.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	locks.Hold("alice")
	if _, err := recordings.Commit(ctx, "alice"); !errors.Is(err, service.ErrCommitInProgress) {
		t.Fatalf("expected ErrCommitInProgress, got %v", err)
	}

	_ = locks.ReleaseCommitLock(ctx, "alice")
	if _, err := recordings.Commit(ctx, "alice"); err != nil {
		t.Fatalf("commit after lock release failed: %v", err)
	}
}

func TestRecording_LiveFixTracksLatestPosition(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	clock := newStepClock()
	live := NewMockLiveStore()
	trips := service.NewTripService(store, nil, true)
	recordings := service.NewRecordingService(trips, nil, live, service.WithClock(clock.Now))
	ctx := context.Background()

	if _, err := recordings.Start(ctx, "alice", service.StartRequest{Name: "ride"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := recordings.Fix(ctx, "alice", 48.1, 11.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(5 * time.Second)
	if _, err := recordings.Fix(ctx, "alice", 48.2, 11.6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fix, err := recordings.Live(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fix == nil {
		t.Fatal("expected a live fix")
	}
	if fix.Latitude != 48.2 || fix.Longitude != 11.6 {
		t.Errorf("live fix not the latest position: %+v", fix)
	}

	// Stopping removes the live readout.
	if _, err := recordings.Stop(ctx, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fix, err = recordings.Live(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fix != nil {
		t.Errorf("expected live fix removed after stop, got %+v", fix)
	}
}

func TestRecording_InvalidFixDroppedWithoutStoppingSampling(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	recordings, clock := newRecordingFixture(store)
	ctx := context.Background()

	if _, err := recordings.Start(ctx, "alice", service.StartRequest{Name: "ride"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := recordings.Fix(ctx, "alice", 123.0, 11.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status.Positions) != 0 {
		t.Errorf("out-of-range fix must not be buffered, got %d positions", len(status.Positions))
	}
	if status.Status != recorder.StatusSampling {
		t.Errorf("bad fix must not stop sampling, got %s", status.Status)
	}

	clock.Advance(5 * time.Second)
	status, err = recordings.Fix(ctx, "alice", 48.1, 11.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status.Positions) != 1 {
		t.Errorf("expected sampling to continue, got %d positions", len(status.Positions))
	}
}

func TestRecording_FixWithoutSessionFails(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	recordings, _ := newRecordingFixture(store)
	ctx := context.Background()

	if _, err := recordings.Fix(ctx, "alice", 48.1, 11.5); !errors.Is(err, service.ErrNoActiveRecording) {
		t.Errorf("expected ErrNoActiveRecording, got %v", err)
	}
	if _, err := recordings.Stop(ctx, "alice"); !errors.Is(err, service.ErrNoActiveRecording) {
		t.Errorf("expected ErrNoActiveRecording, got %v", err)
	}
	if err := recordings.Reset(ctx, "alice"); err != nil {
		t.Errorf("reset without session should be a no-op, got %v", err)
	}
}

func TestRecording_StartReplacesAbandonedSession(t *testing.T) {
	t.Parallel()

	store := NewMockTripStore()
	recordings, _ := newRecordingFixture(store)
	ctx := context.Background()

	if _, err := recordings.Start(ctx, "alice", service.StartRequest{Name: "first"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := recordings.Fix(ctx, "alice", 48.1, 11.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := recordings.Stop(ctx, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Starting again discards the stopped session and its buffer.
	status, err := recordings.Start(ctx, "alice", service.StartRequest{Name: "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Name != "second" {
		t.Errorf("expected replacement session, got %q", status.Name)
	}
	if len(status.Positions) != 0 {
		t.Errorf("stale positions leaked into the new session: %d", len(status.Positions))
	}
}
