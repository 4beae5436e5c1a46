package redis

import (
	"context"
	"time"

	"triplog/internal/domain"
)

// TripCache defines the interface for trip read caching.
type TripCache interface {
	GetTripDetail(ctx context.Context, tripID string) (*domain.TripDetail, error)
	SetTripDetail(ctx context.Context, detail *domain.TripDetail) error
	InvalidateTrip(ctx context.Context, tripID string) error
}

// CommitLocker defines the interface for the per-user commit lock.
type CommitLocker interface {
	AcquireCommitLock(ctx context.Context, userID string, ttl time.Duration) (bool, error)
	ReleaseCommitLock(ctx context.Context, userID string) error
}

// LiveFixStore defines the interface for the live fix readout.
type LiveFixStore interface {
	Update(ctx context.Context, userID string, fix LiveFix) error
	Get(ctx context.Context, userID string) (*LiveFix, error)
	Remove(ctx context.Context, userID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ TripCache    = (*CacheStore)(nil)
	_ CommitLocker = (*LockStore)(nil)
	_ LiveFixStore = (*LiveStore)(nil)
)
