package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"triplog/internal/domain"
)

// CacheStore caches trip reads in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// TripDetailTTL bounds staleness of cached trip details. Trips change only
// through their owner, so a short TTL plus explicit invalidation is enough.
const TripDetailTTL = 60 * time.Second

const tripCachePrefix = "cache:trip:"

// GetTripDetail retrieves a cached trip detail. Returns nil on a cache miss.
func (s *CacheStore) GetTripDetail(ctx context.Context, tripID string) (*domain.TripDetail, error) {
	data, err := s.client.Get(ctx, tripCachePrefix+tripID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var detail domain.TripDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SetTripDetail stores a trip detail in cache.
func (s *CacheStore) SetTripDetail(ctx context.Context, detail *domain.TripDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tripCachePrefix+detail.Trip.ID, data, TripDetailTTL).Err()
}

// InvalidateTrip removes a trip from cache after any mutation.
func (s *CacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, tripCachePrefix+tripID).Err()
}
