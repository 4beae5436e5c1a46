package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const liveFixPrefix = "recording:live:"

// LiveFixTTL expires stale live fixes; an active recording refreshes the key
// at least every sample interval.
const LiveFixTTL = 30 * time.Second

// LiveFix is the most recent accepted position of an active recording.
type LiveFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// LiveStore publishes the latest accepted fix per recording user so the
// shell can show a live readout without touching the trip store.
type LiveStore struct {
	client *redis.Client
}

// NewLiveStore creates a new LiveStore.
func NewLiveStore(client *redis.Client) *LiveStore {
	return &LiveStore{client: client}
}

// Update stores the user's latest accepted fix.
func (s *LiveStore) Update(ctx context.Context, userID string, fix LiveFix) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, liveFixPrefix+userID, data, LiveFixTTL).Err()
}

// Get retrieves the user's latest accepted fix. Returns nil when there is
// no live recording.
func (s *LiveStore) Get(ctx context.Context, userID string) (*LiveFix, error) {
	data, err := s.client.Get(ctx, liveFixPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var fix LiveFix
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, err
	}
	return &fix, nil
}

// Remove clears the user's live fix when a recording stops.
func (s *LiveStore) Remove(ctx context.Context, userID string) error {
	return s.client.Del(ctx, liveFixPrefix+userID).Err()
}
