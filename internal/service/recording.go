package service

import (
	"context"
	"sync"
	"time"

	"triplog/internal/domain"
	"triplog/internal/recorder"
	"triplog/internal/redis"
)

// commitLockTTL bounds how long a crashed commit can block retries.
const commitLockTTL = 30 * time.Second

// RecordingService manages at most one recording session per acting user.
// Fixes reported over HTTP are pushed into the session's provider, so the
// state machine driven here is the same engine a client shell would embed.
type RecordingService struct {
	mu       sync.Mutex
	sessions map[string]*activeRecording

	trips    *TripService
	locks    redis.CommitLocker
	live     redis.LiveFixStore
	interval time.Duration
	now      func() time.Time
}

type activeRecording struct {
	session     *recorder.Session
	provider    *recorder.PushProvider
	description string
	tripType    domain.TripType
}

// RecordingOption configures a RecordingService.
type RecordingOption func(*RecordingService)

// WithSampleInterval overrides the sampling floor for new sessions.
func WithSampleInterval(d time.Duration) RecordingOption {
	return func(s *RecordingService) { s.interval = d }
}

// WithClock overrides the wall clock. Used by tests.
func WithClock(now func() time.Time) RecordingOption {
	return func(s *RecordingService) { s.now = now }
}

// NewRecordingService creates a RecordingService. locks and live may be nil
// to disable the commit lock and the live fix readout.
func NewRecordingService(trips *TripService, locks redis.CommitLocker, live redis.LiveFixStore, opts ...RecordingOption) *RecordingService {
	s := &RecordingService{
		sessions: make(map[string]*activeRecording),
		trips:    trips,
		locks:    locks,
		live:     live,
		interval: recorder.DefaultSampleInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRequest carries the metadata for a new recording.
type StartRequest struct {
	Name        string
	Description string
	Type        domain.TripType
}

// RecordingStatus is a snapshot of a user's session.
type RecordingStatus struct {
	Status    recorder.Status
	Name      string
	StartedAt time.Time
	Positions []domain.Position
}

// Start begins a recording for the acting user. Starting while already
// sampling is a no-op; a stopped or abandoned session is released and
// replaced, so stale positions never leak into the new one.
func (s *RecordingService) Start(ctx context.Context, actorID string, req StartRequest) (*RecordingStatus, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, ErrInvalidTripType
	}

	s.mu.Lock()
	if existing, ok := s.sessions[actorID]; ok {
		if existing.session.Status() == recorder.StatusSampling {
			status := snapshot(existing)
			s.mu.Unlock()
			return status, nil
		}
		existing.session.Close()
		delete(s.sessions, actorID)
	}

	provider := recorder.NewPushProvider()
	session := recorder.NewSession(provider,
		recorder.WithSampleInterval(s.interval),
		recorder.WithClock(s.now),
	)
	rec := &activeRecording{
		session:     session,
		provider:    provider,
		description: req.Description,
		tripType:    req.Type,
	}
	s.sessions[actorID] = rec
	s.mu.Unlock()

	if err := session.Start(ctx, req.Name); err != nil {
		session.Close()
		s.removeIfCurrent(actorID, rec)
		return nil, err
	}
	return snapshot(rec), nil
}

// removeIfCurrent drops the user's map entry only while it still points at
// rec. A session installed concurrently for the same user is never detached
// by another call's cleanup.
func (s *RecordingService) removeIfCurrent(actorID string, rec *activeRecording) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[actorID]; ok && current == rec {
		delete(s.sessions, actorID)
	}
}

// Fix delivers one client-reported location fix into the user's sampling
// session. Out-of-range coordinates are dropped and surfaced as a provider
// error; sampling continues.
func (s *RecordingService) Fix(ctx context.Context, actorID string, lat, lng float64) (*RecordingStatus, error) {
	rec, err := s.recording(actorID)
	if err != nil {
		return nil, err
	}
	if rec.session.Status() != recorder.StatusSampling {
		return nil, ErrNoActiveRecording
	}

	if !validCoordinates(lat, lng) {
		rec.provider.PushError(ErrInvalidPosition)
		return snapshot(rec), nil
	}

	before := len(rec.session.Positions())
	rec.provider.Push(recorder.Fix{Latitude: lat, Longitude: lng, Time: s.now()})

	positions := rec.session.Positions()
	if s.live != nil && len(positions) > before {
		latest := positions[len(positions)-1]
		_ = s.live.Update(ctx, actorID, redis.LiveFix{
			Latitude:  latest.Latitude,
			Longitude: latest.Longitude,
			Timestamp: latest.Timestamp,
		})
	}
	return snapshotPositions(rec, positions), nil
}

// Stop ends the user's sampling session; the buffer becomes the commit
// input.
func (s *RecordingService) Stop(ctx context.Context, actorID string) (*RecordingStatus, error) {
	rec, err := s.recording(actorID)
	if err != nil {
		return nil, err
	}
	if err := rec.session.Stop(); err != nil {
		return nil, err
	}
	if s.live != nil {
		_ = s.live.Remove(ctx, actorID)
	}
	return snapshot(rec), nil
}

// Reset idempotently clears the user's buffered positions regardless of
// session status. No-op when the user has no session.
func (s *RecordingService) Reset(ctx context.Context, actorID string) error {
	if actorID == "" {
		return ErrUnauthenticated
	}
	s.mu.Lock()
	rec, ok := s.sessions[actorID]
	s.mu.Unlock()
	if ok {
		rec.session.Reset()
	}
	return nil
}

// Status returns a snapshot of the user's session.
func (s *RecordingService) Status(ctx context.Context, actorID string) (*RecordingStatus, error) {
	rec, err := s.recording(actorID)
	if err != nil {
		return nil, err
	}
	return snapshot(rec), nil
}

// Live returns the user's most recent accepted fix, nil when none.
func (s *RecordingService) Live(ctx context.Context, actorID string) (*redis.LiveFix, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	if s.live == nil {
		return nil, nil
	}
	return s.live.Get(ctx, actorID)
}

// Commit persists the user's buffered session as a trip. Sampling is
// stopped first if still active. On success the session is discarded; on
// failure it is retained so the caller can retry without re-recording.
func (s *RecordingService) Commit(ctx context.Context, actorID string) (*domain.Trip, error) {
	rec, err := s.recording(actorID)
	if err != nil {
		return nil, err
	}

	if rec.session.Status() == recorder.StatusSampling {
		if err := rec.session.Stop(); err != nil {
			return nil, err
		}
		if s.live != nil {
			_ = s.live.Remove(ctx, actorID)
		}
	}

	if s.locks != nil {
		ok, err := s.locks.AcquireCommitLock(ctx, actorID, commitLockTTL)
		if err == nil && !ok {
			return nil, ErrCommitInProgress
		}
		if err == nil {
			defer func() { _ = s.locks.ReleaseCommitLock(ctx, actorID) }()
		}
	}

	trip, err := s.trips.Commit(ctx, actorID, CommitRequest{
		Name:        rec.session.Name(),
		Description: rec.description,
		Type:        rec.tripType,
		Positions:   rec.session.Positions(),
	})
	if err != nil {
		// Buffer retained for retry.
		return nil, err
	}

	rec.session.Close()
	s.removeIfCurrent(actorID, rec)
	return trip, nil
}

// Close releases every active session's provider subscription. Called on
// server shutdown; uncommitted buffers are lost, subscriptions are not.
func (s *RecordingService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for actorID, rec := range s.sessions {
		rec.session.Close()
		delete(s.sessions, actorID)
	}
}

func (s *RecordingService) recording(actorID string) (*activeRecording, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[actorID]
	if !ok {
		return nil, ErrNoActiveRecording
	}
	return rec, nil
}

func snapshot(rec *activeRecording) *RecordingStatus {
	return snapshotPositions(rec, rec.session.Positions())
}

func snapshotPositions(rec *activeRecording, positions []domain.Position) *RecordingStatus {
	return &RecordingStatus{
		Status:    rec.session.Status(),
		Name:      rec.session.Name(),
		StartedAt: rec.session.StartedAt(),
		Positions: positions,
	}
}
