package recorder

import (
	"context"
	"strings"
	"sync"
	"time"

	"triplog/internal/domain"
)

// Status is the lifecycle state of a recording session.
type Status string

const (
	StatusIdle                 Status = "idle"
	StatusRequestingPermission Status = "requestingPermission"
	StatusSampling             Status = "sampling"
	StatusStopped              Status = "stopped"
)

// Session owns one recording: the provider subscription, the throttle, and
// the in-memory position buffer. Lifecycle is
// idle → requestingPermission → sampling → stopped; stopped is terminal for
// the instance, a new Session must be constructed to record again.
//
// The buffer lives only in memory until the commit protocol persists it.
// Discarding an unstarted or abandoned session never touches the store;
// surviving process death mid-session is out of scope.
type Session struct {
	mu       sync.Mutex
	provider LocationProvider
	throttle *Throttle
	interval time.Duration
	now      func() time.Time

	status    Status
	name      string
	buffer    []domain.Position
	startedAt time.Time
	sub       Subscription
	lastErr   error
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithSampleInterval overrides the minimum interval between accepted samples.
func WithSampleInterval(d time.Duration) Option {
	return func(s *Session) { s.interval = d }
}

// NewSession creates an idle session bound to the given provider.
func NewSession(provider LocationProvider, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		interval: DefaultSampleInterval,
		now:      time.Now,
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.throttle = NewThrottle(s.interval)
	return s
}

// Start transitions the session from idle to sampling. An empty trip name is
// a precondition violation and fails fast with no state change. Permission
// and service-enabled checks are mandatory gates; either failure aborts the
// transition and returns the session to idle with a distinct error. Start is
// a no-op while already sampling.
func (s *Session) Start(ctx context.Context, tripName string) error {
	if strings.TrimSpace(tripName) == "" {
		return ErrEmptyTripName
	}

	s.mu.Lock()
	switch s.status {
	case StatusSampling:
		s.mu.Unlock()
		return nil
	case StatusStopped:
		s.mu.Unlock()
		return ErrNotIdle
	case StatusRequestingPermission:
		s.mu.Unlock()
		return nil
	}
	s.status = StatusRequestingPermission
	s.mu.Unlock()

	granted, err := s.provider.RequestPermission(ctx)
	if err != nil || !granted {
		s.abortStart()
		return ErrPermissionDenied
	}

	enabled, err := s.provider.ServiceEnabled(ctx)
	if err != nil || !enabled {
		s.abortStart()
		return ErrServiceDisabled
	}

	s.mu.Lock()
	s.name = strings.TrimSpace(tripName)
	s.buffer = nil
	s.lastErr = nil
	s.startedAt = s.now()
	s.throttle.Reset()
	s.mu.Unlock()

	// The subscription callback may fire synchronously, so the lock must not
	// be held across Subscribe.
	sub, err := s.provider.Subscribe(ctx, SubscribeOptions{
		MinInterval:  s.interval,
		HighAccuracy: true,
	}, s.onFix)
	if err != nil {
		s.abortStart()
		return err
	}

	s.mu.Lock()
	s.sub = sub
	s.status = StatusSampling
	s.mu.Unlock()
	return nil
}

func (s *Session) abortStart() {
	s.mu.Lock()
	s.status = StatusIdle
	s.mu.Unlock()
}

// onFix receives every raw fix from the provider while subscribed. Accepted
// samples are appended to the buffer in arrival order; provider errors are
// retained for inspection but do not stop sampling.
func (s *Session) onFix(fix Fix, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusSampling {
		return
	}
	if err != nil {
		s.lastErr = err
		return
	}
	now := s.now()
	if !s.throttle.Accept(now) {
		return
	}
	s.buffer = append(s.buffer, domain.Position{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Timestamp: now.Format(domain.TimestampLayout),
	})
}

// Stop ends sampling and releases the provider subscription. Valid only
// while sampling. After Stop the buffer is immutable and is the canonical
// input to the commit protocol.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.status != StatusSampling {
		s.mu.Unlock()
		return ErrNotSampling
	}
	sub := s.sub
	s.sub = nil
	s.status = StatusStopped
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	return nil
}

// Reset clears the buffer and start time, idempotently, regardless of the
// current status. It guards against stale positions from an abandoned
// session leaking into a new one when the recording surface is re-entered.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = nil
	s.startedAt = time.Time{}
	s.lastErr = nil
	s.throttle.Reset()
}

// Close releases the provider subscription on any teardown path. Losing an
// uncommitted buffer is accepted; leaking the subscription is not. Close is
// safe to call in any state and more than once.
func (s *Session) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	if s.status == StatusSampling {
		s.status = StatusStopped
	}
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Name returns the trip name given to Start.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// StartedAt returns when sampling began, zero if it has not.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Positions returns a copy of the buffered positions in acceptance order.
func (s *Session) Positions() []domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Position, len(s.buffer))
	copy(out, s.buffer)
	return out
}

// LastError returns the most recent provider error seen while sampling.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
