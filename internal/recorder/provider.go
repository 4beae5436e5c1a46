package recorder

import (
	"context"
	"sync"
	"time"
)

// Fix is one raw location sample from a provider.
type Fix struct {
	Latitude  float64
	Longitude float64
	Time      time.Time
}

// SubscribeOptions tune a provider subscription. They are hints; the
// throttle enforces the hard sampling floor regardless of what the provider
// delivers.
type SubscribeOptions struct {
	MinInterval  time.Duration
	HighAccuracy bool
}

// FixFunc receives fixes and provider errors from an active subscription.
// A non-nil err means the fix is unusable and must be dropped.
type FixFunc func(fix Fix, err error)

// Subscription is an owned handle on an active fix stream.
type Subscription interface {
	Unsubscribe()
}

// LocationProvider is the external location capability: permission request,
// service check, and a fix stream. All calls are fallible.
type LocationProvider interface {
	RequestPermission(ctx context.Context) (bool, error)
	ServiceEnabled(ctx context.Context) (bool, error)
	Subscribe(ctx context.Context, opts SubscribeOptions, fn FixFunc) (Subscription, error)
}

// PushProvider is a LocationProvider fed by explicit Push calls. The HTTP
// recording surface uses it to deliver client-reported fixes into a session;
// tests use it the same way. Permission and service checks always pass.
type PushProvider struct {
	mu sync.Mutex
	fn FixFunc
}

// NewPushProvider creates an empty push provider.
func NewPushProvider() *PushProvider {
	return &PushProvider{}
}

// RequestPermission always grants.
func (p *PushProvider) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

// ServiceEnabled always reports enabled.
func (p *PushProvider) ServiceEnabled(ctx context.Context) (bool, error) {
	return true, nil
}

// Subscribe registers fn as the single active consumer.
func (p *PushProvider) Subscribe(ctx context.Context, opts SubscribeOptions, fn FixFunc) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn = fn
	return &pushSubscription{provider: p}, nil
}

// Push delivers a fix to the current subscriber, if any.
func (p *PushProvider) Push(fix Fix) {
	p.mu.Lock()
	fn := p.fn
	p.mu.Unlock()
	if fn != nil {
		fn(fix, nil)
	}
}

// PushError delivers a provider error to the current subscriber, if any.
func (p *PushProvider) PushError(err error) {
	p.mu.Lock()
	fn := p.fn
	p.mu.Unlock()
	if fn != nil {
		fn(Fix{}, err)
	}
}

type pushSubscription struct {
	provider *PushProvider
	once     sync.Once
}

func (s *pushSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.provider.mu.Lock()
		s.provider.fn = nil
		s.provider.mu.Unlock()
	})
}

var _ LocationProvider = (*PushProvider)(nil)
