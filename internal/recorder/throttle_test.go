package recorder

import (
	"testing"
	"time"
)

func TestThrottle_FirstFixAlwaysAccepted(t *testing.T) {
	t.Parallel()

	th := NewThrottle(5 * time.Second)
	if !th.Accept(time.Unix(100, 0)) {
		t.Error("first fix should be accepted unconditionally")
	}
}

func TestThrottle_RejectsWithinInterval(t *testing.T) {
	t.Parallel()

	th := NewThrottle(5 * time.Second)
	base := time.Unix(100, 0)

	if !th.Accept(base) {
		t.Fatal("first fix should be accepted")
	}
	if th.Accept(base.Add(2 * time.Second)) {
		t.Error("fix 2s after acceptance should be rejected")
	}
	if th.Accept(base.Add(4999 * time.Millisecond)) {
		t.Error("fix 4.999s after acceptance should be rejected")
	}
	if !th.Accept(base.Add(5 * time.Second)) {
		t.Error("fix exactly 5s after acceptance should be accepted")
	}
}

func TestThrottle_RejectionHasNoSideEffects(t *testing.T) {
	t.Parallel()

	th := NewThrottle(5 * time.Second)
	base := time.Unix(100, 0)

	th.Accept(base)
	// Burst of rejected fixes must not push the acceptance window forward.
	th.Accept(base.Add(3 * time.Second))
	th.Accept(base.Add(4 * time.Second))

	if !th.Accept(base.Add(5 * time.Second)) {
		t.Error("rejections should not delay the next acceptance")
	}
}

func TestThrottle_BoundsAcceptancesOverWindow(t *testing.T) {
	t.Parallel()

	th := NewThrottle(5 * time.Second)
	base := time.Unix(0, 0)

	// One fix every second for 60 seconds: at most floor(60/5)+1 accepted.
	accepted := 0
	for i := 0; i <= 60; i++ {
		if th.Accept(base.Add(time.Duration(i) * time.Second)) {
			accepted++
		}
	}
	if accepted != 13 {
		t.Errorf("expected 13 accepted samples over 60s, got %d", accepted)
	}
}

func TestThrottle_ResetAcceptsNextFix(t *testing.T) {
	t.Parallel()

	th := NewThrottle(5 * time.Second)
	base := time.Unix(100, 0)

	th.Accept(base)
	th.Reset()

	if !th.Accept(base.Add(time.Second)) {
		t.Error("fix after Reset should be accepted unconditionally")
	}
}

func TestThrottle_NonPositiveIntervalFallsBack(t *testing.T) {
	t.Parallel()

	th := NewThrottle(0)
	base := time.Unix(100, 0)

	th.Accept(base)
	if th.Accept(base.Add(time.Second)) {
		t.Error("zero interval should fall back to the default floor")
	}
	if !th.Accept(base.Add(DefaultSampleInterval)) {
		t.Error("fix after the default interval should be accepted")
	}
}
