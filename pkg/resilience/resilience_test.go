package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if b.State() != Open {
		t.Errorf("state = %v, want open", b.State())
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	clock := time.Unix(0, 0)
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return clock }

	_ = b.Do(func() error { return errBoom })
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected open before cooldown, got %v", err)
	}

	clock = clock.Add(2 * time.Second)
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("state after probe success = %v, want closed", b.State())
	}
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	clock := time.Unix(0, 0)
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return clock }

	_ = b.Do(func() error { return errBoom })
	clock = clock.Add(2 * time.Second)
	_ = b.Do(func() error { return errBoom })
	if b.State() != Open {
		t.Errorf("state = %v, want open after failed probe", b.State())
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	_ = b.Do(func() error { return errBoom })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return errBoom })
	if b.State() != Closed {
		t.Errorf("state = %v, want closed (failures interleaved with success)", b.State())
	}
}

func TestLimiterAllowsBurst(t *testing.T) {
	l := NewLimiter(1, 2)
	if !l.Allow() || !l.Allow() {
		t.Fatal("burst of 2 should be admitted immediately")
	}
	if l.Allow() {
		t.Error("third immediate call should be throttled")
	}
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.Allow()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("Wait should fail when the context expires first")
	}
}
