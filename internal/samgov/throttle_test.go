package samgov

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock drives a Throttle without real sleeping.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	cancel bool
}

func newThrottleWithClock(interval time.Duration) (*Throttle, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC)}
	t := NewThrottle(interval)
	t.now = func() time.Time { return clk.now }
	t.sleep = func(_ context.Context, d time.Duration) error {
		if clk.cancel {
			return context.Canceled
		}
		clk.slept = append(clk.slept, d)
		clk.now = clk.now.Add(d)
		return nil
	}
	return t, clk
}

func TestThrottleFirstCallImmediate(t *testing.T) {
	th, clk := newThrottleWithClock(2 * time.Second)

	if err := th.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(clk.slept) != 0 {
		t.Fatalf("slept %v, want no sleep on the first call", clk.slept)
	}
}

func TestThrottleEnforcesInterval(t *testing.T) {
	th, clk := newThrottleWithClock(2 * time.Second)

	th.Mark()
	clk.now = clk.now.Add(500 * time.Millisecond)

	if err := th.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(clk.slept) != 1 || clk.slept[0] != 1500*time.Millisecond {
		t.Fatalf("slept %v, want exactly the 1.5s remainder", clk.slept)
	}
}

func TestThrottleSkipsSleepWhenElapsed(t *testing.T) {
	th, clk := newThrottleWithClock(2 * time.Second)

	th.Mark()
	clk.now = clk.now.Add(3 * time.Second)

	if err := th.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(clk.slept) != 0 {
		t.Fatalf("slept %v, want none after the interval elapsed", clk.slept)
	}
}

func TestThrottleIntervalFromMark(t *testing.T) {
	// The spacing is measured from Mark, not from the previous Wait.
	th, clk := newThrottleWithClock(2 * time.Second)

	th.Mark()
	clk.now = clk.now.Add(1 * time.Second)
	th.Mark() // a retry returned; the clock restarts here
	clk.now = clk.now.Add(1 * time.Second)

	if err := th.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(clk.slept) != 1 || clk.slept[0] != 1*time.Second {
		t.Fatalf("slept %v, want 1s measured from the second Mark", clk.slept)
	}
}

func TestThrottleCancellation(t *testing.T) {
	th, clk := newThrottleWithClock(2 * time.Second)

	th.Mark()
	clk.cancel = true

	if err := th.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSleepCtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepCtx(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
