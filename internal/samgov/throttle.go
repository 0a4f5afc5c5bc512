package samgov

import (
	"context"
	"time"
)

// Throttle enforces a minimum delay between consecutive external calls.
// Calls are strictly sequential within one sync pass, so no locking is
// needed: this is a throttle, not a scheduler.
//
// The interval is measured from the previous call's completion (Mark), not
// from its start.
type Throttle struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewThrottle returns a Throttle with the given minimum interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous Mark. The first call returns immediately. The only failure mode
// is context cancellation.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.last.IsZero() {
		return nil
	}
	remaining := t.interval - t.now().Sub(t.last)
	if remaining <= 0 {
		return nil
	}
	return t.sleep(ctx, remaining)
}

// Mark records that an external call just returned.
func (t *Throttle) Mark() {
	t.last = t.now()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
