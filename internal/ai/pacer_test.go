package ai

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock drives a Pacer deterministically. Sleeping advances the clock
// instead of waiting.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	return nil
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}

func newTestPacer(maxPerWindow int, window, gap time.Duration) (*Pacer, *fakeClock) {
	clock := newFakeClock()
	p := NewPacer(maxPerWindow, window, gap)
	p.now = clock.Now
	p.sleep = clock.Sleep
	return p, clock
}

func TestPacerFirstCallDoesNotWait(t *testing.T) {
	p, clock := newTestPacer(10, time.Minute, 4*time.Second)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if waits := clock.Waits(); len(waits) != 0 {
		t.Fatalf("first call waited %v, want no wait", waits)
	}
}

func TestPacerEnforcesGap(t *testing.T) {
	p, clock := newTestPacer(10, time.Minute, 4*time.Second)

	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}

	waits := clock.Waits()
	if len(waits) != 2 {
		t.Fatalf("got %d waits, want 2: %v", len(waits), waits)
	}
	for i, w := range waits {
		if w != 4*time.Second {
			t.Fatalf("wait %d = %v, want 4s", i, w)
		}
	}
}

func TestPacerEnforcesWindow(t *testing.T) {
	p, clock := newTestPacer(2, time.Minute, 0)

	for i := 0; i < 2; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if waits := clock.Waits(); len(waits) != 0 {
		t.Fatalf("first two calls waited %v, want no wait", waits)
	}

	// Third call must wait for the oldest slot to leave the window.
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	waits := clock.Waits()
	if len(waits) != 1 || waits[0] != time.Minute {
		t.Fatalf("third call waits = %v, want [1m]", waits)
	}
}

func TestPacerCombinesGapAndWindow(t *testing.T) {
	p, clock := newTestPacer(2, time.Minute, 4*time.Second)
	start := clock.Now()

	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}

	// Slots fire at 0s, 4s and 60s; the window bound dominates the gap for
	// the third call.
	if got := clock.Now().Sub(start); got != time.Minute {
		t.Fatalf("elapsed = %v, want 1m", got)
	}
	waits := clock.Waits()
	if len(waits) != 2 || waits[0] != 4*time.Second || waits[1] != 56*time.Second {
		t.Fatalf("waits = %v, want [4s 56s]", waits)
	}
}

func TestPacerCanceledWaitReleasesSlot(t *testing.T) {
	p, clock := newTestPacer(10, time.Minute, 10*time.Second)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// Simulate a caller canceled mid-sleep.
	p.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}
	if err := p.Wait(context.Background()); err != context.Canceled {
		t.Fatalf("Wait with canceled sleep = %v, want context.Canceled", err)
	}

	// The abandoned reservation must not push the next caller out further.
	p.sleep = clock.Sleep
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	waits := clock.Waits()
	if len(waits) != 1 || waits[0] != 10*time.Second {
		t.Fatalf("waits = %v, want [10s]", waits)
	}
}

func TestPacerPrunesExpiredSlots(t *testing.T) {
	p, clock := newTestPacer(2, time.Minute, 0)

	for i := 0; i < 2; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}

	clock.mu.Lock()
	clock.now = clock.now.Add(2 * time.Minute)
	clock.mu.Unlock()

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if waits := clock.Waits(); len(waits) != 0 {
		t.Fatalf("call after idle period waited %v, want no wait", waits)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.scheduled) != 1 {
		t.Fatalf("scheduled = %d entries, want 1 after pruning", len(p.scheduled))
	}
}

func TestPacerDisabledLimits(t *testing.T) {
	p, clock := newTestPacer(0, time.Minute, 0)

	for i := 0; i < 50; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if waits := clock.Waits(); len(waits) != 0 {
		t.Fatalf("disabled pacer waited %v, want no wait", waits)
	}
}
