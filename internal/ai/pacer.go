package ai

import (
	"context"
	"sync"
	"time"

	"neurolearn-backend/internal/shared/metrics"
)

// Pacer spaces model calls so the process stays inside the provider's
// per-minute quota. Each call reserves the earliest slot that keeps at most
// maxPerWindow starts inside any sliding window and at least gap between
// consecutive starts, then sleeps until that slot.
type Pacer struct {
	maxPerWindow int
	window       time.Duration
	gap          time.Duration

	mu        sync.Mutex
	scheduled []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer builds a pacer. Non-positive maxPerWindow disables the window
// check; non-positive gap disables spacing.
func NewPacer(maxPerWindow int, window, gap time.Duration) *Pacer {
	if window <= 0 {
		window = time.Minute
	}
	return &Pacer{
		maxPerWindow: maxPerWindow,
		window:       window,
		gap:          gap,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// Wait blocks until the caller may start a model call. It returns early with
// the context error if ctx is done first.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	now := p.now()
	p.prune(now)

	fire := now
	if p.gap > 0 && len(p.scheduled) > 0 {
		if next := p.scheduled[len(p.scheduled)-1].Add(p.gap); next.After(fire) {
			fire = next
		}
	}
	if p.maxPerWindow > 0 && len(p.scheduled) >= p.maxPerWindow {
		if next := p.scheduled[len(p.scheduled)-p.maxPerWindow].Add(p.window); next.After(fire) {
			fire = next
		}
	}
	p.scheduled = append(p.scheduled, fire)
	p.mu.Unlock()

	wait := fire.Sub(now)
	if wait <= 0 {
		return nil
	}
	metrics.IncAIThrottleWait()
	if err := p.sleep(ctx, wait); err != nil {
		p.cancel(fire)
		return err
	}
	return nil
}

// prune drops reservations that no longer constrain any future slot. Callers
// hold p.mu.
func (p *Pacer) prune(now time.Time) {
	cutoff := now.Add(-p.window)
	i := 0
	for i < len(p.scheduled) && !p.scheduled[i].After(cutoff) {
		i++
	}
	if i > 0 {
		p.scheduled = append(p.scheduled[:0], p.scheduled[i:]...)
	}
}

// cancel releases a reservation whose caller gave up before firing.
func (p *Pacer) cancel(fire time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.scheduled) - 1; i >= 0; i-- {
		if p.scheduled[i].Equal(fire) {
			p.scheduled = append(p.scheduled[:i], p.scheduled[i+1:]...)
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
