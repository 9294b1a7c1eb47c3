package generation

import (
	"sync"
	"time"
)

const pollLimitWindow = 1 * time.Second

// PollLimiter throttles status polling to one request per user+resource per
// window. Clients that poll faster get a 429 with a Retry-After hint.
type PollLimiter struct {
	mu      sync.Mutex
	lastHit map[string]time.Time
	now     func() time.Time
	window  time.Duration
}

func NewPollLimiter(window time.Duration, now func() time.Time) *PollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &PollLimiter{
		lastHit: make(map[string]time.Time),
		now:     now,
		window:  window,
	}
}

func (l *PollLimiter) Allow(userID, resourceID string) bool {
	if l == nil {
		return true
	}
	key := userID + "|" + resourceID
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastHit[key]; ok {
		if now.Sub(last) < l.window {
			return false
		}
	}
	if len(l.lastHit) > 10000 {
		for k, last := range l.lastHit {
			if now.Sub(last) >= l.window {
				delete(l.lastHit, k)
			}
		}
	}
	l.lastHit[key] = now
	return true
}

func (l *PollLimiter) RetryAfterSeconds() int {
	if l == nil {
		return int(pollLimitWindow.Seconds())
	}
	return int(l.window.Seconds())
}
