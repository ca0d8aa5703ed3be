package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RateLimiter is a token bucket shared by every outbound lookup request.
// Long-run throughput is bounded by the refill rate while bursts of up to
// the bucket capacity complete immediately.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	last     time.Time
	clock    clockwork.Clock
}

// NewRateLimiter creates a limiter refilling at rps tokens/second with the
// given burst capacity. The bucket starts full. Non-positive parameters are
// clamped to 1.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return newRateLimiter(rps, burst, clockwork.NewRealClock())
}

// newRateLimiter allows tests to freeze time via a fake clock.
func newRateLimiter(rps float64, burst int, clock clockwork.Clock) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		tokens:   float64(burst),
		capacity: float64(burst),
		rate:     rps,
		last:     clock.Now(),
		clock:    clock,
	}
}

// Acquire blocks until one token is available or ctx is cancelled. It never
// exits without a token otherwise. Callers must not hold locks that a token
// producer might need; the limiter waits in short intervals rather than
// spinning.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		if l.tryAcquire() {
			return nil
		}

		interval := time.Duration(float64(time.Second) / (l.rate * 4))
		if interval < 10*time.Millisecond {
			interval = 10 * time.Millisecond
		}
		timer := l.clock.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}
	}
}

// tryAcquire refills elapsed*rate tokens up to capacity and consumes one if
// available.
func (l *RateLimiter) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
		l.tokens = min(l.capacity, l.tokens+elapsed*l.rate)
		l.last = now
	}
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}
