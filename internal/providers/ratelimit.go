package providers

import (
	"context"
	"sync"
	"time"
)

const defaultRequestsPerMinute = 60

// RateLimiter is a token bucket sized in requests per minute.
// The bucket starts full so a short batch never waits.
type RateLimiter struct {
	mu sync.Mutex

	rpm        int
	tokens     float64
	lastRefill time.Time
	blockUntil time.Time

	consumed int64
	waited   time.Duration
	last429  time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	TokensAvailable   int           `json:"tokens_available"`
	TotalConsumed     int64         `json:"total_consumed"`
	TotalWaited       time.Duration `json:"total_waited"`
	Last429Time       time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter allowing rpm requests per minute.
// Non-positive values fall back to 60.
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	return &RateLimiter{
		rpm:        rpm,
		tokens:     float64(rpm),
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.refillLocked(now)

		var wait time.Duration
		switch {
		case now.Before(r.blockUntil):
			wait = r.blockUntil.Sub(now)
		case r.tokens >= 1:
			r.tokens--
			r.consumed++
			r.mu.Unlock()
			return nil
		default:
			wait = r.untilNextTokenLocked()
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.mu.Lock()
			r.waited += wait
			r.mu.Unlock()
		}
	}
}

// Record429 drains the bucket after the server pushed back. A positive
// retryAfter also holds every caller until it has elapsed.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.last429 = now
	r.tokens = 0
	if retryAfter > 0 {
		r.blockUntil = now.Add(retryAfter)
	}
}

// Status returns a snapshot of the limiter.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refillLocked(time.Now())
	return RateLimiterStatus{
		RequestsPerMinute: r.rpm,
		TokensAvailable:   int(r.tokens),
		TotalConsumed:     r.consumed,
		TotalWaited:       r.waited,
		Last429Time:       r.last429,
	}
}

func (r *RateLimiter) perSecond() float64 {
	return float64(r.rpm) / 60.0
}

func (r *RateLimiter) untilNextTokenLocked() time.Duration {
	missing := 1 - r.tokens
	return time.Duration(missing / r.perSecond() * float64(time.Second))
}

// refillLocked must be called with mu held.
func (r *RateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now
	r.tokens += elapsed * r.perSecond()
	if limit := float64(r.rpm); r.tokens > limit {
		r.tokens = limit
	}
}
