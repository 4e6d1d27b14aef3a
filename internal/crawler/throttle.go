package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces out page renders per host so concurrent workers never
// hit one site faster than the configured interval.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

// NewThrottle allows one request per interval per host. A zero interval
// disables throttling.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to targetURL's host may proceed or ctx ends.
func (t *Throttle) Wait(ctx context.Context, targetURL string) error {
	u, err := url.Parse(targetURL)
	if err != nil {
		return fmt.Errorf("throttle %s: %w", targetURL, err)
	}

	return t.limiter(u.Host).Wait(ctx)
}

func (t *Throttle) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	limiter, exists := t.limiters[host]
	if !exists {
		limit := rate.Inf
		if t.interval > 0 {
			limit = rate.Every(t.interval)
		}
		// Burst 1: the first request goes through, the rest wait their turn.
		limiter = rate.NewLimiter(limit, 1)
		t.limiters[host] = limiter
	}
	return limiter
}
