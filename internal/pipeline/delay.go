package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DelayPolicy paces fetches against sources that enforce aggressive rate
// limits. A shared token bucket refills once per interval; the bucket
// starts drained so the first paced fetch after batch start already waits
// out whatever remains of the interval. Sources without the RateLimited
// flag are never delayed.
type DelayPolicy struct {
	interval time.Duration
	limiter  *rate.Limiter
}

func NewDelayPolicy(interval time.Duration) *DelayPolicy {
	if interval <= 0 {
		return &DelayPolicy{}
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow()
	return &DelayPolicy{interval: interval, limiter: limiter}
}

// Wait blocks until the rate-limited source may be fetched again. The
// orchestrator never calls this for the first line of a batch.
func (d *DelayPolicy) Wait(ctx context.Context, rawURL string) error {
	if d == nil || d.limiter == nil {
		return nil
	}
	if !MatchSource(rawURL).RateLimited {
		return nil
	}
	return d.limiter.Wait(ctx)
}
