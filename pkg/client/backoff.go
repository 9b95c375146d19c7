package client

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// BackoffStrategy yields the wait before retry number attempt (0-based).
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff grows the wait by Factor per attempt, capped at Max,
// then spreads it by +/- Jitter (0.0 to 1.0).
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64
}

// DefaultBackoff is used for reads: 100ms doubling up to 2s, 20% jitter.
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:   100 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

func (b *ExponentialBackoff) Next(attempt int) time.Duration {
	delay := float64(b.Base)
	for i := 0; i < attempt; i++ {
		delay *= b.Factor
		if delay >= float64(b.Max) {
			delay = float64(b.Max)
			break
		}
	}
	if b.Jitter > 0 {
		delay *= 1 + (rand.Float64()*2-1)*b.Jitter
	}
	return max(time.Duration(delay), 0)
}

// noBackoff retries immediately. Used in tests.
type noBackoff struct{}

func (noBackoff) Next(int) time.Duration { return 0 }

// retryable reports whether a GET answered with status is worth re-sending.
// Transport errors are always retried by the caller.
func retryable(status int) bool {
	return status >= 500 && status != http.StatusNotImplemented
}

// retryDelay honors a longer Retry-After (seconds), capped at the
// exponential strategy's Max.
func retryDelay(b BackoffStrategy, attempt int, resp *http.Response) time.Duration {
	d := b.Next(attempt)
	if resp == nil {
		return d
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
		if ra := time.Duration(secs) * time.Second; ra > d {
			if eb, ok := b.(*ExponentialBackoff); ok && ra > eb.Max {
				return eb.Max
			}
			return ra
		}
	}
	return d
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
