package pool

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// RetryStrategy decides whether a failed connect attempt should be retried
// and after how long. It is consulted only around the transport-level dial
// step, never around command execution or a CommandFailed result: a
// transient dial failure is worth retrying, a logical command failure is
// not.
type RetryStrategy interface {
	// Next returns the delay before attempt number retry (0-based), or
	// giveUp true if no further attempts should be made.
	Next(retry int) (delay time.Duration, giveUp bool)
}

// NoRetry never retries; it is the manager's default.
type NoRetry struct{}

func (NoRetry) Next(retry int) (time.Duration, bool) { return 0, true }

// ExponentialBackoff doubles the delay on each attempt, capped at MaxDelay,
// with +/-10% jitter.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int
}

// NewExponentialBackoff returns a strategy with conservative defaults.
func NewExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{BaseDelay: 100 * time.Millisecond, MaxDelay: 10 * time.Second, MaxRetries: 5}
}

func (r *ExponentialBackoff) Next(retry int) (time.Duration, bool) {
	if retry >= r.MaxRetries {
		return 0, true
	}
	delay := time.Duration(float64(r.BaseDelay) * math.Pow(2, float64(retry)))
	if delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	jitterMax := int64(float64(delay) * 0.1)
	if jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax*2)); err == nil {
			delay += time.Duration(n.Int64() - jitterMax)
		}
	}
	return delay, false
}

// LinearBackoff waits a constant delay between attempts.
type LinearBackoff struct {
	Delay      time.Duration
	MaxRetries int
}

func NewLinearBackoff(delay time.Duration, maxRetries int) *LinearBackoff {
	return &LinearBackoff{Delay: delay, MaxRetries: maxRetries}
}

func (r *LinearBackoff) Next(retry int) (time.Duration, bool) {
	if retry >= r.MaxRetries {
		return 0, true
	}
	return r.Delay, false
}
