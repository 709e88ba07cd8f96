package hub

import (
	"math/rand"
	"time"
)

// stubbed in tests so Connect retries don't sleep for real
var timeAfter = time.After

// Backoff is the reconnect schedule: exponential growth from Base, capped
// at Max, with full jitter, and a hard retry ceiling after which the
// caller gets ErrDisconnected instead of waiting forever.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

func DefaultBackoff() Backoff {
	return Backoff{
		Base:       500 * time.Millisecond,
		Max:        30 * time.Second,
		MaxRetries: 8,
	}
}

// Delay returns the sleep before retry number attempt (attempt >= 1).
// Full jitter: a uniform draw from [0, capped exponential].
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = DefaultBackoff().Base
	}
	max := b.Max
	if max <= 0 {
		max = DefaultBackoff().Max
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	if d > max {
		d = max
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func (b Backoff) maxRetries() int {
	if b.MaxRetries <= 0 {
		return DefaultBackoff().MaxRetries
	}
	return b.MaxRetries
}
