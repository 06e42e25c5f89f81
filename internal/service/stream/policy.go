package stream

import (
	"math"
	"math/rand/v2"
	"time"
)

// Delays never go below this floor so a zero or negative jittered delay
// cannot produce a busy reconnect loop.
const minRetryDelay = 100 * time.Millisecond

// Policy computes retry delays with exponential backoff and jitter and
// enforces the retry ceiling. Jitter exists to desynchronize reconnection
// storms when many clients lose connectivity at once.
type Policy struct {
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterRatio       float64
	MaxRetries        int

	// uniform overrides the randomness source in tests.
	uniform func() float64
}

// NewPolicy derives a policy from a stream config.
func NewPolicy(cfg Config) Policy {
	return Policy{
		InitialDelay:      cfg.InitialDelay,
		MaxDelay:          cfg.MaxDelay,
		BackoffMultiplier: cfg.BackoffMultiplier,
		JitterRatio:       cfg.JitterRatio,
		MaxRetries:        cfg.MaxRetries,
	}
}

// Delay returns the jittered delay before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	raw := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if raw > float64(p.MaxDelay) {
		raw = float64(p.MaxDelay)
	}

	uniform := p.uniform
	if uniform == nil {
		uniform = rand.Float64
	}
	jitter := raw * p.JitterRatio * (uniform() - 0.5)

	d := time.Duration(raw + jitter)
	if d < minRetryDelay {
		d = minRetryDelay
	}
	return d
}

// Exhausted reports whether attempt has reached the retry ceiling.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxRetries
}
