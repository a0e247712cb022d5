package domain

import "time"

// Key identifies one bridge client (IP, API key header value, etc).
type Key string

// Limiter decides whether an action is allowed right now.
//
// The implementation may be a token bucket, leaky bucket, etc. The infra
// layer uses golang.org/x/time/rate.
type Limiter interface {
	Allow() bool
}

// LimiterStore hands out a limiter per key. Implementations may cache
// entries and expire idle ones.
type LimiterStore interface {
	Get(Key) Limiter
}

// Decision is the outcome of one allow/deny question.
type Decision struct {
	Allowed bool
	// RetryAfter is the value to return in the Retry-After header when
	// blocking. Zero means no recommendation.
	RetryAfter time.Duration
}
