package application

import (
	"context"
	"time"

	"sheetsync-bridge/middleware/ratelimit/domain"
)

// ConcurrencyService concentrates the acquire/release rule with timeout,
// without knowing anything about HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tries to take a slot.
//   - With AcquireTimeout <= 0, it waits indefinitely (until ctx ends).
//   - With AcquireTimeout > 0, it waits at most the timeout.
//
// Returns (release, ok). When ok is false no slot was taken.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	return s.Pool.Acquire(acqCtx)
}
