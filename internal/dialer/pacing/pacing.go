// Package pacing bounds how fast and how concurrently the dialer is allowed
// to place outbound calls.
package pacing

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"dialer_backend/platform/config"

	"golang.org/x/sync/semaphore"
)

// Controller gates concurrent dispatches behind a weighted semaphore and
// produces randomized inter-call delays so outbound traffic never looks like
// a burst dialer to the provider.
type Controller struct {
	sem      *semaphore.Weighted
	minDelay time.Duration
	maxDelay time.Duration
	active   atomic.Int64
}

// New builds a Controller from dialer configuration.
func New(cfg config.DialerConfig) *Controller {
	return &Controller{
		sem:      semaphore.NewWeighted(int64(cfg.GetMaxConcurrentCalls())),
		minDelay: cfg.GetPacingMinDelay(),
		maxDelay: cfg.GetPacingMaxDelay(),
	}
}

// Acquire blocks until a dispatch slot is free or the context is cancelled.
func (c *Controller) Acquire(ctx context.Context) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.active.Add(1)
	return nil
}

// Release frees a dispatch slot. Every successful Acquire must be paired
// with exactly one Release on all exit paths.
func (c *Controller) Release() {
	c.active.Add(-1)
	c.sem.Release(1)
}

// ActiveCalls returns the number of dispatches currently holding a slot.
func (c *Controller) ActiveCalls() int {
	return int(c.active.Load())
}

// RandomDelay samples a uniform delay in [minDelay, maxDelay].
func (c *Controller) RandomDelay() time.Duration {
	if c.maxDelay <= c.minDelay {
		return c.minDelay
	}
	return c.minDelay + rand.N(c.maxDelay-c.minDelay)
}

// Wait sleeps for the given duration, returning early if the context is
// cancelled.
func (c *Controller) Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
