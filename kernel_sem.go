// kernel_sem.go - Counting semaphores for the kernel layers

package main

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore is a counting semaphore with the classic P/V operations,
// backed by x/sync's weighted semaphore. The service layer uses count 1
// instances as per-unit write locks held only across short, non-blocking
// critical sections.
type Semaphore struct {
	w *semaphore.Weighted
}

// NewSemaphore creates a semaphore whose count starts at count.
func NewSemaphore(count int) *Semaphore {
	return &Semaphore{w: semaphore.NewWeighted(int64(count))}
}

// P acquires one unit, blocking until available or ctx is done.
func (s *Semaphore) P(ctx context.Context) error {
	return s.w.Acquire(ctx, 1)
}

// V releases one unit. Every V must pair with an earlier P.
func (s *Semaphore) V() {
	s.w.Release(1)
}
