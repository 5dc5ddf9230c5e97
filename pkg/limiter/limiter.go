// Package limiter provides a fixed-slot semaphore used to bound access to
// expensive shared resources such as the headless browser pool and the SMTP
// connection budget.
package limiter

import "context"

// Limiter bounds concurrent use of a resource to a fixed number of slots.
type Limiter struct {
	slots chan struct{}
}

// New returns a limiter with n slots. n values below 1 are clamped to 1.
func New(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or the context is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (l *Limiter) Release() {
	<-l.slots
}
