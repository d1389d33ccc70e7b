// Package execx runs external commands and HTTP-bound work under a shared
// concurrency budget. Every external call the dashboard makes goes through
// a Pool permit and, for subprocesses, a Runner.
package execx

import (
	"context"
	"fmt"
)

// Pool is a counting permit pool bounding simultaneous external calls
// process-wide. A buffered channel acts as the semaphore: send to acquire,
// receive to release. Permits are held for the full lifetime of a call,
// including process reaping, so cleanup never races executor state.
type Pool struct {
	sem chan struct{}
}

// NewPool creates a pool with the given number of permits.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Acquire blocks until a permit is available or ctx expires.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for call slot: %w", ctx.Err())
	}
}

// Release returns a permit to the pool. Must pair with a successful Acquire.
func (p *Pool) Release() {
	<-p.sem
}

// Size returns the permit count.
func (p *Pool) Size() int {
	return cap(p.sem)
}
