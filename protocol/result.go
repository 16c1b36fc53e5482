package protocol

import (
	"context"
	"sync"
)

// Result is a single-assignment cell resolved with either success (nil) or
// an error. Only the first Resolve takes effect; later calls are no-ops.
// A fresh pair of Results is allocated for every connection attempt.
type Result struct {
	mu   sync.Mutex
	done chan struct{}
	err  error
	set  bool
}

// NewResult returns an unresolved Result.
func NewResult() *Result {
	return &Result{done: make(chan struct{})}
}

// Resolve sets the outcome. It returns false if the Result was already resolved.
func (r *Result) Resolve(err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.set {
		return false
	}
	r.set = true
	r.err = err
	close(r.done)
	return true
}

// Done is closed once the Result is resolved.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Resolved reports whether Resolve has been called.
func (r *Result) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set
}

// Err returns the outcome, nil while unresolved or when resolved successfully.
func (r *Result) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Wait blocks until the Result is resolved or ctx is done.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
