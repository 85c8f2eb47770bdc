package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrNotReady is returned when the connection did not open before the deadline.
var ErrNotReady = errors.New("connection not ready")

// Readiness is a "connection became ready" notification that can be
// awaited from any goroutine.
type Readiness struct {
	mu    sync.Mutex
	ready bool
	ch    chan struct{}
}

// NewReadiness creates a notification in the not-ready state
func NewReadiness() *Readiness {
	return &Readiness{ch: make(chan struct{})}
}

// IsReady reports the current value
func (r *Readiness) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Done returns a channel closed when the connection is (or becomes) ready.
func (r *Readiness) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch
}

func (r *Readiness) set(ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case ready && !r.ready:
		close(r.ch)
	case !ready && r.ready:
		r.ch = make(chan struct{})
	}
	r.ready = ready
}

// Wait blocks until the connection is ready, ceiling elapses or ctx is done.
// The state is re-checked every poll interval as well.
func (r *Readiness) Wait(ctx context.Context, clock clockwork.Clock, ceiling, poll time.Duration) error {
	if r.IsReady() {
		return nil
	}

	deadline := clock.NewTimer(ceiling)
	defer deadline.Stop()
	ticker := clock.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-r.Done():
			return nil
		case <-ticker.Chan():
			if r.IsReady() {
				return nil
			}
		case <-deadline.Chan():
			return ErrNotReady
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
