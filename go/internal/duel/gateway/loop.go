package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrLoopStopped is returned when work is posted to a loop that has exited.
var ErrLoopStopped = errors.New("event loop stopped")

// EventLoop runs every handler of a client on a single goroutine.
// Socket readers and timers never touch client state directly, they post
// a handler here and the loop runs handlers one at a time in FIFO order.
type EventLoop struct {
	inbox    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewEventLoop creates a loop whose inbox holds up to buffer pending handlers
func NewEventLoop(buffer int) *EventLoop {
	return &EventLoop{
		inbox: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn. It blocks while the inbox is full and returns false
// once the loop has stopped.
func (l *EventLoop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.inbox <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for its result.
func (l *EventLoop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	posted := l.Post(func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		result <- fn()
	})
	if !posted {
		return ErrLoopStopped
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// the handler may still have run right before the loop exited
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

// Run processes handlers until ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context) error {
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("event loop stopping")
			return ctx.Err()
		case fn := <-l.inbox:
			l.exec(fn)
		}
	}
}

// RunOnce runs exactly one pending handler, waiting for it until ctx is done.
func (l *EventLoop) RunOnce(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case fn := <-l.inbox:
		l.exec(fn)
		return true
	}
}

// Done is closed once Run has returned.
func (l *EventLoop) Done() <-chan struct{} {
	return l.done
}

func (l *EventLoop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// exec isolates a failing handler so later events still run.
func (l *EventLoop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("event handler panicked")
		}
	}()
	fn()
}
