package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadiness_WaitReturnsWhenReady(t *testing.T) {
	r := NewReadiness()
	clock := clockwork.NewFakeClock()

	done := make(chan error, 1)
	go func() { done <- r.Wait(context.Background(), clock, 5*time.Second, 100*time.Millisecond) }()

	r.set(true)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after ready")
	}
}

func TestReadiness_WaitGivesUpAtCeiling(t *testing.T) {
	r := NewReadiness()
	clock := clockwork.NewFakeClock()

	done := make(chan error, 1)
	go func() { done <- r.Wait(context.Background(), clock, 5*time.Second, 100*time.Millisecond) }()

	require.Eventually(t, func() bool {
		clock.Advance(100 * time.Millisecond)
		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrNotReady)
			return true
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)
	assert.False(t, r.IsReady())
}

func TestReadiness_ReArmsAfterDisconnect(t *testing.T) {
	r := NewReadiness()
	r.set(true)
	first := r.Done()
	r.set(false)
	second := r.Done()

	select {
	case <-first:
	default:
		t.Fatal("channel of the ready period should be closed")
	}
	select {
	case <-second:
		t.Fatal("new channel should be open while not ready")
	default:
	}
}
