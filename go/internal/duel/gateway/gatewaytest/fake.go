// Package gatewaytest provides in-memory transports for exercising the
// duel gateway without a network.
package gatewaytest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/duelclient/go/internal/duel/gateway"
)

// ErrRefused is what a failing FakeDialer returns
var ErrRefused = errors.New("connection refused")

// FakeConn is an in-memory socket. Frames pushed with Push are returned by
// ReadMessage in order; CloseWith and Fail end the read side.
type FakeConn struct {
	frames chan []byte
	errs   chan error
	done   chan struct{}

	mu        sync.Mutex
	written   [][]byte
	closed    bool
	closeOnce sync.Once
}

// NewFakeConn creates an open connection
func NewFakeConn() *FakeConn {
	return &FakeConn{
		frames: make(chan []byte, 64),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Push queues an inbound frame
func (c *FakeConn) Push(frame []byte) {
	c.frames <- frame
}

// PushJSON marshals v and queues it as an inbound frame
func (c *FakeConn) PushJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Push(data)
	return nil
}

// CloseWith makes the peer close the socket with the given code
func (c *FakeConn) CloseWith(code int) {
	c.errs <- &websocket.CloseError{Code: code, Text: "closed by peer"}
}

// Fail makes the read side fail with a transport error
func (c *FakeConn) Fail(err error) {
	c.errs <- err
}

// ReadMessage implements gateway.Conn
func (c *FakeConn) ReadMessage() (int, []byte, error) {
	// queued frames are delivered before a pending close
	select {
	case frame := <-c.frames:
		return websocket.TextMessage, frame, nil
	default:
	}

	select {
	case frame := <-c.frames:
		return websocket.TextMessage, frame, nil
	case err := <-c.errs:
		return 0, nil, err
	case <-c.done:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseAbnormalClosure, Text: "use of closed connection"}
	}
}

// WriteMessage implements gateway.Conn
func (c *FakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

// WriteControl implements gateway.Conn
func (c *FakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

// SetWriteDeadline implements gateway.Conn
func (c *FakeConn) SetWriteDeadline(t time.Time) error {
	return nil
}

// Close implements gateway.Conn
func (c *FakeConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

// Closed reports whether Close was called
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Written returns every message written so far
func (c *FakeConn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

// WrittenOfType returns the written messages whose "type" field equals t
func (c *FakeConn) WrittenOfType(t string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, raw := range c.Written() {
		var msg map[string]interface{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg["type"] == t {
			out = append(out, msg)
		}
	}
	return out
}

// FakeDialer hands out FakeConns and records every attempt
type FakeDialer struct {
	mu       sync.Mutex
	conns    []*FakeConn
	urls     []string
	failNext int
}

// NewFakeDialer creates a dialer whose attempts succeed
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{}
}

// FailNext makes the next n dials fail with ErrRefused
func (d *FakeDialer) FailNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = n
}

// Dial implements gateway.Dialer
func (d *FakeDialer) Dial(ctx context.Context, url string) (gateway.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = append(d.urls, url)
	if d.failNext > 0 {
		d.failNext--
		return nil, ErrRefused
	}
	conn := NewFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

// Dials returns the number of attempts, failed ones included
func (d *FakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

// URLs returns every dialed URL
func (d *FakeDialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// Conns returns the connections opened so far
func (d *FakeDialer) Conns() []*FakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeConn(nil), d.conns...)
}

// Last returns the most recently opened connection, nil if none
func (d *FakeDialer) Last() *FakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}
