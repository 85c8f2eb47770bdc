package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned by Send when the socket is not open.
// Messages are never queued, the caller has to resend once connected.
var ErrNotConnected = errors.New("not connected")

// ConnectionState is the lifecycle state of the duel socket
type ConnectionState string

const (
	StateDisconnected ConnectionState = "DISCONNECTED"
	StateConnecting   ConnectionState = "CONNECTING"
	StateConnected    ConnectionState = "CONNECTED"
	StateErrored      ConnectionState = "ERRORED"
)

// Conn is the part of *websocket.Conn the manager uses
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens the transport
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// ConnectionConfig holds configuration for the duel socket
type ConnectionConfig struct {
	URL             string
	ReconnectDelay  time.Duration
	DialTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
}

// DefaultConnectionConfig returns default socket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		URL:             "ws://localhost:11995/ws",
		ReconnectDelay:  3 * time.Second,
		DialTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageSize:  1 << 20, // snapshots carry the whole action log
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
	}
}

// WebsocketDialer dials with gorilla/websocket
type WebsocketDialer struct {
	dialer         *websocket.Dialer
	maxMessageSize int64
}

// NewWebsocketDialer creates a dialer from the connection config
func NewWebsocketDialer(config ConnectionConfig) *WebsocketDialer {
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.DialTimeout,
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
		},
		maxMessageSize: config.MaxMessageSize,
	}
}

// Dial opens a websocket connection to url
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	if d.maxMessageSize > 0 {
		conn.SetReadLimit(d.maxMessageSize)
	}
	return conn, nil
}

// ConnectionHandlers are the callbacks the manager invokes on the event loop
type ConnectionHandlers struct {
	OnStatus func(ConnectionState)
	OnOpen   func()
	OnFrame  func([]byte)
}

// ConnectionManager owns the duel socket: connect, reconnect, send and the
// connection-state signal. All methods must be called on the event loop.
type ConnectionManager struct {
	config ConnectionConfig
	dialer Dialer
	clock  clockwork.Clock
	loop   *EventLoop

	state ConnectionState
	conn  Conn
	// generation tags every socket; events from a superseded socket are dropped
	generation uint64

	reconnectTimer clockwork.Timer
	reconnectSeq   uint64

	readiness *Readiness
	handlers  ConnectionHandlers

	dials               int
	reconnectsScheduled int
	framesReceived      int
	framesSent          int
}

// NewConnectionManager creates a manager in the DISCONNECTED state
func NewConnectionManager(config ConnectionConfig, dialer Dialer, clock clockwork.Clock, loop *EventLoop) *ConnectionManager {
	return &ConnectionManager{
		config:    config,
		dialer:    dialer,
		clock:     clock,
		loop:      loop,
		state:     StateDisconnected,
		readiness: NewReadiness(),
	}
}

// SetHandlers installs the lifecycle callbacks
func (cm *ConnectionManager) SetHandlers(h ConnectionHandlers) {
	cm.handlers = h
}

// State returns the current connection state
func (cm *ConnectionManager) State() ConnectionState {
	return cm.state
}

// Readiness signals when the socket becomes usable. It is safe to use
// from any goroutine.
func (cm *ConnectionManager) Readiness() *Readiness {
	return cm.readiness
}

// Connect opens the socket unless an attempt is already in flight or open
func (cm *ConnectionManager) Connect() {
	if cm.state == StateConnecting || cm.state == StateConnected {
		log.Debug().Str("state", string(cm.state)).Msg("connect ignored, already connecting or connected")
		return
	}

	cm.cancelReconnect()
	cm.generation++
	gen := cm.generation
	cm.dials++
	cm.setState(StateConnecting)

	log.Info().
		Str("url", cm.config.URL).
		Int("attempt", cm.dials).
		Msg("connecting to duel server")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cm.config.DialTimeout)
		defer cancel()

		conn, err := cm.dialer.Dial(ctx, cm.config.URL)
		if err != nil {
			cm.loop.Post(func() { cm.handleDialError(gen, err) })
			return
		}
		if !cm.loop.Post(func() { cm.handleOpen(gen, conn) }) {
			conn.Close()
		}
	}()
}

// Send marshals msg and writes it to the socket
func (cm *ConnectionManager) Send(msg interface{}) error {
	if cm.state != StateConnected || cm.conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	cm.conn.SetWriteDeadline(time.Now().Add(cm.config.WriteTimeout))
	if err := cm.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Error().Err(err).Msg("failed to write message to WebSocket")
		return fmt.Errorf("failed to write message: %w", err)
	}
	cm.framesSent++

	log.Debug().RawJSON("message", data).Msg("sent message")
	return nil
}

// Close shuts the socket down with a normal closure; no reconnect follows
func (cm *ConnectionManager) Close() {
	cm.cancelReconnect()
	cm.generation++

	if cm.conn != nil {
		deadline := time.Now().Add(cm.config.WriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing")
		if err := cm.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Debug().Err(err).Msg("failed to send close frame")
		}
		cm.conn.Close()
		cm.conn = nil
	}

	cm.readiness.set(false)
	if cm.state != StateDisconnected {
		cm.setState(StateDisconnected)
	}
	log.Info().Msg("connection closed by client")
}

// Stats returns counters about the socket
func (cm *ConnectionManager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"state":                string(cm.state),
		"dials":                cm.dials,
		"reconnects_scheduled": cm.reconnectsScheduled,
		"reconnect_pending":    cm.reconnectTimer != nil,
		"frames_received":      cm.framesReceived,
		"frames_sent":          cm.framesSent,
	}
}

func (cm *ConnectionManager) handleOpen(gen uint64, conn Conn) {
	if gen != cm.generation {
		log.Debug().Msg("dropping superseded connection")
		conn.Close()
		return
	}

	cm.conn = conn
	cm.setState(StateConnected)
	cm.readiness.set(true)

	log.Info().Str("url", cm.config.URL).Msg("WebSocket connection established")

	go cm.readPump(gen, conn)

	if cm.handlers.OnOpen != nil {
		cm.handlers.OnOpen()
	}
}

func (cm *ConnectionManager) handleDialError(gen uint64, err error) {
	if gen != cm.generation {
		return
	}
	cm.handleError(gen, err)
	cm.handleClose(gen, websocket.CloseAbnormalClosure, "dial failed")
}

func (cm *ConnectionManager) handleError(gen uint64, err error) {
	if gen != cm.generation {
		return
	}
	log.Error().Err(err).Str("url", cm.config.URL).Msg("WebSocket error")
	cm.setState(StateErrored)
}

func (cm *ConnectionManager) handleClose(gen uint64, code int, reason string) {
	if gen != cm.generation {
		return
	}

	if cm.conn != nil {
		cm.conn.Close()
		cm.conn = nil
	}
	cm.readiness.set(false)
	cm.setState(StateDisconnected)

	if code == websocket.CloseNormalClosure {
		log.Info().Int("code", code).Str("reason", reason).Msg("connection closed normally, not reconnecting")
		return
	}

	log.Warn().
		Int("code", code).
		Str("reason", reason).
		Dur("retry_in", cm.config.ReconnectDelay).
		Msg("connection lost, scheduling reconnect")
	cm.scheduleReconnect()
}

func (cm *ConnectionManager) handleFrame(gen uint64, data []byte) {
	if gen != cm.generation {
		return
	}
	cm.framesReceived++
	if cm.handlers.OnFrame != nil {
		cm.handlers.OnFrame(data)
	}
}

// scheduleReconnect arms the single reconnect timer, replacing any pending one
func (cm *ConnectionManager) scheduleReconnect() {
	cm.cancelReconnect()
	cm.reconnectsScheduled++
	seq := cm.reconnectSeq

	cm.reconnectTimer = cm.clock.AfterFunc(cm.config.ReconnectDelay, func() {
		cm.loop.Post(func() {
			if seq != cm.reconnectSeq || cm.reconnectTimer == nil {
				return
			}
			cm.reconnectTimer = nil
			cm.Connect()
		})
	})
}

func (cm *ConnectionManager) cancelReconnect() {
	if cm.reconnectTimer != nil {
		cm.reconnectTimer.Stop()
		cm.reconnectTimer = nil
	}
	cm.reconnectSeq++
}

func (cm *ConnectionManager) setState(state ConnectionState) {
	if cm.state == state {
		return
	}
	log.Debug().Str("from", string(cm.state)).Str("to", string(state)).Msg("connection state changed")
	cm.state = state
	if cm.handlers.OnStatus != nil {
		cm.handlers.OnStatus(state)
	}
}

// readPump runs off the loop and forwards every socket event to it
func (cm *ConnectionManager) readPump(gen uint64, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			reason := err.Error()

			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code = closeErr.Code
				reason = closeErr.Text
			} else {
				cm.loop.Post(func() { cm.handleError(gen, err) })
			}
			cm.loop.Post(func() { cm.handleClose(gen, code, reason) })
			return
		}

		if !cm.loop.Post(func() { cm.handleFrame(gen, data) }) {
			return
		}
	}
}
