// Package client wires the duel gateway, renderer and address sync into a
// single session. Every piece of client state lives on one event loop.
package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duelclient/go/internal/duel/events"
	"github.com/mcdev12/duelclient/go/internal/duel/gateway"
	"github.com/mcdev12/duelclient/go/internal/duel/render"
	"github.com/mcdev12/duelclient/go/internal/duel/urlsync"
	"github.com/mcdev12/duelclient/go/internal/models"
)

var (
	// ErrNoSession is returned by game actions before a duel was created or joined.
	ErrNoSession = errors.New("no active duel session")
	// ErrInvalidRequest is returned for empty player or duel ids.
	ErrInvalidRequest = errors.New("invalid request")
)

// Display shows the view and the connection status
type Display interface {
	ShowView(view render.View) error
	ShowStatus(status string) error
}

// SnapshotSink receives every committed snapshot
type SnapshotSink interface {
	Publish(snapshot *models.DuelSnapshot) error
}

// LivenessChecker calls the server's hello endpoint
type LivenessChecker interface {
	Hello(ctx context.Context) (string, error)
}

// Config holds the client settings
type Config struct {
	Connection  gateway.ConnectionConfig
	OverlayTTL  time.Duration
	JoinTimeout time.Duration
	JoinPoll    time.Duration
	InstanceID  string
}

// DefaultConfig returns the standard timings against the default server
func DefaultConfig() Config {
	return Config{
		Connection:  gateway.DefaultConnectionConfig(),
		OverlayTTL:  gateway.DefaultOverlayTTL,
		JoinTimeout: 5 * time.Second,
		JoinPoll:    100 * time.Millisecond,
	}
}

// Options are the collaborators of a client. Nil fields get defaults.
type Options struct {
	Dialer   gateway.Dialer
	Clock    clockwork.Clock
	Address  urlsync.AddressBar
	Displays []Display
	Sink     SnapshotSink
	Liveness LivenessChecker
	Policy   gateway.OverlayPolicy
}

// Client is one duel session
type Client struct {
	config Config
	clock  clockwork.Clock

	loop   *gateway.EventLoop
	conn   *gateway.ConnectionManager
	router *gateway.MessageRouter
	store  *gateway.StateStore
	anim   *gateway.AnimationScheduler
	urls   *urlsync.UrlSync

	displays []Display
	sink     SnapshotSink
	liveness LivenessChecker

	// session identity, kept across reconnects
	duelID        string
	playerID      string
	awaitingDuel  bool
	status        string
	renders       int
	renderErrors  int
	sinkErrors    int
	rejoinsIssued int
}

// New creates a client. Nothing happens until Run.
func New(config Config, opts Options) (*Client, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Dialer == nil {
		opts.Dialer = gateway.NewWebsocketDialer(config.Connection)
	}
	if opts.Address == nil {
		bar, err := urlsync.NewMemoryAddressBar("http://localhost:11995/")
		if err != nil {
			return nil, err
		}
		opts.Address = bar
	}

	c := &Client{
		config:   config,
		clock:    opts.Clock,
		loop:     gateway.NewEventLoop(256),
		store:    gateway.NewStateStore(),
		urls:     urlsync.New(opts.Address),
		displays: opts.Displays,
		sink:     opts.Sink,
		liveness: opts.Liveness,
		status:   string(gateway.StateDisconnected),
	}

	c.conn = gateway.NewConnectionManager(config.Connection, opts.Dialer, c.clock, c.loop)
	c.router = gateway.NewMessageRouter(c.handleSnapshot)
	c.anim = gateway.NewAnimationScheduler(opts.Policy, c.clock, c.loop, config.OverlayTTL, c.render)
	c.conn.SetHandlers(gateway.ConnectionHandlers{
		OnStatus: c.handleStatus,
		OnOpen:   c.handleOpen,
		OnFrame:  c.router.OnFrame,
	})

	return c, nil
}

// Run connects, auto-joins from the address and processes events until
// ctx is cancelled. The socket is closed normally on return.
func (c *Client) Run(ctx context.Context) error {
	c.loop.Post(c.render)
	c.loop.Post(c.conn.Connect)

	if duelID, playerID, ok := urlsync.FromAddress(c.urls.Address()); ok {
		go c.autoJoin(ctx, duelID, playerID)
	}

	err := c.loop.Run(ctx)

	// the loop has exited, nothing else touches the state now
	c.anim.Clear()
	c.conn.Close()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// autoJoin waits for the socket and joins the duel named by the address
func (c *Client) autoJoin(ctx context.Context, duelID, playerID string) {
	log.Info().Str("duel_id", duelID).Str("player_id", playerID).Msg("auto-join requested by address")

	err := c.conn.Readiness().Wait(ctx, c.clock, c.config.JoinTimeout, c.config.JoinPoll)
	if err != nil {
		log.Debug().Err(err).Str("duel_id", duelID).Msg("auto-join skipped")
		return
	}

	if err := c.JoinDuel(ctx, duelID, playerID); err != nil {
		log.Warn().Err(err).Str("duel_id", duelID).Msg("auto-join failed")
	}
}

// CreateDuel asks the server for a new duel. The first player becomes the
// local player; the duel id is taken from the first state update.
func (c *Client) CreateDuel(ctx context.Context, players []string) error {
	return c.loop.Call(ctx, func() error {
		if len(players) == 0 || players[0] == "" {
			return fmt.Errorf("%w: create needs at least one player", ErrInvalidRequest)
		}
		if err := c.conn.Send(events.NewCreateDuel(players)); err != nil {
			return fmt.Errorf("failed to create duel: %w", err)
		}

		c.duelID = ""
		c.playerID = players[0]
		c.awaitingDuel = true
		log.Info().Strs("players", players).Msg("duel creation requested")
		return nil
	})
}

// JoinDuel attaches this client to duelID as playerID
func (c *Client) JoinDuel(ctx context.Context, duelID, playerID string) error {
	return c.loop.Call(ctx, func() error {
		if duelID == "" || playerID == "" {
			return fmt.Errorf("%w: duel id and player id are required", ErrInvalidRequest)
		}
		if err := c.conn.Send(events.NewJoinDuel(duelID, playerID)); err != nil {
			return fmt.Errorf("failed to join duel: %w", err)
		}

		c.duelID = duelID
		c.playerID = playerID
		c.awaitingDuel = false
		log.Info().Str("duel_id", duelID).Str("player_id", playerID).Msg("joined duel")
		return nil
	})
}

// PlayCard plays a card from the local hand. card is either a card id or
// a 1-based position in the hand.
func (c *Client) PlayCard(ctx context.Context, card string, option models.PlayOption) error {
	return c.loop.Call(ctx, func() error {
		if err := c.requireSession(); err != nil {
			return err
		}
		cardID := c.resolveCard(card)
		if err := c.conn.Send(events.NewPlayCard(c.duelID, c.playerID, cardID, option)); err != nil {
			return fmt.Errorf("failed to play card: %w", err)
		}
		log.Debug().Str("card_id", cardID).Str("option", string(option)).Msg("card play sent")
		return nil
	})
}

// EndTurn ends the local player's turn
func (c *Client) EndTurn(ctx context.Context) error {
	return c.loop.Call(ctx, func() error {
		if err := c.requireSession(); err != nil {
			return err
		}
		if err := c.conn.Send(events.NewEndTurn(c.duelID, c.playerID)); err != nil {
			return fmt.Errorf("failed to end turn: %w", err)
		}
		log.Debug().Msg("end turn sent")
		return nil
	})
}

// Hello calls the liveness endpoint and shows the outcome on the status line.
// Failures become part of the status text.
func (c *Client) Hello(ctx context.Context) string {
	status := "Loading..."
	if c.liveness == nil {
		status += "error: no liveness endpoint configured"
	} else if text, err := c.liveness.Hello(ctx); err != nil {
		status += "error: " + err.Error()
	} else {
		status += text
	}

	c.loop.Post(func() { c.showStatus(status) })
	return status
}

// Identity returns the session identity
func (c *Client) Identity(ctx context.Context) (duelID, playerID string, err error) {
	err = c.loop.Call(ctx, func() error {
		duelID, playerID = c.duelID, c.playerID
		return nil
	})
	return duelID, playerID, err
}

// Snapshot returns the latest committed snapshot
func (c *Client) Snapshot(ctx context.Context) (*models.DuelSnapshot, error) {
	var s *models.DuelSnapshot
	err := c.loop.Call(ctx, func() error {
		s = c.store.Current()
		return nil
	})
	return s, err
}

// ConnectionState returns the socket state
func (c *Client) ConnectionState(ctx context.Context) (gateway.ConnectionState, error) {
	var s gateway.ConnectionState
	err := c.loop.Call(ctx, func() error {
		s = c.conn.State()
		return nil
	})
	return s, err
}

// JoinLinks returns a join URL per player other than the local one
func (c *Client) JoinLinks(ctx context.Context) (map[string]string, error) {
	var links map[string]string
	err := c.loop.Call(ctx, func() error {
		links = c.urls.JoinLinks(c.store.Current(), c.playerID)
		return nil
	})
	return links, err
}

// Stats merges the counters of every component
func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	err := c.loop.Call(ctx, func() error {
		for k, v := range c.conn.Stats() {
			stats[k] = v
		}
		for k, v := range c.router.Stats() {
			stats[k] = v
		}
		stats["instance_id"] = c.config.InstanceID
		stats["status"] = c.status
		stats["duel_id"] = c.duelID
		stats["player_id"] = c.playerID
		stats["renders"] = c.renders
		stats["render_errors"] = c.renderErrors
		stats["sink_errors"] = c.sinkErrors
		stats["rejoins"] = c.rejoinsIssued
		stats["overlay_pending"] = c.anim.Pending()
		return nil
	})
	return stats, err
}

func (c *Client) requireSession() error {
	if c.duelID == "" || c.playerID == "" {
		return ErrNoSession
	}
	return nil
}

// resolveCard maps a hand position to its card id; anything else is
// passed through for the server to judge.
func (c *Client) resolveCard(card string) string {
	n, err := strconv.Atoi(card)
	if err != nil {
		return card
	}
	snapshot := c.store.Current()
	if snapshot == nil {
		return card
	}
	player, ok := snapshot.Player(c.playerID)
	if !ok || n < 1 || n > len(player.Hand) {
		return card
	}
	return player.Hand[n-1].UniqueCardID
}

func (c *Client) handleStatus(state gateway.ConnectionState) {
	c.showStatus(string(state))
}

// handleOpen re-issues the join for an existing session on every new socket
func (c *Client) handleOpen() {
	if c.duelID == "" || c.playerID == "" {
		return
	}
	if err := c.conn.Send(events.NewJoinDuel(c.duelID, c.playerID)); err != nil {
		log.Warn().Err(err).Str("duel_id", c.duelID).Msg("failed to rejoin duel")
		return
	}
	c.rejoinsIssued++
	log.Info().Str("duel_id", c.duelID).Str("player_id", c.playerID).Msg("rejoined duel after connect")
}

func (c *Client) handleSnapshot(snapshot *models.DuelSnapshot) {
	c.store.Commit(snapshot)

	if c.awaitingDuel && snapshot.Duel.ID != "" {
		c.duelID = snapshot.Duel.ID
		c.awaitingDuel = false
		log.Info().Str("duel_id", c.duelID).Str("player_id", c.playerID).Msg("duel created")
	}
	c.logTransition()

	c.anim.Update(snapshot)

	if c.sink != nil {
		if err := c.sink.Publish(snapshot); err != nil {
			c.sinkErrors++
			log.Warn().Err(err).Str("duel_id", snapshot.Duel.ID).Msg("failed to publish snapshot")
		}
	}

	c.render()
	c.urls.Sync(snapshot.Duel.ID, c.playerID)
}

func (c *Client) logTransition() {
	prev, cur := c.store.Previous(), c.store.Current()
	if cur == nil {
		return
	}
	if prev == nil || prev.Duel.Turn != cur.Duel.Turn || prev.Duel.TurnPlayer != cur.Duel.TurnPlayer {
		log.Info().
			Int("turn", cur.Duel.Turn).
			Str("turn_player", cur.Duel.TurnPlayer).
			Bool("local_turn", cur.Duel.TurnPlayer == c.playerID && c.playerID != "").
			Msg("turn started")
	}
	if cur.Duel.IsOver() && (prev == nil || !prev.Duel.IsOver()) {
		log.Info().Str("winner", cur.Duel.Winner).Str("duel_id", cur.Duel.ID).Msg("duel ended")
	}
}

// render rebuilds the whole view from current state. A failure is logged
// and never stops later updates.
func (c *Client) render() {
	snapshot := c.store.Current()
	defer func() {
		if r := recover(); r != nil {
			c.renderErrors++
			ev := log.Error().Interface("panic", r)
			if snapshot != nil && snapshot.Duel.IsOver() {
				ev = ev.Str("winner", snapshot.Duel.Winner)
			}
			ev.Msg("render failed")
		}
	}()

	in := render.Input{
		Snapshot:    snapshot,
		LocalPlayer: c.playerID,
		Colors:      c.store.Colors(),
		JoinLinks:   c.urls.JoinLinks(snapshot, c.playerID),
	}
	if o := c.anim.Current(); o != nil {
		in.LastPlayed = &render.LastPlayed{PlayerID: o.PlayerID, Card: o.Card}
	}
	view := render.BuildView(in)

	for _, d := range c.displays {
		if err := d.ShowView(view); err != nil {
			c.renderErrors++
			ev := log.Error().Err(err)
			if view.Ended {
				ev = ev.Str("winner", view.Winner)
			}
			ev.Msg("failed to paint view")
		}
	}
	c.renders++
}

func (c *Client) showStatus(status string) {
	c.status = status
	for _, d := range c.displays {
		if err := d.ShowStatus(status); err != nil {
			log.Error().Err(err).Msg("failed to show status")
		}
	}
}
