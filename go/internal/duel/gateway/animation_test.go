package gateway_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/duelclient/go/internal/duel/gateway"
	"github.com/mcdev12/duelclient/go/internal/models"
)

func card(id string, gain, inflict float64) models.Card {
	return models.Card{UniqueCardID: id, Gain: gain, Inflict: inflict}
}

func snapshotWith(actions []models.ActionLogEntry, players map[string]models.PlayerState) *models.DuelSnapshot {
	return &models.DuelSnapshot{
		Duel: models.Duel{
			ID:         "D1",
			Turn:       1,
			TurnPlayer: "Alice",
			State:      models.DuelStateRunning,
			ActionLog:  actions,
		},
		GameState: models.GameState{Players: players},
	}
}

func playBy(playerID string, seq int) models.ActionLogEntry {
	return models.ActionLogEntry{Seq: seq, PlayerID: playerID, Action: models.ActionPlayCard}
}

func endTurnBy(playerID string, seq int) models.ActionLogEntry {
	return models.ActionLogEntry{Seq: seq, PlayerID: playerID, Action: models.ActionEndTurn}
}

type animHarness struct {
	t       *testing.T
	ctx     context.Context
	clock   *clockwork.FakeClock
	loop    *gateway.EventLoop
	sched   *gateway.AnimationScheduler
	mu      sync.Mutex
	expired int
}

func newAnimHarness(t *testing.T) *animHarness {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &animHarness{t: t, ctx: ctx, clock: clockwork.NewFakeClock(), loop: gateway.NewEventLoop(16)}
	h.sched = gateway.NewAnimationScheduler(gateway.LogTailPolicy{}, h.clock, h.loop, gateway.DefaultOverlayTTL, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.expired++
	})
	go h.loop.Run(ctx)
	return h
}

func (h *animHarness) update(s *models.DuelSnapshot) {
	h.t.Helper()
	require.NoError(h.t, h.loop.Call(h.ctx, func() error {
		h.sched.Update(s)
		return nil
	}))
}

func (h *animHarness) overlay() (*gateway.Overlay, bool) {
	var o *gateway.Overlay
	var pending bool
	_ = h.loop.Call(h.ctx, func() error {
		o = h.sched.Current()
		pending = h.sched.Pending()
		return nil
	})
	return o, pending
}

func (h *animHarness) expiredCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expired
}

func TestAnimation_PlayCardShowsGraveyardTop(t *testing.T) {
	h := newAnimHarness(t)

	h.update(snapshotWith(
		[]models.ActionLogEntry{playBy("Alice", 1)},
		map[string]models.PlayerState{
			"Alice": {Graveyard: []models.Card{card("c0", 100, 200), card("c1", 300, 1200)}},
			"Bob":   {Graveyard: []models.Card{card("b0", 500, 500)}},
		},
	))

	o, pending := h.overlay()
	require.NotNil(t, o)
	assert.Equal(t, "Alice", o.PlayerID)
	assert.Equal(t, "c1", o.Card.UniqueCardID)
	assert.True(t, pending)
}

func TestAnimation_ExpiresAfterTTL(t *testing.T) {
	h := newAnimHarness(t)
	players := map[string]models.PlayerState{"Alice": {Graveyard: []models.Card{card("c1", 1, 2)}}}
	h.update(snapshotWith([]models.ActionLogEntry{playBy("Alice", 1)}, players))

	h.clock.Advance(7999 * time.Millisecond)
	require.Never(t, func() bool { return h.expiredCount() > 0 }, quiet, tick)
	o, _ := h.overlay()
	assert.NotNil(t, o)

	h.clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return h.expiredCount() == 1 }, waitFor, tick)
	o, pending := h.overlay()
	assert.Nil(t, o)
	assert.False(t, pending)
}

func TestAnimation_EndTurnWinsOverPendingTimer(t *testing.T) {
	h := newAnimHarness(t)
	players := map[string]models.PlayerState{"Alice": {Graveyard: []models.Card{card("c1", 1, 2)}}}
	h.update(snapshotWith([]models.ActionLogEntry{playBy("Alice", 1)}, players))

	h.update(snapshotWith([]models.ActionLogEntry{playBy("Alice", 1), endTurnBy("Alice", 2)}, players))
	o, pending := h.overlay()
	assert.Nil(t, o)
	assert.False(t, pending)

	h.clock.Advance(time.Minute)
	require.Never(t, func() bool { return h.expiredCount() > 0 }, quiet, tick)
}

func TestAnimation_NewPlayReplacesTimer(t *testing.T) {
	h := newAnimHarness(t)
	players := map[string]models.PlayerState{
		"Alice": {Graveyard: []models.Card{card("c1", 1, 2)}},
		"Bob":   {Graveyard: []models.Card{card("b1", 3, 4)}},
	}
	h.update(snapshotWith([]models.ActionLogEntry{playBy("Alice", 1)}, players))

	h.clock.Advance(5 * time.Second)
	h.update(snapshotWith([]models.ActionLogEntry{playBy("Alice", 1), playBy("Bob", 2)}, players))

	// the first timer would have fired here
	h.clock.Advance(5 * time.Second)
	require.Never(t, func() bool { return h.expiredCount() > 0 }, quiet, tick)
	o, _ := h.overlay()
	require.NotNil(t, o)
	assert.Equal(t, "b1", o.Card.UniqueCardID)

	h.clock.Advance(3 * time.Second)
	require.Eventually(t, func() bool { return h.expiredCount() == 1 }, waitFor, tick)
	h.clock.Advance(time.Minute)
	require.Never(t, func() bool { return h.expiredCount() > 1 }, quiet, tick)
}

func TestAnimation_OtherActionsLeaveOverlay(t *testing.T) {
	h := newAnimHarness(t)
	players := map[string]models.PlayerState{"Alice": {Graveyard: []models.Card{card("c1", 1, 2)}}}
	h.update(snapshotWith([]models.ActionLogEntry{playBy("Alice", 1)}, players))

	h.update(snapshotWith([]models.ActionLogEntry{
		playBy("Alice", 1),
		{Seq: 2, PlayerID: "Alice", Action: "SURRENDER_OFFER"},
	}, players))
	o, pending := h.overlay()
	require.NotNil(t, o)
	assert.Equal(t, "c1", o.Card.UniqueCardID)
	assert.True(t, pending)

	// an empty log is not inspected at all
	h.update(snapshotWith(nil, players))
	o, _ = h.overlay()
	assert.NotNil(t, o)
}

func TestLogTailPolicy(t *testing.T) {
	withGrave := map[string]models.PlayerState{
		"Alice": {Graveyard: []models.Card{card("c1", 1, 2)}},
		"Bob":   {},
	}

	tests := []struct {
		name    string
		actions []models.ActionLogEntry
		want    gateway.OverlayAction
		cardID  string
	}{
		{name: "empty log", want: gateway.OverlayKeep},
		{name: "play with graveyard", actions: []models.ActionLogEntry{playBy("Alice", 1)}, want: gateway.OverlaySet, cardID: "c1"},
		{name: "play with empty graveyard", actions: []models.ActionLogEntry{playBy("Bob", 1)}, want: gateway.OverlayKeep},
		{name: "play by unknown player", actions: []models.ActionLogEntry{playBy("Carol", 1)}, want: gateway.OverlayKeep},
		{name: "end turn", actions: []models.ActionLogEntry{playBy("Alice", 1), endTurnBy("Alice", 2)}, want: gateway.OverlayClear},
		{name: "only tail counts", actions: []models.ActionLogEntry{endTurnBy("Bob", 1), playBy("Alice", 2)}, want: gateway.OverlaySet, cardID: "c1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gateway.LogTailPolicy{}.Decide(snapshotWith(tt.actions, withGrave))
			assert.Equal(t, tt.want, got.Action)
			assert.Equal(t, tt.cardID, got.Card.UniqueCardID)
		})
	}
}
