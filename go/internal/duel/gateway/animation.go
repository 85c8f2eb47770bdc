package gateway

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/duelclient/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultOverlayTTL is how long a played card stays highlighted.
const DefaultOverlayTTL = 8 * time.Second

// OverlayAction is what a policy wants done with the overlay
type OverlayAction int

const (
	OverlayKeep OverlayAction = iota
	OverlaySet
	OverlayClear
)

// OverlayDecision is the outcome of inspecting one snapshot
type OverlayDecision struct {
	Action   OverlayAction
	PlayerID string
	Card     models.Card
}

// OverlayPolicy decides how a committed snapshot affects the overlay.
// The server sends no explicit "card played" event, so the default policy
// infers it from the action log; a protocol with explicit events can swap
// in its own policy.
type OverlayPolicy interface {
	Decide(snapshot *models.DuelSnapshot) OverlayDecision
}

// LogTailPolicy looks only at the last action log entry. When several
// plays arrive in one update only the last one is shown.
type LogTailPolicy struct{}

// Decide implements OverlayPolicy
func (LogTailPolicy) Decide(snapshot *models.DuelSnapshot) OverlayDecision {
	last := snapshot.Duel.LastAction()
	if last == nil {
		return OverlayDecision{Action: OverlayKeep}
	}

	switch last.Action {
	case models.ActionPlayCard:
		player, ok := snapshot.Player(last.PlayerID)
		if !ok {
			return OverlayDecision{Action: OverlayKeep}
		}
		card, ok := player.TopOfGraveyard()
		if !ok {
			return OverlayDecision{Action: OverlayKeep}
		}
		return OverlayDecision{Action: OverlaySet, PlayerID: last.PlayerID, Card: card}

	case models.ActionEndTurn:
		return OverlayDecision{Action: OverlayClear}

	default:
		return OverlayDecision{Action: OverlayKeep}
	}
}

// Overlay is the "last played card" annotation. It is UI-only state.
type Overlay struct {
	PlayerID string
	Card     models.Card
	SetAt    time.Time
}

// AnimationScheduler owns the overlay and its single expiry timer.
// All methods must be called on the event loop.
type AnimationScheduler struct {
	policy OverlayPolicy
	clock  clockwork.Clock
	loop   *EventLoop
	ttl    time.Duration

	overlay *Overlay
	timer   clockwork.Timer
	seq     uint64

	onExpire func()
}

// NewAnimationScheduler creates a scheduler; onExpire runs on the loop
// after an overlay times out.
func NewAnimationScheduler(policy OverlayPolicy, clock clockwork.Clock, loop *EventLoop, ttl time.Duration, onExpire func()) *AnimationScheduler {
	if policy == nil {
		policy = LogTailPolicy{}
	}
	if ttl <= 0 {
		ttl = DefaultOverlayTTL
	}
	return &AnimationScheduler{
		policy:   policy,
		clock:    clock,
		loop:     loop,
		ttl:      ttl,
		onExpire: onExpire,
	}
}

// Update applies the policy to a freshly committed snapshot
func (a *AnimationScheduler) Update(snapshot *models.DuelSnapshot) {
	if snapshot == nil || len(snapshot.Duel.ActionLog) == 0 {
		return
	}

	decision := a.policy.Decide(snapshot)
	switch decision.Action {
	case OverlaySet:
		a.overlay = &Overlay{
			PlayerID: decision.PlayerID,
			Card:     decision.Card,
			SetAt:    a.clock.Now(),
		}
		a.arm()
		log.Debug().
			Str("player_id", decision.PlayerID).
			Str("card_id", decision.Card.UniqueCardID).
			Msg("overlay set")

	case OverlayClear:
		if a.overlay != nil || a.timer != nil {
			log.Debug().Msg("overlay cleared at turn boundary")
		}
		a.Clear()
	}
}

// Current returns a copy of the overlay, nil when none is shown
func (a *AnimationScheduler) Current() *Overlay {
	if a.overlay == nil {
		return nil
	}
	o := *a.overlay
	return &o
}

// Pending reports whether an expiry timer is armed
func (a *AnimationScheduler) Pending() bool {
	return a.timer != nil
}

// Clear drops the overlay and cancels its timer
func (a *AnimationScheduler) Clear() {
	a.overlay = nil
	a.cancel()
}

// arm replaces any pending expiry timer with a fresh one
func (a *AnimationScheduler) arm() {
	a.cancel()
	seq := a.seq

	a.timer = a.clock.AfterFunc(a.ttl, func() {
		a.loop.Post(func() { a.expire(seq) })
	})
}

func (a *AnimationScheduler) cancel() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.seq++
}

func (a *AnimationScheduler) expire(seq uint64) {
	if seq != a.seq || a.timer == nil {
		return
	}
	a.timer = nil
	a.overlay = nil
	log.Debug().Msg("overlay expired")

	if a.onExpire != nil {
		a.onExpire()
	}
}
