package gateway

import (
	"github.com/mcdev12/duelclient/go/internal/duel/events"
	"github.com/mcdev12/duelclient/go/internal/models"
	"github.com/rs/zerolog/log"
)

// MessageRouter parses inbound frames and dispatches them by type.
// A bad frame is logged and dropped, it never reaches the caller.
type MessageRouter struct {
	onState func(*models.DuelSnapshot)

	frames          int
	malformed       int
	serverErrors    int
	unknown         int
	lastServerError string
}

// NewMessageRouter creates a router delivering state updates to onState
func NewMessageRouter(onState func(*models.DuelSnapshot)) *MessageRouter {
	return &MessageRouter{onState: onState}
}

// OnFrame handles one raw frame
func (r *MessageRouter) OnFrame(raw []byte) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("frame handler panicked")
		}
	}()

	r.frames++
	env, err := events.ParseFrame(raw)
	if err != nil {
		r.malformed++
		log.Warn().Err(err).Int("bytes", len(raw)).Msg("dropping malformed frame")
		return
	}

	switch env.Type {
	case events.MessageTypeStateUpdate:
		snapshot, err := env.Snapshot()
		if err != nil {
			r.malformed++
			log.Warn().Err(err).Msg("dropping incomplete state update")
			return
		}
		log.Debug().
			Str("duel_id", snapshot.Duel.ID).
			Int("turn", snapshot.Duel.Turn).
			Int("log_len", len(snapshot.Duel.ActionLog)).
			Msg("received state update")
		if r.onState != nil {
			r.onState(snapshot)
		}

	case events.MessageTypeError:
		r.serverErrors++
		r.lastServerError = env.ErrorText()
		log.Warn().Str("error", r.lastServerError).Msg("server reported error")

	default:
		r.unknown++
		log.Info().Str("type", string(env.Type)).Msg("ignoring unknown message type")
	}
}

// LastServerError returns the text of the most recent error frame
func (r *MessageRouter) LastServerError() string {
	return r.lastServerError
}

// Stats returns counters about routed frames
func (r *MessageRouter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"frames":            r.frames,
		"malformed_frames":  r.malformed,
		"server_errors":     r.serverErrors,
		"unknown_frames":    r.unknown,
		"last_server_error": r.lastServerError,
	}
}
