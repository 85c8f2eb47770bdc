package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/duelclient/go/internal/models"
)

// GameName is the game identifier the server registers the burn duel under.
const GameName = "CARD_GAME_BURN"

// MessageType is the `type` discriminator shared by every frame
type MessageType string

const (
	// client -> server
	MessageTypeCreateDuel MessageType = "create_duel"
	MessageTypeJoinDuel   MessageType = "join_duel"
	MessageTypeAction     MessageType = "action"

	// server -> client
	MessageTypeStateUpdate MessageType = "state_update"
	MessageTypeError       MessageType = "error"
)

// ErrMalformedFrame is returned for frames that are not valid JSON or miss
// the fields their type requires.
var ErrMalformedFrame = errors.New("malformed frame")

// CreateDuelMessage asks the server to start a new duel
type CreateDuelMessage struct {
	Type    MessageType `json:"type"`
	Game    string      `json:"game"`
	Players []string    `json:"players"`
}

// JoinDuelMessage attaches this connection to an existing duel as a player
type JoinDuelMessage struct {
	Type     MessageType `json:"type"`
	DuelID   string      `json:"duel_id"`
	PlayerID string      `json:"player_id"`
}

// ActionData is either a card play or an end-turn request.
type ActionData struct {
	CardID  *string `json:"card_id,omitempty"`
	Option  *string `json:"option,omitempty"`
	EndTurn *bool   `json:"end_turn,omitempty"`
}

// ActionMessage carries a game action for the given session
type ActionMessage struct {
	Type     MessageType `json:"type"`
	DuelID   string      `json:"duel_id"`
	PlayerID string      `json:"player_id"`
	Game     string      `json:"game"`
	Action   ActionData  `json:"action"`
}

// NewCreateDuel builds a create_duel message for the burn game.
func NewCreateDuel(players []string) CreateDuelMessage {
	return CreateDuelMessage{Type: MessageTypeCreateDuel, Game: GameName, Players: players}
}

// NewJoinDuel builds a join_duel message.
func NewJoinDuel(duelID, playerID string) JoinDuelMessage {
	return JoinDuelMessage{Type: MessageTypeJoinDuel, DuelID: duelID, PlayerID: playerID}
}

// NewPlayCard builds an action message playing cardID with the given option.
func NewPlayCard(duelID, playerID, cardID string, option models.PlayOption) ActionMessage {
	opt := string(option)
	return ActionMessage{
		Type:     MessageTypeAction,
		DuelID:   duelID,
		PlayerID: playerID,
		Game:     GameName,
		Action:   ActionData{CardID: &cardID, Option: &opt},
	}
}

// NewEndTurn builds an action message ending the current turn.
func NewEndTurn(duelID, playerID string) ActionMessage {
	endTurn := true
	return ActionMessage{
		Type:     MessageTypeAction,
		DuelID:   duelID,
		PlayerID: playerID,
		Game:     GameName,
		Action:   ActionData{EndTurn: &endTurn},
	}
}

// Envelope is the decoded form of any inbound frame. Only the fields
// matching Type are meaningful.
type Envelope struct {
	Type      MessageType       `json:"type"`
	Duel      *models.Duel      `json:"duel,omitempty"`
	GameState *models.GameState `json:"game_state,omitempty"`
	Error     string            `json:"error,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// ParseFrame decodes a raw inbound frame.
func ParseFrame(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return &env, nil
}

// Snapshot extracts the complete snapshot carried by a state_update.
// Partial updates are rejected so the store never holds half a state.
func (e *Envelope) Snapshot() (*models.DuelSnapshot, error) {
	if e.Type != MessageTypeStateUpdate {
		return nil, fmt.Errorf("%w: %s is not a state update", ErrMalformedFrame, e.Type)
	}
	if e.Duel == nil || e.GameState == nil {
		return nil, fmt.Errorf("%w: state update without duel or game_state", ErrMalformedFrame)
	}
	return &models.DuelSnapshot{Duel: *e.Duel, GameState: *e.GameState}, nil
}

// ErrorText returns the server error, falling back to message.
func (e *Envelope) ErrorText() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
