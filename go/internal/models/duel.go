package models

// DuelState is the server-side lifecycle state of a duel.
type DuelState string

const (
	DuelStateBegin   DuelState = "BEGIN"
	DuelStateRunning DuelState = "RUNNING"
	DuelStateEnd     DuelState = "END"
)

// Phase returns the client-facing name of the state: WAITING, ACTIVE or END.
// Unknown values are returned verbatim.
func (s DuelState) Phase() string {
	switch s {
	case DuelStateBegin, "":
		return "WAITING"
	case DuelStateRunning:
		return "ACTIVE"
	case DuelStateEnd:
		return "END"
	default:
		return string(s)
	}
}

// WinnerDraw is the winner value the server uses for a drawn duel.
const WinnerDraw = "DRAW"

// ActionKind is the action name recorded in the action log.
type ActionKind string

const (
	ActionPlayCard ActionKind = "PLAY_CARD"
	ActionEndTurn  ActionKind = "END_TURN"
)

// ActionLogEntry is one entry of the append-only action log.
type ActionLogEntry struct {
	Seq       int                    `json:"seq"`
	Timestamp string                 `json:"timestamp"` // 2006-01-02T15:04:05.000
	PlayerID  string                 `json:"player_id"`
	Action    ActionKind             `json:"action"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Duel is the generic part of a snapshot pushed by the server.
type Duel struct {
	ID           string            `json:"id"`
	Players      []string          `json:"players,omitempty"`
	Turn         int               `json:"turn"`
	TurnPlayer   string            `json:"turn_player"`
	Winner       string            `json:"winner,omitempty"`
	State        DuelState         `json:"state"`
	ActionLog    []ActionLogEntry  `json:"action_log"`
	PlayerColors map[string]string `json:"player_colors,omitempty"`
}

// IsOver reports whether the duel reached its terminal state.
func (d *Duel) IsOver() bool {
	return d.State == DuelStateEnd
}

// LastAction returns the tail of the action log, or nil when it is empty.
func (d *Duel) LastAction() *ActionLogEntry {
	if len(d.ActionLog) == 0 {
		return nil
	}
	return &d.ActionLog[len(d.ActionLog)-1]
}

// GameState is the game-specific part of a snapshot.
type GameState struct {
	Players map[string]PlayerState `json:"players"`
}

// DuelSnapshot is one complete authoritative state received from the server.
type DuelSnapshot struct {
	Duel      Duel      `json:"duel"`
	GameState GameState `json:"game_state"`
}

// Player returns the state of the given player.
func (s *DuelSnapshot) Player(id string) (PlayerState, bool) {
	ps, ok := s.GameState.Players[id]
	return ps, ok
}
