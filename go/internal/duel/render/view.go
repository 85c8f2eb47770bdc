// Package render turns a duel snapshot into a view-model and paints it.
//
// BuildView is a pure function: the same Input always yields the same View.
// Paint applies a View to a text surface.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mcdev12/duelclient/go/internal/models"
)

// LogTailSize is how many action log entries the view shows.
const LogTailSize = 10

// LastPlayed is the overlay to show, if any
type LastPlayed struct {
	PlayerID string
	Card     models.Card
}

// Input is everything the view depends on
type Input struct {
	Snapshot    *models.DuelSnapshot
	LastPlayed  *LastPlayed
	LocalPlayer string
	Colors      map[string]string
	// JoinLinks maps a player id to the URL that joins the duel as that player
	JoinLinks map[string]string
}

// View is the complete display state of the client
type View struct {
	Empty      bool        `json:"empty"`
	DuelID     string      `json:"duel_id,omitempty"`
	Phase      string      `json:"phase,omitempty"`
	Turn       int         `json:"turn"`
	TurnPlayer string      `json:"turn_player,omitempty"`
	Top        PlayerPane  `json:"top"`
	Bottom     PlayerPane  `json:"bottom"`
	LastPlayed *PlayedCard `json:"last_played,omitempty"`
	Controls   Controls    `json:"controls"`
	Ended      bool        `json:"ended"`
	Winner     string      `json:"winner,omitempty"`
	Draw       bool        `json:"draw"`
	Log        []LogLine   `json:"log"`
	JoinLinks  []JoinLink  `json:"join_links,omitempty"`
}

// PlayerPane is one side of the board
type PlayerPane struct {
	PlayerID       string     `json:"player_id,omitempty"`
	Color          string     `json:"color,omitempty"`
	Local          bool       `json:"local"`
	HasTurn        bool       `json:"has_turn"`
	LifePoint      float64    `json:"life_point"`
	DeckSize       int        `json:"deck_size"`
	GraveyardCount int        `json:"graveyard_count"`
	Hand           []CardView `json:"hand"`
}

// CardView is a card in a hand. Face-down cards carry no values.
type CardView struct {
	ID       string  `json:"id,omitempty"`
	Gain     float64 `json:"gain,omitempty"`
	Inflict  float64 `json:"inflict,omitempty"`
	FaceDown bool    `json:"face_down"`
	Playable bool    `json:"playable"`
}

// PlayedCard is the highlighted last played card
type PlayedCard struct {
	PlayerID string  `json:"player_id"`
	Color    string  `json:"color,omitempty"`
	CardID   string  `json:"card_id"`
	Gain     float64 `json:"gain"`
	Inflict  float64 `json:"inflict"`
	Option   string  `json:"option,omitempty"`
}

// Controls describes the action controls
type Controls struct {
	Visible bool `json:"visible"`
	Enabled bool `json:"enabled"`
}

// LogLine is a formatted action log entry
type LogLine struct {
	Seq       int    `json:"seq"`
	Timestamp string `json:"timestamp"`
	PlayerID  string `json:"player_id"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
}

// JoinLink is a shareable URL for a player
type JoinLink struct {
	PlayerID string `json:"player_id"`
	URL      string `json:"url"`
}

// BuildView maps the input to a complete view
func BuildView(in Input) View {
	if in.Snapshot == nil {
		return View{Empty: true}
	}
	s := in.Snapshot
	duel := s.Duel
	ended := duel.IsOver()

	view := View{
		DuelID:     duel.ID,
		Phase:      duel.State.Phase(),
		Turn:       duel.Turn,
		TurnPlayer: duel.TurnPlayer,
		Ended:      ended,
	}

	bottomID, topID := seats(s, in.LocalPlayer)
	enabled := !ended && in.LocalPlayer != "" && in.LocalPlayer == duel.TurnPlayer

	view.Controls = Controls{Visible: !ended, Enabled: enabled}
	view.Bottom = pane(s, bottomID, in, false, enabled)
	view.Top = pane(s, topID, in, true, false)

	if ended {
		view.Winner = duel.Winner
		view.Draw = duel.Winner == models.WinnerDraw
	}

	if lp := in.LastPlayed; lp != nil {
		view.LastPlayed = &PlayedCard{
			PlayerID: lp.PlayerID,
			Color:    colorOf(s, in.Colors, lp.PlayerID),
			CardID:   lp.Card.UniqueCardID,
			Gain:     lp.Card.Gain,
			Inflict:  lp.Card.Inflict,
			Option:   string(lp.Card.PlayedOption),
		}
	}

	view.Log = logTail(duel.ActionLog)

	for _, playerID := range sortedKeys(in.JoinLinks) {
		view.JoinLinks = append(view.JoinLinks, JoinLink{PlayerID: playerID, URL: in.JoinLinks[playerID]})
	}

	return view
}

// seats picks the bottom (local) and top player. Without a known local
// player the lexicographically last id goes to the bottom.
func seats(s *models.DuelSnapshot, local string) (bottom, top string) {
	ids := playerIDs(s)
	if len(ids) == 0 {
		return local, ""
	}

	bottom = ids[len(ids)-1]
	for _, id := range ids {
		if id == local {
			bottom = local
			break
		}
	}
	for _, id := range ids {
		if id != bottom {
			top = id
			break
		}
	}
	return bottom, top
}

func playerIDs(s *models.DuelSnapshot) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range s.Duel.Players {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range s.GameState.Players {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func pane(s *models.DuelSnapshot, playerID string, in Input, faceDown, playable bool) PlayerPane {
	if playerID == "" {
		return PlayerPane{Hand: []CardView{}}
	}
	ps, _ := s.Player(playerID)

	p := PlayerPane{
		PlayerID:       playerID,
		Color:          colorOf(s, in.Colors, playerID),
		Local:          playerID == in.LocalPlayer,
		HasTurn:        playerID == s.Duel.TurnPlayer,
		LifePoint:      ps.LifePoint,
		DeckSize:       ps.DeckSize,
		GraveyardCount: len(ps.Graveyard),
		Hand:           make([]CardView, 0, len(ps.Hand)),
	}
	for _, c := range ps.Hand {
		if faceDown {
			p.Hand = append(p.Hand, CardView{FaceDown: true})
			continue
		}
		p.Hand = append(p.Hand, CardView{
			ID:       c.UniqueCardID,
			Gain:     c.Gain,
			Inflict:  c.Inflict,
			Playable: playable,
		})
	}
	return p
}

// colorOf prefers the accumulated color map and falls back to the snapshot
func colorOf(s *models.DuelSnapshot, colors map[string]string, playerID string) string {
	if c := colors[playerID]; c != "" {
		return c
	}
	return s.Duel.PlayerColors[playerID]
}

func logTail(entries []models.ActionLogEntry) []LogLine {
	start := 0
	if len(entries) > LogTailSize {
		start = len(entries) - LogTailSize
	}

	lines := make([]LogLine, 0, len(entries)-start)
	for _, e := range entries[start:] {
		lines = append(lines, LogLine{
			Seq:       e.Seq,
			Timestamp: e.Timestamp,
			PlayerID:  e.PlayerID,
			Action:    string(e.Action),
			Detail:    formatData(e.Data),
		})
	}
	return lines
}

// formatData renders the data map with sorted keys so output is stable
func formatData(data map[string]interface{}) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
