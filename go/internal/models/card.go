package models

import "strings"

// PlayOption is the effect a player chose when playing a card.
type PlayOption string

const (
	PlayOptionGain    PlayOption = "GAIN"
	PlayOptionInflict PlayOption = "INFLICT"
)

// ParsePlayOption accepts the option case-insensitively ("gain", "INFLICT").
func ParsePlayOption(s string) (PlayOption, bool) {
	switch opt := PlayOption(strings.ToUpper(strings.TrimSpace(s))); opt {
	case PlayOptionGain, PlayOptionInflict:
		return opt, true
	}
	return "", false
}

// Card is a card of the burn game.
type Card struct {
	UniqueCardID string     `json:"unique_card_id"`
	Gain         float64    `json:"gain"`
	Inflict      float64    `json:"inflict"`
	PlayedOption PlayOption `json:"played_option,omitempty"`
}

// PlayerState is one player's side of the board.
type PlayerState struct {
	ID        string  `json:"id,omitempty"`
	LifePoint float64 `json:"life_point"`
	Hand      []Card  `json:"hand"`
	DeckSize  int     `json:"deck_size"`
	Field     []Card  `json:"field,omitempty"`
	Graveyard []Card  `json:"graveyard"`
}

// TopOfGraveyard returns the most recently played card.
func (p PlayerState) TopOfGraveyard() (Card, bool) {
	if len(p.Graveyard) == 0 {
		return Card{}, false
	}
	return p.Graveyard[len(p.Graveyard)-1], true
}
