package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuelState_Phase(t *testing.T) {
	assert.Equal(t, "WAITING", DuelStateBegin.Phase())
	assert.Equal(t, "WAITING", DuelState("").Phase())
	assert.Equal(t, "ACTIVE", DuelStateRunning.Phase())
	assert.Equal(t, "END", DuelStateEnd.Phase())
	assert.Equal(t, "PAUSED", DuelState("PAUSED").Phase())
}

func TestDuel_LastAction(t *testing.T) {
	var d Duel
	assert.Nil(t, d.LastAction())

	d.ActionLog = []ActionLogEntry{{Seq: 1, Action: ActionPlayCard}, {Seq: 2, Action: ActionEndTurn}}
	require.NotNil(t, d.LastAction())
	assert.Equal(t, ActionEndTurn, d.LastAction().Action)
}

func TestPlayerState_TopOfGraveyard(t *testing.T) {
	_, ok := PlayerState{}.TopOfGraveyard()
	assert.False(t, ok)

	top, ok := PlayerState{Graveyard: []Card{{UniqueCardID: "c1"}, {UniqueCardID: "c2"}}}.TopOfGraveyard()
	assert.True(t, ok)
	assert.Equal(t, "c2", top.UniqueCardID)
}

func TestParsePlayOption(t *testing.T) {
	for in, want := range map[string]PlayOption{"gain": PlayOptionGain, "INFLICT": PlayOptionInflict, " Inflict ": PlayOptionInflict} {
		got, ok := ParsePlayOption(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParsePlayOption("double")
	assert.False(t, ok)
}

func TestActionLogEntry_KeepsUnknownActions(t *testing.T) {
	var e ActionLogEntry
	require.NoError(t, json.Unmarshal([]byte(`{"seq": 4, "player_id": "Bob", "action": "SURRENDER", "data": {"reason": "afk"}}`), &e))
	assert.Equal(t, ActionKind("SURRENDER"), e.Action)
	assert.Equal(t, "afk", e.Data["reason"])
}
