package gateway

import (
	"github.com/mcdev12/duelclient/go/internal/models"
)

// StateStore holds the latest and previous authoritative snapshots and the
// player color map learned so far.
type StateStore struct {
	current  *models.DuelSnapshot
	previous *models.DuelSnapshot
	colors   map[string]string
}

// NewStateStore creates an empty store
func NewStateStore() *StateStore {
	return &StateStore{colors: make(map[string]string)}
}

// Commit replaces the current snapshot in full and merges its colors.
// Colors are only ever added or overwritten, never removed.
func (s *StateStore) Commit(snapshot *models.DuelSnapshot) {
	if snapshot == nil {
		return
	}
	s.previous = s.current
	s.current = snapshot

	for playerID, color := range snapshot.Duel.PlayerColors {
		if color == "" {
			continue
		}
		s.colors[playerID] = color
	}
}

// Current returns the latest snapshot, nil before the first one arrives
func (s *StateStore) Current() *models.DuelSnapshot {
	return s.current
}

// Previous returns the snapshot committed before the current one
func (s *StateStore) Previous() *models.DuelSnapshot {
	return s.previous
}

// Colors returns a copy of the color map
func (s *StateStore) Colors() map[string]string {
	out := make(map[string]string, len(s.colors))
	for k, v := range s.colors {
		out[k] = v
	}
	return out
}
