// Package urlsync keeps the client address aligned with the active duel and
// builds shareable join links.
package urlsync

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/mcdev12/duelclient/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	ParamDuelID   = "duelId"
	ParamPlayerID = "playerId"
)

// AddressBar is the location the client was opened with. ReplaceState
// rewrites it in place without a navigation.
type AddressBar interface {
	Location() *url.URL
	ReplaceState(u *url.URL)
}

// MemoryAddressBar is an AddressBar held in memory
type MemoryAddressBar struct {
	mu           sync.Mutex
	current      url.URL
	replacements int
}

// NewMemoryAddressBar parses raw as the initial address
func NewMemoryAddressBar(raw string) (*MemoryAddressBar, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page url %q: %w", raw, err)
	}
	return &MemoryAddressBar{current: *u}, nil
}

// Location returns a copy of the current address
func (m *MemoryAddressBar) Location() *url.URL {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.current
	return &u
}

// ReplaceState overwrites the current address
func (m *MemoryAddressBar) ReplaceState(u *url.URL) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = *u
	m.replacements++
}

// Replacements counts ReplaceState calls
func (m *MemoryAddressBar) Replacements() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replacements
}

// UrlSync rewrites the duel identity into the address
type UrlSync struct {
	bar AddressBar
}

// New creates a UrlSync over bar
func New(bar AddressBar) *UrlSync {
	return &UrlSync{bar: bar}
}

// Address returns the current address
func (s *UrlSync) Address() *url.URL {
	return s.bar.Location()
}

// Sync writes duelID and playerID into the address query. Nothing happens
// unless both are known and at least one differs. It reports whether the
// address was replaced.
func (s *UrlSync) Sync(duelID, playerID string) bool {
	if duelID == "" || playerID == "" {
		return false
	}

	loc := s.bar.Location()
	q := loc.Query()
	if q.Get(ParamDuelID) == duelID && q.Get(ParamPlayerID) == playerID {
		return false
	}

	q.Set(ParamDuelID, duelID)
	q.Set(ParamPlayerID, playerID)
	loc.RawQuery = q.Encode()
	s.bar.ReplaceState(loc)

	log.Debug().Str("address", loc.String()).Msg("address updated")
	return true
}

// JoinURL builds the link that joins duelID as playerID from the same
// origin and path as the current address.
func (s *UrlSync) JoinURL(duelID, playerID string) string {
	loc := s.bar.Location()
	u := url.URL{Scheme: loc.Scheme, Host: loc.Host, Path: loc.Path}

	q := url.Values{}
	q.Set(ParamDuelID, duelID)
	q.Set(ParamPlayerID, playerID)
	u.RawQuery = q.Encode()
	return u.String()
}

// JoinLinks returns a join URL for every player other than local
func (s *UrlSync) JoinLinks(snapshot *models.DuelSnapshot, local string) map[string]string {
	if snapshot == nil || snapshot.Duel.ID == "" {
		return nil
	}

	links := make(map[string]string)
	for _, playerID := range snapshot.Duel.Players {
		if playerID != local {
			links[playerID] = s.JoinURL(snapshot.Duel.ID, playerID)
		}
	}
	for playerID := range snapshot.GameState.Players {
		if _, ok := links[playerID]; !ok && playerID != local {
			links[playerID] = s.JoinURL(snapshot.Duel.ID, playerID)
		}
	}
	return links
}

// FromAddress reads the duel identity from u
func FromAddress(u *url.URL) (duelID, playerID string, ok bool) {
	if u == nil {
		return "", "", false
	}
	q := u.Query()
	duelID = q.Get(ParamDuelID)
	playerID = q.Get(ParamPlayerID)
	return duelID, playerID, duelID != "" && playerID != ""
}
