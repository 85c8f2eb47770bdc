// Package mirror republishes committed duel snapshots on NATS so other
// processes can follow a duel without holding a socket to the server.
package mirror

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duelclient/go/internal/models"
)

type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	InstanceID    string
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "duel.snapshots",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// publisher is the part of *nats.Conn the mirror uses
type publisher interface {
	Publish(subj string, data []byte) error
	Close()
}

type Mirror struct {
	nc     publisher
	config Config

	mu        sync.Mutex
	published int
	skipped   int
}

// Connect dials NATS and returns a mirror publishing on it
func Connect(cfg Config) (*Mirror, error) {
	opts := []nats.Option{
		nats.Name("duelclient-" + cfg.InstanceID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	log.Info().Str("url", cfg.URL).Str("prefix", cfg.SubjectPrefix).Msg("snapshot mirror connected")

	return newMirror(nc, cfg), nil
}

func newMirror(nc publisher, cfg Config) *Mirror {
	return &Mirror{nc: nc, config: cfg}
}

type envelope struct {
	InstanceID  string               `json:"instance_id,omitempty"`
	PublishedAt time.Time            `json:"published_at"`
	Snapshot    *models.DuelSnapshot `json:"snapshot"`
}

// Publish sends the snapshot on <prefix>.<duelID>. Snapshots without a duel
// id are skipped.
func (m *Mirror) Publish(snapshot *models.DuelSnapshot) error {
	if snapshot == nil || snapshot.Duel.ID == "" {
		m.mu.Lock()
		m.skipped++
		m.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(envelope{
		InstanceID:  m.config.InstanceID,
		PublishedAt: time.Now().UTC(),
		Snapshot:    snapshot,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	subject := Subject(m.config.SubjectPrefix, snapshot.Duel.ID)
	if err := m.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	m.mu.Lock()
	m.published++
	m.mu.Unlock()

	log.Debug().Str("subject", subject).Int("size", len(data)).Msg("snapshot mirrored")
	return nil
}

// Stats returns publish counters
func (m *Mirror) Stats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]interface{}{
		"mirror_published": m.published,
		"mirror_skipped":   m.skipped,
	}
}

func (m *Mirror) Close() {
	m.nc.Close()
}

// Subject builds the subject for a duel. Characters NATS treats as token
// separators or wildcards are replaced.
func Subject(prefix, duelID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, duelID)
	return prefix + "." + token
}
