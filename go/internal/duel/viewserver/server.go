// Package viewserver exposes the client's current view over local HTTP so
// other tools can follow the duel.
package viewserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/duelclient/go/internal/duel/render"
)

// StatsFunc returns diagnostic counters
type StatsFunc func(ctx context.Context) (map[string]interface{}, error)

// Server holds the last view and status pushed by the client
type Server struct {
	stats StatsFunc

	mu      sync.RWMutex
	view    render.View
	status  string
	updated time.Time
}

// New creates a server; stats may be nil
func New(stats StatsFunc) *Server {
	return &Server{stats: stats, view: render.View{Empty: true}}
}

// ShowView implements client.Display
func (s *Server) ShowView(v render.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
	s.updated = time.Now().UTC()
	return nil
}

// ShowStatus implements client.Display
func (s *Server) ShowStatus(status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	return nil
}

type viewResponse struct {
	Status    string      `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
	View      render.View `json:"view"`
}

// Handler returns the routes wrapped with CORS
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	r.HandleFunc("/view.txt", s.handleViewText).Methods(http.MethodGet)
	r.HandleFunc("/join/{playerId}/qr.png", s.handleJoinQR).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	}).Methods(http.MethodGet, http.MethodHead)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// NewHTTPServer builds an h2c capable server listening on addr
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}

func (s *Server) snapshot() viewResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return viewResponse{Status: s.status, UpdatedAt: s.updated, View: s.view}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleViewText(w http.ResponseWriter, r *http.Request) {
	var b bytes.Buffer
	if err := render.Paint(&b, s.snapshot().View); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(b.Bytes())
}

func (s *Server) handleJoinQR(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]

	var link string
	for _, l := range s.snapshot().View.JoinLinks {
		if l.PlayerID == playerID {
			link = l.URL
			break
		}
	}
	if link == "" {
		http.Error(w, "no join link for player "+playerID, http.StatusNotFound)
		return
	}

	png, err := render.JoinQRPNG(link, 256)
	if err != nil {
		log.Error().Err(err).Str("player_id", playerID).Msg("failed to encode join qr")
		http.Error(w, "failed to encode qr code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	stats, err := s.stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
