package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kotleni/SyncRezka-Backend/internal/config"
	"github.com/kotleni/SyncRezka-Backend/internal/journal"
	"github.com/kotleni/SyncRezka-Backend/internal/metrics"
	"github.com/kotleni/SyncRezka-Backend/internal/protocol"
	"github.com/kotleni/SyncRezka-Backend/internal/ratelimit"
	"github.com/kotleni/SyncRezka-Backend/internal/session"
	"github.com/kotleni/SyncRezka-Backend/internal/ws"
)

// Server is the HTTP surface of the sync relay: the WebSocket endpoint
// plus health, room inspection and metrics routes.
type Server struct {
	cfg      config.Config
	mux      *http.ServeMux
	registry *session.Registry
	journal  journal.Store
	conns    *ws.ConnManager
	http     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithJournal sets the journal backend. Defaults to an in-memory store
// sized by the configuration.
func WithJournal(j journal.Store) Option {
	return func(s *Server) {
		s.journal = j
	}
}

// New creates a Server from the given configuration.
func New(cfg config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		registry: session.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.journal == nil {
		s.journal = journal.NewMemoryStore(cfg.JournalSize)
	}

	s.conns = ws.NewConnManager(
		ws.WithMaxConns(cfg.MaxConns),
		ws.WithIdleTimeout(cfg.IdleTimeout.Std()),
		ws.WithSendBuffer(cfg.SendBuffer),
	)

	var limiter *ratelimit.CommandLimiter
	if cfg.CommandRate > 0 {
		limiter = ratelimit.NewCommandLimiter(cfg.CommandRate, cfg.CommandWindow.Std())
	}

	dispatcher := protocol.NewDispatcher(s.registry, s.journal)
	wsHandler := ws.NewHandler(s.conns, dispatcher, limiter, cfg.ReadLimit)

	s.routes(wsHandler)
	s.http = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.mux,
	}
	return s
}

// Registry exposes the session registry, mainly for tests.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	log.Info().Str("addr", s.cfg.ListenAddr).Msg("server listening")
	return s.http.ListenAndServe()
}

// Shutdown stops accepting connections, drains the HTTP server and
// closes every WebSocket.
func (s *Server) Shutdown(ctx context.Context) error {
	s.conns.Shutdown()
	return s.http.Shutdown(ctx)
}

func (s *Server) routes(wsHandler http.Handler) {
	s.mux.Handle("/ws", wsHandler)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	s.mux.HandleFunc("GET /api/rooms/{id}/events", s.handleRoomEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.registry.List()
	if rooms == nil {
		rooms = []session.Summary{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rooms)
}

func (s *Server) handleRoomEvents(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if _, ok := s.registry.FindRoomByID(roomID); !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	events := s.journal.Recent(roomID, s.cfg.JournalSize)
	if events == nil {
		events = []*journal.Event{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
