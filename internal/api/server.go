package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bomber-royal/internal/config"
	"bomber-royal/internal/game"
)

// Server combines the HTTP router with the WebSocket hub and the
// idle-room reaper.
type Server struct {
	rooms       *game.RoomManager
	engine      *game.Engine
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	idleTimeout time.Duration
	stopChan    chan struct{}
}

// NewServer wires the API layer. Background workers do NOT start
// until Start() is called, so tests can construct a Server and use
// Router() without goroutines running.
func NewServer(rooms *game.RoomManager, engine *game.Engine, srvCfg config.ServerConfig) *Server {
	s := &Server{
		rooms:       rooms,
		engine:      engine,
		hub:         NewHub(rooms, engine),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		idleTimeout: srvCfg.IdleTimeout,
		stopChan:    make(chan struct{}),
	}

	s.router = NewRouter(RouterConfig{
		Rooms:       rooms,
		RateLimiter: s.rateLimiter,
	})
	s.router.Get("/ws", s.hub.HandleWebSocket)

	return s
}

// Hub exposes the broadcaster for engine wiring.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start launches the background workers and serves HTTP. Blocks.
func (s *Server) Start(addr string) error {
	go s.reapLoop()

	log.Printf("🌐 Server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Stop shuts down background workers.
func (s *Server) Stop() {
	close(s.stopChan)
	s.rateLimiter.Stop()
}

// reapLoop periodically removes rooms idle past the timeout and
// updates the fleet gauges.
func (s *Server) reapLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			for _, room := range s.rooms.ReapIdle(s.idleTimeout, now) {
				s.engine.StopRound(room)
				log.Printf("🧹 Room %s reaped after %v idle", room.Code, s.idleTimeout)
			}

			rooms := s.rooms.Rooms()
			players := 0
			for _, r := range rooms {
				players += r.PlayerCount()
			}
			UpdateRoomCount(len(rooms))
			UpdatePlayerCount(players)
		}
	}
}
