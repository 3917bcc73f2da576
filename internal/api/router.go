package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bomber-royal/internal/game"
)

// RoomService is the slice of the room registry the HTTP handlers
// need. Kept minimal so tests can mock it without a live engine.
type RoomService interface {
	CreateRoom() (*game.Room, error)
	Room(code string) (*game.Room, error)
	Rooms() []*game.Room
}

// RouterConfig carries the dependencies for the HTTP router. Designed
// for dependency injection: construct with mocks in tests, real
// implementations in main.
type RouterConfig struct {
	// Rooms is the room registry (required).
	Rooms RoomService

	// RateLimiter is an optional pre-built limiter. If nil one is
	// created from RateLimitConfig (or the defaults).
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the allowed CORS origins.
	CORSOrigins []string

	// DisableLogging drops the request logger, useful in benchmarks.
	DisableLogging bool
}

type routerHandlers struct {
	rooms RoomService
}

// NewRouter constructs the HTTP router with middleware and routes.
//
// This function is pure: no goroutines, no listeners. Safe to wrap in
// httptest.NewServer. WebSocket routes are attached by Server, which
// owns the hub.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{rooms: cfg.Rooms}

	r.Route("/api", func(r chi.Router) {
		r.Post("/rooms", h.handleCreateRoom)
		r.Get("/rooms/{code}", h.handleGetRoom)
		r.Get("/stats", h.handleGetStats)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
