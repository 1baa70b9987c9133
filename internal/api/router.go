package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"script-fighters/internal/config"
	"script-fighters/internal/game"
)

// EngineInterface defines the engine methods used by the API.
// This interface enables testing handlers against a stepped engine without
// the ticker running.
type EngineInterface interface {
	// GetSnapshot returns the latest lock-free immutable snapshot
	GetSnapshot() *game.MatchSnapshot
	// SetIntent latches controller input for a side
	SetIntent(side game.Side, in game.Intent) error
	// Reset starts a new round
	Reset()
	// Character returns the table used by a side
	Character(side game.Side) *game.CharacterDefinition
	// EventLogStats reports the NDJSON event log state
	EventLogStats() game.EventLogStats
	// Training returns the practice rules
	Training() config.TrainingConfig
	// SetTraining validates and applies practice rules
	SetTraining(t config.TrainingConfig) error
}

// SnapshotRenderer draws a snapshot as PNG for the debug overlay.
type SnapshotRenderer interface {
	WritePNG(w io.Writer, snap *game.MatchSnapshot) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine: engine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	    DisableLogging: true,
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Renderer draws /api/debug/hitboxes.png. The route answers 404 when nil.
	Renderer SnapshotRenderer

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If empty, uses DefaultOrigins.
	CORSOrigins []string

	// Logger receives request logs. Nil disables them.
	Logger *zap.Logger

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine   EngineInterface
	renderer SnapshotRenderer
	limiter  *IPRateLimiter
	logger   *zap.Logger
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter starts no listeners. The rate limiter it creates when none is
// supplied runs a cleanup goroutine; pass RateLimiter to control its lifetime.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Middleware - Order matters!
	r.Use(middleware.RequestID)
	if !cfg.DisableLogging {
		r.Use(requestLogger(logger))
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS so floods are rejected early
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
	if len(corsOrigins) == 0 {
		corsOrigins = DefaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &routerHandlers{
		engine:   cfg.Engine,
		renderer: cfg.Renderer,
		limiter:  rateLimiter,
		logger:   logger,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/character", h.handleGetCharacter)
		r.Get("/events/stats", h.handleEventStats)
		r.Get("/debug/hitboxes.png", h.handleHitboxPNG)
		r.Get("/training", h.handleGetTraining)
		r.Put("/training", h.handlePutTraining)

		r.Post("/input/{side}", h.handleInput)
		r.Post("/match/reset", h.handleReset)
	})

	return r
}

// requestLogger logs each request through zap and records route metrics.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			RecordRequest(r.Method, route, status, elapsed)

			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("elapsed", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
