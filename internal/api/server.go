package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"script-fighters/internal/game"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	http        *http.Server
	broadcastHz int
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.Logger
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	Addr        string
	CORSOrigins []string
	BroadcastHz int
	Renderer    SnapshotRenderer
	Logger      *zap.Logger
}

// NewServer creates the API server.
//
// Background workers do not start until Start is called, so tests can
// construct the server and use Router without goroutines beyond the rate
// limiter cleanup.
func NewServer(engine *game.Engine, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:      engine,
		wsHub:       NewWebSocketHub(engine, NewOriginChecker(opts.CORSOrigins), logger.Named("ws")),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		broadcastHz: max(1, opts.BroadcastHz),
		logger:      logger,
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Renderer:    opts.Renderer,
		RateLimiter: s.rateLimiter,
		CORSOrigins: opts.CORSOrigins,
		Logger:      logger.Named("http"),
	})

	// The socket is registered outside NewRouter because it needs the hub.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	return s
}

// Start runs the hub and broadcast loop, then serves HTTP until Shutdown.
// It returns nil after a graceful shutdown. Call it once.
func (s *Server) Start() error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.ctx, s.broadcastHz)

	s.logger.Info("api server starting", zap.String("addr", s.http.Addr), zap.Int("broadcast_hz", s.broadcastHz))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub, mainly for tests that drive it directly.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests, closes sockets and stops background
// workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return s.http.Shutdown(ctx)
}
