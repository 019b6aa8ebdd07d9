// Package server exposes the ledger engine over an HTTP JSON API plus a
// WebSocket event stream. The layer is deliberately thin: all authorization
// and precondition checks live in the engine; the server only shapes
// transport.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/predictx/marketd/internal/domain"
	"github.com/predictx/marketd/internal/server/handler"
	"github.com/predictx/marketd/internal/server/middleware"
	"github.com/predictx/marketd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// AdminToken gates the admin route group. If empty, admin routes are
	// open at the transport level and only engine checks apply.
	AdminToken string
	// RateLimit is requests per client per RateWindow on mutating routes.
	// Zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Polls   *handler.PollHandler
	Stakes  *handler.StakeHandler
	Matches *handler.MatchHandler
	Admin   *handler.AdminHandler
	Stats   *handler.StatsHandler
}

// Server is the HTTP + WebSocket API server for the market daemon.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, rate limiting, admin auth) and
// attaches the WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Mutating routes go through the rate limiter; admin routes
	// additionally require the admin token.
	limited := passthrough
	if limiter != nil && cfg.RateLimit > 0 {
		limited = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return limited(middleware.Auth(cfg.AdminToken)(h))
	}

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Poll views.
	mux.HandleFunc("GET /api/polls/{id}", handlers.Polls.GetPoll)
	mux.HandleFunc("GET /api/polls/{id}/pool", handlers.Polls.GetPool)
	mux.HandleFunc("GET /api/polls/{id}/winnings", handlers.Polls.GetWinnings)
	mux.HandleFunc("GET /api/polls/{id}/oracle-status", handlers.Polls.GetOracleStatus)
	mux.HandleFunc("GET /api/polls/{id}/emergency-eligible", handlers.Stakes.GetEmergencyEligible)

	// Poll lifecycle (admin).
	mux.Handle("POST /api/polls", admin(handlers.Polls.CreatePoll))
	mux.Handle("POST /api/polls/{id}/cancel", admin(handlers.Polls.CancelPoll))

	// Staking.
	mux.Handle("POST /api/polls/{id}/stakes", limited(http.HandlerFunc(handlers.Stakes.PlaceStake)))
	mux.HandleFunc("GET /api/polls/{id}/stakes/{user}", handlers.Stakes.GetStake)
	mux.HandleFunc("GET /api/users/{user}/stakes", handlers.Stakes.GetUserStakes)
	mux.Handle("POST /api/polls/{id}/emergency-withdraw", limited(http.HandlerFunc(handlers.Stakes.EmergencyWithdraw)))

	// Platform aggregates.
	mux.HandleFunc("GET /api/stats", handlers.Stats.GetStats)
	mux.HandleFunc("GET /api/paused", handlers.Stats.GetPaused)

	// Admin gate.
	mux.Handle("POST /api/admin/initialize", admin(handlers.Admin.Initialize))
	mux.Handle("POST /api/admin/oracle", admin(handlers.Admin.SetOracle))
	mux.Handle("POST /api/admin/pause", admin(handlers.Admin.Pause))
	mux.Handle("POST /api/admin/unpause", admin(handlers.Admin.Unpause))

	// Match registry.
	mux.Handle("POST /api/matches", admin(handlers.Matches.CreateMatch))
	mux.Handle("PATCH /api/matches/{id}", admin(handlers.Matches.UpdateMatch))
	mux.Handle("POST /api/matches/{id}/finish", admin(handlers.Matches.FinishMatch))
	mux.HandleFunc("GET /api/matches/count", handlers.Matches.GetMatchCount)
	mux.HandleFunc("GET /api/matches/{id}", handlers.Matches.GetMatch)
	mux.HandleFunc("GET /api/matches/{id}/polls", handlers.Matches.GetMatchPolls)

	// WebSocket event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the outer middleware chain.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// passthrough is the identity middleware used when rate limiting is off.
func passthrough(next http.Handler) http.Handler { return next }

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
