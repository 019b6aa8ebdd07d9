package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predictx/marketd/internal/domain"
	"github.com/predictx/marketd/internal/server"
	"github.com/predictx/marketd/internal/server/handler"
	"github.com/predictx/marketd/internal/server/ws"
)

// ServeMode runs the HTTP/WebSocket API against the persistent stores.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode periodically drains the event stream and snapshots settled
// polls to object storage. No API server runs.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Duration("interval", a.cfg.Archive.Interval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)
	a.startArchiveLoop(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the API server and, when enabled, the archive sweep.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	if deps.Archiver != nil {
		a.startArchiveLoop(ctx, g, deps)
	}
	return g.Wait()
}

// DevMode runs the API server against the in-memory store with loopback
// collaborators. No redis, postgres, or S3 required.
func (a *App) DevMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting dev mode (in-memory, no persistence)")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// startHTTPServer adds the API server (and, when a signal bus is wired, the
// WebSocket hub) to the given errgroup. The server is shut down gracefully
// when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled by config")
		return
	}

	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, a.logger)
		g.Go(func() error {
			err := hub.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			AdminToken:  a.cfg.Server.AdminToken,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		},
		server.Handlers{
			Health:  handler.NewHealthHandler(a.logger),
			Polls:   handler.NewPollHandler(deps.Engine, a.logger),
			Stakes:  handler.NewStakeHandler(deps.Engine, a.logger),
			Matches: handler.NewMatchHandler(deps.Engine, a.logger),
			Admin:   handler.NewAdminHandler(deps.Engine, a.logger),
			Stats:   handler.NewStatsHandler(deps.Engine, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiveLoop adds the periodic cold-storage sweep to the given
// errgroup. The position in the event stream is carried across iterations
// so each sweep only uploads new events.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = time.Hour
	}

	g.Go(func() error {
		lastID := ""
		runOnce := func() {
			id, events, err := deps.Archiver.ArchiveEvents(ctx, lastID)
			if err != nil {
				a.logger.ErrorContext(ctx, "archive events failed",
					slog.String("error", err.Error()),
				)
			} else {
				lastID = id
			}

			polls, err := deps.Archiver.ArchivePolls(ctx, []domain.PollStatus{
				domain.PollStatusResolved,
				domain.PollStatusCancelled,
			})
			if err != nil {
				a.logger.ErrorContext(ctx, "archive polls failed",
					slog.String("error", err.Error()),
				)
			}

			if events > 0 || polls > 0 {
				a.logger.InfoContext(ctx, "archive sweep complete",
					slog.Int64("events", events),
					slog.Int64("polls", polls),
				)
			}
		}

		runOnce()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				runOnce()
			}
		}
	})
}
