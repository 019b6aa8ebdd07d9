package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predictx/marketd/internal/domain"
)

// StatsService defines the read-only aggregate surface the stats handler
// requires from the ledger engine.
type StatsService interface {
	Stats(ctx context.Context) (domain.PlatformStats, error)
	IsPaused(ctx context.Context) (bool, error)
}

// StatsHandler serves the platform-wide aggregate counters.
type StatsHandler struct {
	stats  StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler with the given service and logger.
func NewStatsHandler(stats StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logHandler(logger, "stats"),
	}
}

// GetStats returns the platform aggregate counters.
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, "get stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetPaused reports whether admin-gated operations are currently paused.
// GET /api/paused
func (h *StatsHandler) GetPaused(w http.ResponseWriter, r *http.Request) {
	paused, err := h.stats.IsPaused(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, "get paused", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}
