package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predictx/marketd/internal/domain"
)

// MatchService defines the fixture registry surface the match handler
// requires from the ledger engine.
type MatchService interface {
	CreateMatch(ctx context.Context, caller string, homeTeam, awayTeam, league, venue string, kickoffTime int64) (domain.Match, error)
	UpdateMatch(ctx context.Context, caller string, matchID uint64, upd domain.MatchUpdate) (domain.Match, error)
	FinishMatch(ctx context.Context, caller string, matchID uint64) error
	GetMatch(ctx context.Context, matchID uint64) (domain.Match, error)
	GetMatchPolls(ctx context.Context, matchID uint64) ([]uint64, error)
	GetMatchCount(ctx context.Context) (uint64, error)
}

// MatchHandler serves fixture registry endpoints.
type MatchHandler struct {
	matches MatchService
	logger  *slog.Logger
}

// NewMatchHandler creates a MatchHandler with the given service and logger.
func NewMatchHandler(matches MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		matches: matches,
		logger:  logHandler(logger, "match"),
	}
}

// createMatchRequest is the body for match creation.
type createMatchRequest struct {
	Caller      string `json:"caller"`
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	League      string `json:"league"`
	Venue       string `json:"venue"`
	KickoffTime int64  `json:"kickoff_time"`
}

// CreateMatch registers a fixture for polls to attach to.
// POST /api/matches
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	m, err := h.matches.CreateMatch(r.Context(), caller, req.HomeTeam, req.AwayTeam, req.League, req.Venue, req.KickoffTime)
	if err != nil {
		writeDomainError(w, r, h.logger, "create match", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// updateMatchRequest carries partial fixture changes. Omitted fields are
// left untouched.
type updateMatchRequest struct {
	Caller      string  `json:"caller"`
	HomeTeam    *string `json:"home_team,omitempty"`
	AwayTeam    *string `json:"away_team,omitempty"`
	League      *string `json:"league,omitempty"`
	Venue       *string `json:"venue,omitempty"`
	KickoffTime *int64  `json:"kickoff_time,omitempty"`
}

// UpdateMatch applies partial changes to a match that has not kicked off.
// PATCH /api/matches/{id}
func (h *MatchHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateMatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	m, err := h.matches.UpdateMatch(r.Context(), caller, id, domain.MatchUpdate{
		HomeTeam:    req.HomeTeam,
		AwayTeam:    req.AwayTeam,
		League:      req.League,
		Venue:       req.Venue,
		KickoffTime: req.KickoffTime,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, "update match", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// finishMatchRequest carries the acting admin address.
type finishMatchRequest struct {
	Caller string `json:"caller"`
}

// FinishMatch flags a match result as confirmed.
// POST /api/matches/{id}/finish
func (h *MatchHandler) FinishMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req finishMatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.matches.FinishMatch(r.Context(), caller, id); err != nil {
		writeDomainError(w, r, h.logger, "finish match", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"match_id": id,
		"finished": true,
	})
}

// GetMatch returns a single match record.
// GET /api/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.matches.GetMatch(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, "get match", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// matchPollsResponse lists the poll IDs attached to a match.
type matchPollsResponse struct {
	MatchID uint64   `json:"match_id"`
	PollIDs []uint64 `json:"poll_ids"`
}

// GetMatchPolls returns the poll IDs attached to a match.
// GET /api/matches/{id}/polls
func (h *MatchHandler) GetMatchPolls(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids, err := h.matches.GetMatchPolls(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, "get match polls", err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, matchPollsResponse{MatchID: id, PollIDs: ids})
}

// GetMatchCount returns the number of matches ever created.
// GET /api/matches/count
func (h *MatchHandler) GetMatchCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.matches.GetMatchCount(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, "match count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": count})
}
