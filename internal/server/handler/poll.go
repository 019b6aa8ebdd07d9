package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predictx/marketd/internal/domain"
)

// PollService defines the methods that the poll handler requires from the
// ledger engine. It is declared locally so the handler package does not
// depend on the concrete engine implementation.
type PollService interface {
	CreatePoll(ctx context.Context, creator string, matchID uint64, question string, category domain.PollCategory, lockTime int64) (domain.Poll, error)
	GetPoll(ctx context.Context, pollID uint64) (domain.Poll, error)
	CancelPoll(ctx context.Context, caller string, pollID uint64) error
	OraclePollStatus(ctx context.Context, pollID uint64) (domain.PollStatus, error)
	GetPoolInfo(ctx context.Context, pollID uint64) (domain.PoolInfo, error)
	CalculatePotentialWinnings(ctx context.Context, pollID uint64, side domain.Side, amount int64) (int64, error)
}

// PollHandler serves poll lifecycle and pool snapshot endpoints.
type PollHandler struct {
	polls  PollService
	logger *slog.Logger
}

// NewPollHandler creates a PollHandler with the given service and logger.
func NewPollHandler(polls PollService, logger *slog.Logger) *PollHandler {
	return &PollHandler{
		polls:  polls,
		logger: logHandler(logger, "poll"),
	}
}

// createPollRequest is the body for poll creation.
type createPollRequest struct {
	Creator  string              `json:"creator"`
	MatchID  uint64              `json:"match_id"`
	Question string              `json:"question"`
	Category domain.PollCategory `json:"category"`
	LockTime int64               `json:"lock_time"`
}

// CreatePoll registers a new poll against a match.
// POST /api/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	creator, err := parseAddress(req.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid creator address")
		return
	}

	poll, err := h.polls.CreatePoll(r.Context(), creator, req.MatchID, req.Question, req.Category, req.LockTime)
	if err != nil {
		writeDomainError(w, r, h.logger, "create poll", err)
		return
	}
	writeJSON(w, http.StatusCreated, poll)
}

// GetPoll returns a single poll record.
// GET /api/polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	poll, err := h.polls.GetPoll(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, "get poll", err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

// GetPool returns the current pool snapshot for a poll.
// GET /api/polls/{id}/pool
func (h *PollHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := h.polls.GetPoolInfo(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, "get pool", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// winningsResponse is the payout preview output.
type winningsResponse struct {
	PollID    uint64      `json:"poll_id"`
	Side      domain.Side `json:"side"`
	Amount    int64       `json:"amount"`
	Potential int64       `json:"potential_winnings"`
}

// GetWinnings previews the fee-adjusted payout for a hypothetical stake.
// GET /api/polls/{id}/winnings?side=yes&amount=100
func (h *PollHandler) GetWinnings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	side := domain.Side(q.Get("side"))
	amount, err := parseInt64(q.Get("amount"))
	if err != nil || amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	potential, err := h.polls.CalculatePotentialWinnings(r.Context(), id, side, amount)
	if err != nil {
		writeDomainError(w, r, h.logger, "calculate winnings", err)
		return
	}
	writeJSON(w, http.StatusOK, winningsResponse{
		PollID:    id,
		Side:      side,
		Amount:    amount,
		Potential: potential,
	})
}

// GetOracleStatus returns the authoritative poll status as reported by the
// external status authority. Never served from cache.
// GET /api/polls/{id}/oracle-status
func (h *PollHandler) GetOracleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.polls.OraclePollStatus(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, "oracle status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"poll_id": id,
		"status":  status,
	})
}

// cancelPollRequest carries the acting admin address.
type cancelPollRequest struct {
	Caller string `json:"caller"`
}

// CancelPoll cancels a poll and propagates the cancellation to the status
// authority.
// POST /api/polls/{id}/cancel
func (h *PollHandler) CancelPoll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req cancelPollRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.polls.CancelPoll(r.Context(), caller, id); err != nil {
		writeDomainError(w, r, h.logger, "cancel poll", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"poll_id":   id,
		"cancelled": true,
	})
}
