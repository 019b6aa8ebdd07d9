package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predictx/marketd/internal/domain"
)

// StakeService defines the staking and emergency-withdrawal surface the
// stake handler requires from the ledger engine.
type StakeService interface {
	Stake(ctx context.Context, staker string, pollID uint64, amount int64, side domain.Side) (domain.Stake, error)
	GetStake(ctx context.Context, pollID uint64, user string) (domain.Stake, error)
	GetUserStakes(ctx context.Context, user string) ([]uint64, error)
	CheckEmergencyEligible(ctx context.Context, pollID uint64) bool
	EmergencyWithdraw(ctx context.Context, user string, pollID uint64) (int64, error)
}

// StakeHandler serves stake placement, stake lookup, and the emergency
// withdrawal path.
type StakeHandler struct {
	stakes StakeService
	logger *slog.Logger
}

// NewStakeHandler creates a StakeHandler with the given service and logger.
func NewStakeHandler(stakes StakeService, logger *slog.Logger) *StakeHandler {
	return &StakeHandler{
		stakes: stakes,
		logger: logHandler(logger, "stake"),
	}
}

// placeStakeRequest is the body for stake placement.
type placeStakeRequest struct {
	Staker string      `json:"staker"`
	Amount int64       `json:"amount"`
	Side   domain.Side `json:"side"`
}

// PlaceStake places a one-shot stake on one side of a poll.
// POST /api/polls/{id}/stakes
func (h *StakeHandler) PlaceStake(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req placeStakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	staker, err := parseAddress(req.Staker)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid staker address")
		return
	}

	stake, err := h.stakes.Stake(r.Context(), staker, id, req.Amount, req.Side)
	if err != nil {
		writeDomainError(w, r, h.logger, "place stake", err)
		return
	}
	writeJSON(w, http.StatusCreated, stake)
}

// GetStake returns one user's stake on a poll.
// GET /api/polls/{id}/stakes/{user}
func (h *StakeHandler) GetStake(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := parseAddress(r.PathValue("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user address")
		return
	}

	stake, err := h.stakes.GetStake(r.Context(), id, user)
	if err != nil {
		writeDomainError(w, r, h.logger, "get stake", err)
		return
	}
	writeJSON(w, http.StatusOK, stake)
}

// userStakesResponse lists the poll IDs a user has ever staked on.
type userStakesResponse struct {
	User    string   `json:"user"`
	PollIDs []uint64 `json:"poll_ids"`
}

// GetUserStakes returns the poll IDs a user has staked on, in stake order.
// GET /api/users/{user}/stakes
func (h *StakeHandler) GetUserStakes(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(r.PathValue("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user address")
		return
	}

	ids, err := h.stakes.GetUserStakes(r.Context(), user)
	if err != nil {
		writeDomainError(w, r, h.logger, "get user stakes", err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, userStakesResponse{User: user, PollIDs: ids})
}

// GetEmergencyEligible reports whether the poll currently qualifies for
// emergency withdrawal.
// GET /api/polls/{id}/emergency-eligible
func (h *StakeHandler) GetEmergencyEligible(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"poll_id":  id,
		"eligible": h.stakes.CheckEmergencyEligible(r.Context(), id),
	})
}

// emergencyWithdrawRequest carries the withdrawing user's address.
type emergencyWithdrawRequest struct {
	User string `json:"user"`
}

// EmergencyWithdraw refunds the caller's full stake from a stuck or
// cancelled poll.
// POST /api/polls/{id}/emergency-withdraw
func (h *StakeHandler) EmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req emergencyWithdrawRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := parseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user address")
		return
	}

	amount, err := h.stakes.EmergencyWithdraw(r.Context(), user, id)
	if err != nil {
		writeDomainError(w, r, h.logger, "emergency withdraw", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"poll_id":  id,
		"user":     user,
		"refunded": amount,
	})
}
