package market

import (
	"context"
	"log/slog"

	"github.com/predictx/marketd/internal/domain"
)

// CheckEmergencyEligible reports whether stakers may pull their funds out of
// the poll through the emergency path. Eligibility is recomputed fresh from
// oracle state on every call and fails closed: any oracle error (or an
// uninitialized market) yields false. View.
func (e *Engine) CheckEmergencyEligible(ctx context.Context, pollID uint64) bool {
	state, err := e.store.State(ctx)
	if err != nil || !state.Initialized {
		return false
	}
	return e.eligible(ctx, state, pollID)
}

// eligible is the predicate behind emergency withdrawal:
// cancelled polls are always eligible; disputed or locked polls become
// eligible once the authority's status has been stale for the emergency
// timeout.
func (e *Engine) eligible(ctx context.Context, state domain.MarketState, pollID uint64) bool {
	status, err := e.oracle.Status(ctx, state.OracleRef, pollID)
	if err != nil {
		e.logger.WarnContext(ctx, "oracle status unavailable, treating as ineligible",
			slog.Uint64("poll_id", pollID),
			slog.String("error", err.Error()),
		)
		return false
	}

	if status == domain.PollStatusCancelled {
		return true
	}
	if status != domain.PollStatusDisputed && status != domain.PollStatusLocked {
		return false
	}

	updatedAt, err := e.oracle.StatusUpdatedAt(ctx, state.OracleRef, pollID)
	if err != nil {
		e.logger.WarnContext(ctx, "oracle status timestamp unavailable, treating as ineligible",
			slog.Uint64("poll_id", pollID),
			slog.String("error", err.Error()),
		)
		return false
	}
	if updatedAt == 0 {
		return false
	}
	return e.now()-updatedAt >= EmergencyTimeoutSecs
}

// EmergencyWithdraw refunds the user's stake on a stalled or cancelled poll.
// Exactly once per (poll, user): the emergency-claimed marker guards the
// double refund. Returns the refunded amount.
func (e *Engine) EmergencyWithdraw(ctx context.Context, user string, pollID uint64) (int64, error) {
	unlock, err := e.lockPoll(ctx, pollID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	var amount int64

	err = e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		state, err := requireInitialized(ctx, tx)
		if err != nil {
			return err
		}

		claimed, err := tx.EmergencyClaimed(ctx, pollID, user)
		if err != nil {
			return err
		}
		if claimed {
			return domain.ErrAlreadyClaimed
		}

		if !e.eligible(ctx, state, pollID) {
			return domain.ErrEmergencyNotAllowed
		}

		stake, err := tx.GetStake(ctx, pollID, user)
		if err != nil {
			return err
		}
		amount = stake.Amount

		if err := tx.SetEmergencyClaimed(ctx, pollID, user); err != nil {
			return err
		}

		// Keep the poll invariant intact: withdrawn stakes leave the side
		// pool. Staker counts stay as placed.
		poll, err := tx.GetPoll(ctx, pollID)
		if err != nil {
			return err
		}
		switch stake.Side {
		case domain.SideYes:
			poll.YesPool -= amount
		case domain.SideNo:
			poll.NoPool -= amount
		}
		if err := tx.PutPoll(ctx, poll); err != nil {
			return err
		}

		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		stats.TotalValueLocked -= amount
		return tx.PutStats(ctx, stats)
	})
	if err != nil {
		return 0, err
	}

	e.invalidatePool(ctx, pollID)
	e.logger.InfoContext(ctx, "emergency withdrawal",
		slog.Uint64("poll_id", pollID),
		slog.String("user", user),
		slog.Int64("amount", amount),
	)
	e.publish(ctx, domain.Event{
		Topic:  domain.TopicEmergencyWithdrawn,
		PollID: pollID,
		User:   user,
		Amount: amount,
	})
	return amount, nil
}
