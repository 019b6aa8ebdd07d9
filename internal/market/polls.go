package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictx/marketd/internal/domain"
)

// CreatePoll registers a new poll against a match. The identifier is
// allocated from a monotonically increasing counter; the poll starts Active
// with zeroed pools and no outcome.
func (e *Engine) CreatePoll(
	ctx context.Context,
	creator string,
	matchID uint64,
	question string,
	category domain.PollCategory,
	lockTime int64,
) (domain.Poll, error) {
	var poll domain.Poll

	err := e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := requireInitialized(ctx, tx); err != nil {
			return err
		}

		if len(question) > MaxQuestionLength {
			return domain.ErrQuestionTooLong
		}
		if !category.Valid() {
			return domain.ErrInvalidCategory
		}

		now := e.now()
		if lockTime <= now {
			return domain.ErrInvalidLockTime
		}

		m, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if m.Finished {
			return domain.ErrMatchAlreadyStarted
		}
		attached, err := tx.MatchPolls(ctx, matchID)
		if err != nil {
			return err
		}
		if len(attached) >= MaxPollsPerMatch {
			return domain.ErrMaxPollsPerMatch
		}

		id, err := tx.NextPollID(ctx)
		if err != nil {
			return fmt.Errorf("market: allocate poll id: %w", err)
		}

		poll = domain.Poll{
			ID:        id,
			MatchID:   matchID,
			Creator:   creator,
			Question:  question,
			Category:  category,
			LockTime:  lockTime,
			Status:    domain.PollStatusActive,
			CreatedAt: now,
		}
		if err := tx.PutPoll(ctx, poll); err != nil {
			return err
		}
		if err := tx.AppendMatchPoll(ctx, matchID, id); err != nil {
			return err
		}

		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		stats.TotalPollsCreated++
		return tx.PutStats(ctx, stats)
	})
	if err != nil {
		return domain.Poll{}, err
	}

	e.logger.InfoContext(ctx, "poll created",
		slog.Uint64("poll_id", poll.ID),
		slog.Uint64("match_id", matchID),
		slog.String("creator", creator),
	)
	e.publish(ctx, domain.Event{
		Topic:  domain.TopicPollCreated,
		PollID: poll.ID,
		User:   creator,
		Detail: question,
	})
	return poll, nil
}

// GetPoll returns the poll record. View.
func (e *Engine) GetPoll(ctx context.Context, pollID uint64) (domain.Poll, error) {
	return e.store.GetPoll(ctx, pollID)
}

// CancelPoll marks the poll cancelled locally and propagates the status to
// the external authority. Admin-only; rejected while paused. It does not
// touch stake records: cancellation unlocks emergency withdrawals through
// the eligibility predicate.
func (e *Engine) CancelPoll(ctx context.Context, caller string, pollID uint64) error {
	unlock, err := e.lockPoll(ctx, pollID)
	if err != nil {
		return err
	}
	defer unlock()

	err = e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		state, err := requireInitialized(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireAdmin(state, caller); err != nil {
			return err
		}
		if state.Paused {
			return domain.ErrPaused
		}

		poll, err := tx.GetPoll(ctx, pollID)
		if err != nil {
			return err
		}
		poll.Status = domain.PollStatusCancelled
		if err := tx.PutPoll(ctx, poll); err != nil {
			return err
		}

		// External write last: a failed oracle call aborts the local status
		// change as well.
		if err := e.oracle.SetStatus(ctx, state.OracleRef, pollID, domain.PollStatusCancelled); err != nil {
			return fmt.Errorf("market: propagate cancellation to oracle: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "poll cancelled", slog.Uint64("poll_id", pollID))
	e.publish(ctx, domain.Event{Topic: domain.TopicPollCancelled, PollID: pollID, User: caller})
	return nil
}

// OraclePollStatus queries the external authority for the poll's current
// status, mapped onto the market's own vocabulary. The result is never
// cached beyond the call. View.
func (e *Engine) OraclePollStatus(ctx context.Context, pollID uint64) (domain.PollStatus, error) {
	state, err := requireInitialized(ctx, e.store)
	if err != nil {
		return "", err
	}
	status, err := e.oracle.Status(ctx, state.OracleRef, pollID)
	if err != nil {
		return "", fmt.Errorf("market: oracle status for poll %d: %w", pollID, err)
	}
	return status, nil
}
