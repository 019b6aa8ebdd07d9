package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/predictx/marketd/internal/domain"
)

// Stake places a one-shot, all-or-nothing stake on one side of a poll.
//
// Checks-effects-interactions ordering: the external token transfer
// is the last step inside the unit of work, so a failed transfer rolls back
// every pool, stake, and stats mutation.
func (e *Engine) Stake(
	ctx context.Context,
	staker string,
	pollID uint64,
	amount int64,
	side domain.Side,
) (domain.Stake, error) {
	if !side.Valid() {
		return domain.Stake{}, domain.ErrInvalidSide
	}

	unlock, err := e.lockPoll(ctx, pollID)
	if err != nil {
		return domain.Stake{}, err
	}
	defer unlock()

	var stake domain.Stake

	err = e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := requireInitialized(ctx, tx); err != nil {
			return err
		}

		// ── Checks ──
		if amount < MinStakeAmount {
			return domain.ErrStakeAmountZero
		}

		poll, err := tx.GetPoll(ctx, pollID)
		if err != nil {
			return err
		}
		if poll.Status != domain.PollStatusActive {
			return domain.ErrPollNotActive
		}

		now := e.now()
		if now >= poll.LockTime {
			return domain.ErrPollLocked
		}

		staked, err := tx.HasStaked(ctx, pollID, staker)
		if err != nil {
			return err
		}
		if staked {
			return domain.ErrAlreadyStaked
		}

		// History must be read before the stake row is written: the
		// postgres backend derives it from the stakes table, so reading
		// it after PutStake would always see the row just inserted and
		// first-time stakers would never be counted.
		history, err := tx.UserStakes(ctx, staker)
		if err != nil {
			return err
		}

		// ── Effects ──
		switch side {
		case domain.SideYes:
			if poll.YesPool > math.MaxInt64-amount {
				return domain.ErrPoolOverflow
			}
			poll.YesPool += amount
			poll.YesCount++
		case domain.SideNo:
			if poll.NoPool > math.MaxInt64-amount {
				return domain.ErrPoolOverflow
			}
			poll.NoPool += amount
			poll.NoCount++
		}
		if err := tx.PutPoll(ctx, poll); err != nil {
			return err
		}

		stake = domain.Stake{
			User:     staker,
			PollID:   pollID,
			Amount:   amount,
			Side:     side,
			StakedAt: now,
		}
		if err := tx.PutStake(ctx, stake); err != nil {
			return err
		}
		if err := tx.SetHasStaked(ctx, pollID, staker); err != nil {
			return err
		}

		if err := tx.AppendUserStake(ctx, staker, pollID); err != nil {
			return err
		}

		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		if stats.TotalValueLocked > math.MaxInt64-amount {
			return domain.ErrPoolOverflow
		}
		stats.TotalValueLocked += amount
		stats.TotalStakesPlaced++
		if len(history) == 0 {
			stats.TotalUsers++
		}
		if err := tx.PutStats(ctx, stats); err != nil {
			return err
		}

		// ── Interactions ──
		if err := e.token.Transfer(ctx, staker, e.custody, amount); err != nil {
			return fmt.Errorf("market: stake transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Stake{}, err
	}

	e.invalidatePool(ctx, pollID)
	e.logger.InfoContext(ctx, "stake placed",
		slog.Uint64("poll_id", pollID),
		slog.String("staker", staker),
		slog.Int64("amount", amount),
		slog.String("side", string(side)),
	)
	e.publish(ctx, domain.Event{
		Topic:  domain.TopicStakePlaced,
		PollID: pollID,
		User:   staker,
		Amount: amount,
		Side:   side,
	})
	return stake, nil
}

// GetStake returns the user's stake on a poll. View.
func (e *Engine) GetStake(ctx context.Context, pollID uint64, user string) (domain.Stake, error) {
	return e.store.GetStake(ctx, pollID, user)
}

// GetUserStakes returns the poll IDs the user has staked on, in stake
// order. View.
func (e *Engine) GetUserStakes(ctx context.Context, user string) ([]uint64, error) {
	return e.store.UserStakes(ctx, user)
}

// HasStaked reports whether the user holds a stake on the poll. View.
func (e *Engine) HasStaked(ctx context.Context, pollID uint64, user string) (bool, error) {
	return e.store.HasStaked(ctx, pollID, user)
}

// GetPoolInfo returns the poll's pool snapshot, served from the pool cache
// when possible. View.
func (e *Engine) GetPoolInfo(ctx context.Context, pollID uint64) (domain.PoolInfo, error) {
	if e.pools != nil {
		info, err := e.pools.Get(ctx, pollID)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			e.logger.WarnContext(ctx, "pool cache read failed",
				slog.Uint64("poll_id", pollID),
				slog.String("error", err.Error()),
			)
		}
	}

	poll, err := e.store.GetPoll(ctx, pollID)
	if err != nil {
		return domain.PoolInfo{}, err
	}
	info := domain.PoolInfo{
		YesPool:  poll.YesPool,
		NoPool:   poll.NoPool,
		YesCount: poll.YesCount,
		NoCount:  poll.NoCount,
	}

	if e.pools != nil {
		if err := e.pools.Set(ctx, pollID, info); err != nil {
			e.logger.WarnContext(ctx, "pool cache write failed",
				slog.Uint64("poll_id", pollID),
				slog.String("error", err.Error()),
			)
		}
	}
	return info, nil
}

// invalidatePool drops the cached pool snapshot after a mutation.
func (e *Engine) invalidatePool(ctx context.Context, pollID uint64) {
	if e.pools == nil {
		return
	}
	if err := e.pools.Invalidate(ctx, pollID); err != nil {
		e.logger.WarnContext(ctx, "pool cache invalidate failed",
			slog.Uint64("poll_id", pollID),
			slog.String("error", err.Error()),
		)
	}
}
