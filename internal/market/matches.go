package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictx/marketd/internal/domain"
)

// CreateMatch registers a fixture for polls to attach to. Admin-only.
func (e *Engine) CreateMatch(
	ctx context.Context,
	caller string,
	homeTeam, awayTeam, league, venue string,
	kickoffTime int64,
) (domain.Match, error) {
	var m domain.Match

	err := e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		state, err := requireInitialized(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireAdmin(state, caller); err != nil {
			return err
		}
		if kickoffTime <= e.now() {
			return domain.ErrInvalidLockTime
		}

		id, err := tx.NextMatchID(ctx)
		if err != nil {
			return fmt.Errorf("market: allocate match id: %w", err)
		}
		m = domain.Match{
			ID:          id,
			HomeTeam:    homeTeam,
			AwayTeam:    awayTeam,
			League:      league,
			Venue:       venue,
			KickoffTime: kickoffTime,
			CreatedBy:   caller,
		}
		return tx.PutMatch(ctx, m)
	})
	if err != nil {
		return domain.Match{}, err
	}

	e.logger.InfoContext(ctx, "match created",
		slog.Uint64("match_id", m.ID),
		slog.String("home", homeTeam),
		slog.String("away", awayTeam),
	)
	e.publish(ctx, domain.Event{
		Topic:  domain.TopicMatchCreated,
		User:   caller,
		Detail: fmt.Sprintf("%s vs %s", homeTeam, awayTeam),
	})
	return m, nil
}

// UpdateMatch applies partial changes to a match that has not kicked off
// yet. Admin-only.
func (e *Engine) UpdateMatch(
	ctx context.Context,
	caller string,
	matchID uint64,
	upd domain.MatchUpdate,
) (domain.Match, error) {
	var m domain.Match

	err := e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		state, err := requireInitialized(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireAdmin(state, caller); err != nil {
			return err
		}

		m, err = tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}

		now := e.now()
		if now >= m.KickoffTime {
			return domain.ErrMatchAlreadyStarted
		}

		if upd.HomeTeam != nil {
			m.HomeTeam = *upd.HomeTeam
		}
		if upd.AwayTeam != nil {
			m.AwayTeam = *upd.AwayTeam
		}
		if upd.League != nil {
			m.League = *upd.League
		}
		if upd.Venue != nil {
			m.Venue = *upd.Venue
		}
		if upd.KickoffTime != nil {
			if *upd.KickoffTime <= now {
				return domain.ErrInvalidLockTime
			}
			m.KickoffTime = *upd.KickoffTime
		}
		return tx.PutMatch(ctx, m)
	})
	if err != nil {
		return domain.Match{}, err
	}

	e.publish(ctx, domain.Event{Topic: domain.TopicMatchUpdated, User: caller})
	return m, nil
}

// FinishMatch flags the match result as confirmed. Admin-only.
func (e *Engine) FinishMatch(ctx context.Context, caller string, matchID uint64) error {
	err := e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		state, err := requireInitialized(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireAdmin(state, caller); err != nil {
			return err
		}

		m, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		m.Finished = true
		return tx.PutMatch(ctx, m)
	})
	if err != nil {
		return err
	}

	e.publish(ctx, domain.Event{Topic: domain.TopicMatchFinished, User: caller})
	return nil
}

// GetMatch returns the match record. View.
func (e *Engine) GetMatch(ctx context.Context, matchID uint64) (domain.Match, error) {
	return e.store.GetMatch(ctx, matchID)
}

// GetMatchPolls returns the poll IDs attached to the match. View.
func (e *Engine) GetMatchPolls(ctx context.Context, matchID uint64) ([]uint64, error) {
	if _, err := e.store.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return e.store.MatchPolls(ctx, matchID)
}

// GetMatchCount returns the number of matches ever created. View.
func (e *Engine) GetMatchCount(ctx context.Context) (uint64, error) {
	return e.store.MatchCount(ctx)
}
