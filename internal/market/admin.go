package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictx/marketd/internal/domain"
)

// Initialize bootstraps the market: records the admin and the status
// authority reference. It can only ever succeed once.
func (e *Engine) Initialize(ctx context.Context, admin, oracleRef string) error {
	err := e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		state, err := tx.State(ctx)
		if err != nil {
			return fmt.Errorf("market: load state: %w", err)
		}
		if state.Initialized {
			return domain.ErrAlreadyInitialized
		}
		return tx.PutState(ctx, domain.MarketState{
			Admin:       admin,
			OracleRef:   oracleRef,
			Initialized: true,
		})
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "market initialized",
		slog.String("admin", admin),
		slog.String("oracle_ref", oracleRef),
	)
	return nil
}

// SetOracle rewires the status authority reference. Admin-only; rejected
// while paused.
func (e *Engine) SetOracle(ctx context.Context, caller, oracleRef string) error {
	err := e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
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
		state.OracleRef = oracleRef
		return tx.PutState(ctx, state)
	})
	if err != nil {
		return err
	}

	e.publish(ctx, domain.Event{Topic: domain.TopicOracleChanged, Detail: oracleRef})
	return nil
}

// Pause stops admin-mutating operations that consult the paused flag.
func (e *Engine) Pause(ctx context.Context, caller string) error {
	if err := e.setPaused(ctx, caller, true); err != nil {
		return err
	}
	e.publish(ctx, domain.Event{Topic: domain.TopicMarketPaused, User: caller})
	return nil
}

// Unpause re-enables paused operations.
func (e *Engine) Unpause(ctx context.Context, caller string) error {
	if err := e.setPaused(ctx, caller, false); err != nil {
		return err
	}
	e.publish(ctx, domain.Event{Topic: domain.TopicMarketUnpaused, User: caller})
	return nil
}

func (e *Engine) setPaused(ctx context.Context, caller string, paused bool) error {
	return e.store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		state, err := requireInitialized(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireAdmin(state, caller); err != nil {
			return err
		}
		state.Paused = paused
		return tx.PutState(ctx, state)
	})
}

// IsPaused reports the paused flag. View.
func (e *Engine) IsPaused(ctx context.Context) (bool, error) {
	state, err := e.store.State(ctx)
	if err != nil {
		return false, fmt.Errorf("market: load state: %w", err)
	}
	return state.Paused, nil
}

// Stats returns the platform-wide aggregate counters. View.
func (e *Engine) Stats(ctx context.Context) (domain.PlatformStats, error) {
	return e.store.Stats(ctx)
}
