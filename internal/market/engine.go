// Package market implements the staking ledger and resolution/eligibility
// engine for binary prediction polls: pool accounting, single-stake-per-user
// enforcement, fee-adjusted payout math, oracle-driven lifecycle checks, and
// the time-windowed emergency-withdrawal fallback.
//
// Every public operation runs as one atomic unit of work against the
// injected LedgerStore. Internal state is always mutated before the external
// value transfer is invoked, and a failed transfer rolls the whole unit
// back, so no partial state is ever observable.
package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictx/marketd/internal/domain"
)

// Engine is the settlement core. All dependencies are injected; bus, locks,
// and pools may be nil, in which case events, cross-process serialization,
// and pool caching are skipped respectively.
type Engine struct {
	store   domain.LedgerStore
	oracle  domain.Oracle
	token   domain.TokenService
	bus     domain.SignalBus
	locks   domain.LockManager
	pools   domain.PoolCache
	clock   Clock
	custody string // account that holds staked funds
	logger  *slog.Logger
}

// New creates an Engine. custody is the account staked funds are transferred
// into. A nil clock defaults to the system clock.
func New(
	store domain.LedgerStore,
	oracle domain.Oracle,
	token domain.TokenService,
	bus domain.SignalBus,
	locks domain.LockManager,
	pools domain.PoolCache,
	clock Clock,
	custody string,
	logger *slog.Logger,
) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{
		store:   store,
		oracle:  oracle,
		token:   token,
		bus:     bus,
		locks:   locks,
		pools:   pools,
		clock:   clock,
		custody: custody,
		logger:  logger.With(slog.String("component", "market")),
	}
}

// now returns the current unix timestamp from the injected clock.
func (e *Engine) now() int64 {
	return e.clock.Now().Unix()
}

// requireInitialized returns the market state, failing with NotInitialized
// when initialize has never run.
func requireInitialized(ctx context.Context, r domain.LedgerReader) (domain.MarketState, error) {
	state, err := r.State(ctx)
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("market: load state: %w", err)
	}
	if !state.Initialized {
		return domain.MarketState{}, domain.ErrNotInitialized
	}
	return state, nil
}

// requireAdmin verifies the caller is the configured admin. Fails closed.
func requireAdmin(state domain.MarketState, caller string) error {
	if caller == "" || caller != state.Admin {
		return domain.ErrUnauthorized
	}
	return nil
}

// lockPoll serializes mutating operations on one poll across processes.
// The returned unlock func is always safe to call.
func (e *Engine) lockPoll(ctx context.Context, pollID uint64) (func(), error) {
	if e.locks == nil {
		return func() {}, nil
	}
	unlock, err := e.locks.Acquire(ctx, fmt.Sprintf("poll:%d", pollID), pollLockTTL)
	if err != nil {
		return nil, fmt.Errorf("market: lock poll %d: %w", pollID, err)
	}
	return unlock, nil
}
