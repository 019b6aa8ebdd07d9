package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictx/marketd/internal/domain"
)

// Store implements domain.LedgerStore on a pgx connection pool. The schema
// is relational: stake rows double as the participation marker and the user
// history, so the marker and append operations inside a transaction are
// satisfied by the stake insert itself.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) q() queries {
	return queries{db: s.pool}
}

func (s *Store) State(ctx context.Context) (domain.MarketState, error) {
	return s.q().state(ctx)
}

func (s *Store) GetPoll(ctx context.Context, pollID uint64) (domain.Poll, error) {
	return s.q().getPoll(ctx, pollID)
}

func (s *Store) GetStake(ctx context.Context, pollID uint64, user string) (domain.Stake, error) {
	return s.q().getStake(ctx, pollID, user)
}

func (s *Store) HasStaked(ctx context.Context, pollID uint64, user string) (bool, error) {
	return s.q().hasStaked(ctx, pollID, user)
}

func (s *Store) UserStakes(ctx context.Context, user string) ([]uint64, error) {
	return s.q().userStakes(ctx, user)
}

func (s *Store) EmergencyClaimed(ctx context.Context, pollID uint64, user string) (bool, error) {
	return s.q().emergencyClaimed(ctx, pollID, user)
}

func (s *Store) Stats(ctx context.Context) (domain.PlatformStats, error) {
	return s.q().stats(ctx)
}

func (s *Store) GetMatch(ctx context.Context, matchID uint64) (domain.Match, error) {
	return s.q().getMatch(ctx, matchID)
}

func (s *Store) MatchPolls(ctx context.Context, matchID uint64) ([]uint64, error) {
	return s.q().matchPolls(ctx, matchID)
}

func (s *Store) MatchCount(ctx context.Context) (uint64, error) {
	return s.q().matchCount(ctx)
}

// ListPollsByStatus returns all polls in any of the given statuses, used by
// the archiver to sweep terminal polls into cold storage.
func (s *Store) ListPollsByStatus(ctx context.Context, statuses []domain.PollStatus) ([]domain.Poll, error) {
	return s.q().listPollsByStatus(ctx, statuses)
}

// ExecTx runs fn inside a database transaction. Reads within the
// transaction take row locks, so two units of work touching the same poll
// or the stats row execute one after the other. Any error from fn rolls the
// whole transaction back.
func (s *Store) ExecTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = pgtx.Rollback(ctx) }()

	if err := fn(&ledgerTx{q: queries{db: pgtx, locking: true}}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

type ledgerTx struct {
	q queries
}

func (tx *ledgerTx) State(ctx context.Context) (domain.MarketState, error) {
	return tx.q.state(ctx)
}

func (tx *ledgerTx) GetPoll(ctx context.Context, pollID uint64) (domain.Poll, error) {
	return tx.q.getPoll(ctx, pollID)
}

func (tx *ledgerTx) GetStake(ctx context.Context, pollID uint64, user string) (domain.Stake, error) {
	return tx.q.getStake(ctx, pollID, user)
}

func (tx *ledgerTx) HasStaked(ctx context.Context, pollID uint64, user string) (bool, error) {
	return tx.q.hasStaked(ctx, pollID, user)
}

func (tx *ledgerTx) UserStakes(ctx context.Context, user string) ([]uint64, error) {
	return tx.q.userStakes(ctx, user)
}

func (tx *ledgerTx) EmergencyClaimed(ctx context.Context, pollID uint64, user string) (bool, error) {
	return tx.q.emergencyClaimed(ctx, pollID, user)
}

func (tx *ledgerTx) Stats(ctx context.Context) (domain.PlatformStats, error) {
	return tx.q.stats(ctx)
}

func (tx *ledgerTx) GetMatch(ctx context.Context, matchID uint64) (domain.Match, error) {
	return tx.q.getMatch(ctx, matchID)
}

func (tx *ledgerTx) MatchPolls(ctx context.Context, matchID uint64) ([]uint64, error) {
	return tx.q.matchPolls(ctx, matchID)
}

func (tx *ledgerTx) MatchCount(ctx context.Context) (uint64, error) {
	return tx.q.matchCount(ctx)
}

func (tx *ledgerTx) PutState(ctx context.Context, state domain.MarketState) error {
	return tx.q.putState(ctx, state)
}

func (tx *ledgerTx) NextPollID(ctx context.Context) (uint64, error) {
	return tx.q.nextID(ctx, "poll_ids")
}

func (tx *ledgerTx) NextMatchID(ctx context.Context) (uint64, error) {
	return tx.q.nextID(ctx, "match_ids")
}

func (tx *ledgerTx) PutPoll(ctx context.Context, poll domain.Poll) error {
	return tx.q.putPoll(ctx, poll)
}

func (tx *ledgerTx) PutStake(ctx context.Context, stake domain.Stake) error {
	return tx.q.putStake(ctx, stake)
}

// SetHasStaked is satisfied by the stake row inserted in the same
// transaction; rows are never deleted, so existence is the marker.
func (tx *ledgerTx) SetHasStaked(ctx context.Context, pollID uint64, user string) error {
	return nil
}

// AppendUserStake is satisfied by the stake row's seq column, which orders
// the user's history.
func (tx *ledgerTx) AppendUserStake(ctx context.Context, user string, pollID uint64) error {
	return nil
}

func (tx *ledgerTx) SetEmergencyClaimed(ctx context.Context, pollID uint64, user string) error {
	return tx.q.setEmergencyClaimed(ctx, pollID, user)
}

func (tx *ledgerTx) PutStats(ctx context.Context, stats domain.PlatformStats) error {
	return tx.q.putStats(ctx, stats)
}

func (tx *ledgerTx) PutMatch(ctx context.Context, m domain.Match) error {
	return tx.q.putMatch(ctx, m)
}

// AppendMatchPoll is satisfied by the poll row's match_id column.
func (tx *ledgerTx) AppendMatchPoll(ctx context.Context, matchID, pollID uint64) error {
	return nil
}

var (
	_ domain.LedgerStore = (*Store)(nil)
	_ domain.LedgerTx    = (*ledgerTx)(nil)
	_ DBTX               = (pgx.Tx)(nil)
)
