package domain

import "context"

// LedgerReader is the read-only view of the ledger. View operations run
// against it directly, outside any transaction.
type LedgerReader interface {
	// State returns the singleton market state record. A zero-value state
	// (Initialized=false) is returned when initialize has never run.
	State(ctx context.Context) (MarketState, error)

	// GetPoll returns ErrPollNotFound when the poll does not exist.
	GetPoll(ctx context.Context, pollID uint64) (Poll, error)

	// GetStake returns ErrNotStaker when no stake exists for (poll, user).
	GetStake(ctx context.Context, pollID uint64, user string) (Stake, error)
	HasStaked(ctx context.Context, pollID uint64, user string) (bool, error)
	UserStakes(ctx context.Context, user string) ([]uint64, error)
	EmergencyClaimed(ctx context.Context, pollID uint64, user string) (bool, error)

	Stats(ctx context.Context) (PlatformStats, error)

	// GetMatch returns ErrMatchNotFound when the match does not exist.
	GetMatch(ctx context.Context, matchID uint64) (Match, error)
	MatchPolls(ctx context.Context, matchID uint64) ([]uint64, error)
	MatchCount(ctx context.Context) (uint64, error)
}

// LedgerTx is the mutable view handed to a unit of work. Within a
// transaction, GetPoll acquires an exclusive claim on the poll record so
// concurrent mutations of the same poll serialize.
type LedgerTx interface {
	LedgerReader

	PutState(ctx context.Context, state MarketState) error

	// NextPollID / NextMatchID allocate monotonically increasing identifiers
	// starting at 1.
	NextPollID(ctx context.Context) (uint64, error)
	NextMatchID(ctx context.Context) (uint64, error)

	PutPoll(ctx context.Context, poll Poll) error
	PutStake(ctx context.Context, stake Stake) error
	SetHasStaked(ctx context.Context, pollID uint64, user string) error
	AppendUserStake(ctx context.Context, user string, pollID uint64) error
	SetEmergencyClaimed(ctx context.Context, pollID uint64, user string) error
	PutStats(ctx context.Context, stats PlatformStats) error

	PutMatch(ctx context.Context, m Match) error
	AppendMatchPoll(ctx context.Context, matchID, pollID uint64) error
}

// LedgerStore persists the staking ledger. ExecTx runs fn as one atomic unit
// of work: every mutation performed through the LedgerTx commits, or none do
// when fn returns an error.
type LedgerStore interface {
	LedgerReader
	ExecTx(ctx context.Context, fn func(tx LedgerTx) error) error
}
