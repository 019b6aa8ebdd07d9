// Package memory implements domain.LedgerStore in process memory. It backs
// the engine's tests and the dev run mode, and doubles as the reference
// semantics for the persistent backends: one global write lock, staged
// writes, commit-or-discard.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/predictx/marketd/internal/domain"
)

// Store is an in-memory LedgerStore. Each record is JSON-encoded under its
// tagged key address. ExecTx stages writes in an overlay and applies them
// only when the unit of work returns nil, so a failing operation leaves no
// partial state.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("memory: encode: %w", err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("memory: decode: %w", err)
	}
	return nil
}

// view abstracts "read a raw record" so reader logic is shared between the
// store itself and an open transaction.
type view interface {
	get(addr string) ([]byte, bool)
}

type storeView struct{ data map[string][]byte }

func (v storeView) get(addr string) ([]byte, bool) {
	data, ok := v.data[addr]
	return data, ok
}

// ── Reader implementation (shared) ──

func readState(v view) (domain.MarketState, error) {
	data, ok := v.get(kindState)
	if !ok {
		return domain.MarketState{}, nil
	}
	var state domain.MarketState
	if err := decode(data, &state); err != nil {
		return domain.MarketState{}, err
	}
	return state, nil
}

func readPoll(v view, pollID uint64) (domain.Poll, error) {
	data, ok := v.get(pollKey(pollID))
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	var poll domain.Poll
	if err := decode(data, &poll); err != nil {
		return domain.Poll{}, err
	}
	return poll, nil
}

func readStake(v view, pollID uint64, user string) (domain.Stake, error) {
	data, ok := v.get(stakeKey(pollID, user))
	if !ok {
		return domain.Stake{}, domain.ErrNotStaker
	}
	var stake domain.Stake
	if err := decode(data, &stake); err != nil {
		return domain.Stake{}, err
	}
	return stake, nil
}

func readFlag(v view, addr string) (bool, error) {
	data, ok := v.get(addr)
	if !ok {
		return false, nil
	}
	var flag bool
	if err := decode(data, &flag); err != nil {
		return false, err
	}
	return flag, nil
}

func readIDs(v view, addr string) ([]uint64, error) {
	data, ok := v.get(addr)
	if !ok {
		return nil, nil
	}
	var ids []uint64
	if err := decode(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func readStats(v view) (domain.PlatformStats, error) {
	data, ok := v.get(kindStats)
	if !ok {
		return domain.PlatformStats{}, nil
	}
	var stats domain.PlatformStats
	if err := decode(data, &stats); err != nil {
		return domain.PlatformStats{}, err
	}
	return stats, nil
}

func readMatch(v view, matchID uint64) (domain.Match, error) {
	data, ok := v.get(matchKey(matchID))
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	var m domain.Match
	if err := decode(data, &m); err != nil {
		return domain.Match{}, err
	}
	return m, nil
}

func readCounter(v view, addr string) (uint64, error) {
	data, ok := v.get(addr)
	if !ok {
		return 1, nil
	}
	var next uint64
	if err := decode(data, &next); err != nil {
		return 0, err
	}
	return next, nil
}

// ── Store reader methods ──

func (s *Store) State(ctx context.Context) (domain.MarketState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readState(storeView{s.data})
}

func (s *Store) GetPoll(ctx context.Context, pollID uint64) (domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readPoll(storeView{s.data}, pollID)
}

func (s *Store) GetStake(ctx context.Context, pollID uint64, user string) (domain.Stake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readStake(storeView{s.data}, pollID, user)
}

func (s *Store) HasStaked(ctx context.Context, pollID uint64, user string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readFlag(storeView{s.data}, hasStakedKey(pollID, user))
}

func (s *Store) UserStakes(ctx context.Context, user string) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readIDs(storeView{s.data}, userStakesKey(user))
}

func (s *Store) EmergencyClaimed(ctx context.Context, pollID uint64, user string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readFlag(storeView{s.data}, emClaimedKey(pollID, user))
}

func (s *Store) Stats(ctx context.Context) (domain.PlatformStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readStats(storeView{s.data})
}

func (s *Store) GetMatch(ctx context.Context, matchID uint64) (domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readMatch(storeView{s.data}, matchID)
}

func (s *Store) MatchPolls(ctx context.Context, matchID uint64) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readIDs(storeView{s.data}, matchPollsKey(matchID))
}

func (s *Store) MatchCount(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next, err := readCounter(storeView{s.data}, kindNextMatch)
	if err != nil {
		return 0, err
	}
	return next - 1, nil
}

// ListPollsByStatus scans every poll record and returns those in any of the
// given statuses, ordered by ID. Linear in the number of polls; used by the
// archiver sweep.
func (s *Store) ListPollsByStatus(ctx context.Context, statuses []domain.PollStatus) ([]domain.Poll, error) {
	wanted := make(map[domain.PollStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	next, err := readCounter(storeView{s.data}, kindNextPoll)
	if err != nil {
		return nil, err
	}
	var polls []domain.Poll
	for id := uint64(1); id < next; id++ {
		poll, err := readPoll(storeView{s.data}, id)
		if err != nil {
			continue
		}
		if wanted[poll.Status] {
			polls = append(polls, poll)
		}
	}
	return polls, nil
}

// ── Transactions ──

// ledgerTx overlays staged writes on the committed data. Reads see staged
// values first. Holding the store's write lock for the whole unit of work
// serializes all mutating operations, matching the single-writer execution
// model the engine assumes.
type ledgerTx struct {
	base  map[string][]byte
	stage map[string][]byte
}

func (tx *ledgerTx) get(addr string) ([]byte, bool) {
	if data, ok := tx.stage[addr]; ok {
		return data, true
	}
	data, ok := tx.base[addr]
	return data, ok
}

func (tx *ledgerTx) put(addr string, v any) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	tx.stage[addr] = data
	return nil
}

// ExecTx implements domain.LedgerStore.
func (s *Store) ExecTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &ledgerTx{base: s.data, stage: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for addr, data := range tx.stage {
		s.data[addr] = data
	}
	return nil
}

// ── Tx reader methods ──

func (tx *ledgerTx) State(ctx context.Context) (domain.MarketState, error) {
	return readState(tx)
}

func (tx *ledgerTx) GetPoll(ctx context.Context, pollID uint64) (domain.Poll, error) {
	return readPoll(tx, pollID)
}

func (tx *ledgerTx) GetStake(ctx context.Context, pollID uint64, user string) (domain.Stake, error) {
	return readStake(tx, pollID, user)
}

func (tx *ledgerTx) HasStaked(ctx context.Context, pollID uint64, user string) (bool, error) {
	return readFlag(tx, hasStakedKey(pollID, user))
}

func (tx *ledgerTx) UserStakes(ctx context.Context, user string) ([]uint64, error) {
	return readIDs(tx, userStakesKey(user))
}

func (tx *ledgerTx) EmergencyClaimed(ctx context.Context, pollID uint64, user string) (bool, error) {
	return readFlag(tx, emClaimedKey(pollID, user))
}

func (tx *ledgerTx) Stats(ctx context.Context) (domain.PlatformStats, error) {
	return readStats(tx)
}

func (tx *ledgerTx) GetMatch(ctx context.Context, matchID uint64) (domain.Match, error) {
	return readMatch(tx, matchID)
}

func (tx *ledgerTx) MatchPolls(ctx context.Context, matchID uint64) ([]uint64, error) {
	return readIDs(tx, matchPollsKey(matchID))
}

func (tx *ledgerTx) MatchCount(ctx context.Context) (uint64, error) {
	next, err := readCounter(tx, kindNextMatch)
	if err != nil {
		return 0, err
	}
	return next - 1, nil
}

// ── Tx writer methods ──

func (tx *ledgerTx) PutState(ctx context.Context, state domain.MarketState) error {
	return tx.put(kindState, state)
}

func (tx *ledgerTx) NextPollID(ctx context.Context) (uint64, error) {
	return tx.nextID(kindNextPoll)
}

func (tx *ledgerTx) NextMatchID(ctx context.Context) (uint64, error) {
	return tx.nextID(kindNextMatch)
}

func (tx *ledgerTx) nextID(addr string) (uint64, error) {
	next, err := readCounter(tx, addr)
	if err != nil {
		return 0, err
	}
	if err := tx.put(addr, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

func (tx *ledgerTx) PutPoll(ctx context.Context, poll domain.Poll) error {
	return tx.put(pollKey(poll.ID), poll)
}

func (tx *ledgerTx) PutStake(ctx context.Context, stake domain.Stake) error {
	return tx.put(stakeKey(stake.PollID, stake.User), stake)
}

func (tx *ledgerTx) SetHasStaked(ctx context.Context, pollID uint64, user string) error {
	return tx.put(hasStakedKey(pollID, user), true)
}

func (tx *ledgerTx) AppendUserStake(ctx context.Context, user string, pollID uint64) error {
	ids, err := readIDs(tx, userStakesKey(user))
	if err != nil {
		return err
	}
	return tx.put(userStakesKey(user), append(ids, pollID))
}

func (tx *ledgerTx) SetEmergencyClaimed(ctx context.Context, pollID uint64, user string) error {
	return tx.put(emClaimedKey(pollID, user), true)
}

func (tx *ledgerTx) PutStats(ctx context.Context, stats domain.PlatformStats) error {
	return tx.put(kindStats, stats)
}

func (tx *ledgerTx) PutMatch(ctx context.Context, m domain.Match) error {
	return tx.put(matchKey(m.ID), m)
}

func (tx *ledgerTx) AppendMatchPoll(ctx context.Context, matchID, pollID uint64) error {
	ids, err := readIDs(tx, matchPollsKey(matchID))
	if err != nil {
		return err
	}
	return tx.put(matchPollsKey(matchID), append(ids, pollID))
}

// Compile-time interface checks.
var (
	_ domain.LedgerStore = (*Store)(nil)
	_ domain.LedgerTx    = (*ledgerTx)(nil)
)
