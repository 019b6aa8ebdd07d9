package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predictx/marketd/internal/domain"
)

func TestExecTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		id, err := tx.NextPollID(ctx)
		if err != nil {
			return err
		}
		return tx.PutPoll(ctx, domain.Poll{ID: id, Question: "q1", Status: domain.PollStatusActive})
	})
	require.NoError(t, err)

	poll, err := store.GetPoll(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "q1", poll.Question)
}

func TestExecTxDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if err := tx.PutPoll(ctx, domain.Poll{ID: 1, Question: "doomed"}); err != nil {
			return err
		}
		if err := tx.PutStats(ctx, domain.PlatformStats{TotalPollsCreated: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetPoll(ctx, 1)
	require.ErrorIs(t, err, domain.ErrPollNotFound)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.TotalPollsCreated)
}

func TestTxReadsSeeStagedWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if err := tx.PutPoll(ctx, domain.Poll{ID: 1, YesPool: 100}); err != nil {
			return err
		}
		poll, err := tx.GetPoll(ctx, 1)
		if err != nil {
			return err
		}
		poll.YesPool += 50
		return tx.PutPoll(ctx, poll)
	})
	require.NoError(t, err)

	poll, err := store.GetPoll(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 150, poll.YesPool)
}

func TestIDsAreSequentialAcrossTransactions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var ids []uint64
	for range 3 {
		err := store.ExecTx(ctx, func(tx domain.LedgerTx) error {
			id, err := tx.NextPollID(ctx)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return tx.PutPoll(ctx, domain.Poll{ID: id})
		})
		require.NoError(t, err)
	}
	require.Equal(t, []uint64{1, 2, 3}, ids)

	// Match IDs run on their own counter.
	err := store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		id, err := tx.NextMatchID(ctx)
		if err != nil {
			return err
		}
		require.EqualValues(t, 1, id)
		return tx.PutMatch(ctx, domain.Match{ID: id})
	})
	require.NoError(t, err)

	count, err := store.MatchCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestStakeBookkeeping(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	user := "0xUser"

	err := store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if err := tx.PutStake(ctx, domain.Stake{PollID: 1, User: user, Amount: 500, Side: domain.SideYes}); err != nil {
			return err
		}
		if err := tx.SetHasStaked(ctx, 1, user); err != nil {
			return err
		}
		return tx.AppendUserStake(ctx, user, 1)
	})
	require.NoError(t, err)

	staked, err := store.HasStaked(ctx, 1, user)
	require.NoError(t, err)
	require.True(t, staked)

	staked, err = store.HasStaked(ctx, 2, user)
	require.NoError(t, err)
	require.False(t, staked)

	ids, err := store.UserStakes(ctx, user)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)

	stake, err := store.GetStake(ctx, 1, user)
	require.NoError(t, err)
	require.EqualValues(t, 500, stake.Amount)

	_, err = store.GetStake(ctx, 1, "0xOther")
	require.ErrorIs(t, err, domain.ErrNotStaker)
}

func TestEmergencyClaimedFlag(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	claimed, err := store.EmergencyClaimed(ctx, 1, "0xUser")
	require.NoError(t, err)
	require.False(t, claimed)

	err = store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		return tx.SetEmergencyClaimed(ctx, 1, "0xUser")
	})
	require.NoError(t, err)

	claimed, err = store.EmergencyClaimed(ctx, 1, "0xUser")
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestListPollsByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	statuses := []domain.PollStatus{
		domain.PollStatusActive,
		domain.PollStatusResolved,
		domain.PollStatusCancelled,
		domain.PollStatusResolved,
	}
	err := store.ExecTx(ctx, func(tx domain.LedgerTx) error {
		for _, st := range statuses {
			id, err := tx.NextPollID(ctx)
			if err != nil {
				return err
			}
			if err := tx.PutPoll(ctx, domain.Poll{ID: id, Status: st}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	polls, err := store.ListPollsByStatus(ctx, []domain.PollStatus{
		domain.PollStatusResolved, domain.PollStatusCancelled,
	})
	require.NoError(t, err)

	var ids []uint64
	for _, p := range polls {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []uint64{2, 3, 4}, ids, "ID order, actives excluded")

	polls, err = store.ListPollsByStatus(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, polls)
}

func TestEmptyStoreDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	state, err := store.State(ctx)
	require.NoError(t, err)
	require.False(t, state.Initialized)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.TotalValueLocked)

	_, err = store.GetMatch(ctx, 1)
	require.ErrorIs(t, err, domain.ErrMatchNotFound)

	count, err := store.MatchCount(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	ids, err := store.UserStakes(ctx, "0xNobody")
	require.NoError(t, err)
	require.Nil(t, ids)
}
