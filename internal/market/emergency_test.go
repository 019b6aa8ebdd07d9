package market

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictx/marketd/internal/domain"
)

func TestEmergencyEligibleWhenCancelled(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.newPoll(t)

	env.oracle.status[pollID] = domain.PollStatusCancelled
	assert.True(t, env.engine.CheckEmergencyEligible(context.Background(), pollID))
}

func TestEmergencyNotEligibleWhileHealthy(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.newPoll(t)
	ctx := context.Background()

	for _, status := range []domain.PollStatus{
		domain.PollStatusActive,
		domain.PollStatusVoting,
		domain.PollStatusAdminReview,
		domain.PollStatusResolved,
	} {
		env.oracle.status[pollID] = status
		env.oracle.updatedAt[pollID] = 1 // long stale, still ineligible
		assert.False(t, env.engine.CheckEmergencyEligible(ctx, pollID), "status %s", status)
	}
}

func TestEmergencyTimeoutBoundary(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.newPoll(t)
	ctx := context.Background()

	for _, status := range []domain.PollStatus{domain.PollStatusDisputed, domain.PollStatusLocked} {
		env.oracle.status[pollID] = status
		env.oracle.updatedAt[pollID] = testStart

		env.clock.Set(testStart + EmergencyTimeoutSecs - 1)
		assert.False(t, env.engine.CheckEmergencyEligible(ctx, pollID), "status %s, one second early", status)

		env.clock.Set(testStart + EmergencyTimeoutSecs)
		assert.True(t, env.engine.CheckEmergencyEligible(ctx, pollID), "status %s, at timeout", status)
	}
}

func TestEmergencyIneligibleWithoutStatusTimestamp(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.newPoll(t)

	env.oracle.status[pollID] = domain.PollStatusDisputed
	env.oracle.updatedAt[pollID] = 0
	env.clock.Set(testStart + 10*EmergencyTimeoutSecs)

	assert.False(t, env.engine.CheckEmergencyEligible(context.Background(), pollID))
}

func TestEmergencyFailsClosedOnOracleError(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.newPoll(t)

	env.oracle.err = errors.New("authority unreachable")
	assert.False(t, env.engine.CheckEmergencyEligible(context.Background(), pollID))
}

func TestEmergencyWithdrawRefundsStake(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	_, err := env.engine.Stake(ctx, "alice", pollID, 400, domain.SideYes)
	require.NoError(t, err)
	env.oracle.status[pollID] = domain.PollStatusCancelled

	amount, err := env.engine.EmergencyWithdraw(ctx, "alice", pollID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), amount)

	stats, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalValueLocked)

	info, err := env.engine.GetPoolInfo(ctx, pollID)
	require.NoError(t, err)
	assert.Zero(t, info.YesPool)
}

func TestEmergencyWithdrawDoubleClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	_, err := env.engine.Stake(ctx, "alice", pollID, 400, domain.SideYes)
	require.NoError(t, err)
	env.oracle.status[pollID] = domain.PollStatusCancelled

	_, err = env.engine.EmergencyWithdraw(ctx, "alice", pollID)
	require.NoError(t, err)

	// The claimed marker is checked before eligibility: even if the oracle
	// went eligible-to-ineligible in between, the second claim still fails
	// with AlreadyClaimed.
	env.oracle.status[pollID] = domain.PollStatusResolved
	_, err = env.engine.EmergencyWithdraw(ctx, "alice", pollID)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
}

func TestEmergencyWithdrawRequiresEligibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	_, err := env.engine.Stake(ctx, "alice", pollID, 400, domain.SideYes)
	require.NoError(t, err)

	_, err = env.engine.EmergencyWithdraw(ctx, "alice", pollID)
	assert.ErrorIs(t, err, domain.ErrEmergencyNotAllowed)

	stats, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(400), stats.TotalValueLocked)
}

func TestEmergencyWithdrawRequiresStake(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.newPoll(t)

	env.oracle.status[pollID] = domain.PollStatusCancelled
	_, err := env.engine.EmergencyWithdraw(context.Background(), "mallory", pollID)
	assert.ErrorIs(t, err, domain.ErrNotStaker)
}

func TestEmergencyWithdrawKeepsStakeUniqueness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	_, err := env.engine.Stake(ctx, "alice", pollID, 400, domain.SideYes)
	require.NoError(t, err)
	env.oracle.status[pollID] = domain.PollStatusCancelled

	_, err = env.engine.EmergencyWithdraw(ctx, "alice", pollID)
	require.NoError(t, err)

	// A refunded staker still cannot stake the same poll again.
	_, err = env.engine.Stake(ctx, "alice", pollID, 400, domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrAlreadyStaked)
}

// The paused flag gates only the admin entry points that check it; user
// funds stay reachable, so staking and emergency withdrawal both work on a
// paused market.
func TestPauseDoesNotTrapUserFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	require.NoError(t, env.engine.Pause(ctx, testAdmin))

	_, err := env.engine.Stake(ctx, "alice", pollID, 400, domain.SideYes)
	require.NoError(t, err)

	env.oracle.status[pollID] = domain.PollStatusCancelled
	assert.True(t, env.engine.CheckEmergencyEligible(ctx, pollID))

	amount, err := env.engine.EmergencyWithdraw(ctx, "alice", pollID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), amount)

	paused, err := env.engine.IsPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)
}

func TestValueLockedMonotonicity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	_, err := env.engine.Stake(ctx, "alice", pollID, 100, domain.SideYes)
	require.NoError(t, err)
	_, err = env.engine.Stake(ctx, "bob", pollID, 50, domain.SideNo)
	require.NoError(t, err)

	env.oracle.status[pollID] = domain.PollStatusCancelled
	_, err = env.engine.EmergencyWithdraw(ctx, "alice", pollID)
	require.NoError(t, err)
	_, err = env.engine.EmergencyWithdraw(ctx, "bob", pollID)
	require.NoError(t, err)

	stats, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalValueLocked, int64(0))
	assert.Zero(t, stats.TotalValueLocked)
}
