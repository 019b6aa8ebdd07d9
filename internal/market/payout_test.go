package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictx/marketd/internal/domain"
)

func TestPotentialWinningsAccurate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	_, err := env.engine.Stake(ctx, "alice", pollID, 7_000, domain.SideYes)
	require.NoError(t, err)
	_, err = env.engine.Stake(ctx, "bob", pollID, 3_000, domain.SideNo)
	require.NoError(t, err)

	// yes_pool=7000, no_pool=3000; a prospective 700 on Yes:
	// gross = floor(700 * 10700 / 7700) = 972
	// net   = floor(972 * 9500 / 10000) = 923
	winnings, err := env.engine.CalculatePotentialWinnings(ctx, pollID, domain.SideYes, 700)
	require.NoError(t, err)
	assert.Equal(t, int64(923), winnings)
}

func TestPotentialWinningsEmptyPool(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.newPoll(t)

	// First staker: gross = 500*500/500 = 500, net = 500*9500/10000 = 475.
	winnings, err := env.engine.CalculatePotentialWinnings(context.Background(), pollID, domain.SideYes, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(475), winnings)
}

func TestPotentialWinningsNoSide(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	_, err := env.engine.Stake(ctx, "alice", pollID, 7_000, domain.SideYes)
	require.NoError(t, err)
	_, err = env.engine.Stake(ctx, "bob", pollID, 3_000, domain.SideNo)
	require.NoError(t, err)

	// side_pool_after = 3700, total_after = 10700:
	// gross = floor(700 * 10700 / 3700) = 2024, net = floor(2024*9500/10000) = 1922
	winnings, err := env.engine.CalculatePotentialWinnings(ctx, pollID, domain.SideNo, 700)
	require.NoError(t, err)
	assert.Equal(t, int64(1922), winnings)
}

func TestPotentialWinningsUnknownPoll(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.CalculatePotentialWinnings(context.Background(), 404, domain.SideYes, 100)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestPotentialWinningsInvalidSide(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.newPoll(t)

	_, err := env.engine.CalculatePotentialWinnings(context.Background(), pollID, domain.Side("up"), 100)
	assert.ErrorIs(t, err, domain.ErrInvalidSide)
}

func TestPotentialWinningsZeroSidePoolAfter(t *testing.T) {
	// Degenerate case: a zero hypothetical amount into an empty side.
	got := PotentialWinnings(domain.PoolInfo{}, domain.SideYes, 0)
	assert.Zero(t, got)
}

func TestPotentialWinningsLargePoolsNoOverflow(t *testing.T) {
	// amount * total_pool_after exceeds 64 bits; the result must still be
	// exact. 3e18 on Yes against 3e18/3e18 pools:
	// gross = floor(3e18 * 9e18 / 6e18) = 4.5e18
	// net   = floor(4.5e18 * 9500/10000) = 4.275e18
	info := domain.PoolInfo{YesPool: 3_000_000_000_000_000_000, NoPool: 3_000_000_000_000_000_000}
	got := PotentialWinnings(info, domain.SideYes, 3_000_000_000_000_000_000)
	assert.Equal(t, int64(4_275_000_000_000_000_000), got)
}

func TestPotentialWinningsTruncatesTowardZero(t *testing.T) {
	// gross = floor(10 * 25 / 17) = 14, net = floor(14 * 9500/10000) = 13.
	info := domain.PoolInfo{YesPool: 7, NoPool: 8}
	got := PotentialWinnings(info, domain.SideYes, 10)
	assert.Equal(t, int64(13), got)
}
