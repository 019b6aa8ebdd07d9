package market

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictx/marketd/internal/domain"
)

func TestCreatePollDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	matchID := env.newMatch(t)

	poll, err := env.engine.CreatePoll(ctx, "0xcreator", matchID, "Will Arsenal win?", domain.CategoryScorePrediction, testLockTime)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), poll.ID)
	assert.Equal(t, matchID, poll.MatchID)
	assert.Equal(t, "0xcreator", poll.Creator)
	assert.Equal(t, domain.PollStatusActive, poll.Status)
	assert.Nil(t, poll.Outcome)
	assert.Zero(t, poll.YesPool)
	assert.Zero(t, poll.NoPool)
	assert.Equal(t, testStart, poll.CreatedAt)

	got, err := env.engine.GetPoll(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, poll, got)
}

func TestCreatePollMonotonicIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	matchID := env.newMatch(t)

	for want := uint64(1); want <= 3; want++ {
		poll, err := env.engine.CreatePoll(ctx, testAdmin, matchID, "q", domain.CategoryScorePrediction, testLockTime)
		require.NoError(t, err)
		assert.Equal(t, want, poll.ID)
	}

	stats, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.TotalPollsCreated)
}

func TestCreatePollQuestionLength(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	matchID := env.newMatch(t)

	_, err := env.engine.CreatePoll(ctx, testAdmin, matchID, strings.Repeat("q", MaxQuestionLength+1), domain.CategoryScorePrediction, testLockTime)
	assert.ErrorIs(t, err, domain.ErrQuestionTooLong)

	_, err = env.engine.CreatePoll(ctx, testAdmin, matchID, strings.Repeat("q", MaxQuestionLength), domain.CategoryScorePrediction, testLockTime)
	assert.NoError(t, err)
}

func TestCreatePollInvalidCategory(t *testing.T) {
	env := newTestEnv(t)
	matchID := env.newMatch(t)

	_, err := env.engine.CreatePoll(context.Background(), testAdmin, matchID, "q", domain.PollCategory("weather"), testLockTime)
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestCreatePollLockTimeInPast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	matchID := env.newMatch(t)

	_, err := env.engine.CreatePoll(ctx, testAdmin, matchID, "q", domain.CategoryScorePrediction, testStart-1)
	assert.ErrorIs(t, err, domain.ErrInvalidLockTime)

	// Lock time equal to now is also rejected.
	_, err = env.engine.CreatePoll(ctx, testAdmin, matchID, "q", domain.CategoryScorePrediction, testStart)
	assert.ErrorIs(t, err, domain.ErrInvalidLockTime)
}

func TestCreatePollUnknownMatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.CreatePoll(context.Background(), testAdmin, 404, "q", domain.CategoryScorePrediction, testLockTime)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}

func TestCreatePollFinishedMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	matchID := env.newMatch(t)

	require.NoError(t, env.engine.FinishMatch(ctx, testAdmin, matchID))

	_, err := env.engine.CreatePoll(ctx, testAdmin, matchID, "q", domain.CategoryScorePrediction, testLockTime)
	assert.ErrorIs(t, err, domain.ErrMatchAlreadyStarted)
}

func TestCreatePollPerMatchCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	matchID := env.newMatch(t)

	for i := 0; i < MaxPollsPerMatch; i++ {
		_, err := env.engine.CreatePoll(ctx, testAdmin, matchID, "q", domain.CategoryScorePrediction, testLockTime)
		require.NoError(t, err)
	}

	_, err := env.engine.CreatePoll(ctx, testAdmin, matchID, "q", domain.CategoryScorePrediction, testLockTime)
	assert.ErrorIs(t, err, domain.ErrMaxPollsPerMatch)

	// A different match is unaffected by the cap.
	other := env.newMatch(t)
	_, err = env.engine.CreatePoll(ctx, testAdmin, other, "q", domain.CategoryScorePrediction, testLockTime)
	assert.NoError(t, err)
}

func TestCancelPollPropagatesToOracle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	require.NoError(t, env.engine.CancelPoll(ctx, testAdmin, pollID))

	poll, err := env.engine.GetPoll(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusCancelled, poll.Status)

	require.Len(t, env.oracle.setCalls, 1)
	assert.Equal(t, setStatusCall{Ref: testOracleRef, PollID: pollID, Status: domain.PollStatusCancelled}, env.oracle.setCalls[0])
}

func TestCancelPollRollsBackOnOracleFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	env.oracle.err = errors.New("authority unreachable")
	require.Error(t, env.engine.CancelPoll(ctx, testAdmin, pollID))

	// The local status change was discarded with the failed unit of work.
	poll, err := env.engine.GetPoll(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusActive, poll.Status)
}

func TestCancelPollUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.newPoll(t)

	err := env.engine.CancelPoll(context.Background(), "0xmallory", pollID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCancelPollUnknown(t *testing.T) {
	env := newTestEnv(t)

	err := env.engine.CancelPoll(context.Background(), testAdmin, 404)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestOraclePollStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pollID := env.newPoll(t)

	status, err := env.engine.OraclePollStatus(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusActive, status)

	env.oracle.status[pollID] = domain.PollStatusDisputed
	status, err = env.engine.OraclePollStatus(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusDisputed, status)

	env.oracle.err = errors.New("authority unreachable")
	_, err = env.engine.OraclePollStatus(ctx, pollID)
	assert.Error(t, err)
}
