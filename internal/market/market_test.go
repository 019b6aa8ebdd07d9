package market

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predictx/marketd/internal/domain"
	"github.com/predictx/marketd/internal/store/memory"
)

const (
	testAdmin     = "0xadmin"
	testOracleRef = "authority-1"
	testCustody   = "0xcustody"

	testStart    int64 = 1_000_000
	testLockTime int64 = 2_000_000
	testKickoff  int64 = 2_100_000
)

// fakeClock is a settable Clock for boundary tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Unix(unix, 0)
}

// fakeOracle is a deterministic stand-in for the external status authority.
type fakeOracle struct {
	status    map[uint64]domain.PollStatus
	updatedAt map[uint64]int64
	err       error

	setCalls []setStatusCall
}

type setStatusCall struct {
	Ref    string
	PollID uint64
	Status domain.PollStatus
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		status:    make(map[uint64]domain.PollStatus),
		updatedAt: make(map[uint64]int64),
	}
}

func (o *fakeOracle) Status(ctx context.Context, ref string, pollID uint64) (domain.PollStatus, error) {
	if o.err != nil {
		return "", o.err
	}
	if st, ok := o.status[pollID]; ok {
		return st, nil
	}
	return domain.PollStatusActive, nil
}

func (o *fakeOracle) StatusUpdatedAt(ctx context.Context, ref string, pollID uint64) (int64, error) {
	if o.err != nil {
		return 0, o.err
	}
	return o.updatedAt[pollID], nil
}

func (o *fakeOracle) SetStatus(ctx context.Context, ref string, pollID uint64, status domain.PollStatus) error {
	if o.err != nil {
		return o.err
	}
	o.status[pollID] = status
	o.setCalls = append(o.setCalls, setStatusCall{Ref: ref, PollID: pollID, Status: status})
	return nil
}

// fakeToken records transfers and can be told to fail.
type fakeToken struct {
	transfers []tokenTransfer
	failWith  error
}

type tokenTransfer struct {
	From   string
	To     string
	Amount int64
}

func (t *fakeToken) Transfer(ctx context.Context, from, to string, amount int64) error {
	if t.failWith != nil {
		return t.failWith
	}
	t.transfers = append(t.transfers, tokenTransfer{From: from, To: to, Amount: amount})
	return nil
}

type testEnv struct {
	store  *memory.Store
	oracle *fakeOracle
	token  *fakeToken
	clock  *fakeClock
	engine *Engine
}

// newTestEnv builds an initialized engine over the memory store with fake
// collaborators and the clock pinned at testStart.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:  memory.NewStore(),
		oracle: newFakeOracle(),
		token:  &fakeToken{},
		clock:  &fakeClock{t: time.Unix(testStart, 0)},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.engine = New(env.store, env.oracle, env.token, nil, nil, nil, env.clock, testCustody, logger)

	require.NoError(t, env.engine.Initialize(context.Background(), testAdmin, testOracleRef))
	return env
}

// newMatch creates a default fixture and returns its ID.
func (env *testEnv) newMatch(t *testing.T) uint64 {
	t.Helper()
	m, err := env.engine.CreateMatch(
		context.Background(), testAdmin,
		"Arsenal", "Chelsea", "Premier League", "Emirates",
		testKickoff,
	)
	require.NoError(t, err)
	return m.ID
}

// newPoll creates an active poll on a fresh match and returns its ID.
func (env *testEnv) newPoll(t *testing.T) uint64 {
	t.Helper()
	matchID := env.newMatch(t)
	poll, err := env.engine.CreatePoll(
		context.Background(), testAdmin, matchID,
		"Will Arsenal win?", domain.CategoryTeamEvent, testLockTime,
	)
	require.NoError(t, err)
	return poll.ID
}
