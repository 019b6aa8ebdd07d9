package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predictx/marketd/internal/domain"
)

const (
	testStaker = "0x00000000000000000000000000000000000000aa"
	testAdmin  = "0x00000000000000000000000000000000000000bb"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMux registers the handler under a Go 1.22 pattern so PathValue works
// the same way it does behind the real server routes.
func newMux(pattern string, h http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// stubPollService returns canned values for the poll handler.
type stubPollService struct {
	poll     domain.Poll
	pollErr  error
	winnings int64
	winErr   error
}

func (s *stubPollService) CreatePoll(ctx context.Context, creator string, matchID uint64, question string, category domain.PollCategory, lockTime int64) (domain.Poll, error) {
	return s.poll, s.pollErr
}

func (s *stubPollService) GetPoll(ctx context.Context, pollID uint64) (domain.Poll, error) {
	return s.poll, s.pollErr
}

func (s *stubPollService) CancelPoll(ctx context.Context, caller string, pollID uint64) error {
	return s.pollErr
}

func (s *stubPollService) OraclePollStatus(ctx context.Context, pollID uint64) (domain.PollStatus, error) {
	return s.poll.Status, s.pollErr
}

func (s *stubPollService) GetPoolInfo(ctx context.Context, pollID uint64) (domain.PoolInfo, error) {
	return domain.PoolInfo{YesPool: s.poll.YesPool, NoPool: s.poll.NoPool}, s.pollErr
}

func (s *stubPollService) CalculatePotentialWinnings(ctx context.Context, pollID uint64, side domain.Side, amount int64) (int64, error) {
	return s.winnings, s.winErr
}

func TestGetPollOK(t *testing.T) {
	svc := &stubPollService{poll: domain.Poll{ID: 7, Question: "will it rain?", Status: domain.PollStatusActive}}
	h := NewPollHandler(svc, testLogger())
	mux := newMux("GET /api/polls/{id}", h.GetPoll)

	rec := doJSON(t, mux, http.MethodGet, "/api/polls/7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Poll
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.EqualValues(t, 7, got.ID)
	require.Equal(t, "will it rain?", got.Question)
}

func TestGetPollNotFound(t *testing.T) {
	svc := &stubPollService{pollErr: domain.ErrPollNotFound}
	h := NewPollHandler(svc, testLogger())
	mux := newMux("GET /api/polls/{id}", h.GetPoll)

	rec := doJSON(t, mux, http.MethodGet, "/api/polls/99", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPollBadID(t *testing.T) {
	h := NewPollHandler(&stubPollService{}, testLogger())
	mux := newMux("GET /api/polls/{id}", h.GetPoll)

	for _, id := range []string{"abc", "0", "-3"} {
		rec := doJSON(t, mux, http.MethodGet, "/api/polls/"+id, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, "id %q", id)
	}
}

func TestGetWinnings(t *testing.T) {
	svc := &stubPollService{winnings: 923}
	h := NewPollHandler(svc, testLogger())
	mux := newMux("GET /api/polls/{id}/winnings", h.GetWinnings)

	rec := doJSON(t, mux, http.MethodGet, "/api/polls/1/winnings?side=yes&amount=700", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got winningsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.EqualValues(t, 923, got.Potential)
	require.Equal(t, domain.SideYes, got.Side)
}

func TestGetWinningsRejectsBadAmount(t *testing.T) {
	h := NewPollHandler(&stubPollService{}, testLogger())
	mux := newMux("GET /api/polls/{id}/winnings", h.GetWinnings)

	for _, q := range []string{"side=yes", "side=yes&amount=0", "side=yes&amount=x"} {
		rec := doJSON(t, mux, http.MethodGet, "/api/polls/1/winnings?"+q, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, "query %q", q)
	}
}

func TestCreatePollUnauthorizedMapsTo403(t *testing.T) {
	svc := &stubPollService{pollErr: domain.ErrUnauthorized}
	h := NewPollHandler(svc, testLogger())
	mux := newMux("POST /api/polls", h.CreatePoll)

	body := `{"creator":"` + testAdmin + `","match_id":1,"question":"q","category":"other","lock_time":99}`
	rec := doJSON(t, mux, http.MethodPost, "/api/polls", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreatePollRejectsBadAddress(t *testing.T) {
	h := NewPollHandler(&stubPollService{}, testLogger())
	mux := newMux("POST /api/polls", h.CreatePoll)

	body := `{"creator":"not-an-address","match_id":1,"question":"q","category":"other","lock_time":99}`
	rec := doJSON(t, mux, http.MethodPost, "/api/polls", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePollRejectsUnknownFields(t *testing.T) {
	h := NewPollHandler(&stubPollService{}, testLogger())
	mux := newMux("POST /api/polls", h.CreatePoll)

	rec := doJSON(t, mux, http.MethodPost, "/api/polls", `{"creator":"`+testAdmin+`","bogus":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// stubStakeService returns canned values for the stake handler.
type stubStakeService struct {
	stake    domain.Stake
	stakeErr error
	eligible bool
	refund   int64
	ids      []uint64
}

func (s *stubStakeService) Stake(ctx context.Context, staker string, pollID uint64, amount int64, side domain.Side) (domain.Stake, error) {
	return s.stake, s.stakeErr
}

func (s *stubStakeService) GetStake(ctx context.Context, pollID uint64, user string) (domain.Stake, error) {
	return s.stake, s.stakeErr
}

func (s *stubStakeService) GetUserStakes(ctx context.Context, user string) ([]uint64, error) {
	return s.ids, s.stakeErr
}

func (s *stubStakeService) CheckEmergencyEligible(ctx context.Context, pollID uint64) bool {
	return s.eligible
}

func (s *stubStakeService) EmergencyWithdraw(ctx context.Context, user string, pollID uint64) (int64, error) {
	return s.refund, s.stakeErr
}

func TestPlaceStakeCreated(t *testing.T) {
	svc := &stubStakeService{stake: domain.Stake{PollID: 3, Amount: 500, Side: domain.SideYes}}
	h := NewStakeHandler(svc, testLogger())
	mux := newMux("POST /api/polls/{id}/stakes", h.PlaceStake)

	body := `{"staker":"` + testStaker + `","amount":500,"side":"yes"}`
	rec := doJSON(t, mux, http.MethodPost, "/api/polls/3/stakes", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got domain.Stake
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.EqualValues(t, 500, got.Amount)
}

func TestPlaceStakeErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrAlreadyStaked, http.StatusConflict},
		{domain.ErrPollLocked, http.StatusConflict},
		{domain.ErrStakeAmountZero, http.StatusBadRequest},
		{domain.ErrInvalidSide, http.StatusBadRequest},
		{domain.ErrPollNotFound, http.StatusNotFound},
		{domain.ErrNotInitialized, http.StatusConflict},
		{errors.New("pool exploded"), http.StatusInternalServerError},
	}

	body := `{"staker":"` + testStaker + `","amount":500,"side":"yes"}`
	for _, tc := range cases {
		h := NewStakeHandler(&stubStakeService{stakeErr: tc.err}, testLogger())
		mux := newMux("POST /api/polls/{id}/stakes", h.PlaceStake)

		rec := doJSON(t, mux, http.MethodPost, "/api/polls/3/stakes", body)
		require.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	h := NewStakeHandler(&stubStakeService{stakeErr: errors.New("pgx: connection refused to 10.0.0.5")}, testLogger())
	mux := newMux("POST /api/polls/{id}/stakes", h.PlaceStake)

	body := `{"staker":"` + testStaker + `","amount":500,"side":"yes"}`
	rec := doJSON(t, mux, http.MethodPost, "/api/polls/3/stakes", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestGetUserStakesChecksumsAddress(t *testing.T) {
	svc := &stubStakeService{ids: []uint64{2, 5}}
	h := NewStakeHandler(svc, testLogger())
	mux := newMux("GET /api/users/{user}/stakes", h.GetUserStakes)

	rec := doJSON(t, mux, http.MethodGet, "/api/users/"+testStaker+"/stakes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got userStakesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, []uint64{2, 5}, got.PollIDs)
	// Mixed-case EIP-55 form, not the raw lowercase path segment.
	require.NotEqual(t, "", got.User)
	require.True(t, strings.HasPrefix(got.User, "0x"))
}

func TestGetUserStakesEmptyIsList(t *testing.T) {
	h := NewStakeHandler(&stubStakeService{}, testLogger())
	mux := newMux("GET /api/users/{user}/stakes", h.GetUserStakes)

	rec := doJSON(t, mux, http.MethodGet, "/api/users/"+testStaker+"/stakes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"poll_ids":[]`)
}

func TestEmergencyEligible(t *testing.T) {
	h := NewStakeHandler(&stubStakeService{eligible: true}, testLogger())
	mux := newMux("GET /api/polls/{id}/emergency-eligible", h.GetEmergencyEligible)

	rec := doJSON(t, mux, http.MethodGet, "/api/polls/4/emergency-eligible", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"eligible":true`)
}

func TestEmergencyWithdraw(t *testing.T) {
	h := NewStakeHandler(&stubStakeService{refund: 400}, testLogger())
	mux := newMux("POST /api/polls/{id}/emergency-withdraw", h.EmergencyWithdraw)

	rec := doJSON(t, mux, http.MethodPost, "/api/polls/4/emergency-withdraw", `{"user":"`+testStaker+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"refunded":400`)
}

func TestEmergencyWithdrawNotAllowed(t *testing.T) {
	h := NewStakeHandler(&stubStakeService{stakeErr: domain.ErrEmergencyNotAllowed}, testLogger())
	mux := newMux("POST /api/polls/{id}/emergency-withdraw", h.EmergencyWithdraw)

	rec := doJSON(t, mux, http.MethodPost, "/api/polls/4/emergency-withdraw", `{"user":"`+testStaker+`"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestParseAddress(t *testing.T) {
	got, err := parseAddress(testStaker)
	require.NoError(t, err)
	require.Equal(t, "0x", got[:2])
	require.Len(t, got, 42)

	_, err = parseAddress("bogus")
	require.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = parseAddress("")
	require.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(testLogger())
	mux := newMux("GET /api/health", h.HealthCheck)

	rec := doJSON(t, mux, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
	require.Contains(t, rec.Body.String(), `"service":"marketd"`)
}
