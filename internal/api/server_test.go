package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/babylonlabs-io/simple-staking/internal/api"
	"github.com/babylonlabs-io/simple-staking/internal/config"
	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/observability/tracing"
	"github.com/babylonlabs-io/simple-staking/internal/staking"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/babylonlabs-io/simple-staking/testutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler  http.Handler
	token    *token.MemoryToken
	clock    *staking.ManualClock
	owner    common.Address
	contract common.Address
}

func newTestServer(t *testing.T, health func(ctx context.Context) error) *testServer {
	t.Helper()

	owner := testutil.RandomAddress(t)
	contract := testutil.RandomAddress(t)
	tok, err := token.NewMemoryToken(testutil.RandomAddress(t), "Test Token", "TTK", owner, uint256.NewInt(1_000_000_000))
	require.NoError(t, err)
	require.NoError(t, tok.Transfer(t.Context(), owner, contract, uint256.NewInt(1_000_000)))

	clock := staking.NewManualClock(1_700_000_000)
	engine, err := staking.NewEngine(staking.Config{
		Owner:        owner,
		Contract:     contract,
		StakingToken: tok,
	}, ledger.NewMemoryStore(), nil, clock, nil)
	require.NoError(t, err)

	srv, err := api.New(&config.ServerConfig{
		Host:                "127.0.0.1",
		Port:                0,
		ReadTimeout:         time.Second,
		WriteTimeout:        time.Second,
		IdleTimeout:         time.Second,
		MaxRequestBodyBytes: 1024,
	}, engine, tok, health)
	require.NoError(t, err)

	return &testServer{
		handler:  srv.Handler(),
		token:    tok,
		clock:    clock,
		owner:    owner,
		contract: contract,
	}
}

func (s *testServer) do(t *testing.T, method, path string, caller *common.Address, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != nil {
		req.Header.Set(api.CallerHeader, caller.Hex())
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// fund gives account tokens and approves the contract to pull them through the API
func (s *testServer) fund(t *testing.T, amount uint64) common.Address {
	t.Helper()

	account := testutil.RandomAddress(t)
	require.NoError(t, s.token.Transfer(t.Context(), s.owner, account, uint256.NewInt(amount)))
	rec := s.do(t, http.MethodPost, "/v1/token/approve", &account, api.ApproveRequest{Amount: "1000000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return account
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(t, func(context.Context) error { return nil })
		rec := s.do(t, http.MethodGet, "/healthcheck", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decode[api.HealthResponse](t, rec).Status)
	})
	t.Run("unhealthy store", func(t *testing.T) {
		s := newTestServer(t, func(context.Context) error { return errors.New("connection refused") })
		rec := s.do(t, http.MethodGet, "/healthcheck", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestStakeLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.fund(t, 10_000)
	referrer := testutil.RandomAddress(t)

	rec := s.do(t, http.MethodPost, "/v1/stake", &alice, api.StakeRequest{Amount: "1000", Referrer: referrer.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stake := decode[api.StakeResponse](t, rec)
	assert.Equal(t, "1000", stake.Amount)
	assert.Equal(t, uint64(1_700_000_000), stake.LastClaim)

	rec = s.do(t, http.MethodGet, "/v1/referrers/"+alice.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ref := decode[api.ReferrerResponse](t, rec)
	require.NotNil(t, ref.Referrer)
	assert.Equal(t, referrer.Hex(), *ref.Referrer)

	rec = s.do(t, http.MethodGet, "/v1/balances/"+referrer.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", decode[api.AmountResponse](t, rec).Amount)

	s.clock.Advance(3 * 24 * time.Hour)
	rec = s.do(t, http.MethodGet, "/v1/stakes/"+alice.Hex()+"/pending-roi", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "30", decode[api.AmountResponse](t, rec).Amount)

	rec = s.do(t, http.MethodPost, "/v1/claim", &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "30", decode[api.AmountResponse](t, rec).Amount)

	rec = s.do(t, http.MethodPost, "/v1/claim", &alice, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Claim available once per 24h", decode[api.ErrorResponse](t, rec).Message)

	rec = s.do(t, http.MethodPost, "/v1/unstake", &alice, api.UnstakeRequest{Amount: "400"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "600", decode[api.StakeResponse](t, rec).Amount)

	rec = s.do(t, http.MethodGet, "/v1/balances/"+alice.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// 10000 - 1000 staked + 30 roi + 400 unstaked
	assert.Equal(t, "9430", decode[api.AmountResponse](t, rec).Amount)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.fund(t, 100)
	stranger := testutil.RandomAddress(t)

	tests := []struct {
		name    string
		method  string
		path    string
		caller  *common.Address
		body    any
		status  int
		code    string
		message string
	}{
		{
			name:    "zero stake",
			method:  http.MethodPost,
			path:    "/v1/stake",
			caller:  &alice,
			body:    api.StakeRequest{Amount: "0"},
			status:  http.StatusBadRequest,
			code:    "BAD_REQUEST",
			message: "Amount must be > 0",
		},
		{
			name:    "claim without stake",
			method:  http.MethodPost,
			path:    "/v1/claim",
			caller:  &stranger,
			status:  http.StatusNotFound,
			code:    "NOT_FOUND",
			message: "No stake",
		},
		{
			name:    "unstake more than staked",
			method:  http.MethodPost,
			path:    "/v1/unstake",
			caller:  &alice,
			body:    api.UnstakeRequest{Amount: "1"},
			status:  http.StatusBadRequest,
			code:    "BAD_REQUEST",
			message: "Invalid amount",
		},
		{
			name:    "stake beyond balance",
			method:  http.MethodPost,
			path:    "/v1/stake",
			caller:  &alice,
			body:    api.StakeRequest{Amount: "101"},
			status:  http.StatusUnprocessableEntity,
			code:    "UNPROCESSABLE_ENTITY",
			message: "Transfer failed",
		},
		{
			name:    "withdraw by non owner",
			method:  http.MethodPost,
			path:    "/v1/admin/withdraw",
			caller:  &alice,
			body:    api.WithdrawRequest{Token: s.token.Address().Hex(), Amount: "1"},
			status:  http.StatusForbidden,
			code:    "FORBIDDEN",
			message: "Not owner",
		},
		{
			name:   "missing caller",
			method: http.MethodPost,
			path:   "/v1/claim",
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "malformed amount",
			method: http.MethodPost,
			path:   "/v1/stake",
			caller: &alice,
			body:   api.StakeRequest{Amount: "ten"},
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "unknown body field",
			method: http.MethodPost,
			path:   "/v1/unstake",
			caller: &alice,
			body:   map[string]string{"amount": "1", "extra": "x"},
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "malformed path address",
			method: http.MethodGet,
			path:   "/v1/stakes/not-an-address",
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, tc.method, tc.path, tc.caller, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			resp := decode[api.ErrorResponse](t, rec)
			assert.Equal(t, tc.code, resp.ErrorCode)
			if tc.message != "" {
				assert.Equal(t, tc.message, resp.Message)
			}
		})
	}
}

func TestWithdrawTokens(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/v1/admin/withdraw", &s.owner, api.WithdrawRequest{
		Token:  s.token.Address().Hex(),
		Amount: "250000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/balances/"+s.contract.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "750000", decode[api.AmountResponse](t, rec).Amount)

	rec = s.do(t, http.MethodGet, "/v1/contract", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	contract := decode[api.ContractResponse](t, rec)
	assert.Equal(t, s.owner.Hex(), contract.Owner)
	assert.Equal(t, s.contract.Hex(), contract.Contract)
}

func TestTraceIDHeader(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/v1/contract", nil, nil)
	_, err := uuid.Parse(rec.Header().Get(tracing.TraceIDHeader))
	require.NoError(t, err)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/v1/contract", nil)
	req.Header.Set(tracing.TraceIDHeader, id)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(tracing.TraceIDHeader))
}

func TestRequestBodyLimit(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.fund(t, 100)

	rec := s.do(t, http.MethodPost, "/v1/stake", &alice, map[string]string{
		"amount": string(bytes.Repeat([]byte("1"), 2048)),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
