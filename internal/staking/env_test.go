package staking_test

import (
	"testing"

	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/queue"
	"github.com/babylonlabs-io/simple-staking/internal/staking"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/babylonlabs-io/simple-staking/testutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const (
	startTime       = uint64(1_700_000_000)
	ownerSupply     = uint64(1_000_000_000_000)
	contractReserve = uint64(1_000_000_000)
)

type testEnv struct {
	engine   *staking.Engine
	token    *token.MemoryToken
	store    *ledger.MemoryStore
	registry *token.Registry
	clock    *staking.ManualClock
	owner    common.Address
	contract common.Address
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithPublisher(t, queue.NewLogPublisher())
}

func newTestEnvWithPublisher(t *testing.T, publisher queue.EventPublisher) *testEnv {
	t.Helper()

	owner := testutil.RandomAddress(t)
	contract := testutil.RandomAddress(t)

	tok, err := token.NewMemoryToken(testutil.RandomAddress(t), "Test Token", "TTK", owner, uint256.NewInt(ownerSupply))
	require.NoError(t, err)
	// the contract needs a reserve to pay ROI and referral bonuses from
	require.NoError(t, tok.Transfer(t.Context(), owner, contract, uint256.NewInt(contractReserve)))

	store := ledger.NewMemoryStore()
	registry := token.NewRegistry()
	clock := staking.NewManualClock(startTime)

	engine, err := staking.NewEngine(staking.Config{
		Owner:        owner,
		Contract:     contract,
		StakingToken: tok,
	}, store, registry, clock, publisher)
	require.NoError(t, err)

	return &testEnv{
		engine:   engine,
		token:    tok,
		store:    store,
		registry: registry,
		clock:    clock,
		owner:    owner,
		contract: contract,
	}
}

// newStaker returns an account holding amount tokens, all approved to the contract
func (env *testEnv) newStaker(t *testing.T, amount uint64) common.Address {
	t.Helper()

	account := testutil.RandomAddress(t)
	require.NoError(t, env.token.Transfer(t.Context(), env.owner, account, uint256.NewInt(amount)))
	require.NoError(t, env.token.Approve(t.Context(), account, env.contract, uint256.NewInt(amount)))
	return account
}

func (env *testEnv) balance(t *testing.T, account common.Address) uint64 {
	t.Helper()

	balance, err := env.token.BalanceOf(t.Context(), account)
	require.NoError(t, err)
	return balance.Uint64()
}

func (env *testEnv) stakeOf(t *testing.T, account common.Address) ledger.StakeRecord {
	t.Helper()

	rec, err := env.engine.StakeOf(t.Context(), account)
	require.NoError(t, err)
	return rec
}

func (env *testEnv) referrerOf(t *testing.T, account common.Address) common.Address {
	t.Helper()

	ref, err := env.engine.ReferrerOf(t.Context(), account)
	require.NoError(t, err)
	return ref
}

func (env *testEnv) pendingROI(t *testing.T, account common.Address) uint64 {
	t.Helper()

	roi, err := env.engine.PendingROI(t.Context(), account)
	require.NoError(t, err)
	return roi.Uint64()
}
