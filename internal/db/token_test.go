//go:build integration

package db_test

import (
	"testing"

	"github.com/babylonlabs-io/simple-staking/internal/db"
	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/babylonlabs-io/simple-staking/testutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenState(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	owner := testutil.RandomAddress(t)
	contract := testutil.RandomAddress(t)
	staker := testutil.RandomAddress(t)
	deployment := token.Deployment{
		Address:       testutil.RandomAddress(t),
		Name:          "Test Token",
		Symbol:        "TTK",
		Deployer:      owner,
		InitialSupply: uint256.NewInt(1_000_000),
		Allocations:   map[common.Address]*uint256.Int{contract: uint256.NewInt(10_000)},
	}

	t.Run("absent token loads as nil", func(t *testing.T) {
		state, err := testDB.LoadToken(ctx, testutil.RandomAddress(t))
		require.NoError(t, err)
		assert.Nil(t, state)
	})
	t.Run("update of unknown token fails", func(t *testing.T) {
		err := testDB.UpdateToken(ctx, testutil.RandomAddress(t), token.Update{TotalSupply: uint256.NewInt(1)})
		require.ErrorIs(t, err, token.ErrTokenNotDeployed)
	})
	t.Run("balances survive a redeploy", func(t *testing.T) {
		store := db.NewDbWithMetrics(testDB)
		tok, created, err := token.Deploy(ctx, store, deployment)
		require.NoError(t, err)
		require.True(t, created)

		require.NoError(t, tok.Transfer(ctx, owner, staker, uint256.NewInt(500)))
		require.NoError(t, tok.Approve(ctx, staker, contract, uint256.NewInt(500)))
		require.NoError(t, tok.TransferFrom(ctx, contract, staker, contract, uint256.NewInt(200)))

		restored, created, err := token.Deploy(ctx, store, deployment)
		require.NoError(t, err)
		assert.False(t, created)

		balance, err := restored.BalanceOf(ctx, contract)
		require.NoError(t, err)
		assert.Equal(t, uint64(10_200), balance.Uint64())
		balance, err = restored.BalanceOf(ctx, staker)
		require.NoError(t, err)
		assert.Equal(t, uint64(300), balance.Uint64())
		assert.Equal(t, uint64(300), restored.Allowance(staker, contract).Uint64())
		assert.Equal(t, uint64(1_000_000), restored.TotalSupply().Uint64())
	})
	t.Run("second create is rejected", func(t *testing.T) {
		address := testutil.RandomAddress(t)
		state := &token.State{Name: "Test Token", Symbol: "TTK", TotalSupply: uint256.NewInt(1)}

		require.NoError(t, testDB.CreateToken(ctx, address, state))
		err := testDB.CreateToken(ctx, address, state)
		require.ErrorIs(t, err, token.ErrTokenExists)
		assert.True(t, db.IsDuplicateKeyError(err))
	})
}

func TestTotals(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})
	resetDatabase(t)

	changes := ledger.NewChangeSet()
	changes.PutStake(testutil.RandomAddress(t), ledger.StakeRecord{Amount: uint256.NewInt(700), LastClaim: 1})
	changes.PutStake(testutil.RandomAddress(t), ledger.StakeRecord{Amount: uint256.NewInt(300), LastClaim: 1})
	// a referrer only document holds no principal
	changes.PutReferrer(testutil.RandomAddress(t), testutil.RandomAddress(t))
	require.NoError(t, testDB.Commit(ctx, changes))

	totals, err := testDB.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Stakers)
	assert.Equal(t, uint64(1000), totals.Principal.Uint64())
}
