//go:build integration

package db_test

import (
	"testing"
	"time"

	"github.com/babylonlabs-io/simple-staking/internal/db"
	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/queue"
	"github.com/babylonlabs-io/simple-staking/internal/staking"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/babylonlabs-io/simple-staking/testutil"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaker(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, testDB.Ping(ctx))
	})
	t.Run("absent account reads as zero", func(t *testing.T) {
		account := testutil.RandomAddress(t)

		rec, err := testDB.GetStake(ctx, account)
		require.NoError(t, err)
		assert.False(t, rec.IsStaked())
		assert.Zero(t, rec.LastClaim)

		ref, err := testDB.GetReferrer(ctx, account)
		require.NoError(t, err)
		assert.True(t, ledger.IsNullAccount(ref))
	})
	t.Run("commit upserts", func(t *testing.T) {
		account := testutil.RandomAddress(t)
		referrer := testutil.RandomAddress(t)

		// larger than 64 bits to check the decimal encoding
		amount, err := uint256.FromDecimal("123456789012345678901234567890")
		require.NoError(t, err)

		changes := ledger.NewChangeSet()
		changes.PutStake(account, ledger.StakeRecord{Amount: amount, LastClaim: 1_700_000_000})
		changes.PutReferrer(account, referrer)
		require.NoError(t, testDB.Commit(ctx, changes))

		rec, err := testDB.GetStake(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, amount.Dec(), rec.Amount.Dec())
		assert.Equal(t, uint64(1_700_000_000), rec.LastClaim)

		ref, err := testDB.GetReferrer(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, referrer, ref)

		// a later stake only write keeps the referrer
		changes = ledger.NewChangeSet()
		changes.PutStake(account, ledger.StakeRecord{Amount: uint256.NewInt(5), LastClaim: 1_700_000_100})
		require.NoError(t, testDB.Commit(ctx, changes))

		ref, err = testDB.GetReferrer(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, referrer, ref)
	})
	t.Run("referrer cannot be overwritten", func(t *testing.T) {
		account := testutil.RandomAddress(t)
		first := testutil.RandomAddress(t)

		changes := ledger.NewChangeSet()
		changes.PutReferrer(account, first)
		require.NoError(t, testDB.Commit(ctx, changes))

		changes = ledger.NewChangeSet()
		changes.PutStake(account, ledger.StakeRecord{Amount: uint256.NewInt(5)})
		changes.PutReferrer(account, testutil.RandomAddress(t))
		err := testDB.Commit(ctx, changes)
		require.ErrorIs(t, err, ledger.ErrReferrerAlreadySet)
		assert.True(t, db.IsDuplicateKeyError(err))

		ref, err := testDB.GetReferrer(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, first, ref)

		rec, err := testDB.GetStake(ctx, account)
		require.NoError(t, err)
		assert.False(t, rec.IsStaked())
	})
	t.Run("engine over mongo", func(t *testing.T) {
		owner := testutil.RandomAddress(t)
		contract := testutil.RandomAddress(t)
		staker := testutil.RandomAddress(t)
		referrer := testutil.RandomAddress(t)

		tok, err := token.NewMemoryToken(testutil.RandomAddress(t), "Test Token", "TTK", owner, uint256.NewInt(1_000_000))
		require.NoError(t, err)
		require.NoError(t, tok.Transfer(ctx, owner, contract, uint256.NewInt(10_000)))
		require.NoError(t, tok.Transfer(ctx, owner, staker, uint256.NewInt(1000)))
		require.NoError(t, tok.Approve(ctx, staker, contract, uint256.NewInt(1000)))

		clock := staking.NewManualClock(1_700_000_000)
		engine, err := staking.NewEngine(staking.Config{
			Owner:        owner,
			Contract:     contract,
			StakingToken: tok,
		}, db.NewDbWithMetrics(testDB), nil, clock, queue.NewLogPublisher())
		require.NoError(t, err)

		require.NoError(t, engine.Stake(ctx, staker, uint256.NewInt(1000), referrer))
		clock.Advance(24 * time.Hour)

		paid, err := engine.ClaimROI(ctx, staker)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), paid.Uint64())

		require.NoError(t, engine.Unstake(ctx, staker, uint256.NewInt(250)))

		rec, err := testDB.GetStake(ctx, staker)
		require.NoError(t, err)
		assert.Equal(t, uint64(750), rec.Amount.Uint64())
		assert.Equal(t, clock.Now(), rec.LastClaim)

		ref, err := testDB.GetReferrer(ctx, staker)
		require.NoError(t, err)
		assert.Equal(t, referrer, ref)
	})
}
