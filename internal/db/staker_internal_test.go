package db

import (
	"context"
	"testing"

	"github.com/babylonlabs-io/simple-staking/internal/db/model"
	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/babylonlabs-io/simple-staking/testutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestBuildStakerWrites(t *testing.T) {
	account := testutil.RandomAddress(t)
	referrer := testutil.RandomAddress(t)

	t.Run("stake only", func(t *testing.T) {
		changes := ledger.NewChangeSet()
		changes.PutStake(account, ledger.StakeRecord{Amount: uint256.NewInt(1000), LastClaim: 42})

		models := buildStakerWrites(changes)
		require.Len(t, models, 1)
		update, ok := models[0].(*mongo.UpdateOneModel)
		require.True(t, ok)

		assert.Equal(t, bson.M{"_id": account.Hex()}, update.Filter)
		assert.Equal(t, bson.M{"$set": bson.M{"amount": "1000", "last_claim": int64(42)}}, update.Update)
		require.NotNil(t, update.Upsert)
		assert.True(t, *update.Upsert)
	})
	t.Run("referrer adds a guard", func(t *testing.T) {
		changes := ledger.NewChangeSet()
		changes.PutStake(account, ledger.StakeRecord{Amount: uint256.NewInt(1), LastClaim: 1})
		changes.PutReferrer(account, referrer)

		models := buildStakerWrites(changes)
		require.Len(t, models, 1)
		update := models[0].(*mongo.UpdateOneModel)

		assert.Equal(t, bson.M{
			"_id":      account.Hex(),
			"referrer": bson.M{"$in": bson.A{nil, "", referrer.Hex()}},
		}, update.Filter)
		set := update.Update.(bson.M)["$set"].(bson.M)
		assert.Equal(t, referrer.Hex(), set["referrer"])
	})
	t.Run("one write per account", func(t *testing.T) {
		changes := ledger.NewChangeSet()
		changes.PutStake(account, ledger.StakeRecord{Amount: uint256.NewInt(1)})
		changes.PutStake(referrer, ledger.StakeRecord{Amount: uint256.NewInt(2)})

		assert.Len(t, buildStakerWrites(changes), 2)
	})
}

func TestToStakeRecord(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		rec, err := toStakeRecord(&model.StakerDocument{Address: "a", Amount: "1000", LastClaim: 7})
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), rec.Amount.Uint64())
		assert.Equal(t, uint64(7), rec.LastClaim)
	})
	t.Run("referrer only document", func(t *testing.T) {
		rec, err := toStakeRecord(&model.StakerDocument{Address: "a"})
		require.NoError(t, err)
		assert.False(t, rec.IsStaked())
	})
	t.Run("corrupted amount", func(t *testing.T) {
		_, err := toStakeRecord(&model.StakerDocument{Address: "a", Amount: "-1"})
		require.Error(t, err)
		assert.True(t, IsInvalidDocumentError(err))
	})
	t.Run("negative last claim", func(t *testing.T) {
		_, err := toStakeRecord(&model.StakerDocument{Address: "a", Amount: "1", LastClaim: -1})
		assert.True(t, IsInvalidDocumentError(err))
	})
}

type memoryDb struct {
	*ledger.MemoryStore
	*token.MemoryStateStore
}

func (memoryDb) Ping(_ context.Context) error {
	return nil
}

func TestDbWithMetrics(t *testing.T) {
	ctx := t.Context()
	d := NewDbWithMetrics(memoryDb{
		MemoryStore:      ledger.NewMemoryStore(),
		MemoryStateStore: token.NewMemoryStateStore(),
	})
	account := testutil.RandomAddress(t)
	referrer := testutil.RandomAddress(t)

	require.NoError(t, d.Ping(ctx))

	changes := ledger.NewChangeSet()
	changes.PutStake(account, ledger.StakeRecord{Amount: uint256.NewInt(3), LastClaim: 9})
	changes.PutReferrer(account, referrer)
	require.NoError(t, d.Commit(ctx, changes))

	rec, err := d.GetStake(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rec.Amount.Uint64())

	ref, err := d.GetReferrer(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, referrer, ref)

	changes = ledger.NewChangeSet()
	changes.PutReferrer(account, testutil.RandomAddress(t))
	require.ErrorIs(t, d.Commit(ctx, changes), ledger.ErrReferrerAlreadySet)

	totals, err := d.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Stakers)
	assert.Equal(t, uint64(3), totals.Principal.Uint64())

	tokenAddress := testutil.RandomAddress(t)
	require.NoError(t, d.CreateToken(ctx, tokenAddress, &token.State{Name: "Test Token", Symbol: "TTK"}))
	require.NoError(t, d.UpdateToken(ctx, tokenAddress, token.Update{
		Balances: map[common.Address]*uint256.Int{account: uint256.NewInt(8)},
	}))
	state, err := d.LoadToken(ctx, tokenAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), state.Balances[account].Uint64())
}
