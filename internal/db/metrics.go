package db

import (
	"context"
	"time"

	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/observability/metrics"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/ethereum/go-ethereum/common"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) GetStake(ctx context.Context, account common.Address) (result ledger.StakeRecord, err error) {
	//nolint:errcheck
	d.run("GetStake", func() error {
		result, err = d.db.GetStake(ctx, account)
		return err
	})

	return
}

func (d *DbWithMetrics) GetReferrer(ctx context.Context, account common.Address) (result common.Address, err error) {
	//nolint:errcheck
	d.run("GetReferrer", func() error {
		result, err = d.db.GetReferrer(ctx, account)
		return err
	})

	return
}

func (d *DbWithMetrics) Commit(ctx context.Context, changes *ledger.ChangeSet) error {
	return d.run("Commit", func() error {
		return d.db.Commit(ctx, changes)
	})
}

func (d *DbWithMetrics) Totals(ctx context.Context) (result ledger.Totals, err error) {
	//nolint:errcheck
	d.run("Totals", func() error {
		result, err = d.db.Totals(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) LoadToken(ctx context.Context, address common.Address) (result *token.State, err error) {
	//nolint:errcheck
	d.run("LoadToken", func() error {
		result, err = d.db.LoadToken(ctx, address)
		return err
	})

	return
}

func (d *DbWithMetrics) CreateToken(ctx context.Context, address common.Address, state *token.State) error {
	return d.run("CreateToken", func() error {
		return d.db.CreateToken(ctx, address, state)
	})
}

func (d *DbWithMetrics) UpdateToken(ctx context.Context, address common.Address, update token.Update) error {
	return d.run("UpdateToken", func() error {
		return d.db.UpdateToken(ctx, address, update)
	})
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
