package db

import (
	"context"

	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/token"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	ledger.Store
	token.StateStore
}
