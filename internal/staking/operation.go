package staking

import (
	"context"
	"fmt"

	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/observability/metrics"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/babylonlabs-io/simple-staking/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
)

type transfer struct {
	tok    token.Token
	from   common.Address
	to     common.Address
	amount *uint256.Int
}

// operation stages ledger writes and records every token movement so that a
// failure before the final commit can be undone
type operation struct {
	ctx         context.Context
	contract    common.Address
	view        *ledger.View
	done        []transfer
	events      []*types.StakingEvent
	stakedDelta int
}

func newOperation(ctx context.Context, contract common.Address, store ledger.Store) *operation {
	return &operation{
		ctx:      ctx,
		contract: contract,
		view:     ledger.NewView(store),
	}
}

// pull moves amount from account into the contract using the allowance
// account granted to the contract
func (op *operation) pull(tok token.Token, account common.Address, amount *uint256.Int) error {
	if err := tok.TransferFrom(op.ctx, op.contract, account, op.contract, amount); err != nil {
		return transferFailed(fmt.Errorf(
			"failed to pull %s from %s: %w", amount.Dec(), account.Hex(), err,
		))
	}
	op.done = append(op.done, transfer{tok: tok, from: account, to: op.contract, amount: amount.Clone()})
	return nil
}

// push moves amount out of the contract balance
func (op *operation) push(tok token.Token, to common.Address, amount *uint256.Int) error {
	if err := tok.Transfer(op.ctx, op.contract, to, amount); err != nil {
		return transferFailed(fmt.Errorf(
			"failed to transfer %s to %s: %w", amount.Dec(), to.Hex(), err,
		))
	}
	op.done = append(op.done, transfer{tok: tok, from: op.contract, to: to, amount: amount.Clone()})
	return nil
}

func (op *operation) emit(event *types.StakingEvent) {
	op.events = append(op.events, event)
}

func (op *operation) commit() error {
	if err := op.view.Commit(op.ctx); err != nil {
		return fmt.Errorf("failed to commit ledger changes: %w", err)
	}
	return nil
}

// rollback reverses completed transfers, newest first. It keeps going past
// individual failures so that as much as possible is returned.
func (op *operation) rollback() {
	ctx := context.WithoutCancel(op.ctx)
	for i := len(op.done) - 1; i >= 0; i-- {
		t := op.done[i]
		if err := t.tok.Transfer(ctx, t.to, t.from, t.amount); err != nil {
			metrics.IncCompensationFailures()
			log.Ctx(ctx).Error().
				Err(err).
				Str("token", t.tok.Address().Hex()).
				Str("from", t.to.Hex()).
				Str("to", t.from.Hex()).
				Str("amount", t.amount.Dec()).
				Msg("failed to revert token transfer")
		}
	}
	op.done = nil
}
