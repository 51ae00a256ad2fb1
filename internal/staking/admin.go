package staking

import (
	"context"
	"fmt"

	"github.com/babylonlabs-io/simple-staking/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// WithdrawTokens sends amount of any token the contract holds to the owner
func (e *Engine) WithdrawTokens(ctx context.Context, caller, tokenAddress common.Address, amount *uint256.Int) error {
	return e.run(ctx, opWithdrawTokens, func(op *operation) error {
		if caller != e.cfg.Owner {
			return ErrNotOwner
		}

		tok, ok := e.tokens.Get(tokenAddress)
		if !ok {
			return transferFailed(fmt.Errorf("unknown token %s", tokenAddress.Hex()))
		}
		if amount == nil {
			amount = uint256.NewInt(0)
		}
		if err := op.push(tok, e.cfg.Owner, amount); err != nil {
			return err
		}

		op.emit(types.NewStakingEvent(types.EventTokensWithdrawn, e.cfg.Owner, amount, e.clock.Now()).WithCounterparty(tokenAddress))
		return nil
	})
}
