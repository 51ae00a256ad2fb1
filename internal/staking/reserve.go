package staking

import (
	"context"
	"fmt"

	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/holiman/uint256"
)

// ReserveStatus splits the contract's staking token balance into the principal
// owed back to stakers and the reserve that pays ROI and referral bonuses
type ReserveStatus struct {
	Balance *uint256.Int
	Totals  ledger.Totals
	// Reserve is zero when the balance does not cover the principal
	Reserve *uint256.Int
}

// Covered reports whether the balance covers every staker's principal
func (s ReserveStatus) Covered() bool {
	return !s.Balance.Lt(s.Totals.Principal)
}

// Reserve reads the ledger totals and the contract balance as one consistent snapshot
func (e *Engine) Reserve(ctx context.Context) (ReserveStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	totals, err := e.store.Totals(ctx)
	if err != nil {
		return ReserveStatus{}, fmt.Errorf("failed to get ledger totals: %w", err)
	}
	if totals.Principal == nil {
		totals.Principal = uint256.NewInt(0)
	}
	balance, err := e.cfg.StakingToken.BalanceOf(ctx, e.cfg.Contract)
	if err != nil {
		return ReserveStatus{}, fmt.Errorf("failed to get contract balance: %w", err)
	}

	status := ReserveStatus{Balance: balance, Totals: totals, Reserve: uint256.NewInt(0)}
	if status.Covered() {
		status.Reserve.Sub(balance, totals.Principal)
	}
	return status, nil
}
