package staking

import (
	"github.com/holiman/uint256"
)

const (
	SecondsPerDay = 86400

	roiPercentPerDay     = 1
	referralBonusPerMill = 5
)

var (
	hundred  = uint256.NewInt(100)
	thousand = uint256.NewInt(1000)
)

// ElapsedDays returns the number of whole days between lastClaim and now.
// A clock behind lastClaim counts as no time elapsed.
func ElapsedDays(lastClaim, now uint64) uint64 {
	if now <= lastClaim {
		return 0
	}
	return (now - lastClaim) / SecondsPerDay
}

// ComputeROI returns amount * 1% * days, truncated
func ComputeROI(amount *uint256.Int, days uint64) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(amount, uint256.NewInt(days*roiPercentPerDay))
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return product.Div(product, hundred), nil
}

// ReferralBonus returns amount * 5 / 1000, truncated
func ReferralBonus(amount *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(amount, uint256.NewInt(referralBonusPerMill))
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return product.Div(product, thousand), nil
}
