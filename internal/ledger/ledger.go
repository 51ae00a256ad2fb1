package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrReferrerAlreadySet = errors.New("referrer already set")
)

// StakeRecord is the per-account staking position. The zero value (nil Amount) is
// treated the same as an explicit zero stake.
type StakeRecord struct {
	Amount    *uint256.Int
	LastClaim uint64
}

// IsStaked reports whether the record holds a positive principal
func (r StakeRecord) IsStaked() bool {
	return r.Amount != nil && !r.Amount.IsZero()
}

// Clone returns a deep copy with a non-nil Amount
func (r StakeRecord) Clone() StakeRecord {
	amount := uint256.NewInt(0)
	if r.Amount != nil {
		amount.Set(r.Amount)
	}
	return StakeRecord{Amount: amount, LastClaim: r.LastClaim}
}

// Store is the keyed ledger storage. Absent accounts read as zero values.
//
//go:generate mockery --name=Store --output=../../tests/mocks --outpkg=mocks --filename=mock_ledger_store.go
type Store interface {
	GetStake(ctx context.Context, account common.Address) (StakeRecord, error)
	GetReferrer(ctx context.Context, account common.Address) (common.Address, error)
	// Commit applies every write of the change set or none of them
	Commit(ctx context.Context, changes *ChangeSet) error
	Totals(ctx context.Context) (Totals, error)
}

// Totals summarises the committed ledger
type Totals struct {
	// Stakers counts the accounts with a positive principal
	Stakers   int
	Principal *uint256.Int
}

// Add accounts for one more stake record
func (t *Totals) Add(rec StakeRecord) error {
	if t.Principal == nil {
		t.Principal = uint256.NewInt(0)
	}
	if !rec.IsStaked() {
		return nil
	}
	sum, overflow := new(uint256.Int).AddOverflow(t.Principal, rec.Amount)
	if overflow {
		return errors.New("total staked principal overflows")
	}
	t.Principal = sum
	t.Stakers++
	return nil
}

// IsNullAccount reports whether addr is the null identifier
func IsNullAccount(addr common.Address) bool {
	return addr == (common.Address{})
}
