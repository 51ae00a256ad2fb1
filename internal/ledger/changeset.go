package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// ChangeSet holds staged ledger writes
type ChangeSet struct {
	stakes    map[common.Address]StakeRecord
	referrers map[common.Address]common.Address
}

func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		stakes:    make(map[common.Address]StakeRecord),
		referrers: make(map[common.Address]common.Address),
	}
}

func (cs *ChangeSet) PutStake(account common.Address, record StakeRecord) {
	cs.stakes[account] = record.Clone()
}

func (cs *ChangeSet) PutReferrer(account, referrer common.Address) {
	cs.referrers[account] = referrer
}

// Stake returns the staged stake record for account, if any
func (cs *ChangeSet) Stake(account common.Address) (StakeRecord, bool) {
	rec, ok := cs.stakes[account]
	if !ok {
		return StakeRecord{}, false
	}
	return rec.Clone(), true
}

// Referrer returns the staged referrer for account, if any
func (cs *ChangeSet) Referrer(account common.Address) (common.Address, bool) {
	ref, ok := cs.referrers[account]
	return ref, ok
}

// Accounts returns every account touched by the change set in byte order
func (cs *ChangeSet) Accounts() []common.Address {
	seen := make(map[common.Address]struct{}, len(cs.stakes)+len(cs.referrers))
	for a := range cs.stakes {
		seen[a] = struct{}{}
	}
	for a := range cs.referrers {
		seen[a] = struct{}{}
	}

	accounts := make([]common.Address, 0, len(seen))
	for a := range seen {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return bytes.Compare(accounts[i].Bytes(), accounts[j].Bytes()) < 0
	})
	return accounts
}

func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.stakes) == 0 && len(cs.referrers) == 0
}

// View reads through staged writes onto a base store. It is the unit the engine
// stages each operation in before committing it.
type View struct {
	base    Store
	changes *ChangeSet
}

func NewView(base Store) *View {
	return &View{
		base:    base,
		changes: NewChangeSet(),
	}
}

func (v *View) Stake(ctx context.Context, account common.Address) (StakeRecord, error) {
	if rec, ok := v.changes.Stake(account); ok {
		return rec, nil
	}
	rec, err := v.base.GetStake(ctx, account)
	if err != nil {
		return StakeRecord{}, err
	}
	return rec.Clone(), nil
}

func (v *View) Referrer(ctx context.Context, account common.Address) (common.Address, error) {
	if ref, ok := v.changes.Referrer(account); ok {
		return ref, nil
	}
	return v.base.GetReferrer(ctx, account)
}

func (v *View) SetStake(account common.Address, record StakeRecord) {
	v.changes.PutStake(account, record)
}

// SetReferrer stages a referrer assignment. A referrer can only be assigned once.
func (v *View) SetReferrer(ctx context.Context, account, referrer common.Address) error {
	current, err := v.Referrer(ctx, account)
	if err != nil {
		return err
	}
	if !IsNullAccount(current) {
		return fmt.Errorf("%w: account %s", ErrReferrerAlreadySet, account.Hex())
	}
	v.changes.PutReferrer(account, referrer)
	return nil
}

func (v *View) Changes() *ChangeSet {
	return v.changes
}

func (v *View) Commit(ctx context.Context) error {
	if v.changes.IsEmpty() {
		return nil
	}
	return v.base.Commit(ctx, v.changes)
}
