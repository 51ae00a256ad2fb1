package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MemoryStore is a map backed Store
type MemoryStore struct {
	mu        sync.RWMutex
	stakes    map[common.Address]StakeRecord
	referrers map[common.Address]common.Address
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stakes:    make(map[common.Address]StakeRecord),
		referrers: make(map[common.Address]common.Address),
	}
}

func (s *MemoryStore) GetStake(_ context.Context, account common.Address) (StakeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.stakes[account]
	if !ok {
		return StakeRecord{}.Clone(), nil
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) GetReferrer(_ context.Context, account common.Address) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.referrers[account], nil
}

func (s *MemoryStore) Commit(_ context.Context, changes *ChangeSet) error {
	if changes == nil {
		return fmt.Errorf("change set cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// validate before applying anything so a rejected commit leaves no trace
	for account, referrer := range changes.referrers {
		current := s.referrers[account]
		if !IsNullAccount(current) && current != referrer {
			return fmt.Errorf("%w: account %s", ErrReferrerAlreadySet, account.Hex())
		}
	}

	for account, rec := range changes.stakes {
		s.stakes[account] = rec.Clone()
	}
	for account, referrer := range changes.referrers {
		s.referrers[account] = referrer
	}

	return nil
}

func (s *MemoryStore) Totals(_ context.Context) (Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := Totals{Principal: uint256.NewInt(0)}
	for _, rec := range s.stakes {
		if err := totals.Add(rec); err != nil {
			return Totals{}, err
		}
	}
	return totals, nil
}

// Len returns the number of accounts with a stake record
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stakes)
}
