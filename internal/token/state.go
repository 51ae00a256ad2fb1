package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// State is a full snapshot of a token
type State struct {
	Name        string
	Symbol      string
	TotalSupply *uint256.Int
	Balances    map[common.Address]*uint256.Int
	Allowances  map[common.Address]map[common.Address]*uint256.Int
}

// Allowance is the amount Spender may move out of Owner's balance
type Allowance struct {
	Owner   common.Address
	Spender common.Address
	Amount  *uint256.Int
}

// Update holds the values changed by a single token operation. A StateStore
// writes all of them or none.
type Update struct {
	// TotalSupply is nil when unchanged
	TotalSupply *uint256.Int
	Balances    map[common.Address]*uint256.Int
	Allowances  []Allowance
}

// StateStore persists token state so balances and allowances survive a restart
type StateStore interface {
	// LoadToken returns nil when no token was deployed at address
	LoadToken(ctx context.Context, address common.Address) (*State, error)
	CreateToken(ctx context.Context, address common.Address, state *State) error
	UpdateToken(ctx context.Context, address common.Address, update Update) error
}

func newState(name, symbol string) *State {
	s := &State{Name: name, Symbol: symbol}
	s.init()
	return s
}

func (s *State) init() {
	if s.TotalSupply == nil {
		s.TotalSupply = uint256.NewInt(0)
	}
	if s.Balances == nil {
		s.Balances = make(map[common.Address]*uint256.Int)
	}
	if s.Allowances == nil {
		s.Allowances = make(map[common.Address]map[common.Address]*uint256.Int)
	}
}

func (s *State) Clone() *State {
	c := newState(s.Name, s.Symbol)
	if s.TotalSupply != nil {
		c.TotalSupply = s.TotalSupply.Clone()
	}
	for account, balance := range s.Balances {
		c.Balances[account] = balance.Clone()
	}
	for owner, spenders := range s.Allowances {
		copied := make(map[common.Address]*uint256.Int, len(spenders))
		for spender, amount := range spenders {
			copied[spender] = amount.Clone()
		}
		c.Allowances[owner] = copied
	}
	return c
}

func (s *State) apply(u Update) {
	if u.TotalSupply != nil {
		s.TotalSupply = u.TotalSupply.Clone()
	}
	for account, balance := range u.Balances {
		s.Balances[account] = balance.Clone()
	}
	for _, a := range u.Allowances {
		spenders, ok := s.Allowances[a.Owner]
		if !ok {
			spenders = make(map[common.Address]*uint256.Int)
			s.Allowances[a.Owner] = spenders
		}
		spenders[a.Spender] = a.Amount.Clone()
	}
}

// MemoryStateStore keeps token state in process. It is used when no database
// is configured and in tests.
type MemoryStateStore struct {
	mu     sync.Mutex
	tokens map[common.Address]*State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{tokens: make(map[common.Address]*State)}
}

func (m *MemoryStateStore) LoadToken(_ context.Context, address common.Address) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.tokens[address]
	if !ok {
		return nil, nil
	}
	return state.Clone(), nil
}

func (m *MemoryStateStore) CreateToken(_ context.Context, address common.Address, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[address]; ok {
		return fmt.Errorf("%w: %s", ErrTokenExists, address.Hex())
	}
	m.tokens[address] = state.Clone()
	return nil
}

func (m *MemoryStateStore) UpdateToken(_ context.Context, address common.Address, update Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.tokens[address]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotDeployed, address.Hex())
	}
	state.apply(update)
	return nil
}
