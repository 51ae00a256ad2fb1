package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const Decimals = 18

// MemoryToken is an in-process ERC-20 style token. The whole initial supply is
// minted to the deployer, the same way the TestToken of a local deployment is.
// When backed by a StateStore every change is written there before it becomes
// visible.
type MemoryToken struct {
	mu      sync.RWMutex
	address common.Address
	state   *State
	store   StateStore
}

// NewMemoryToken creates a token that lives only as long as the process
func NewMemoryToken(
	address common.Address, name, symbol string,
	deployer common.Address, initialSupply *uint256.Int,
) (*MemoryToken, error) {
	t := &MemoryToken{
		address: address,
		state:   newState(name, symbol),
	}
	if initialSupply != nil && !initialSupply.IsZero() {
		update, err := t.mintUpdate(deployer, initialSupply)
		if err != nil {
			return nil, fmt.Errorf("failed to mint initial supply: %w", err)
		}
		t.state.apply(update)
	}
	return t, nil
}

// Deployment describes the token created on first start. Allocations are
// transferred out of the deployer's freshly minted supply.
type Deployment struct {
	Address       common.Address
	Name          string
	Symbol        string
	Deployer      common.Address
	InitialSupply *uint256.Int
	Allocations   map[common.Address]*uint256.Int
}

// Deploy restores the token at d.Address from store. If store has never seen
// it, the token is minted, the allocations are made and the result is saved
// in a single write. created reports whether this call deployed the token.
func Deploy(ctx context.Context, store StateStore, d Deployment) (tok *MemoryToken, created bool, err error) {
	state, err := store.LoadToken(ctx, d.Address)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load token %s: %w", d.Address.Hex(), err)
	}
	if state != nil {
		state.init()
		return &MemoryToken{address: d.Address, state: state, store: store}, false, nil
	}

	t, err := NewMemoryToken(d.Address, d.Name, d.Symbol, d.Deployer, d.InitialSupply)
	if err != nil {
		return nil, false, err
	}
	for to, amount := range d.Allocations {
		if err := t.Transfer(ctx, d.Deployer, to, amount); err != nil {
			return nil, false, fmt.Errorf("failed to allocate %s to %s: %w", amount.Dec(), to.Hex(), err)
		}
	}
	if err := store.CreateToken(ctx, d.Address, t.state.Clone()); err != nil {
		return nil, false, fmt.Errorf("failed to save token %s: %w", d.Address.Hex(), err)
	}
	t.store = store
	return t, true, nil
}

func (t *MemoryToken) Address() common.Address {
	return t.address
}

func (t *MemoryToken) Name() string {
	return t.state.Name
}

func (t *MemoryToken) Symbol() string {
	return t.state.Symbol
}

func (t *MemoryToken) TotalSupply() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.TotalSupply.Clone()
}

func (t *MemoryToken) BalanceOf(_ context.Context, account common.Address) (*uint256.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceOf(account).Clone(), nil
}

func (t *MemoryToken) Allowance(owner, spender common.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowance(owner, spender).Clone()
}

// Approve sets the amount spender may move out of owner's balance
func (t *MemoryToken) Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error {
	if owner == (common.Address{}) {
		return fmt.Errorf("%w: approve from the zero address", ErrInvalidSender)
	}
	if spender == (common.Address{}) {
		return fmt.Errorf("%w: approve to the zero address", ErrInvalidReceiver)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.commit(ctx, Update{
		Allowances: []Allowance{{Owner: owner, Spender: spender, Amount: amount.Clone()}},
	})
}

func (t *MemoryToken) Mint(ctx context.Context, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	update, err := t.mintUpdate(to, amount)
	if err != nil {
		return err
	}
	return t.commit(ctx, update)
}

func (t *MemoryToken) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	update, err := t.transferUpdate(from, to, amount)
	if err != nil {
		return err
	}
	return t.commit(ctx, update)
}

func (t *MemoryToken) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowed := t.allowance(from, spender)
	if allowed.Lt(amount) {
		return fmt.Errorf(
			"%w: spender %s allowed %s, needs %s",
			ErrInsufficientAllowance, spender.Hex(), allowed.Dec(), amount.Dec(),
		)
	}
	update, err := t.transferUpdate(from, to, amount)
	if err != nil {
		return err
	}
	if _, ok := t.state.Allowances[from][spender]; ok {
		update.Allowances = append(update.Allowances, Allowance{
			Owner:   from,
			Spender: spender,
			Amount:  new(uint256.Int).Sub(allowed, amount),
		})
	}
	return t.commit(ctx, update)
}

// commit persists update and then applies it. Callers must hold t.mu.
func (t *MemoryToken) commit(ctx context.Context, update Update) error {
	if t.store != nil {
		if err := t.store.UpdateToken(ctx, t.address, update); err != nil {
			return fmt.Errorf("failed to persist token %s: %w", t.address.Hex(), err)
		}
	}
	t.state.apply(update)
	return nil
}

func (t *MemoryToken) mintUpdate(to common.Address, amount *uint256.Int) (Update, error) {
	if to == (common.Address{}) {
		return Update{}, fmt.Errorf("%w: mint to the zero address", ErrInvalidReceiver)
	}

	supply, overflow := new(uint256.Int).AddOverflow(t.state.TotalSupply, amount)
	if overflow {
		return Update{}, ErrSupplyOverflow
	}
	// balances can not overflow since they never exceed the total supply
	return Update{
		TotalSupply: supply,
		Balances: map[common.Address]*uint256.Int{
			to: new(uint256.Int).Add(t.balanceOf(to), amount),
		},
	}, nil
}

func (t *MemoryToken) transferUpdate(from, to common.Address, amount *uint256.Int) (Update, error) {
	if from == (common.Address{}) {
		return Update{}, fmt.Errorf("%w: transfer from the zero address", ErrInvalidSender)
	}
	if to == (common.Address{}) {
		return Update{}, fmt.Errorf("%w: transfer to the zero address", ErrInvalidReceiver)
	}

	balance := t.balanceOf(from)
	if balance.Lt(amount) {
		return Update{}, fmt.Errorf(
			"%w: account %s has %s, needs %s",
			ErrInsufficientBalance, from.Hex(), balance.Dec(), amount.Dec(),
		)
	}

	remaining := new(uint256.Int).Sub(balance, amount)
	received := t.balanceOf(to)
	if to == from {
		received = remaining
	}
	return Update{
		Balances: map[common.Address]*uint256.Int{
			from: remaining,
			to:   new(uint256.Int).Add(received, amount),
		},
	}, nil
}

func (t *MemoryToken) balanceOf(account common.Address) *uint256.Int {
	if balance, ok := t.state.Balances[account]; ok {
		return balance
	}
	return uint256.NewInt(0)
}

func (t *MemoryToken) allowance(owner, spender common.Address) *uint256.Int {
	if allowed, ok := t.state.Allowances[owner][spender]; ok {
		return allowed
	}
	return uint256.NewInt(0)
}
