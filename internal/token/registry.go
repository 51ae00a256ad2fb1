package token

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry resolves token handles to tokens the contract may hold
type Registry struct {
	mu     sync.RWMutex
	tokens map[common.Address]Token
}

func NewRegistry(tokens ...Token) *Registry {
	r := &Registry{
		tokens: make(map[common.Address]Token, len(tokens)),
	}
	for _, t := range tokens {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Address()] = t
}

func (r *Registry) Get(address common.Address) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[address]
	return t, ok
}
