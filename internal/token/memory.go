package token

import (
	"context"
	"sync"

	"github.com/predictiq/engine/internal/ledger"
)

// MemoryToken is an in-process Token backed by a balance map, standing in
// for a real custody contract in tests and standalone demos. Its locking
// and balance bookkeeping mirror the teacher's wallet_repo.go
// (DeductBalance/AddBalance under a row lock), replacing the SQL row lock
// with a mutex since there is no database here.
type MemoryToken struct {
	mu       sync.Mutex
	balances map[string]ledger.Amount
}

// NewMemoryToken seeds a MemoryToken with the given opening balances.
func NewMemoryToken(opening map[string]ledger.Amount) *MemoryToken {
	m := &MemoryToken{balances: make(map[string]ledger.Amount, len(opening))}
	for addr, amt := range opening {
		m.balances[addr] = amt
	}
	return m
}

// Credit adds amount to holder's balance without moving it from anywhere,
// for seeding test fixtures after construction.
func (m *MemoryToken) Credit(holder string, amount ledger.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[holder] = m.balances[holder].Add(amount)
}

// Transfer moves amount from 'from' to 'to', failing if 'from' is short.
func (m *MemoryToken) Transfer(_ context.Context, from, to string, amount ledger.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount.IsNegative() {
		return ledger.ErrInvalidBetAmount
	}
	bal := m.balances[from]
	if bal.LessThan(amount) {
		return ledger.ErrInsufficientBalance
	}
	m.balances[from] = bal.Sub(amount)
	m.balances[to] = m.balances[to].Add(amount)
	return nil
}

// Balance returns holder's current balance, zero if unseen.
func (m *MemoryToken) Balance(_ context.Context, holder string) (ledger.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[holder], nil
}
