package economy

import (
	"fmt"
	"sync"
)

// MemoryGateway keeps balances in memory behind a per-gateway lock.
// It backs tests and local development; the lock gives the same
// atomic debit semantics as the sqlite ledger.
type MemoryGateway struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewMemoryGateway creates an empty in-memory ledger.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{balances: make(map[string]int64)}
}

// Seed sets a user's balance directly, bypassing the ledger.
func (g *MemoryGateway) Seed(userID string, balance int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balances[userID] = balance
}

func (g *MemoryGateway) Debit(userID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("debit amount cannot be negative: %d", amount)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.balances[userID] < amount {
		return ErrInsufficientFunds
	}
	g.balances[userID] -= amount
	return nil
}

func (g *MemoryGateway) Credit(userID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("credit amount cannot be negative: %d", amount)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.balances[userID] += amount
	return nil
}

func (g *MemoryGateway) Balance(userID string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[userID], nil
}
