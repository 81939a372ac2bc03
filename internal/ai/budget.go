package ai

import (
	"fmt"
	"sync"
)

// BudgetChecker checks and records token usage against per-session budgets.
// When a session exhausts its budget the renderer falls back to template
// prose instead of calling a provider.
type BudgetChecker interface {
	// Check returns true if the session has budget remaining.
	Check(sessionID string) (bool, error)
	// Record records token usage for a session.
	Record(sessionID string, tokens int) error
	// Usage returns current usage for a session.
	Usage(sessionID string) (used int64, budget int64, err error)
}

// InMemoryBudget is a simple in-memory budget tracker. A session with no
// budget set is unlimited.
type InMemoryBudget struct {
	mu            sync.RWMutex
	defaultBudget int64
	budgets       map[string]int64 // session -> budget limit
	usage         map[string]int64 // session -> tokens used
}

// NewInMemoryBudget creates a budget tracker. defaultBudget applies to every
// session without an explicit budget; zero means unlimited.
func NewInMemoryBudget(defaultBudget int64) *InMemoryBudget {
	return &InMemoryBudget{
		defaultBudget: defaultBudget,
		budgets:       make(map[string]int64),
		usage:         make(map[string]int64),
	}
}

// SetBudget sets the token budget for one session.
func (b *InMemoryBudget) SetBudget(sessionID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.budgets[sessionID] = tokens
}

func (b *InMemoryBudget) budgetFor(sessionID string) (int64, bool) {
	if budget, ok := b.budgets[sessionID]; ok {
		return budget, true
	}
	if b.defaultBudget > 0 {
		return b.defaultBudget, true
	}
	return 0, false
}

func (b *InMemoryBudget) Check(sessionID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	budget, hasBudget := b.budgetFor(sessionID)
	if !hasBudget {
		return true, nil
	}
	return b.usage[sessionID] < budget, nil
}

func (b *InMemoryBudget) Record(sessionID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[sessionID] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(sessionID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	budget, _ := b.budgetFor(sessionID)
	return b.usage[sessionID], budget, nil
}
