package ledger

import (
	"context"
	"sync"
	"time"
)

// memStore is an in-memory Store for tests. It mirrors the conditional
// semantics of the SQL implementation: a debit only lands when the balance
// covers it, and every balance change appends a matching transaction under
// the same lock.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	txs      map[string][]Transaction
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*Account),
		txs:      make(map[string][]Transaction),
	}
}

func (m *memStore) addAccount(a *Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accounts[a.ID] = &cp
	if cp.Credits != 0 {
		m.appendLocked(a.ID, cp.Credits, ReasonManualAdjustment, nil)
	}
}

func (m *memStore) appendLocked(id string, amount int64, reason Reason, note *string) {
	m.nextID++
	m.txs[id] = append(m.txs[id], Transaction{
		ID:        m.nextID,
		AccountID: id,
		Amount:    amount,
		Reason:    reason,
		Note:      note,
		CreatedAt: time.Now(),
	})
}

func (m *memStore) Account(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrUnauthorized
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) DebitIfSufficient(_ context.Context, id string, amount int64, reason Reason, note *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, ErrUnauthorized
	}
	if a.Credits < amount {
		return 0, ErrInsufficientCredits
	}
	a.Credits -= amount
	m.appendLocked(id, -amount, reason, note)
	return a.Credits, nil
}

func (m *memStore) Credit(_ context.Context, id string, amount int64, reason Reason, note *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, ErrUnauthorized
	}
	a.Credits += amount
	m.appendLocked(id, amount, reason, note)
	return a.Credits, nil
}

func (m *memStore) Transactions(_ context.Context, id string, limit int) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.txs[id]
	out := make([]Transaction, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) TransactionSum(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, t := range m.txs[id] {
		sum += t.Amount
	}
	return sum, nil
}

func (m *memStore) SetFlag(_ context.Context, id string, flag Flag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrUnauthorized
	}
	switch flag {
	case FlagAITrained:
		a.AITrained = true
	case FlagPlatformConnected:
		a.PlatformConnected = true
	}
	return nil
}
