package ledger

import (
	"context"
	"sync"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]int64
	postings map[string]Posting
}

// NewInMemory creates a concurrency-safe in-memory ledger.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances: make(map[string]int64),
		postings: make(map[string]Posting),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Seed(_ context.Context, code string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount < 0 {
		amount = 0
	}
	l.balances[code] = amount
	return nil
}

func (l *inMemoryLedger) Debit(_ context.Context, code, clientTxID string, amount int64) (Posting, error) {
	if amount <= 0 {
		return Posting{}, ErrInsufficientFunds
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := code + ":" + clientTxID
	if res, exists := l.postings[key]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[code]
	if !ok {
		return Posting{}, ErrAccountNotFound
	}
	if balance < amount {
		return Posting{}, ErrInsufficientFunds
	}

	balance -= amount
	l.balances[code] = balance

	res := Posting{TransactionID: clientTxID, Balance: balance}
	l.postings[key] = res
	return res, nil
}

func (l *inMemoryLedger) Adjust(_ context.Context, code string, delta int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[code]
	if !ok {
		return 0, ErrAccountNotFound
	}
	balance += delta
	if balance < 0 {
		balance = 0
	}
	l.balances[code] = balance
	return balance, nil
}

func (l *inMemoryLedger) Close(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.balances, code)
	prefix := code + ":"
	for key := range l.postings {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(l.postings, key)
		}
	}
	return nil
}
