package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryLedger_DebitMaintainsBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.EnsureAccount(ctx, "wallet:a"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	if err := l.Seed(ctx, "wallet:a", 10_000); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := l.Debit(ctx, "wallet:a", "client-1", 1_500)
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if res.Balance != 8_500 {
		t.Fatalf("expected balance 8500, got %d", res.Balance)
	}

	if _, err := l.Debit(ctx, "wallet:a", "client-2", 9_000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	balance, _ := l.Balance(ctx, "wallet:a")
	if balance != 8_500 {
		t.Fatalf("failed debit must not change balance, got %d", balance)
	}
}

func TestInMemoryLedger_DuplicateTransaction(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	_ = l.Seed(ctx, "wallet:a", 5_000)

	if _, err := l.Debit(ctx, "wallet:a", "dup", 500); err != nil {
		t.Fatalf("initial debit failed: %v", err)
	}
	res, err := l.Debit(ctx, "wallet:a", "dup", 500)
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if res.Balance != 4_500 {
		t.Fatalf("duplicate should replay the first result, got %d", res.Balance)
	}
}

func TestInMemoryLedger_ConcurrentDebits(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	_ = l.Seed(ctx, "wallet:a", 100_000)

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.Debit(ctx, "wallet:a", fmt.Sprintf("tx-%d", i), amount); err != nil {
				t.Errorf("debit %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	balance, _ := l.Balance(ctx, "wallet:a")
	if balance != 100_000-workers*amount {
		t.Fatalf("unexpected balance after concurrency: %d", balance)
	}
}

func TestInMemoryLedger_AdjustClampsAtZero(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	_ = l.Seed(ctx, "wallet:a", 300)

	got, err := l.Adjust(ctx, "wallet:a", -500)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected clamp at zero, got %d", got)
	}
	if _, err := l.Adjust(ctx, "wallet:missing", 1); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestInMemoryLedger_Close(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	_ = l.Seed(ctx, "wallet:a", 300)
	_, _ = l.Debit(ctx, "wallet:a", "x", 100)

	if err := l.Close(ctx, "wallet:a"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := l.Balance(ctx, "wallet:a"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected closed account to be gone, got %v", err)
	}
	_ = l.Seed(ctx, "wallet:a", 300)
	if _, err := l.Debit(ctx, "wallet:a", "x", 100); err != nil {
		t.Fatalf("reopened account should accept the same client id: %v", err)
	}
}
