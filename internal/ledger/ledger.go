// Package ledger holds the demo wallet balances in stroops.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the account lacks the balance for a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned for operations on an account that was never opened.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateTransaction indicates the client transaction identifier was already
	// posted; the earlier result is returned alongside it.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// Posting captures the outcome of a debit.
type Posting struct {
	TransactionID string
	Balance       int64
}

// Ledger defines the balance store behind the wallet facade.
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Seed(ctx context.Context, code string, amount int64) error
	Debit(ctx context.Context, code, clientTxID string, amount int64) (Posting, error)
	// Adjust adds delta (which may be negative) and clamps the result at zero.
	Adjust(ctx context.Context, code string, delta int64) (int64, error)
	Close(ctx context.Context, code string) error
}
