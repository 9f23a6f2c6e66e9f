// Package wallet is the demo wallet facade: a seeded balance and history that open
// with the session and reset on logout.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stellar/go-stellar-sdk/keypair"

	"github.com/stellarpass/stellarpass/internal/clock"
	"github.com/stellarpass/stellarpass/internal/contract"
	"github.com/stellarpass/stellarpass/internal/identity"
	"github.com/stellarpass/stellarpass/internal/keystore"
	"github.com/stellarpass/stellarpass/internal/ledger"
	"github.com/stellarpass/stellarpass/internal/notification"
)

var (
	// ErrNotInitialized is returned when no identity has opened the wallet.
	ErrNotInitialized = errors.New("wallet not initialized")
	// ErrInsufficientBalance is returned when a payment exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount is returned for amounts that do not parse or are not positive.
	ErrInvalidAmount = errors.New("invalid amount")
)

const (
	// SeedBalance is the demo balance in stroops (12.35 XLM).
	SeedBalance int64 = 123_500_000

	RefreshDelay = time.Second
	SendDelay    = 2 * time.Second

	// RefreshJitter bounds the simulated balance drift, in stroops (0.05 XLM).
	RefreshJitter int64 = 500_000

	// TipDomain suffixes the pseudo destination used for tips sent from a tip page.
	TipDomain = "stellarpass.io"

	cent        int64 = 100_000
	emptyAmount       = "0.00"
	topicWallet       = "wallet"
)

// Options wires a Facade.
type Options struct {
	Keys        *keystore.Keystore
	Ledger      ledger.Ledger
	Notifier    notification.Notifier
	Clock       clock.Clock
	TipLinkHost string
	// Random returns a value in [0, 1). Defaults to math/rand/v2.
	Random func() float64
	Logger *slog.Logger
}

// Facade holds the wallet of the current identity.
type Facade struct {
	keys     *keystore.Keystore
	ledger   ledger.Ledger
	notifier notification.Notifier
	clock    clock.Clock
	host     string
	random   func() float64
	logger   *slog.Logger

	loading atomic.Int32

	mu      sync.Mutex
	owner   *identity.Identity
	account string
	key     *keypair.Full
	history []Transaction
	// generation changes on every open and close so delayed operations can detect a
	// wallet that was swapped underneath them.
	generation uint64
}

// NewFacade builds a closed wallet facade.
func NewFacade(opts Options) *Facade {
	if opts.Ledger == nil {
		opts.Ledger = ledger.NewInMemory()
	}
	if opts.Notifier == nil {
		opts.Notifier = notification.Fanout{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Random == nil {
		opts.Random = rand.Float64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Facade{
		keys:     opts.Keys,
		ledger:   opts.Ledger,
		notifier: opts.Notifier,
		clock:    opts.Clock,
		host:     opts.TipLinkHost,
		random:   opts.Random,
		logger:   opts.Logger,
	}
}

// OnIdentity follows the session: it opens the wallet for a new identity and closes it
// on logout. It has the shape of an auth.Listener.
func (f *Facade) OnIdentity(ctx context.Context, current *identity.Identity) error {
	if current == nil {
		return f.Close(ctx)
	}
	return f.Open(ctx, *current)
}

// Open loads or creates the signing key of id and seeds the demo balance and history.
func (f *Facade) Open(ctx context.Context, id identity.Identity) error {
	if f.keys == nil {
		return fmt.Errorf("open wallet: no key store configured")
	}
	kp, err := f.keys.LoadOrCreate(ctx, id.ID)
	if err != nil {
		f.notify(ctx, notification.KindError, "Failed to initialize wallet")
		return fmt.Errorf("open wallet: %w", err)
	}

	account := "wallet:" + id.ID
	if err := f.ledger.Seed(ctx, account, SeedBalance); err != nil {
		return fmt.Errorf("seed wallet: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.account != "" && f.account != account {
		_ = f.ledger.Close(ctx, f.account)
	}
	owner := id
	f.owner = &owner
	f.account = account
	f.key = kp
	f.history = demoHistory(f.clock.Now())
	f.generation++
	f.logger.Info("wallet opened", "user", id.Username, "address", kp.Address())
	return nil
}

// Close resets the wallet to its empty state.
func (f *Facade) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.account == "" {
		return nil
	}
	err := f.ledger.Close(ctx, f.account)
	f.owner = nil
	f.account = ""
	f.key = nil
	f.history = nil
	f.generation++
	return err
}

func demoHistory(now time.Time) []Transaction {
	return []Transaction{
		{ID: "1", Type: TxReceive, Amount: "5.00", From: "GAKFZ...NPT", Timestamp: now.Add(-time.Hour), Status: StatusCompleted},
		{ID: "2", Type: TxSend, Amount: "2.50", To: "GBCDE...XYZ", Timestamp: now.Add(-2 * time.Hour), Status: StatusCompleted},
		{ID: "3", Type: TxReceive, Amount: "10.00", From: "GFGHI...ABC", Timestamp: now.Add(-24 * time.Hour), Status: StatusCompleted},
	}
}

// Balance returns the balance with two decimals, "0.00" when closed.
func (f *Facade) Balance(ctx context.Context) string {
	f.mu.Lock()
	account := f.account
	f.mu.Unlock()
	if account == "" {
		return emptyAmount
	}
	stroops, err := f.ledger.Balance(ctx, account)
	if err != nil {
		return emptyAmount
	}
	return formatCents(stroops)
}

// Transactions returns the history, newest first.
func (f *Facade) Transactions() []Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Transaction(nil), f.history...)
}

// PublicKey returns the wallet address, empty when closed.
func (f *Facade) PublicKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.key == nil {
		return ""
	}
	return f.key.Address()
}

// Signer returns the wallet signing key.
func (f *Facade) Signer() (*keypair.Full, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.key == nil {
		return nil, ErrNotInitialized
	}
	return f.key, nil
}

// Loading reports whether a refresh or payment is in flight.
func (f *Facade) Loading() bool { return f.loading.Load() > 0 }

// TipLink returns the shareable tip link of the owner, empty when closed.
func (f *Facade) TipLink() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owner == nil {
		return ""
	}
	return identity.TipLink(f.host, f.owner.Username)
}

// Receive returns the address and tip link of the owner.
func (f *Facade) Receive() (Receive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.key == nil || f.owner == nil {
		return Receive{}, ErrNotInitialized
	}
	return Receive{Address: f.key.Address(), TipLink: identity.TipLink(f.host, f.owner.Username)}, nil
}

// Snapshot assembles the dashboard view.
func (f *Facade) Snapshot(ctx context.Context) Snapshot {
	return Snapshot{
		Balance:      f.Balance(ctx),
		Loading:      f.Loading(),
		Transactions: f.Transactions(),
		PublicKey:    f.PublicKey(),
		TipLink:      f.TipLink(),
	}
}

// Refresh simulates a network balance fetch. It does nothing while closed.
func (f *Facade) Refresh(ctx context.Context) error {
	gen, account, ok := f.opened()
	if !ok {
		return nil
	}

	f.loading.Add(1)
	defer f.loading.Add(-1)

	if err := f.clock.Sleep(ctx, RefreshDelay); err != nil {
		f.notify(ctx, notification.KindError, "Failed to refresh balance")
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen {
		return nil
	}
	current, err := f.ledger.Balance(ctx, account)
	if err != nil {
		f.notify(ctx, notification.KindError, "Failed to refresh balance")
		return fmt.Errorf("refresh balance: %w", err)
	}
	drift := int64(math.Round(f.random()*float64(2*RefreshJitter))) - RefreshJitter
	next := roundCents(current + drift)
	if next < 0 {
		next = 0
	}
	if err := f.ledger.Seed(ctx, account, next); err != nil {
		return fmt.Errorf("refresh balance: %w", err)
	}
	f.notify(ctx, notification.KindSuccess, "Balance updated")
	return nil
}

// SendPayment deducts amount (decimal XLM) and records a completed send to destination.
// The balance and history are unchanged on failure.
func (f *Facade) SendPayment(ctx context.Context, destination, amount string) (Transaction, error) {
	gen, account, ok := f.opened()
	if !ok {
		f.notify(ctx, notification.KindError, "Wallet not initialized")
		return Transaction{}, ErrNotInitialized
	}
	amount = strings.TrimSpace(amount)
	stroops, err := contract.ParseAmount(amount)
	if err != nil || stroops <= 0 {
		f.notify(ctx, notification.KindError, "Payment failed")
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	f.loading.Add(1)
	defer f.loading.Add(-1)

	if err := f.clock.Sleep(ctx, SendDelay); err != nil {
		f.notify(ctx, notification.KindError, "Payment failed")
		return Transaction{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen {
		return Transaction{}, ErrNotInitialized
	}

	tx := Transaction{
		ID:        uuid.NewString(),
		Type:      TxSend,
		Amount:    amount,
		To:        destination,
		Timestamp: f.clock.Now(),
		Status:    StatusCompleted,
	}
	posting, err := f.ledger.Debit(ctx, account, tx.ID, stroops)
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		f.notify(ctx, notification.KindError, "Insufficient balance")
		return Transaction{}, ErrInsufficientBalance
	case err != nil:
		f.notify(ctx, notification.KindError, "Payment failed")
		return Transaction{}, fmt.Errorf("debit wallet: %w", err)
	}
	if rounded := roundCents(posting.Balance); rounded != posting.Balance {
		if _, err := f.ledger.Adjust(ctx, account, rounded-posting.Balance); err != nil {
			return Transaction{}, fmt.Errorf("round balance: %w", err)
		}
	}

	f.history = append([]Transaction{tx}, f.history...)
	f.logger.Info("payment sent", "to", destination, "amount", amount)
	f.notify(ctx, notification.KindSuccess, fmt.Sprintf("Successfully sent %s XLM", amount))
	return tx, nil
}

// Tip sends amount to the tip pseudo address of username.
func (f *Facade) Tip(ctx context.Context, username, amount string) (Transaction, error) {
	return f.SendPayment(ctx, username+"@"+TipDomain, amount)
}

func (f *Facade) opened() (uint64, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation, f.account, f.account != ""
}

func (f *Facade) notify(ctx context.Context, kind notification.Kind, body string) {
	if err := f.notifier.Send(ctx, notification.Message{Kind: kind, Topic: topicWallet, Body: body}); err != nil {
		f.logger.Warn("notice delivery failed", "error", err)
	}
}

// roundCents rounds stroops to the nearest hundredth of a lumen, halves away from zero.
func roundCents(stroops int64) int64 {
	q, r := stroops/cent, stroops%cent
	switch {
	case r >= cent/2:
		q++
	case r <= -cent/2:
		q--
	}
	return q * cent
}

func formatCents(stroops int64) string {
	c := roundCents(stroops) / cent
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
