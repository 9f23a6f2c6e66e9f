// Package payments binds the contract client to the signed-in identity: the wallet
// signing key is the sender and the configured native asset contract is the token.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stellar/go-stellar-sdk/keypair"

	"github.com/stellarpass/stellarpass/internal/contract"
	"github.com/stellarpass/stellarpass/internal/identity"
	"github.com/stellarpass/stellarpass/internal/notification"
)

// ErrNotAuthenticated is returned when no identity is signed in.
var ErrNotAuthenticated = errors.New("not authenticated")

const topicChain = "chain"

// Session reports the signed-in identity.
type Session interface {
	Current() (identity.Identity, bool)
}

// KeySource hands out the signing key of the open wallet.
type KeySource interface {
	Signer() (*keypair.Full, error)
}

// Options wires a Service.
type Options struct {
	Client   *contract.Client
	Session  Session
	Keys     KeySource
	Token    string
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// Service performs contract calls on behalf of the current identity.
type Service struct {
	client   *contract.Client
	session  Session
	keys     KeySource
	token    string
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a payment service.
func NewService(opts Options) *Service {
	if opts.Notifier == nil {
		opts.Notifier = notification.Fanout{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		client:   opts.Client,
		session:  opts.Session,
		keys:     opts.Keys,
		token:    opts.Token,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
}

// PayInput captures an on-chain payment. Amount is decimal XLM.
type PayInput struct {
	To       string
	Amount   string
	Memo     string
	Category string
}

// TipInput captures a tip to a registered username.
type TipInput struct {
	Username string
	Amount   string
	Message  string
}

// Register records the current identity and its wallet address in the contract.
func (s *Service) Register(ctx context.Context) (contract.Receipt, error) {
	who, signer, err := s.caller()
	if err != nil {
		return contract.Receipt{}, err
	}
	passkeyID := who.CredentialID
	if passkeyID == "" {
		passkeyID = who.PublicKey
	}
	receipt, err := s.client.RegisterUser(ctx, signer, contract.Registration{
		Username:       who.Username,
		StellarAddress: signer.Address(),
		PasskeyID:      passkeyID,
	})
	return s.settle(ctx, receipt, err, "Registered "+who.Username+" on chain")
}

// Pay sends a payment from the wallet key.
func (s *Service) Pay(ctx context.Context, in PayInput) (contract.Receipt, error) {
	_, signer, err := s.caller()
	if err != nil {
		return contract.Receipt{}, err
	}
	stroops, err := contract.ParseAmount(in.Amount)
	if err != nil {
		return contract.Receipt{}, err
	}
	category := contract.PaymentTransfer
	if strings.TrimSpace(in.Category) != "" {
		if category, err = contract.ParsePaymentType(in.Category); err != nil {
			return contract.Receipt{}, err
		}
	}
	receipt, err := s.client.SendPayment(ctx, signer, contract.PaymentRequest{
		Sender:    signer.Address(),
		Recipient: strings.TrimSpace(in.To),
		Amount:    stroops,
		Token:     s.token,
		Memo:      in.Memo,
		Category:  category,
	})
	return s.settle(ctx, receipt, err, fmt.Sprintf("Payment of %s XLM submitted", contract.FormatAmount(stroops)))
}

// Tip sends a tip through the tip link of username.
func (s *Service) Tip(ctx context.Context, in TipInput) (contract.Receipt, error) {
	_, signer, err := s.caller()
	if err != nil {
		return contract.Receipt{}, err
	}
	stroops, err := contract.ParseAmount(in.Amount)
	if err != nil {
		return contract.Receipt{}, err
	}
	receipt, err := s.client.SendTip(ctx, signer, contract.TipRequest{
		From:     signer.Address(),
		Username: strings.TrimSpace(in.Username),
		Amount:   stroops,
		Token:    s.token,
		Message:  in.Message,
	})
	return s.settle(ctx, receipt, err, fmt.Sprintf("Tip of %s XLM submitted", contract.FormatAmount(stroops)))
}

// ToggleTipLink flips the active flag of the current identity's tip link.
func (s *Service) ToggleTipLink(ctx context.Context) (contract.Receipt, error) {
	who, signer, err := s.caller()
	if err != nil {
		return contract.Receipt{}, err
	}
	receipt, err := s.client.ToggleTipLink(ctx, signer, who.Username)
	return s.settle(ctx, receipt, err, "Tip link updated")
}

// User looks up a registered user.
func (s *Service) User(ctx context.Context, username string) (contract.User, bool, error) {
	return s.client.GetUser(ctx, username)
}

// TipLink looks up the tip link of username.
func (s *Service) TipLink(ctx context.Context, username string) (contract.TipLinkInfo, bool, error) {
	return s.client.GetTipLink(ctx, username)
}

// Payments lists payments involving address, defaulting to the wallet address.
func (s *Service) Payments(ctx context.Context, address string, limit uint32) ([]contract.Payment, error) {
	if address == "" {
		_, signer, err := s.caller()
		if err != nil {
			return nil, err
		}
		address = signer.Address()
	}
	return s.client.GetUserPayments(ctx, address, limit)
}

// Stats returns the contract-wide counters.
func (s *Service) Stats(ctx context.Context) (contract.Stats, error) {
	return s.client.GetStats(ctx)
}

func (s *Service) caller() (identity.Identity, *keypair.Full, error) {
	who, ok := s.session.Current()
	if !ok {
		return identity.Identity{}, nil, ErrNotAuthenticated
	}
	signer, err := s.keys.Signer()
	if err != nil {
		return identity.Identity{}, nil, err
	}
	return who, signer, nil
}

func (s *Service) settle(ctx context.Context, receipt contract.Receipt, err error, success string) (contract.Receipt, error) {
	if err != nil {
		s.notify(ctx, notification.KindError, "Transaction failed: "+err.Error())
		return contract.Receipt{}, err
	}
	s.logger.Info("transaction submitted", "hash", receipt.Hash, "status", receipt.Status, "ledger", receipt.LatestLedger)
	s.notify(ctx, notification.KindSuccess, success)
	return receipt, nil
}

func (s *Service) notify(ctx context.Context, kind notification.Kind, body string) {
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Topic: topicChain, Body: body}); err != nil {
		s.logger.Warn("notice delivery failed", "error", err)
	}
}
