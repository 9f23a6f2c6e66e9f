// Package contract is the client side of the StellarPass Soroban contract: typed
// requests for its eight entry points, validation, and decoding of read results.
package contract

import (
	"context"
	"log/slog"
	"time"
)

// Config configures a Client.
type Config struct {
	ContractID string
	BaseFee    int64
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client invokes the StellarPass contract through a Submitter.
type Client struct {
	submitter  Submitter
	contractID string
	baseFee    int64
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient builds a contract client.
func NewClient(submitter Submitter, cfg Config) *Client {
	if cfg.BaseFee <= 0 {
		cfg.BaseFee = DefaultBaseFee
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		submitter:  submitter,
		contractID: cfg.ContractID,
		baseFee:    cfg.BaseFee,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// ContractID returns the configured contract address.
func (c *Client) ContractID() string { return c.contractID }

// RegisterUser calls register_user(string, address, string).
func (c *Client) RegisterUser(ctx context.Context, signer Signer, reg Registration) (Receipt, error) {
	if err := reg.validate(); err != nil {
		return Receipt{}, err
	}
	return c.submit(ctx, "register_user", signer,
		String(reg.Username), Address(reg.StellarAddress), String(reg.PasskeyID))
}

// SendPayment calls send_payment(address, address, i128, address, string, symbol).
func (c *Client) SendPayment(ctx context.Context, signer Signer, req PaymentRequest) (Receipt, error) {
	if req.Category == "" {
		req.Category = PaymentTransfer
	}
	if err := req.validate(); err != nil {
		return Receipt{}, err
	}
	return c.submit(ctx, "send_payment", signer,
		Address(req.Sender), Address(req.Recipient), I128(req.Amount), Address(req.Token),
		String(req.Memo), Symbol(string(req.Category)))
}

// SendTip calls send_tip(address, string, i128, address, string).
func (c *Client) SendTip(ctx context.Context, signer Signer, req TipRequest) (Receipt, error) {
	if err := req.validate(); err != nil {
		return Receipt{}, err
	}
	return c.submit(ctx, "send_tip", signer,
		Address(req.From), String(req.Username), I128(req.Amount), Address(req.Token), String(req.Message))
}

// ToggleTipLink calls toggle_tip_link(string, address) with the signer as owner.
func (c *Client) ToggleTipLink(ctx context.Context, signer Signer, username string) (Receipt, error) {
	if username == "" {
		return Receipt{}, invalid("username is required")
	}
	if signer == nil {
		return Receipt{}, invalid("signer is required")
	}
	return c.submit(ctx, "toggle_tip_link", signer, String(username), Address(signer.Address()))
}

// GetUser calls get_user(string). The bool is false when no user is registered.
func (c *Client) GetUser(ctx context.Context, username string) (User, bool, error) {
	const op = "get_user"
	sim, err := c.simulate(ctx, op, String(username))
	if err != nil || sim.Result == nil {
		return User{}, false, err
	}
	u, err := decodeUser(sim.Result)
	if err != nil {
		return User{}, false, c.remote(op, err)
	}
	return u, true, nil
}

// GetTipLink calls get_tip_link(string).
func (c *Client) GetTipLink(ctx context.Context, username string) (TipLinkInfo, bool, error) {
	const op = "get_tip_link"
	sim, err := c.simulate(ctx, op, String(username))
	if err != nil || sim.Result == nil {
		return TipLinkInfo{}, false, err
	}
	t, err := decodeTipLink(sim.Result)
	if err != nil {
		return TipLinkInfo{}, false, c.remote(op, err)
	}
	return t, true, nil
}

// GetUserPayments calls get_user_payments(address, u32). A zero limit means 10.
func (c *Client) GetUserPayments(ctx context.Context, address string, limit uint32) ([]Payment, error) {
	const op = "get_user_payments"
	if err := validateAccount("address", address); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultPaymentsLimit
	}
	sim, err := c.simulate(ctx, op, Address(address), U32(limit))
	if err != nil {
		return nil, err
	}
	payments, err := decodePayments(sim.Result)
	if err != nil {
		return nil, c.remote(op, err)
	}
	return payments, nil
}

// GetStats calls get_stats().
func (c *Client) GetStats(ctx context.Context) (Stats, error) {
	const op = "get_stats"
	sim, err := c.simulate(ctx, op)
	if err != nil {
		return Stats{}, err
	}
	stats, err := decodeStats(sim.Result)
	if err != nil {
		return Stats{}, c.remote(op, err)
	}
	return stats, nil
}

func (c *Client) request(fn string, args []Arg) TransactionRequest {
	return TransactionRequest{
		ContractID: c.contractID,
		Function:   fn,
		Args:       args,
		BaseFee:    c.baseFee,
		Timeout:    c.timeout,
	}
}

func (c *Client) submit(ctx context.Context, fn string, signer Signer, args ...Arg) (Receipt, error) {
	if signer == nil {
		return Receipt{}, invalid("signer is required")
	}
	receipt, err := c.submitter.Submit(ctx, c.request(fn, args), signer)
	if err != nil {
		return Receipt{}, c.remote(fn, err)
	}
	c.logger.Info("contract call submitted",
		slog.String("function", fn),
		slog.String("source", signer.Address()),
		slog.String("hash", receipt.Hash),
		slog.String("status", receipt.Status),
	)
	return receipt, nil
}

func (c *Client) simulate(ctx context.Context, fn string, args ...Arg) (Simulation, error) {
	sim, err := c.submitter.Simulate(ctx, c.request(fn, args))
	if err != nil {
		return Simulation{}, c.remote(fn, err)
	}
	return sim, nil
}

func (c *Client) remote(op string, err error) error {
	c.logger.Error("contract call failed", slog.String("function", op), "error", err)
	return &RemoteError{Op: op, Err: err}
}
