package contract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/stellarpass/stellarpass/internal/clock"
)

// ContractError is an application error raised by the in-memory contract.
type ContractError struct {
	Code string
}

func (e *ContractError) Error() string { return "contract error: " + e.Code }

// Memory is an in-process twin of the deployed contract, used when no network is
// configured and in tests. Token transfers are recorded but no balances move.
type Memory struct {
	mu       sync.Mutex
	clock    clock.Clock
	ledger   uint32
	users    map[string]User
	order    []string
	tipLinks map[string]TipLinkInfo
	payments []Payment
}

// NewMemory creates an empty in-memory contract.
func NewMemory(c clock.Clock) *Memory {
	if c == nil {
		c = clock.Real()
	}
	return &Memory{
		clock:    c,
		ledger:   1,
		users:    make(map[string]User),
		tipLinks: make(map[string]TipLinkInfo),
	}
}

// Submit applies a mutating call as if it were included in the next ledger.
func (m *Memory) Submit(ctx context.Context, req TransactionRequest, signer Signer) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	source := signer.Address()
	var err error
	switch req.Function {
	case "register_user":
		err = m.registerUser(source, req.Args)
	case "send_payment":
		_, err = m.sendPayment(source, req.Args)
	case "send_tip":
		err = m.sendTip(source, req.Args)
	case "toggle_tip_link":
		err = m.toggleTipLink(source, req.Args)
	default:
		err = fmt.Errorf("unknown function %q", req.Function)
	}
	if err != nil {
		return Receipt{}, err
	}
	m.ledger++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", req.Function, source, m.ledger)))
	return Receipt{Hash: hex.EncodeToString(sum[:]), Status: "PENDING", LatestLedger: m.ledger}, nil
}

// Simulate answers a read-only call with native values shaped like decoded ScVals.
func (m *Memory) Simulate(ctx context.Context, req TransactionRequest) (Simulation, error) {
	if err := ctx.Err(); err != nil {
		return Simulation{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		result any
		err    error
	)
	switch req.Function {
	case "get_user":
		var name string
		if name, err = textArg(req.Args, 0, KindString); err == nil {
			if u, ok := m.users[name]; ok {
				result = userNative(u)
			}
		}
	case "get_tip_link":
		var name string
		if name, err = textArg(req.Args, 0, KindString); err == nil {
			if t, ok := m.tipLinks[name]; ok {
				result = tipLinkNative(t)
			}
		}
	case "get_user_payments":
		result, err = m.userPayments(req.Args)
	case "get_stats":
		var volume int64
		for _, p := range m.payments {
			volume += p.Amount
		}
		result = []any{uint32(len(m.users)), uint32(len(m.payments)), big.NewInt(volume)}
	default:
		err = fmt.Errorf("unknown function %q", req.Function)
	}
	if err != nil {
		return Simulation{}, err
	}
	return Simulation{Result: result, LatestLedger: m.ledger}, nil
}

func (m *Memory) registerUser(source string, args []Arg) error {
	username, err := textArg(args, 0, KindString)
	if err != nil {
		return err
	}
	address, err := textArg(args, 1, KindAddress)
	if err != nil {
		return err
	}
	passkeyID, err := textArg(args, 2, KindString)
	if err != nil {
		return err
	}
	if source != address {
		return &ContractError{Code: "UNAUTHORIZED"}
	}
	if _, exists := m.users[username]; exists {
		return &ContractError{Code: "EXISTS"}
	}
	m.users[username] = User{
		Username:       username,
		StellarAddress: address,
		PasskeyID:      passkeyID,
		CreatedAt:      uint64(m.clock.Now().Unix()),
	}
	m.order = append(m.order, username)
	m.tipLinks[username] = TipLinkInfo{Username: username, Owner: address, Active: true}
	return nil
}

func (m *Memory) sendPayment(source string, args []Arg) (uint64, error) {
	from, err := textArg(args, 0, KindAddress)
	if err != nil {
		return 0, err
	}
	to, err := textArg(args, 1, KindAddress)
	if err != nil {
		return 0, err
	}
	amount, err := intArg(args, 2)
	if err != nil {
		return 0, err
	}
	token, err := textArg(args, 3, KindAddress)
	if err != nil {
		return 0, err
	}
	memo, err := textArg(args, 4, KindString)
	if err != nil {
		return 0, err
	}
	kind, err := textArg(args, 5, KindSymbol)
	if err != nil {
		return 0, err
	}
	return m.record(source, from, to, amount, token, memo, PaymentType(kind))
}

func (m *Memory) record(source, from, to string, amount int64, token, memo string, kind PaymentType) (uint64, error) {
	if source != from {
		return 0, &ContractError{Code: "UNAUTHORIZED"}
	}
	if amount <= 0 {
		return 0, &ContractError{Code: "INVALID"}
	}
	id := uint64(len(m.payments))
	m.payments = append(m.payments, Payment{
		ID:          id,
		From:        from,
		To:          to,
		Amount:      amount,
		Token:       token,
		Memo:        memo,
		Timestamp:   uint64(m.clock.Now().Unix()),
		PaymentType: kind,
	})
	for name, u := range m.users {
		if u.StellarAddress == from {
			u.TotalSent += amount
		}
		if u.StellarAddress == to {
			u.TotalReceived += amount
		}
		m.users[name] = u
	}
	return id, nil
}

func (m *Memory) sendTip(source string, args []Arg) error {
	from, err := textArg(args, 0, KindAddress)
	if err != nil {
		return err
	}
	username, err := textArg(args, 1, KindString)
	if err != nil {
		return err
	}
	amount, err := intArg(args, 2)
	if err != nil {
		return err
	}
	token, err := textArg(args, 3, KindAddress)
	if err != nil {
		return err
	}
	message, err := textArg(args, 4, KindString)
	if err != nil {
		return err
	}
	link, ok := m.tipLinks[username]
	if !ok {
		return &ContractError{Code: "NOTFOUND"}
	}
	if !link.Active {
		return &ContractError{Code: "INACTIVE"}
	}
	if _, err := m.record(source, from, link.Owner, amount, token, message, PaymentTip); err != nil {
		return err
	}
	link.TotalTips += amount
	link.TipCount++
	m.tipLinks[username] = link
	return nil
}

func (m *Memory) toggleTipLink(source string, args []Arg) error {
	username, err := textArg(args, 0, KindString)
	if err != nil {
		return err
	}
	owner, err := textArg(args, 1, KindAddress)
	if err != nil {
		return err
	}
	if source != owner {
		return &ContractError{Code: "UNAUTHORIZED"}
	}
	link, ok := m.tipLinks[username]
	if !ok {
		return &ContractError{Code: "NOTFOUND"}
	}
	if link.Owner != owner {
		return &ContractError{Code: "UNAUTHORIZED"}
	}
	link.Active = !link.Active
	m.tipLinks[username] = link
	return nil
}

func (m *Memory) userPayments(args []Arg) ([]any, error) {
	address, err := textArg(args, 0, KindAddress)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 || args[1].Kind != KindU32 {
		return nil, fmt.Errorf("argument 1: expected u32")
	}
	limit := args[1].U32
	out := []any{}
	for i := len(m.payments) - 1; i >= 0 && uint32(len(out)) < limit; i-- {
		p := m.payments[i]
		if p.From == address || p.To == address {
			out = append(out, paymentNative(p))
		}
	}
	return out, nil
}

func textArg(args []Arg, i int, kind ArgKind) (string, error) {
	if i >= len(args) || args[i].Kind != kind {
		return "", fmt.Errorf("argument %d: expected %s", i, kind)
	}
	return args[i].Text, nil
}

func intArg(args []Arg, i int) (int64, error) {
	if i >= len(args) || args[i].Kind != KindI128 {
		return 0, fmt.Errorf("argument %d: expected i128", i)
	}
	return args[i].Int, nil
}

func userNative(u User) map[string]any {
	return map[string]any{
		"username":        u.Username,
		"stellar_address": u.StellarAddress,
		"passkey_id":      u.PasskeyID,
		"created_at":      u.CreatedAt,
		"total_sent":      big.NewInt(u.TotalSent),
		"total_received":  big.NewInt(u.TotalReceived),
	}
}

func tipLinkNative(t TipLinkInfo) map[string]any {
	return map[string]any{
		"username":   t.Username,
		"owner":      t.Owner,
		"total_tips": big.NewInt(t.TotalTips),
		"tip_count":  t.TipCount,
		"active":     t.Active,
	}
}

func paymentNative(p Payment) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"from":         p.From,
		"to":           p.To,
		"amount":       big.NewInt(p.Amount),
		"token":        p.Token,
		"memo":         p.Memo,
		"timestamp":    p.Timestamp,
		"payment_type": []any{string(p.PaymentType)},
	}
}
