package contract

import (
	"fmt"
	"math/big"
)

func decodeUser(v any) (User, error) {
	m, err := asMap(v)
	if err != nil {
		return User{}, err
	}
	var u User
	if u.Username, err = stringField(m, "username"); err != nil {
		return User{}, err
	}
	if u.StellarAddress, err = stringField(m, "stellar_address"); err != nil {
		return User{}, err
	}
	if u.PasskeyID, err = stringField(m, "passkey_id"); err != nil {
		return User{}, err
	}
	if u.CreatedAt, err = uintField(m, "created_at"); err != nil {
		return User{}, err
	}
	if u.TotalSent, err = intField(m, "total_sent"); err != nil {
		return User{}, err
	}
	if u.TotalReceived, err = intField(m, "total_received"); err != nil {
		return User{}, err
	}
	return u, nil
}

func decodeTipLink(v any) (TipLinkInfo, error) {
	m, err := asMap(v)
	if err != nil {
		return TipLinkInfo{}, err
	}
	var t TipLinkInfo
	if t.Username, err = stringField(m, "username"); err != nil {
		return TipLinkInfo{}, err
	}
	if t.Owner, err = stringField(m, "owner"); err != nil {
		return TipLinkInfo{}, err
	}
	if t.TotalTips, err = intField(m, "total_tips"); err != nil {
		return TipLinkInfo{}, err
	}
	if t.TipCount, err = uintField(m, "tip_count"); err != nil {
		return TipLinkInfo{}, err
	}
	active, ok := m["active"].(bool)
	if !ok {
		return TipLinkInfo{}, fmt.Errorf("field active: expected bool, got %T", m["active"])
	}
	t.Active = active
	return t, nil
}

func decodePayment(v any) (Payment, error) {
	m, err := asMap(v)
	if err != nil {
		return Payment{}, err
	}
	var p Payment
	if p.ID, err = uintField(m, "id"); err != nil {
		return Payment{}, err
	}
	if p.From, err = stringField(m, "from"); err != nil {
		return Payment{}, err
	}
	if p.To, err = stringField(m, "to"); err != nil {
		return Payment{}, err
	}
	if p.Amount, err = intField(m, "amount"); err != nil {
		return Payment{}, err
	}
	if p.Token, err = stringField(m, "token"); err != nil {
		return Payment{}, err
	}
	if p.Memo, err = stringField(m, "memo"); err != nil {
		return Payment{}, err
	}
	if p.Timestamp, err = uintField(m, "timestamp"); err != nil {
		return Payment{}, err
	}
	// Unit enum variants arrive as a one-element vector holding the variant symbol.
	kind := m["payment_type"]
	if vec, ok := kind.([]any); ok && len(vec) == 1 {
		kind = vec[0]
	}
	name, ok := kind.(string)
	if !ok {
		return Payment{}, fmt.Errorf("field payment_type: unexpected %T", m["payment_type"])
	}
	if p.PaymentType, err = ParsePaymentType(name); err != nil {
		return Payment{}, err
	}
	return p, nil
}

func decodePayments(v any) ([]Payment, error) {
	if v == nil {
		return nil, nil
	}
	vec, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected vector of payments, got %T", v)
	}
	out := make([]Payment, 0, len(vec))
	for i, item := range vec {
		p, err := decodePayment(item)
		if err != nil {
			return nil, fmt.Errorf("payment %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeStats(v any) (Stats, error) {
	vec, ok := v.([]any)
	if !ok || len(vec) != 3 {
		return Stats{}, fmt.Errorf("expected (u32, u32, i128) tuple, got %T", v)
	}
	users, err := toUint(vec[0])
	if err != nil {
		return Stats{}, fmt.Errorf("users: %w", err)
	}
	payments, err := toUint(vec[1])
	if err != nil {
		return Stats{}, fmt.Errorf("payments: %w", err)
	}
	volume, err := toInt(vec[2])
	if err != nil {
		return Stats{}, fmt.Errorf("volume: %w", err)
	}
	return Stats{Users: uint32(users), Payments: uint32(payments), Volume: volume}, nil
}

func asMap(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected struct, got %T", v)
	}
	return m, nil
}

func stringField(m map[string]any, key string) (string, error) {
	s, ok := m[key].(string)
	if !ok {
		return "", fmt.Errorf("field %s: expected string, got %T", key, m[key])
	}
	return s, nil
}

func intField(m map[string]any, key string) (int64, error) {
	v, err := toInt(m[key])
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return v, nil
}

func uintField(m map[string]any, key string) (uint64, error) {
	v, err := toUint(m[key])
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return v, nil
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case *big.Int:
		if !n.IsInt64() {
			return 0, fmt.Errorf("value %s overflows int64", n)
		}
		return n.Int64(), nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > 1<<63-1 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toUint(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint32:
		return uint64(n), nil
	case *big.Int:
		if n.Sign() < 0 || !n.IsUint64() {
			return 0, fmt.Errorf("value %s out of range", n)
		}
		return n.Uint64(), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("expected unsigned integer, got %T", v)
	}
}
