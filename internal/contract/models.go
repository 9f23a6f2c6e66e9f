package contract

import (
	"fmt"
	"unicode/utf8"
)

// PaymentType categorizes a payment on chain.
type PaymentType string

const (
	PaymentTransfer PaymentType = "Transfer"
	PaymentTip      PaymentType = "Tip"
	PaymentReward   PaymentType = "Reward"
	PaymentGift     PaymentType = "Gift"
)

// ParsePaymentType validates s against the known categories.
func ParsePaymentType(s string) (PaymentType, error) {
	switch pt := PaymentType(s); pt {
	case PaymentTransfer, PaymentTip, PaymentReward, PaymentGift:
		return pt, nil
	default:
		return "", invalid("unknown payment type %q", s)
	}
}

// User is the on-chain user record.
type User struct {
	Username       string `json:"username"`
	StellarAddress string `json:"stellarAddress"`
	PasskeyID      string `json:"passkeyId"`
	CreatedAt      uint64 `json:"createdAt"`
	TotalSent      int64  `json:"totalSent"`
	TotalReceived  int64  `json:"totalReceived"`
}

// Payment is one recorded payment.
type Payment struct {
	ID          uint64      `json:"id"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	Amount      int64       `json:"amount"`
	Token       string      `json:"token"`
	Memo        string      `json:"memo"`
	Timestamp   uint64      `json:"timestamp"`
	PaymentType PaymentType `json:"paymentType"`
}

// TipLinkInfo is the on-chain tip link state for a username.
type TipLinkInfo struct {
	Username  string `json:"username"`
	Owner     string `json:"owner"`
	TotalTips int64  `json:"totalTips"`
	TipCount  uint64 `json:"tipCount"`
	Active    bool   `json:"active"`
}

// Stats are contract-wide counters.
type Stats struct {
	Users    uint32 `json:"users"`
	Payments uint32 `json:"payments"`
	Volume   int64  `json:"volume"`
}

// PaymentRequest is a send_payment call.
type PaymentRequest struct {
	Sender    string      `json:"sender"`
	Recipient string      `json:"recipient"`
	Amount    int64       `json:"amount"`
	Token     string      `json:"token"`
	Memo      string      `json:"memo"`
	Category  PaymentType `json:"category"`
}

// TipRequest is a send_tip call.
type TipRequest struct {
	From     string `json:"from"`
	Username string `json:"username"`
	Amount   int64  `json:"amount"`
	Token    string `json:"token"`
	Message  string `json:"message"`
}

// Registration is a register_user call.
type Registration struct {
	Username       string `json:"username"`
	StellarAddress string `json:"stellarAddress"`
	PasskeyID      string `json:"passkeyId"`
}

func (r PaymentRequest) validate() error {
	if err := validateAccount("sender", r.Sender); err != nil {
		return err
	}
	if err := validateAccount("recipient", r.Recipient); err != nil {
		return err
	}
	if err := validateAccount("token", r.Token); err != nil {
		return err
	}
	if r.Amount <= 0 {
		return invalid("amount must be positive")
	}
	if utf8.RuneCountInString(r.Memo) > MaxMemoChars {
		return invalid("memo exceeds %d characters", MaxMemoChars)
	}
	if _, err := ParsePaymentType(string(r.Category)); err != nil {
		return err
	}
	return nil
}

func (r TipRequest) validate() error {
	if err := validateAccount("from", r.From); err != nil {
		return err
	}
	if err := validateAccount("token", r.Token); err != nil {
		return err
	}
	if r.Username == "" {
		return invalid("username is required")
	}
	if r.Amount <= 0 {
		return invalid("amount must be positive")
	}
	if utf8.RuneCountInString(r.Message) > MaxMessageChars {
		return invalid("message exceeds %d characters", MaxMessageChars)
	}
	return nil
}

func (r Registration) validate() error {
	if r.Username == "" {
		return invalid("username is required")
	}
	if r.PasskeyID == "" {
		return invalid("passkey id is required")
	}
	return validateAccount("stellar address", r.StellarAddress)
}

func (s Stats) String() string {
	return fmt.Sprintf("users=%d payments=%d volume=%s", s.Users, s.Payments, FormatXLM(s.Volume))
}
