package contract

import (
	"context"
	"time"

	"github.com/stellar/go-stellar-sdk/xdr"
)

const (
	// DefaultBaseFee is the per-operation fee in stroops.
	DefaultBaseFee int64 = 100
	// DefaultTimeout is the validity window of every submitted transaction.
	DefaultTimeout = 30 * time.Second
	// PlaceholderAccount sources read-only simulations; it is never signed for.
	PlaceholderAccount = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF"
	// DefaultPaymentsLimit is used by GetUserPayments when no limit is given.
	DefaultPaymentsLimit uint32 = 10
	// MaxMemoChars bounds send_payment memos, in characters.
	MaxMemoChars = 140
	// MaxMessageChars bounds send_tip messages, in characters.
	MaxMessageChars = 140
)

// TransactionRequest is one contract invocation.
type TransactionRequest struct {
	ContractID string
	Function   string
	Args       []Arg
	BaseFee    int64
	Timeout    time.Duration
}

// Receipt is the network's answer to a submission. It is returned as-is: pending
// transactions are not polled and error codes are not interpreted.
type Receipt struct {
	Hash           string `json:"hash"`
	Status         string `json:"status"`
	LatestLedger   uint32 `json:"latestLedger"`
	ErrorResultXDR string `json:"errorResultXdr,omitempty"`
}

// Simulation is the decoded outcome of a read-only call. Result holds the return value
// converted to native Go values: nil, bool, uint32, int32, uint64, int64, *big.Int,
// string, []byte, []any or map[string]any.
type Simulation struct {
	Result         any
	LatestLedger   uint32
	MinResourceFee int64
}

// Signer authorizes submissions. *keypair.Full satisfies it.
type Signer interface {
	Address() string
	SignDecorated(message []byte) (xdr.DecoratedSignature, error)
}

// Submitter builds, signs and sends contract invocations.
type Submitter interface {
	Submit(ctx context.Context, req TransactionRequest, signer Signer) (Receipt, error)
	Simulate(ctx context.Context, req TransactionRequest) (Simulation, error)
}
