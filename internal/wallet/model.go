package wallet

import "time"

// TxType distinguishes outgoing from incoming history records.
type TxType string

const (
	TxSend    TxType = "send"
	TxReceive TxType = "receive"
)

// TxStatus is the settlement state of a history record.
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusCompleted TxStatus = "completed"
	StatusFailed    TxStatus = "failed"
)

// Transaction is one entry of the wallet history. Amount is a decimal XLM string as
// entered by the user.
type Transaction struct {
	ID        string    `json:"id"`
	Type      TxType    `json:"type"`
	Amount    string    `json:"amount"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Status    TxStatus  `json:"status"`
}

// Snapshot is the dashboard view of the wallet.
type Snapshot struct {
	Balance      string        `json:"balance"`
	Loading      bool          `json:"loading"`
	Transactions []Transaction `json:"transactions"`
	PublicKey    string        `json:"publicKey,omitempty"`
	TipLink      string        `json:"tipLink,omitempty"`
}

// Receive carries what a payer needs to reach the wallet owner.
type Receive struct {
	Address string `json:"address"`
	TipLink string `json:"tipLink"`
}
