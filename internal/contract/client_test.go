package contract

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/strkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarpass/stellarpass/internal/clock"
	"github.com/stellarpass/stellarpass/internal/logging"
)

type recordingSubmitter struct {
	submitted []TransactionRequest
	simulated []TransactionRequest
	result    any
	err       error
}

func (r *recordingSubmitter) Submit(_ context.Context, req TransactionRequest, _ Signer) (Receipt, error) {
	r.submitted = append(r.submitted, req)
	if r.err != nil {
		return Receipt{}, r.err
	}
	return Receipt{Hash: "abc", Status: "PENDING", LatestLedger: 7}, nil
}

func (r *recordingSubmitter) Simulate(_ context.Context, req TransactionRequest) (Simulation, error) {
	r.simulated = append(r.simulated, req)
	if r.err != nil {
		return Simulation{}, r.err
	}
	return Simulation{Result: r.result}, nil
}

func randomContractID(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	id, err := strkey.Encode(strkey.VersionByteContract, raw)
	require.NoError(t, err)
	return id
}

func newTestClient(t *testing.T, sub Submitter) *Client {
	t.Helper()
	return NewClient(sub, Config{ContractID: randomContractID(t), Logger: logging.Discard()})
}

func TestSendPaymentMarshalsPositionalArgs(t *testing.T) {
	t.Parallel()

	sender, err := keypair.Random()
	require.NoError(t, err)
	recipient, err := keypair.Random()
	require.NoError(t, err)
	token := randomContractID(t)

	sub := &recordingSubmitter{}
	client := newTestClient(t, sub)

	receipt, err := client.SendPayment(context.Background(), sender, PaymentRequest{
		Sender:    sender.Address(),
		Recipient: recipient.Address(),
		Amount:    25_000_000,
		Token:     token,
		Memo:      "coffee",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", receipt.Hash)

	require.Len(t, sub.submitted, 1)
	req := sub.submitted[0]
	assert.Equal(t, "send_payment", req.Function)
	assert.Equal(t, DefaultBaseFee, req.BaseFee)
	assert.Equal(t, 30*time.Second, req.Timeout)
	assert.Equal(t, []Arg{
		Address(sender.Address()),
		Address(recipient.Address()),
		I128(25_000_000),
		Address(token),
		String("coffee"),
		Symbol("Transfer"),
	}, req.Args)
}

func TestSendPaymentValidation(t *testing.T) {
	t.Parallel()

	sender, err := keypair.Random()
	require.NoError(t, err)
	recipient, err := keypair.Random()
	require.NoError(t, err)
	token := randomContractID(t)

	valid := PaymentRequest{Sender: sender.Address(), Recipient: recipient.Address(), Amount: 1, Token: token, Category: PaymentGift}

	tests := []struct {
		name   string
		mutate func(*PaymentRequest)
	}{
		{name: "zero amount", mutate: func(r *PaymentRequest) { r.Amount = 0 }},
		{name: "negative amount", mutate: func(r *PaymentRequest) { r.Amount = -5 }},
		{name: "long memo", mutate: func(r *PaymentRequest) { r.Memo = strings.Repeat("m", MaxMemoChars+1) }},
		{name: "bad recipient", mutate: func(r *PaymentRequest) { r.Recipient = "alice@stellarpass.io" }},
		{name: "bad token", mutate: func(r *PaymentRequest) { r.Token = "XLM" }},
		{name: "unknown category", mutate: func(r *PaymentRequest) { r.Category = "Bribe" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sub := &recordingSubmitter{}
			req := valid
			tt.mutate(&req)
			_, err := newTestClient(t, sub).SendPayment(context.Background(), sender, req)
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, sub.submitted, "invalid requests must not reach the network")
		})
	}
}

func TestRemoteErrorWrapsTransportError(t *testing.T) {
	t.Parallel()

	kp, err := keypair.Random()
	require.NoError(t, err)
	transport := errors.New("connection refused")
	client := newTestClient(t, &recordingSubmitter{err: transport})

	_, err = client.ToggleTipLink(context.Background(), kp, "alice")
	require.ErrorIs(t, err, transport)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "toggle_tip_link", remote.Op)

	_, err = client.GetStats(context.Background())
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "get_stats", remote.Op)
}

func TestGetUserPaymentsDefaultsLimit(t *testing.T) {
	t.Parallel()

	kp, err := keypair.Random()
	require.NoError(t, err)
	sub := &recordingSubmitter{result: []any{}}
	client := newTestClient(t, sub)

	payments, err := client.GetUserPayments(context.Background(), kp.Address(), 0)
	require.NoError(t, err)
	assert.Empty(t, payments)
	require.Len(t, sub.simulated, 1)
	assert.Equal(t, []Arg{Address(kp.Address()), U32(10)}, sub.simulated[0].Args)
}

func TestMissingUserIsNotAnError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, &recordingSubmitter{result: nil})
	_, found, err := client.GetUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryContractRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := NewMemory(clock.NewFake(time.Unix(1_700_000_000, 0)))
	client := newTestClient(t, mem)
	token := randomContractID(t)

	alice, err := keypair.Random()
	require.NoError(t, err)
	bob, err := keypair.Random()
	require.NoError(t, err)

	_, err = client.RegisterUser(ctx, alice, Registration{Username: "alice", StellarAddress: alice.Address(), PasskeyID: "mock_passkey_alice"})
	require.NoError(t, err)

	_, err = client.RegisterUser(ctx, alice, Registration{Username: "alice", StellarAddress: alice.Address(), PasskeyID: "again"})
	var contractErr *ContractError
	require.ErrorAs(t, err, &contractErr)
	assert.Equal(t, "EXISTS", contractErr.Code)

	user, found, err := client.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, alice.Address(), user.StellarAddress)
	assert.Equal(t, uint64(1_700_000_000), user.CreatedAt)

	_, err = client.SendTip(ctx, bob, TipRequest{From: bob.Address(), Username: "alice", Amount: 5_000_000, Token: token, Message: "thanks"})
	require.NoError(t, err)
	_, err = client.SendPayment(ctx, alice, PaymentRequest{Sender: alice.Address(), Recipient: bob.Address(), Amount: 1_000_000, Token: token, Category: PaymentGift})
	require.NoError(t, err)

	payments, err := client.GetUserPayments(ctx, alice.Address(), 0)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, PaymentGift, payments[0].PaymentType, "most recent first")
	assert.Equal(t, PaymentTip, payments[1].PaymentType)
	assert.Equal(t, "thanks", payments[1].Memo)

	link, found, err := client.GetTipLink(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(5_000_000), link.TotalTips)
	assert.Equal(t, uint64(1), link.TipCount)

	stats, err := client.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Users: 1, Payments: 2, Volume: 6_000_000}, stats)
}

func TestToggleTipLinkTwiceRestoresFlag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t, NewMemory(nil))
	owner, err := keypair.Random()
	require.NoError(t, err)

	_, err = client.RegisterUser(ctx, owner, Registration{Username: "carol", StellarAddress: owner.Address(), PasskeyID: "pk"})
	require.NoError(t, err)

	before, _, err := client.GetTipLink(ctx, "carol")
	require.NoError(t, err)

	_, err = client.ToggleTipLink(ctx, owner, "carol")
	require.NoError(t, err)
	mid, _, err := client.GetTipLink(ctx, "carol")
	require.NoError(t, err)
	assert.NotEqual(t, before.Active, mid.Active)

	_, err = client.ToggleTipLink(ctx, owner, "carol")
	require.NoError(t, err)
	after, _, err := client.GetTipLink(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, before.Active, after.Active)

	stranger, err := keypair.Random()
	require.NoError(t, err)
	_, err = client.ToggleTipLink(ctx, stranger, "carol")
	var contractErr *ContractError
	require.ErrorAs(t, err, &contractErr)
	assert.Equal(t, "UNAUTHORIZED", contractErr.Code)
}

func TestAmountHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(5_000_000), XLMToStroops(0.5))
	assert.InDelta(t, 1.25, StroopsToXLM(12_500_000), 1e-9)
	assert.Equal(t, "0.0012345 XLM", FormatXLM(12_345))

	v, err := ParseAmount("2.50")
	require.NoError(t, err)
	assert.Equal(t, int64(25_000_000), v)
	assert.Equal(t, "2.5000000", FormatAmount(v))

	_, err = ParseAmount("1.123456789")
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = ParseAmount("abc")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSendTipAcceptsMessagesUpToLimit(t *testing.T) {
	t.Parallel()

	from, err := keypair.Random()
	require.NoError(t, err)
	token := randomContractID(t)

	for _, message := range []string{
		"Thanks for the great content!",
		strings.Repeat("é", MaxMessageChars),
	} {
		sub := &recordingSubmitter{}
		_, err := newTestClient(t, sub).SendTip(context.Background(), from, TipRequest{
			From: from.Address(), Username: "dave", Amount: 1_000_000, Token: token, Message: message,
		})
		require.NoError(t, err)
		require.Len(t, sub.submitted, 1)
		assert.Equal(t, String(message), sub.submitted[0].Args[4])
	}

	sub := &recordingSubmitter{}
	_, err = newTestClient(t, sub).SendTip(context.Background(), from, TipRequest{
		From: from.Address(), Username: "dave", Amount: 1_000_000, Token: token,
		Message: strings.Repeat("m", MaxMessageChars+1),
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, sub.submitted)
}

func TestStatsVolumeBeyondInt64IsReported(t *testing.T) {
	t.Parallel()

	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	sub := &recordingSubmitter{result: []any{uint32(1), uint32(1), huge}}
	_, err := newTestClient(t, sub).GetStats(context.Background())
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, err.Error(), "overflows int64")
}
