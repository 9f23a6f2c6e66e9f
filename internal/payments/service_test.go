package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stellar/go-stellar-sdk/keypair"

	"github.com/stellarpass/stellarpass/internal/clock"
	"github.com/stellarpass/stellarpass/internal/contract"
	"github.com/stellarpass/stellarpass/internal/identity"
	"github.com/stellarpass/stellarpass/internal/logging"
	"github.com/stellarpass/stellarpass/internal/notification"
	"github.com/stellarpass/stellarpass/internal/wallet"
)

const nativeToken = "CDLZFC3SYJYDZT7K67VZ75HPJVIEUVNIXF47ZG2FB2RMQQVU2HHGCYSC"

type stubSession struct {
	current *identity.Identity
}

func (s *stubSession) Current() (identity.Identity, bool) {
	if s.current == nil {
		return identity.Identity{}, false
	}
	return *s.current, true
}

type stubKeys struct {
	kp *keypair.Full
}

func (k stubKeys) Signer() (*keypair.Full, error) {
	if k.kp == nil {
		return nil, wallet.ErrNotInitialized
	}
	return k.kp, nil
}

type harness struct {
	svc      *Service
	session  *stubSession
	kp       *keypair.Full
	recorder *notification.Recorder
}

func newHarness(t *testing.T, username string) harness {
	t.Helper()
	kp := keypair.MustRandom()
	session := &stubSession{}
	if username != "" {
		session.current = &identity.Identity{ID: username, Username: username, PublicKey: "pk", CredentialID: "cred-" + username}
	}
	rec := notification.NewRecorder(0)
	memory := contract.NewMemory(clock.NewFake(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	client := contract.NewClient(memory, contract.Config{ContractID: "CSTELLARPASS", Logger: logging.Discard()})
	svc := NewService(Options{
		Client:   client,
		Session:  session,
		Keys:     stubKeys{kp: kp},
		Token:    nativeToken,
		Notifier: rec,
		Logger:   logging.Discard(),
	})
	return harness{svc: svc, session: session, kp: kp, recorder: rec}
}

func TestRegisterUsesWalletAddress(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()

	receipt, err := h.svc.Register(ctx)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if receipt.Hash == "" || receipt.Status != "PENDING" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	user, ok, err := h.svc.User(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("get user: ok=%v err=%v", ok, err)
	}
	if user.StellarAddress != h.kp.Address() || user.PasskeyID != "cred-alice" {
		t.Fatalf("unexpected user %+v", user)
	}

	_, err = h.svc.Register(ctx)
	var appErr *contract.ContractError
	if !errors.As(err, &appErr) || appErr.Code != "EXISTS" {
		t.Fatalf("expected EXISTS, got %v", err)
	}
	var remote *contract.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected a RemoteError wrapper, got %T", err)
	}
	if msg, ok := h.recorder.Last(notification.KindError); !ok || !strings.Contains(msg.Body, "EXISTS") {
		t.Fatalf("expected an error notice, got %+v", msg)
	}
}

func TestRequiresSession(t *testing.T) {
	h := newHarness(t, "")
	if _, err := h.svc.Register(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := h.svc.Payments(context.Background(), "", 0); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestPayAndList(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	bob := keypair.MustRandom().Address()

	if _, err := h.svc.Pay(ctx, PayInput{To: bob, Amount: "1.5", Memo: "lunch"}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if _, err := h.svc.Pay(ctx, PayInput{To: bob, Amount: "2", Category: "Gift"}); err != nil {
		t.Fatalf("gift: %v", err)
	}

	list, err := h.svc.Payments(ctx, "", 0)
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two payments, got %d", len(list))
	}
	if list[0].PaymentType != contract.PaymentGift {
		t.Fatalf("expected newest first, got %+v", list[0])
	}
	if list[1].Amount != 15_000_000 || list[1].PaymentType != contract.PaymentTransfer || list[1].Token != nativeToken {
		t.Fatalf("unexpected transfer %+v", list[1])
	}

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Payments != 2 || stats.Volume != 35_000_000 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPayRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	bob := keypair.MustRandom().Address()

	cases := []PayInput{
		{To: bob, Amount: "abc"},
		{To: bob, Amount: "0"},
		{To: "nope", Amount: "1"},
		{To: bob, Amount: "1", Category: "Bribe"},
		{To: bob, Amount: "1", Memo: strings.Repeat("m", contract.MaxMemoChars+1)},
	}
	for _, in := range cases {
		if _, err := h.svc.Pay(ctx, in); !errors.Is(err, contract.ErrInvalidRequest) {
			t.Fatalf("%+v: expected ErrInvalidRequest, got %v", in, err)
		}
	}
}

func TestTipAndToggle(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	if _, err := h.svc.Register(ctx); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := h.svc.Tip(ctx, TipInput{Username: "alice", Amount: "1", Message: "thanks"}); err != nil {
		t.Fatalf("tip: %v", err)
	}
	info, ok, err := h.svc.TipLink(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("tip link: ok=%v err=%v", ok, err)
	}
	if info.TipCount != 1 || info.TotalTips != 10_000_000 || !info.Active {
		t.Fatalf("unexpected tip link %+v", info)
	}

	if _, err := h.svc.ToggleTipLink(ctx); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	_, err = h.svc.Tip(ctx, TipInput{Username: "alice", Amount: "1"})
	var appErr *contract.ContractError
	if !errors.As(err, &appErr) || appErr.Code != "INACTIVE" {
		t.Fatalf("expected INACTIVE, got %v", err)
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	h := newHarness(t, "alice")
	app := fiber.New()
	handler := NewHandler(h.svc)
	app.Post("/chain/register", handler.Register)
	app.Post("/chain/payments", handler.Pay)
	app.Get("/chain/users/:username", handler.User)
	app.Get("/chain/stats", handler.Stats)

	do := func(method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		return resp.StatusCode
	}

	if code := do(http.MethodGet, "/chain/users/alice", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404 before registration, got %d", code)
	}
	if code := do(http.MethodPost, "/chain/register", "{}"); code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", code)
	}
	if code := do(http.MethodPost, "/chain/register", "{}"); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a duplicate, got %d", code)
	}
	if code := do(http.MethodPost, "/chain/payments", `{"to":"bad","amount":"1"}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if code := do(http.MethodGet, "/chain/stats", ""); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	h.session.current = nil
	if code := do(http.MethodPost, "/chain/register", "{}"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", code)
	}
}
