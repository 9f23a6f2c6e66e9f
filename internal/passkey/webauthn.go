package passkey

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/go-webauthn/webauthn/webauthn"
)

const defaultCeremonyTimeout = 60 * time.Second

// Authenticator is the platform side of a ceremony. Create and Get return the JSON
// encoded PublicKeyCredential the platform produced for the given options.
type Authenticator interface {
	Available(ctx context.Context) (bool, error)
	Create(ctx context.Context, options *protocol.CredentialCreation) ([]byte, error)
	Get(ctx context.Context, options *protocol.CredentialAssertion) ([]byte, error)
}

// NoPlatform is the authenticator for processes without a platform authenticator.
type NoPlatform struct{}

func (NoPlatform) Available(context.Context) (bool, error) { return false, nil }

func (NoPlatform) Create(context.Context, *protocol.CredentialCreation) ([]byte, error) {
	return nil, &CredentialError{Reason: ReasonNotSupported}
}

func (NoPlatform) Get(context.Context, *protocol.CredentialAssertion) ([]byte, error) {
	return nil, &CredentialError{Reason: ReasonNotSupported}
}

// WebAuthnConfig describes the relying party.
type WebAuthnConfig struct {
	RPID          string
	RPDisplayName string
	RPOrigins     []string
	Timeout       time.Duration
}

// WebAuthn is the platform passkey provider. It issues ceremony options, hands them to
// the Authenticator and verifies what comes back.
type WebAuthn struct {
	rp       *webauthn.WebAuthn
	platform Authenticator
	timeout  time.Duration
	logger   *slog.Logger
}

// NewWebAuthn configures the relying party.
func NewWebAuthn(cfg WebAuthnConfig, platform Authenticator, logger *slog.Logger) (*WebAuthn, error) {
	if platform == nil {
		platform = NoPlatform{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCeremonyTimeout
	}
	rp, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure relying party: %w", err)
	}
	return &WebAuthn{rp: rp, platform: platform, timeout: timeout, logger: logger}, nil
}

func (w *WebAuthn) Supported(ctx context.Context) bool {
	ok, err := w.platform.Available(ctx)
	if err != nil {
		w.logger.Warn("passkey support probe failed", "error", err)
		return false
	}
	return ok
}

func (w *WebAuthn) Create(ctx context.Context, username string) (Registration, error) {
	user := &rpUser{name: username}
	creation, session, err := w.rp.BeginRegistration(user,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			UserVerification:        protocol.VerificationRequired,
		}),
		webauthn.WithConveyancePreference(protocol.PreferNoAttestation),
	)
	if err != nil {
		return Registration{}, &CredentialError{Reason: ReasonUnknown, Err: err}
	}
	creation.Response.Parameters = []protocol.CredentialParameter{
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgRS256},
	}
	creation.Response.Timeout = int(w.timeout.Milliseconds())

	raw, err := w.platform.Create(ctx, creation)
	if err != nil {
		return Registration{}, Classify(err)
	}
	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(raw))
	if err != nil {
		return Registration{}, &CredentialError{Reason: ReasonUnknown, Err: err}
	}
	cred, err := w.rp.CreateCredential(user, *session, parsed)
	if err != nil {
		return Registration{}, &CredentialError{Reason: ReasonSecurity, Err: err}
	}
	addr, err := DeriveAddress(cred.PublicKey)
	if err != nil {
		return Registration{}, &CredentialError{Reason: ReasonUnknown, Err: err}
	}
	return Registration{
		CredentialID: base64.RawURLEncoding.EncodeToString(cred.ID),
		PublicKey:    base64.RawURLEncoding.EncodeToString(cred.PublicKey),
		Address:      addr,
	}, nil
}

func (w *WebAuthn) Authenticate(ctx context.Context, c Credential) (bool, error) {
	id, err := base64.RawURLEncoding.DecodeString(c.ID)
	if err != nil {
		return false, fmt.Errorf("decode credential id: %w", err)
	}
	pub, err := base64.RawURLEncoding.DecodeString(c.PublicKey)
	if err != nil {
		return false, fmt.Errorf("decode credential public key: %w", err)
	}
	user := &rpUser{
		name:        c.Username,
		credentials: []webauthn.Credential{{ID: id, PublicKey: pub, AttestationType: "none"}},
	}
	assertion, session, err := w.rp.BeginLogin(user, webauthn.WithUserVerification(protocol.VerificationRequired))
	if err != nil {
		return false, fmt.Errorf("begin login: %w", err)
	}
	assertion.Response.Timeout = int(w.timeout.Milliseconds())

	raw, err := w.platform.Get(ctx, assertion)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		w.logger.Info("passkey assertion rejected", "user", c.Username, "reason", Classify(err).Reason.String())
		return false, nil
	}
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(raw))
	if err != nil {
		w.logger.Info("passkey assertion unparseable", "user", c.Username, "error", err)
		return false, nil
	}
	if _, err := w.rp.ValidateLogin(user, *session, parsed); err != nil {
		w.logger.Info("passkey assertion invalid", "user", c.Username, "error", err)
		return false, nil
	}
	return true, nil
}

type rpUser struct {
	name        string
	credentials []webauthn.Credential
}

func (u *rpUser) WebAuthnID() []byte                         { return []byte(u.name) }
func (u *rpUser) WebAuthnName() string                       { return u.name }
func (u *rpUser) WebAuthnDisplayName() string                { return u.name }
func (u *rpUser) WebAuthnIcon() string                       { return "" }
func (u *rpUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }
