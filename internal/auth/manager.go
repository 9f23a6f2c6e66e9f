// Package auth owns the client session: who is signed in, how they got there, and the
// tokens the API hands out for it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/stellarpass/stellarpass/internal/clock"
	"github.com/stellarpass/stellarpass/internal/identity"
	"github.com/stellarpass/stellarpass/internal/notification"
	"github.com/stellarpass/stellarpass/internal/passkey"
)

var (
	ErrInvalidUsername          = errors.New("username is required")
	ErrDuplicateUsername        = errors.New("username already exists")
	ErrNoStoredSession          = errors.New("no account found")
	ErrRegistrationAborted      = errors.New("passkey registration aborted")
	ErrRegistrationFailed       = errors.New("passkey registration failed")
	ErrAuthenticationFailed     = errors.New("authentication failed")
	ErrAuthenticationInProgress = errors.New("authentication already in progress")
	ErrNotAuthenticated         = errors.New("not authenticated")
)

const (
	topicSetup = "passkey-setup"
	topicAuth  = "passkey-auth"
)

// State is the session lifecycle position.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Session is a point-in-time snapshot of the manager.
type Session struct {
	CurrentIdentity     *identity.Identity `json:"currentIdentity,omitempty"`
	Loading             bool               `json:"loading"`
	CredentialSupported bool               `json:"credentialSupported"`
	State               State              `json:"state"`
}

// Listener observes identity changes. current is nil after logout.
type Listener func(ctx context.Context, current *identity.Identity) error

// Options wires a Manager.
type Options struct {
	Roster    identity.Repository
	Records   *identity.Records
	Real      passkey.Provider
	Simulated passkey.Provider
	Notifier  notification.Notifier
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Manager runs registration, login and logout against the credential providers and
// keeps the current identity. Register and Login are single-flight.
type Manager struct {
	roster    identity.Repository
	records   *identity.Records
	real      passkey.Provider
	simulated passkey.Provider
	notifier  notification.Notifier
	clock     clock.Clock
	logger    *slog.Logger

	busy atomic.Bool

	mu        sync.RWMutex
	current   *identity.Identity
	state     State
	supported bool
	epoch     uint64
	listeners []Listener
}

// NewManager builds a session manager. A nil Real provider means platform credentials
// are never attempted.
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Simulated == nil {
		opts.Simulated = passkey.NewSimulated(opts.Clock)
	}
	if opts.Notifier == nil {
		opts.Notifier = notification.Fanout{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		roster:    opts.Roster,
		records:   opts.Records,
		real:      opts.Real,
		simulated: opts.Simulated,
		notifier:  opts.Notifier,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
}

// Subscribe registers fn for identity changes.
func (m *Manager) Subscribe(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Init probes credential support and restores an active session from the records.
func (m *Manager) Init(ctx context.Context) error {
	supported := m.real != nil && m.real.Supported(ctx)
	m.mu.Lock()
	m.supported = supported
	m.mu.Unlock()
	m.logger.Info("passkey support probed", "supported", supported)

	username, err := m.records.Active(ctx)
	if errors.Is(err, identity.ErrNotFound) {
		return nil
	}
	if err != nil {
		m.logger.Error("active session marker unreadable", "error", err)
		return m.records.ClearActive(ctx)
	}

	last, err := m.records.Last(ctx)
	if errors.Is(err, identity.ErrCorrupt) {
		m.logger.Error("stored identity unreadable, removing", "error", err)
		if err := m.records.DropLast(ctx); err != nil {
			return err
		}
		return m.records.ClearActive(ctx)
	}
	if errors.Is(err, identity.ErrNotFound) || (err == nil && last.Username != username) {
		return m.records.ClearActive(ctx)
	}
	if err != nil {
		return err
	}
	m.setCurrent(ctx, &last)
	return nil
}

// Register enrolls username and signs it in.
func (m *Manager) Register(ctx context.Context, username string) (identity.Identity, error) {
	if !m.busy.CompareAndSwap(false, true) {
		return identity.Identity{}, ErrAuthenticationInProgress
	}
	defer m.busy.Store(false)

	if strings.TrimSpace(username) == "" {
		return identity.Identity{}, ErrInvalidUsername
	}

	restore := m.begin()
	defer restore()

	if _, err := m.roster.FindByUsername(ctx, username); err == nil {
		m.notify(ctx, notification.KindError, "", "Username already exists. Please choose a different one.")
		return identity.Identity{}, ErrDuplicateUsername
	} else if !errors.Is(err, identity.ErrNotFound) {
		return identity.Identity{}, fmt.Errorf("check roster: %w", err)
	}

	m.notify(ctx, notification.KindLoading, topicSetup, "Setting up your passkey...")

	reg, enabled, err := m.enroll(ctx, username)
	if err != nil {
		m.notify(ctx, notification.KindDismiss, topicSetup, "")
		var ce *passkey.CredentialError
		switch {
		case errors.As(err, &ce) && ce.Reason == passkey.ReasonNotAllowed:
			m.notify(ctx, notification.KindError, "", "Passkey creation was cancelled. Please try again.")
		case errors.As(err, &ce) && ce.Reason == passkey.ReasonNotSupported:
			m.notify(ctx, notification.KindError, "", "Passkeys are not supported on this device.")
		default:
			m.notify(ctx, notification.KindError, "", "Registration failed. Please try again.")
		}
		return identity.Identity{}, err
	}
	if reg.CredentialID == "" || reg.Address == "" {
		m.notify(ctx, notification.KindDismiss, topicSetup, "")
		m.notify(ctx, notification.KindError, "", "Failed to set up passkey. Please try again.")
		return identity.Identity{}, ErrRegistrationFailed
	}

	publicKey := reg.PublicKey
	if publicKey == "" {
		publicKey = reg.CredentialID
	}
	created := identity.Identity{
		ID:               username,
		Username:         username,
		PublicKey:        publicKey,
		StellarAddress:   reg.Address,
		CredentialID:     reg.CredentialID,
		IsPasskeyEnabled: enabled,
		CreatedAt:        m.clock.Now().UTC(),
	}

	// The roster is append-only, so it is written last: a failure before it leaves
	// the username free for a retry.
	undo := m.snapshot(ctx)
	if err := m.persist(ctx, created); err != nil {
		m.notify(ctx, notification.KindDismiss, topicSetup, "")
		m.notify(ctx, notification.KindError, "", "Registration failed. Please try again.")
		undo()
		return identity.Identity{}, err
	}
	if err := m.roster.Append(ctx, created); err != nil {
		m.notify(ctx, notification.KindDismiss, topicSetup, "")
		undo()
		if errors.Is(err, identity.ErrUsernameTaken) {
			m.notify(ctx, notification.KindError, "", "Username already exists. Please choose a different one.")
			return identity.Identity{}, ErrDuplicateUsername
		}
		m.notify(ctx, notification.KindError, "", "Registration failed. Please try again.")
		return identity.Identity{}, fmt.Errorf("append roster: %w", err)
	}

	m.setCurrent(ctx, &created)
	m.notify(ctx, notification.KindDismiss, topicSetup, "")
	if enabled {
		m.notify(ctx, notification.KindSuccess, "", "🎉 Real passkey created successfully! Welcome to StellarPass!")
	} else {
		m.notify(ctx, notification.KindSuccess, "", "✅ Account created successfully! Welcome to StellarPass!")
	}
	m.logger.Info("identity registered", "username", created.Username, "passkey", enabled)
	return created, nil
}

// enroll tries the platform provider when supported. Cancellation and unsupported
// devices abort; any other platform failure falls back to simulation.
func (m *Manager) enroll(ctx context.Context, username string) (passkey.Registration, bool, error) {
	if m.Supported() {
		reg, err := m.real.Create(ctx, username)
		if err == nil {
			return reg, true, nil
		}
		ce := passkey.Classify(err)
		if ce.Aborts() {
			return passkey.Registration{}, false, fmt.Errorf("%w: %w", ErrRegistrationAborted, ce)
		}
		m.logger.Warn("platform passkey registration failed, falling back to simulation",
			"username", username, "reason", ce.Reason.String(), "error", err)
	}
	reg, err := m.simulated.Create(ctx, username)
	if err != nil {
		return passkey.Registration{}, false, err
	}
	return reg, false, nil
}

// Login re-authenticates the last identity stored on this client.
func (m *Manager) Login(ctx context.Context) (identity.Identity, error) {
	if !m.busy.CompareAndSwap(false, true) {
		return identity.Identity{}, ErrAuthenticationInProgress
	}
	defer m.busy.Store(false)

	restore := m.begin()
	defer restore()

	last, err := m.records.Last(ctx)
	if errors.Is(err, identity.ErrCorrupt) {
		m.logger.Error("stored identity unreadable, removing", "error", err)
		if dropErr := m.records.DropLast(ctx); dropErr != nil {
			return identity.Identity{}, dropErr
		}
		err = identity.ErrNotFound
	}
	if errors.Is(err, identity.ErrNotFound) {
		m.notify(ctx, notification.KindError, "", "No account found. Please create an account first.")
		return identity.Identity{}, ErrNoStoredSession
	}
	if err != nil {
		return identity.Identity{}, err
	}

	m.notify(ctx, notification.KindLoading, topicAuth, "Authenticating with your passkey...")

	ok, err := m.verify(ctx, last)
	if err != nil || !ok {
		m.notify(ctx, notification.KindDismiss, topicAuth, "")
		m.notify(ctx, notification.KindError, "", "Authentication failed. Please try again.")
		if err != nil {
			return identity.Identity{}, err
		}
		return identity.Identity{}, ErrAuthenticationFailed
	}

	if err := m.persist(ctx, last); err != nil {
		m.notify(ctx, notification.KindDismiss, topicAuth, "")
		return identity.Identity{}, err
	}
	m.setCurrent(ctx, &last)
	m.notify(ctx, notification.KindDismiss, topicAuth, "")
	if last.IsPasskeyEnabled {
		m.notify(ctx, notification.KindSuccess, "", fmt.Sprintf("🎉 Welcome back, %s! (Real Passkey)", last.Username))
	} else {
		m.notify(ctx, notification.KindSuccess, "", fmt.Sprintf("✅ Welcome back, %s!", last.Username))
	}
	m.logger.Info("identity signed in", "username", last.Username)
	return last, nil
}

func (m *Manager) verify(ctx context.Context, last identity.Identity) (bool, error) {
	if last.IsPasskeyEnabled && last.CredentialID != "" && m.Supported() {
		ok, err := m.real.Authenticate(ctx, passkey.Credential{
			ID:        last.CredentialID,
			PublicKey: last.PublicKey,
			Username:  last.Username,
		})
		if err == nil {
			return ok, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		m.logger.Warn("platform passkey authentication failed, falling back to simulation",
			"username", last.Username, "error", err)
	}
	return m.simulated.Authenticate(ctx, passkey.Credential{ID: last.CredentialID, Username: last.Username})
}

// Logout clears the current identity and the active marker. The last identity and the
// roster stay so the user can sign back in.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.records.ClearActive(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.setCurrent(ctx, nil)
	m.notify(ctx, notification.KindSuccess, "", "Logged out successfully")
	return nil
}

// Current returns a copy of the signed-in identity.
func (m *Manager) Current() (identity.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return identity.Identity{}, false
	}
	return *m.current, true
}

// Supported reports the result of the last credential support probe.
func (m *Manager) Supported() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supported && m.real != nil
}

// Epoch identifies the current session; it advances on every sign-in and sign-out.
func (m *Manager) Epoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// Session returns a snapshot of the session state.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Session{
		Loading:             m.state == StateAuthenticating,
		CredentialSupported: m.supported,
		State:               m.state,
	}
	if m.current != nil {
		cur := *m.current
		s.CurrentIdentity = &cur
	}
	return s
}

// Authorize checks that a token subject and version match the live session.
func (m *Manager) Authorize(username string, version uint64) (identity.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.Username != username || m.epoch != version {
		return identity.Identity{}, ErrNotAuthenticated
	}
	return *m.current, nil
}

// begin enters the authenticating state and returns a func that restores the prior
// state unless the attempt moved the session on.
func (m *Manager) begin() func() {
	m.mu.Lock()
	prev, epoch := m.state, m.epoch
	m.state = StateAuthenticating
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state == StateAuthenticating && m.epoch == epoch {
			m.state = prev
		}
	}
}

func (m *Manager) persist(ctx context.Context, id identity.Identity) error {
	if err := m.records.SaveLast(ctx, id); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	if err := m.records.MarkActive(ctx, id.Username); err != nil {
		return fmt.Errorf("mark session: %w", err)
	}
	return nil
}

// snapshot captures the stored records and returns a func putting them back.
func (m *Manager) snapshot(ctx context.Context) func() {
	last, lastErr := m.records.Last(ctx)
	active, activeErr := m.records.Active(ctx)
	return func() {
		var err error
		if lastErr == nil {
			err = m.records.SaveLast(ctx, last)
		} else {
			err = m.records.DropLast(ctx)
		}
		if err != nil {
			m.logger.Error("restore last identity", "error", err)
		}
		if activeErr == nil {
			err = m.records.MarkActive(ctx, active)
		} else {
			err = m.records.ClearActive(ctx)
		}
		if err != nil {
			m.logger.Error("restore session marker", "error", err)
		}
	}
}

func (m *Manager) setCurrent(ctx context.Context, id *identity.Identity) {
	m.mu.Lock()
	m.current = id
	m.epoch++
	if id == nil {
		m.state = StateUnauthenticated
	} else {
		m.state = StateAuthenticated
	}
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		if err := fn(ctx, id); err != nil {
			m.logger.Warn("session listener failed", "error", err)
		}
	}
}

func (m *Manager) notify(ctx context.Context, kind notification.Kind, topic, body string) {
	if err := m.notifier.Send(ctx, notification.Message{Kind: kind, Topic: topic, Body: body}); err != nil {
		m.logger.Warn("notice delivery failed", "error", err)
	}
}
