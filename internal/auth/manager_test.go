package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stellarpass/stellarpass/internal/clock"
	"github.com/stellarpass/stellarpass/internal/identity"
	"github.com/stellarpass/stellarpass/internal/kv"
	"github.com/stellarpass/stellarpass/internal/logging"
	"github.com/stellarpass/stellarpass/internal/notification"
	"github.com/stellarpass/stellarpass/internal/passkey"
)

type stubProvider struct {
	supported bool
	reg       passkey.Registration
	createErr error
	authOK    bool
	authErr   error
	creates   int
	auths     int
	entered   chan struct{}
	release   chan struct{}
}

func (p *stubProvider) Supported(context.Context) bool { return p.supported }

func (p *stubProvider) Create(ctx context.Context, username string) (passkey.Registration, error) {
	p.creates++
	if p.entered != nil {
		close(p.entered)
		<-p.release
	}
	return p.reg, p.createErr
}

func (p *stubProvider) Authenticate(context.Context, passkey.Credential) (bool, error) {
	p.auths++
	return p.authOK, p.authErr
}

type fixture struct {
	manager  *Manager
	roster   identity.Repository
	store    kv.Store
	real     *stubProvider
	clock    *clock.Fake
	recorder *notification.Recorder
}

type flakyStore struct {
	kv.Store
	failSets int
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSets > 0 {
		s.failSets--
		return errors.New("disk full")
	}
	return s.Store.Set(ctx, key, value)
}

type flakyRoster struct {
	identity.Repository
	appendErr error
}

func (r *flakyRoster) Append(ctx context.Context, id identity.Identity) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	return r.Repository.Append(ctx, id)
}

func newFixture(t *testing.T, real *stubProvider) *fixture {
	t.Helper()
	return newFixtureWith(t, real, kv.NewMemory(), identity.NewMemoryRepository())
}

func newFixtureWith(t *testing.T, real *stubProvider, store kv.Store, roster identity.Repository) *fixture {
	t.Helper()
	fake := clock.NewFake(time.Unix(1_700_000_000, 0))
	recorder := notification.NewRecorder(0)
	var provider passkey.Provider
	if real != nil {
		provider = real
	}
	m := NewManager(Options{
		Roster:    roster,
		Records:   identity.NewRecords(store),
		Real:      provider,
		Simulated: passkey.NewSimulated(fake),
		Notifier:  recorder,
		Clock:     fake,
		Logger:    logging.Discard(),
	})
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return &fixture{manager: m, roster: roster, store: store, real: real, clock: fake, recorder: recorder}
}

func TestRegisterAndDuplicate(t *testing.T) {
	real := &stubProvider{supported: false}
	f := newFixture(t, real)
	ctx := context.Background()

	id, err := f.manager.Register(ctx, "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id.IsPasskeyEnabled {
		t.Fatalf("simulated registration must not be passkey enabled")
	}
	if !passkey.IsSimulatedID(id.CredentialID) || id.PublicKey != id.CredentialID {
		t.Fatalf("unexpected credential fields %+v", id)
	}
	if len(id.StellarAddress) != 56 || id.StellarAddress[0] != 'G' {
		t.Fatalf("unexpected address %s", id.StellarAddress)
	}

	if _, err := f.manager.Register(ctx, "alice"); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	all, _ := f.roster.List(ctx)
	if len(all) != 1 {
		t.Fatalf("expected one roster entry, got %d", len(all))
	}
	if real.creates != 0 {
		t.Fatalf("platform provider must not be called without support")
	}
	msg, ok := f.recorder.Last(notification.KindError)
	if !ok || msg.Body != "Username already exists. Please choose a different one." {
		t.Fatalf("unexpected error notice %+v", msg)
	}
	cur, ok := f.manager.Current()
	if !ok || cur.Username != "alice" {
		t.Fatalf("expected alice to remain signed in")
	}
}

func TestRegisterRejectsEmptyUsername(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.manager.Register(context.Background(), "   "); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
}

func TestLoginWithoutStoredIdentity(t *testing.T) {
	for _, supported := range []bool{false, true} {
		real := &stubProvider{supported: supported}
		f := newFixture(t, real)
		if _, err := f.manager.Login(context.Background()); !errors.Is(err, ErrNoStoredSession) {
			t.Fatalf("supported=%v: expected ErrNoStoredSession, got %v", supported, err)
		}
		if real.auths != 0 {
			t.Fatalf("platform provider must not be called")
		}
		if f.manager.Session().State != StateUnauthenticated {
			t.Fatalf("state should return to unauthenticated")
		}
	}
}

func TestRegisterLogoutLogin(t *testing.T) {
	f := newFixture(t, &stubProvider{})
	ctx := context.Background()

	if _, err := f.manager.Register(ctx, "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.manager.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := f.manager.Current(); ok {
		t.Fatalf("expected no current identity after logout")
	}

	id, err := f.manager.Login(ctx)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.Username != "alice" {
		t.Fatalf("expected alice, got %s", id.Username)
	}
	msg, _ := f.recorder.Last(notification.KindSuccess)
	if msg.Body != "✅ Welcome back, alice!" {
		t.Fatalf("unexpected notice %q", msg.Body)
	}
	sleeps := f.clock.Sleeps()
	if len(sleeps) != 2 || sleeps[1] != passkey.SimulatedAuthenticateDelay {
		t.Fatalf("unexpected simulated delays %v", sleeps)
	}
}

func TestRegisterAbortsOnCancellation(t *testing.T) {
	cases := map[string]string{
		"NotAllowedError":   "Passkey creation was cancelled. Please try again.",
		"NotSupportedError": "Passkeys are not supported on this device.",
	}
	for name, notice := range cases {
		real := &stubProvider{supported: true, createErr: &passkey.PlatformError{Name: name}}
		f := newFixture(t, real)

		_, err := f.manager.Register(context.Background(), "alice")
		if !errors.Is(err, ErrRegistrationAborted) {
			t.Fatalf("%s: expected ErrRegistrationAborted, got %v", name, err)
		}
		var ce *passkey.CredentialError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected wrapped credential error", name)
		}
		all, _ := f.roster.List(context.Background())
		if len(all) != 0 {
			t.Fatalf("%s: roster must stay empty", name)
		}
		msg, _ := f.recorder.Last(notification.KindError)
		if msg.Body != notice {
			t.Fatalf("%s: unexpected notice %q", name, msg.Body)
		}
	}
}

func TestRegisterFallsBackOnOtherFailures(t *testing.T) {
	real := &stubProvider{supported: true, createErr: &passkey.PlatformError{Name: "SecurityError"}}
	f := newFixture(t, real)

	id, err := f.manager.Register(context.Background(), "bob")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id.IsPasskeyEnabled || real.creates != 1 {
		t.Fatalf("expected simulated fallback after one platform attempt")
	}
}

func TestRealPasskeyLogin(t *testing.T) {
	real := &stubProvider{
		supported: true,
		reg:       passkey.Registration{CredentialID: "Y3JlZA", PublicKey: "a2V5", Address: "GDERIVED"},
	}
	f := newFixture(t, real)
	ctx := context.Background()

	id, err := f.manager.Register(ctx, "carol")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !id.IsPasskeyEnabled || id.PublicKey != "a2V5" {
		t.Fatalf("expected real passkey identity, got %+v", id)
	}
	_ = f.manager.Logout(ctx)

	if _, err := f.manager.Login(ctx); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("rejected assertion should fail login, got %v", err)
	}

	real.authErr = errors.New("platform unavailable")
	if _, err := f.manager.Login(ctx); err != nil {
		t.Fatalf("expected simulated fallback, got %v", err)
	}
	msg, _ := f.recorder.Last(notification.KindSuccess)
	if msg.Body != "🎉 Welcome back, carol! (Real Passkey)" {
		t.Fatalf("unexpected notice %q", msg.Body)
	}
}

func TestOverlappingAuthenticationRejected(t *testing.T) {
	real := &stubProvider{
		supported: true,
		reg:       passkey.Registration{CredentialID: "id", Address: "GADDR"},
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	f := newFixture(t, real)

	done := make(chan error, 1)
	go func() {
		_, err := f.manager.Register(context.Background(), "dave")
		done <- err
	}()
	<-real.entered

	if f.manager.Session().State != StateAuthenticating {
		t.Fatalf("expected authenticating state")
	}
	if _, err := f.manager.Login(context.Background()); !errors.Is(err, ErrAuthenticationInProgress) {
		t.Fatalf("expected ErrAuthenticationInProgress, got %v", err)
	}
	close(real.release)
	if err := <-done; err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestInitRestoresActiveSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.manager.Register(ctx, "erin"); err != nil {
		t.Fatalf("register: %v", err)
	}

	restarted := NewManager(Options{
		Roster:  f.roster,
		Records: identity.NewRecords(f.store),
		Clock:   f.clock,
		Logger:  logging.Discard(),
	})
	if err := restarted.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	cur, ok := restarted.Current()
	if !ok || cur.Username != "erin" {
		t.Fatalf("expected erin restored, got %+v", cur)
	}
}

func TestInitDropsCorruptIdentity(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	_ = store.Set(ctx, identity.LastIdentityKey, []byte("not json"))
	_ = store.Set(ctx, identity.SessionKey, []byte(`{"username":"x"}`))

	m := NewManager(Options{
		Roster:  identity.NewMemoryRepository(),
		Records: identity.NewRecords(store),
		Clock:   clock.NewFake(time.Unix(0, 0)),
		Logger:  logging.Discard(),
	})
	if err := m.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, ok := m.Current(); ok {
		t.Fatalf("corrupt identity must not be restored")
	}
	if _, err := store.Get(ctx, identity.LastIdentityKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("corrupt identity should be removed, got %v", err)
	}
}

func TestSubscribersSeeIdentityChanges(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var seen []string
	f.manager.Subscribe(func(_ context.Context, cur *identity.Identity) error {
		if cur == nil {
			seen = append(seen, "")
			return nil
		}
		seen = append(seen, cur.Username)
		return nil
	})

	_, _ = f.manager.Register(ctx, "frank")
	_ = f.manager.Logout(ctx)
	if len(seen) != 2 || seen[0] != "frank" || seen[1] != "" {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

func TestTokensFollowSessionEpoch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	tokens, err := NewTokens("secret", time.Hour, f.clock)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	if _, err := f.manager.Register(ctx, "gina"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := tokens.Issue("gina", f.manager.Epoch())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := f.manager.Authorize(claims.Subject, claims.Version); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	_ = f.manager.Logout(ctx)
	_, _ = f.manager.Login(ctx)
	if _, err := f.manager.Authorize(claims.Subject, claims.Version); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("token from an earlier session must not authorize, got %v", err)
	}

	f.clock.Advance(2 * time.Hour)
	if _, err := tokens.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
	if _, err := tokens.Parse(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected tampered token to be rejected")
	}
}

func TestRegisterSaveFailureLeavesUsernameFree(t *testing.T) {
	store := &flakyStore{Store: kv.NewMemory()}
	f := newFixtureWith(t, nil, store, identity.NewMemoryRepository())
	ctx := context.Background()

	store.failSets = 1
	if _, err := f.manager.Register(ctx, "alice"); err == nil {
		t.Fatalf("expected the failed save to surface")
	}
	if all, _ := f.roster.List(ctx); len(all) != 0 {
		t.Fatalf("roster must stay empty after a failed save, got %d", len(all))
	}
	if _, ok := f.manager.Current(); ok {
		t.Fatalf("no identity should be signed in")
	}

	if _, err := f.manager.Register(ctx, "alice"); err != nil {
		t.Fatalf("retry register: %v", err)
	}
	if err := f.manager.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	id, err := f.manager.Login(ctx)
	if err != nil || id.Username != "alice" {
		t.Fatalf("login after retry: id=%+v err=%v", id, err)
	}
}

func TestRegisterRosterFailureRestoresRecords(t *testing.T) {
	roster := &flakyRoster{Repository: identity.NewMemoryRepository()}
	f := newFixtureWith(t, nil, kv.NewMemory(), roster)
	ctx := context.Background()

	if _, err := f.manager.Register(ctx, "alice"); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if err := f.manager.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	roster.appendErr = errors.New("roster unavailable")
	if _, err := f.manager.Register(ctx, "bob"); err == nil {
		t.Fatalf("expected the roster failure to surface")
	}
	records := identity.NewRecords(f.store)
	last, err := records.Last(ctx)
	if err != nil || last.Username != "alice" {
		t.Fatalf("last identity should still be alice, got %+v err=%v", last, err)
	}
	if _, err := records.Active(ctx); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("session marker should stay cleared, got %v", err)
	}
}

func TestUsernamesAreNotNormalized(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.manager.Register(ctx, "alice"); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	for _, name := range []string{" alice", "Alice"} {
		id, err := f.manager.Register(ctx, name)
		if err != nil {
			t.Fatalf("register %q: %v", name, err)
		}
		if id.Username != name {
			t.Fatalf("expected username %q kept as given, got %q", name, id.Username)
		}
	}
	if all, _ := f.roster.List(ctx); len(all) != 3 {
		t.Fatalf("expected three distinct roster entries, got %d", len(all))
	}
}
