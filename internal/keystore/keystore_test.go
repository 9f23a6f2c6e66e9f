package keystore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stellarpass/stellarpass/internal/kv"
)

func fastKeystore(store kv.Store, passphrase string) *Keystore {
	k := New(store, passphrase)
	k.n = 1 << 10
	return k
}

func TestLoadOrCreateIsStable(t *testing.T) {
	ctx := context.Background()
	ks := fastKeystore(kv.NewMemory(), "")

	first, err := ks.LoadOrCreate(ctx, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := ks.LoadOrCreate(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if first.Address() != second.Address() {
		t.Fatalf("expected the same key, got %s and %s", first.Address(), second.Address())
	}
	other, err := ks.LoadOrCreate(ctx, "bob")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if other.Address() == first.Address() {
		t.Fatalf("identities must not share keys")
	}
	if _, err := ks.Load(ctx, "carol"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSealedSeed(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	ks := fastKeystore(store, "correct horse")

	kp, err := ks.LoadOrCreate(ctx, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	raw, err := store.Get(ctx, Key("alice"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.Contains(string(raw), kp.Seed()) {
		t.Fatalf("sealed record must not contain the seed")
	}

	reopened, err := fastKeystore(store, "correct horse").Load(ctx, "alice")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Address() != kp.Address() {
		t.Fatalf("reopened key differs")
	}
	if _, err := fastKeystore(store, "wrong").Load(ctx, "alice"); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
	if _, err := fastKeystore(store, "").Load(ctx, "alice"); !errors.Is(err, ErrPassphraseRequired) {
		t.Fatalf("expected ErrPassphraseRequired, got %v", err)
	}
}
