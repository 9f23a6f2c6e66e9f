// Package keystore keeps one Stellar signing key per identity in the kv store,
// optionally sealed under a passphrase.
package keystore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/stellar/go-stellar-sdk/keypair"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/stellarpass/stellarpass/internal/kv"
)

const (
	formatVersion = 1
	keyPrefix     = "stellarpass_keypair_"
)

var (
	ErrNotFound           = errors.New("keystore: no key for identity")
	ErrWrongPassphrase    = errors.New("keystore: wrong passphrase or corrupted key")
	ErrPassphraseRequired = errors.New("keystore: key is sealed and no passphrase is configured")
)

// envelope is the sealed form of a seed.
type envelope struct {
	Salt   []byte `json:"salt"`
	Nonce  []byte `json:"nonce"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

type record struct {
	V       int       `json:"v"`
	Address string    `json:"address"`
	Seed    string    `json:"seed,omitempty"`
	Sealed  *envelope `json:"sealed,omitempty"`
}

// Keystore loads and creates per-identity signing keys.
type Keystore struct {
	store      kv.Store
	passphrase string
	n, r, p    int
	mu         sync.Mutex
}

// New builds a keystore. An empty passphrase stores seeds in the clear.
func New(store kv.Store, passphrase string) *Keystore {
	return &Keystore{store: store, passphrase: passphrase, n: 1 << 15, r: 8, p: 1}
}

// Key returns the kv key holding the signing key of identity id.
func Key(id string) string { return keyPrefix + id }

// LoadOrCreate returns the signing key for id, generating and storing one on first use.
func (k *Keystore) LoadOrCreate(ctx context.Context, id string) (*keypair.Full, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	kp, err := k.load(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		return kp, err
	}
	kp, err = keypair.Random()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	if err := k.save(ctx, id, kp); err != nil {
		return nil, err
	}
	return kp, nil
}

// Load returns the stored signing key for id.
func (k *Keystore) Load(ctx context.Context, id string) (*keypair.Full, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.load(ctx, id)
}

func (k *Keystore) load(ctx context.Context, id string) (*keypair.Full, error) {
	raw, err := k.store.Get(ctx, Key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode key record: %w", err)
	}
	if rec.V > formatVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", rec.V)
	}

	seed := rec.Seed
	if rec.Sealed != nil {
		if k.passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		pt, err := open(k.passphrase, rec.Sealed)
		if err != nil {
			return nil, err
		}
		seed = string(pt)
	}
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if rec.Address != "" && kp.Address() != rec.Address {
		return nil, ErrWrongPassphrase
	}
	return kp, nil
}

func (k *Keystore) save(ctx context.Context, id string, kp *keypair.Full) error {
	rec := record{V: formatVersion, Address: kp.Address()}
	if k.passphrase == "" {
		rec.Seed = kp.Seed()
	} else {
		env, err := seal(k.passphrase, []byte(kp.Seed()), k.n, k.r, k.p)
		if err != nil {
			return fmt.Errorf("seal seed: %w", err)
		}
		rec.Sealed = env
	}
	return kv.SetJSON(ctx, k.store, Key(id), rec)
}

func seal(passphrase string, raw []byte, n, r, p int) (*envelope, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt, n, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return &envelope{
		Salt:   salt,
		Nonce:  nonce,
		N:      n,
		R:      r,
		P:      p,
		Cipher: aead.Seal(nil, nonce, raw, salt),
	}, nil
}

func open(passphrase string, env *envelope) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), env.Salt, env.N, env.R, env.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := aead.Open(nil, env.Nonce, env.Cipher, env.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
