package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stellarpass/stellarpass/internal/kv"
)

const (
	// LastIdentityKey holds the identity login restores. It survives logout.
	LastIdentityKey = "stellarpass_user"
	// SessionKey marks that the last identity is currently signed in.
	SessionKey = "stellarpass_session"
)

// ErrCorrupt is returned when a stored identity cannot be decoded.
var ErrCorrupt = errors.New("stored identity is corrupt")

// Records persists the last identity and the active session marker.
type Records struct {
	store kv.Store
}

// NewRecords builds records over store.
func NewRecords(store kv.Store) *Records {
	return &Records{store: store}
}

// Last returns the most recently registered or logged-in identity.
func (r *Records) Last(ctx context.Context) (Identity, error) {
	raw, err := r.store.Get(ctx, LastIdentityKey)
	if errors.Is(err, kv.ErrNotFound) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	var identity Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if identity.Username == "" {
		return Identity{}, fmt.Errorf("%w: missing username", ErrCorrupt)
	}
	return identity, nil
}

// SaveLast stores identity as the last identity.
func (r *Records) SaveLast(ctx context.Context, identity Identity) error {
	return kv.SetJSON(ctx, r.store, LastIdentityKey, identity)
}

// DropLast removes the last identity, used when it cannot be decoded.
func (r *Records) DropLast(ctx context.Context) error {
	return r.store.Delete(ctx, LastIdentityKey)
}

type sessionMarker struct {
	Username string `json:"username"`
}

// MarkActive records that username holds the active session.
func (r *Records) MarkActive(ctx context.Context, username string) error {
	return kv.SetJSON(ctx, r.store, SessionKey, sessionMarker{Username: username})
}

// Active returns the username holding the active session, or ErrNotFound.
func (r *Records) Active(ctx context.Context) (string, error) {
	var marker sessionMarker
	err := kv.GetJSON(ctx, r.store, SessionKey, &marker)
	if errors.Is(err, kv.ErrNotFound) || (err == nil && marker.Username == "") {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return marker.Username, nil
}

// ClearActive removes the active session marker.
func (r *Records) ClearActive(ctx context.Context) error {
	return r.store.Delete(ctx, SessionKey)
}
