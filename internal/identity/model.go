package identity

import (
	"fmt"
	"strings"
	"time"
)

// Identity is a registered StellarPass user as persisted on the client.
type Identity struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	PublicKey        string    `json:"publicKey"`
	StellarAddress   string    `json:"stellarAddress,omitempty"`
	CredentialID     string    `json:"credentialId,omitempty"`
	IsPasskeyEnabled bool      `json:"isPasskeyEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Profile is the public view of an identity, served on tip pages.
type Profile struct {
	Username       string `json:"username"`
	StellarAddress string `json:"stellarAddress,omitempty"`
	TipLink        string `json:"tipLink"`
}

// TipLink derives the shareable tip URL for username. It is never stored.
func TipLink(host, username string) string {
	return fmt.Sprintf("%s/tip/%s", strings.TrimSuffix(host, "/"), username)
}
