// Package passkey implements the credential provider: platform passkeys verified with
// WebAuthn, and the simulated provider used when no platform credential is available.
package passkey

import "context"

// Registration is the outcome of a successful credential creation.
type Registration struct {
	CredentialID string
	// PublicKey is the base64url credential public key, empty for simulated credentials.
	PublicKey string
	Address   string
}

// Credential identifies a stored credential to authenticate against.
type Credential struct {
	ID        string
	PublicKey string
	Username  string
}

// Provider creates and verifies credentials.
type Provider interface {
	// Supported probes platform capability. It never fails; probing errors read as false.
	Supported(ctx context.Context) bool
	// Create enrolls a credential for username. Failures are *CredentialError.
	Create(ctx context.Context, username string) (Registration, error)
	// Authenticate returns false for a rejected assertion and an error only when the
	// check could not run.
	Authenticate(ctx context.Context, cred Credential) (bool, error)
}
