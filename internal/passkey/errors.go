package passkey

import (
	"errors"
	"fmt"
)

// Reason is the closed set of outcomes the platform credential boundary can fail with.
type Reason int

const (
	ReasonUnknown Reason = iota
	// ReasonNotAllowed: the user cancelled or the platform refused the ceremony.
	ReasonNotAllowed
	// ReasonNotSupported: the device cannot perform the ceremony at all.
	ReasonNotSupported
	// ReasonSecurity: the ceremony was blocked for origin or transport reasons.
	ReasonSecurity
)

func (r Reason) String() string {
	switch r {
	case ReasonNotAllowed:
		return "not_allowed"
	case ReasonNotSupported:
		return "not_supported"
	case ReasonSecurity:
		return "security"
	default:
		return "unknown"
	}
}

// ReasonFromName maps a platform exception name (NotAllowedError, ...) onto a Reason.
func ReasonFromName(name string) Reason {
	switch name {
	case "NotAllowedError":
		return ReasonNotAllowed
	case "NotSupportedError":
		return ReasonNotSupported
	case "SecurityError":
		return ReasonSecurity
	default:
		return ReasonUnknown
	}
}

// CredentialError is returned by providers when a credential ceremony fails.
type CredentialError struct {
	Reason Reason
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("passkey: %s", e.Reason)
	}
	return fmt.Sprintf("passkey: %s: %v", e.Reason, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Aborts reports whether the failure must stop registration instead of falling back
// to the simulated provider.
func (e *CredentialError) Aborts() bool {
	return e.Reason == ReasonNotAllowed || e.Reason == ReasonNotSupported
}

// PlatformError is an exception reported by the platform authenticator, identified by
// its DOM exception name.
type PlatformError struct {
	Name    string
	Message string
}

func (e *PlatformError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// Classify converts any error into a CredentialError. It returns nil for nil.
func Classify(err error) *CredentialError {
	if err == nil {
		return nil
	}
	var ce *CredentialError
	if errors.As(err, &ce) {
		return ce
	}
	var pe *PlatformError
	if errors.As(err, &pe) {
		return &CredentialError{Reason: ReasonFromName(pe.Name), Err: err}
	}
	return &CredentialError{Reason: ReasonUnknown, Err: err}
}
