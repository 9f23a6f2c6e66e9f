package contract

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned when a call fails client-side validation and was never sent.
var ErrInvalidRequest = errors.New("invalid contract request")

// RemoteError wraps a failure talking to the network. Err is the transport error as
// returned by the submitter.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("contract %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
