package passkey

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/stellarpass/stellarpass/internal/clock"
)

const (
	SimulatedCreateDelay       = 1500 * time.Millisecond
	SimulatedAuthenticateDelay = 1000 * time.Millisecond
	simulatedIDPrefix          = "mock_passkey_"
)

// Simulated stands in for a platform authenticator. It keeps the perceived latency of
// a real ceremony and always succeeds.
type Simulated struct {
	clock   clock.Clock
	random  io.Reader
	counter atomic.Uint64
}

// NewSimulated builds a simulated provider on the given clock.
func NewSimulated(c clock.Clock) *Simulated {
	if c == nil {
		c = clock.Real()
	}
	return &Simulated{clock: c, random: rand.Reader}
}

// Supported is always true.
func (s *Simulated) Supported(context.Context) bool { return true }

// Create waits SimulatedCreateDelay and fabricates a credential id and address.
func (s *Simulated) Create(ctx context.Context, username string) (Registration, error) {
	if err := s.clock.Sleep(ctx, SimulatedCreateDelay); err != nil {
		return Registration{}, err
	}
	addr, err := GenerateAddress(s.random)
	if err != nil {
		return Registration{}, err
	}
	return Registration{CredentialID: s.credentialID(username), Address: addr}, nil
}

// Authenticate waits SimulatedAuthenticateDelay and succeeds.
func (s *Simulated) Authenticate(ctx context.Context, _ Credential) (bool, error) {
	if err := s.clock.Sleep(ctx, SimulatedAuthenticateDelay); err != nil {
		return false, err
	}
	return true, nil
}

// IsSimulatedID reports whether id was minted by a simulated provider.
func IsSimulatedID(id string) bool {
	return strings.HasPrefix(id, simulatedIDPrefix)
}

// credentialID combines username, wall-clock millis, a process-wide counter and a
// random fragment; the counter alone keeps ids unique within a run.
func (s *Simulated) credentialID(username string) string {
	n := s.counter.Add(1)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s%s_%d_%d%s", simulatedIDPrefix, username, s.clock.Now().UnixMilli(), n, suffix)
}
