package passkey

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/stellar/go-stellar-sdk/strkey"
)

const (
	addressAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
	addressPrefix   = 'G'
	// AddressBodyLength is the number of symbols after the prefix.
	AddressBodyLength = 55
)

// GenerateAddress fabricates an account-shaped address: the G prefix followed by 55
// symbols of the base32 alphabet. It is not a valid strkey (no checksum).
func GenerateAddress(r io.Reader) (string, error) {
	buf := make([]byte, AddressBodyLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	out := make([]byte, 0, AddressBodyLength+1)
	out = append(out, addressPrefix)
	for _, b := range buf {
		out = append(out, addressAlphabet[b&31])
	}
	return string(out), nil
}

// DeriveAddress encodes SHA-256(publicKey) as a Stellar account strkey.
func DeriveAddress(publicKey []byte) (string, error) {
	if len(publicKey) == 0 {
		return "", fmt.Errorf("empty public key")
	}
	sum := sha256.Sum256(publicKey)
	return strkey.Encode(strkey.VersionByteAccountID, sum[:])
}
