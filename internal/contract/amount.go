package contract

import (
	"fmt"
	"math"

	"github.com/stellar/go-stellar-sdk/amount"
	"github.com/stellar/go-stellar-sdk/strkey"
)

// StroopsPerXLM is the fixed-point scale of native amounts.
const StroopsPerXLM = 10_000_000

// XLMToStroops rounds a floating XLM amount to the nearest stroop.
func XLMToStroops(xlm float64) int64 {
	return int64(math.Round(xlm * StroopsPerXLM))
}

// StroopsToXLM converts stroops to XLM.
func StroopsToXLM(stroops int64) float64 {
	return float64(stroops) / StroopsPerXLM
}

// FormatXLM renders stroops as "1.2345000 XLM".
func FormatXLM(stroops int64) string {
	return fmt.Sprintf("%.7f XLM", StroopsToXLM(stroops))
}

// ParseAmount parses a decimal XLM amount ("2.5") exactly into stroops.
func ParseAmount(s string) (int64, error) {
	v, err := amount.ParseInt64(s)
	if err != nil {
		return 0, invalid("amount %q: %v", s, err)
	}
	return v, nil
}

// FormatAmount renders stroops as an exact decimal with seven places.
func FormatAmount(stroops int64) string {
	return amount.StringFromInt64(stroops)
}

// ValidAddress reports whether s is an account (G...) or contract (C...) strkey.
func ValidAddress(s string) bool {
	if strkey.IsValidEd25519PublicKey(s) {
		return true
	}
	_, err := strkey.Decode(strkey.VersionByteContract, s)
	return err == nil
}

func validateAccount(field, s string) error {
	if !ValidAddress(s) {
		return invalid("%s %q is not a valid address", field, s)
	}
	return nil
}
