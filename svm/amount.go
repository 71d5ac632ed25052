package svm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a human-readable token amount such as "0.01" into
// minor units for a mint with the given decimal precision. It rejects
// negative amounts and amounts with more fractional digits than the mint
// supports.
func ParseAmount(amount string, decimals uint8) (uint64, error) {
	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if dec.IsNegative() {
		return 0, fmt.Errorf("amount cannot be negative: %s", amount)
	}

	scaled := dec.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s exceeds %d decimal places", amount, decimals)
	}

	units := scaled.BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows uint64 at %d decimals", amount, decimals)
	}
	return units.Uint64(), nil
}

// FormatAmount renders minor units as a human-readable token amount.
func FormatAmount(units uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals)).String()
}
