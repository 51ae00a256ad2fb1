package utils

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/holiman/uint256"
)

// TokenDecimals matches the precision of sdkmath.LegacyDec, so a decimal's raw
// integer is the amount in base units
const TokenDecimals = sdkmath.LegacyPrecision

var ErrNegativeAmount = errors.New("amount cannot be negative")

// ParseTokenAmount converts a human readable amount such as "1000.5" into base units
func ParseTokenAmount(s string) (*uint256.Int, error) {
	dec, err := sdkmath.LegacyNewDecFromStr(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid token amount %q: %w", s, err)
	}
	if dec.IsNegative() {
		return nil, fmt.Errorf("invalid token amount %q: %w", s, ErrNegativeAmount)
	}

	amount, overflow := uint256.FromBig(dec.BigInt())
	if overflow {
		return nil, fmt.Errorf("invalid token amount %q: exceeds 256 bits", s)
	}
	return amount, nil
}

// FormatTokenAmount renders base units as a human readable amount without
// trailing zeros
func FormatTokenAmount(amount *uint256.Int) string {
	if amount == nil || amount.IsZero() {
		return "0"
	}

	s := sdkmath.LegacyNewDecFromBigIntWithPrec(amount.ToBig(), TokenDecimals).String()
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ParseBaseUnits parses a decimal integer string of base units
func ParseBaseUnits(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, errors.New("amount is required")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("invalid amount %q: %w", s, ErrNegativeAmount)
	}
	amount, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}
