// Package helpers provides common utility functions used across the codebase.
package helpers

import (
	"fmt"
	"math/big"
	"strings"
)

// DefaultPrecision is the decimal precision of native chain tokens ("1.0000 ENU").
const DefaultPrecision uint8 = 4

// Asset is a fixed-precision token amount paired with its symbol.
// Amount is held in smallest units (10^-Precision of one token).
type Asset struct {
	Amount    uint64
	Precision uint8
	Symbol    string
}

// ParseAsset parses a quantity string like "3.0000 ENU" into an Asset.
// The precision is taken from the number of fractional digits.
func ParseAsset(s string) (Asset, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, " ")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Asset{}, fmt.Errorf("invalid asset string: %q", s)
	}

	quantity, symbol := parts[0], parts[1]

	var precision uint8
	if i := strings.IndexByte(quantity, '.'); i >= 0 {
		frac := quantity[i+1:]
		if len(frac) > 18 {
			return Asset{}, fmt.Errorf("precision too large: %q", s)
		}
		precision = uint8(len(frac))
	}

	amount, err := ParseAmount(quantity, precision)
	if err != nil {
		return Asset{}, err
	}

	return Asset{Amount: amount, Precision: precision, Symbol: symbol}, nil
}

// String formats the asset with its full fixed precision, e.g. "3.0000 ENU".
func (a Asset) String() string {
	return FormatAmount(a.Amount, a.Precision) + " " + a.Symbol
}

// IsZero reports whether the amount equals the zero sentinel for its precision.
func (a Asset) IsZero() bool {
	return a.Amount == 0
}

// Cmp compares two amounts numerically, scaling to a common precision.
// Symbols are not checked. Returns -1, 0 or +1.
func (a Asset) Cmp(b Asset) int {
	x := new(big.Int).SetUint64(a.Amount)
	y := new(big.Int).SetUint64(b.Amount)
	if a.Precision < b.Precision {
		x.Mul(x, pow10(b.Precision-a.Precision))
	} else if b.Precision < a.Precision {
		y.Mul(y, pow10(a.Precision-b.Precision))
	}
	return x.Cmp(y)
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ZeroQuantity returns the zero-amount sentinel string for a precision,
// e.g. "0.0000" for precision 4.
func ZeroQuantity(precision uint8) string {
	return FormatAmount(0, precision)
}

// FormatAmount formats an amount in smallest units as a fixed-precision
// decimal string. FormatAmount(30000, 4) returns "3.0000".
func FormatAmount(amount uint64, precision uint8) string {
	if precision == 0 {
		return fmt.Sprintf("%d", amount)
	}

	amountBig := new(big.Int).SetUint64(amount)
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)

	whole := new(big.Int).Div(amountBig, divisor)
	frac := new(big.Int).Mod(amountBig, divisor)

	return fmt.Sprintf("%s.%0*d", whole.String(), int(precision), frac)
}

// ParseAmount parses a decimal string to smallest units at the given
// precision. ParseAmount("3.0000", 4) returns 30000.
func ParseAmount(s string, precision uint8) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount string")
	}

	var wholeStr, fracStr string
	for i, c := range s {
		if c == '.' {
			wholeStr = s[:i]
			fracStr = s[i+1:]
			break
		}
	}
	if wholeStr == "" && fracStr == "" {
		wholeStr = s
	}

	for _, c := range wholeStr {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid character in amount: %c", c)
		}
	}
	for _, c := range fracStr {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid character in amount: %c", c)
		}
	}

	// Pad or truncate the fractional part to the target precision
	for len(fracStr) < int(precision) {
		fracStr += "0"
	}
	if len(fracStr) > int(precision) {
		fracStr = fracStr[:precision]
	}

	combined := wholeStr + fracStr
	if combined == "" {
		return 0, fmt.Errorf("invalid amount: %s", s)
	}
	amount := new(big.Int)
	_, ok := amount.SetString(combined, 10)
	if !ok {
		return 0, fmt.Errorf("invalid amount: %s", s)
	}

	if !amount.IsUint64() {
		return 0, fmt.Errorf("amount overflow: %s", s)
	}

	return amount.Uint64(), nil
}
