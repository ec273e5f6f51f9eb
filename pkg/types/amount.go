package types

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/shopspring/decimal"
)

// NativeDecimals is the number of decimal places of the native currency.
const NativeDecimals = 9

// LamportsPerSOL is the number of native units in one display unit.
const LamportsPerSOL = 1_000_000_000

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// LamportsToSOL converts native units to display units.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -NativeDecimals)
}

// FormatNativeAmount renders lamports in display units using tiered
// precision: large magnitudes get fewer decimal places than tiny ones.
func FormatNativeAmount(lamports uint64) string {
	sol := LamportsToSOL(lamports)
	switch {
	case sol.GreaterThanOrEqual(decimal.NewFromInt(100)):
		return sol.StringFixed(2)
	case sol.GreaterThanOrEqual(decimal.New(1, -3)):
		return sol.StringFixed(3)
	case sol.GreaterThanOrEqual(decimal.New(1, -5)):
		return sol.StringFixed(5)
	default:
		return sol.StringFixed(8)
	}
}

// FormatTokenAmount renders a base-unit token amount in human units without
// trailing zeros.
func FormatTokenAmount(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}

// FormatQuote renders a quote-currency value, e.g. "$12.34".
func FormatQuote(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

// FormatWithCommas inserts thousands separators into the integer part of a
// decimal string: "1234.12" becomes "1,234.12".
func FormatWithCommas(s string) string {
	if s == "" {
		return ""
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + frac
}

// ParseAmount converts a human-unit amount string to base units:
// amount * 10^decimals, truncated toward zero.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", walleterr.ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", walleterr.ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %q", walleterr.ErrInvalidAmount, s)
	}
	base := d.Shift(int32(decimals)).Truncate(0)
	if base.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("%w: %q overflows", walleterr.ErrInvalidAmount, s)
	}
	return base.BigInt().Uint64(), nil
}

// ParseNativeAmount converts a display-unit amount to lamports.
func ParseNativeAmount(s string) (uint64, error) {
	return ParseAmount(s, NativeDecimals)
}
