package shared

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is handled in integer minor units (paise) throughout the
// application. Rupee strings exist only at the form and rendering
// boundaries, so no arithmetic ever touches floating point.

var rupeePrinter = message.NewPrinter(language.English)

// ErrInvalidAmount indicates a malformed or negative money value.
var ErrInvalidAmount = errors.New("invalid amount")

// FormatRupees renders minor units as a grouped decimal string, e.g.
// 1234550 -> "12,345.50".
func FormatRupees(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return rupeePrinter.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseRupees converts a decimal rupee string from a form field into minor
// units. At most two decimal places are accepted; negatives are rejected.
func ParseRupees(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	rupees, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	var paise int64
	switch len(frac) {
	case 0:
	case 1:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
		}
		paise = d * 10
	case 2:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
		}
		paise = d
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	return rupees*100 + paise, nil
}

// PercentOf applies pct to a minor-unit amount with round-half-up at the
// paise boundary.
func PercentOf(minor int64, pct int64) int64 {
	return (minor*pct + 50) / 100
}
