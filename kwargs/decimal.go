package kwargs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var decimalPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// canonicalDecimal validates s as a plain base-10 literal and folds negative
// zero. Exponents, leading zeros, a leading '+' and whitespace are rejected.
func canonicalDecimal(s string) (string, error) {
	if !decimalPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}
	if strings.HasPrefix(s, "-") && strings.Trim(s[1:], "0.") == "" {
		return s[1:], nil
	}
	return s, nil
}

// decimalString renders d exactly at its own scale, keeping trailing
// fractional zeros. It never uses scientific notation.
func decimalString(d decimal.Decimal) string {
	s := d.String()
	if exp := d.Exponent(); exp < 0 {
		s = d.StringFixed(-exp)
	}
	c, err := canonicalDecimal(s)
	if err != nil {
		// StringFixed and String always yield plain literals.
		panic(err)
	}
	return c
}
