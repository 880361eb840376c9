package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MinorUnitDigits is the number of decimal digits between a major and a minor
// currency unit. All supported currencies use two.
const MinorUnitDigits = 2

type Money struct {
	Currency string
	Amount   int64
}

func (m Money) String() string {
	return FormatMoney(m.Amount, m.Currency)
}

// ParseMoney converts a non-negative decimal string such as "12", "12.5" or
// "12.50" into minor units without going through floating point.
func ParseMoney(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMoney
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || !isDigits(whole) {
		return 0, fmt.Errorf("parse %q: %w", s, ErrInvalidMoney)
	}
	if hasFrac && (frac == "" || len(frac) > MinorUnitDigits || !isDigits(frac)) {
		return 0, fmt.Errorf("parse %q: %w", s, ErrInvalidMoney)
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, ErrInvalidMoney)
	}
	for len(frac) < MinorUnitDigits {
		frac += "0"
	}
	minor, _ := strconv.ParseInt(frac, 10, 64)

	const scale = 100
	if major > (1<<63-1-minor)/scale {
		return 0, fmt.Errorf("parse %q: %w", s, ErrInvalidMoney)
	}
	return major*scale + minor, nil
}

// FormatMoney renders minor units as "12.50 RUB".
func FormatMoney(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	out := fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
	if currency != "" {
		out += " " + strings.ToUpper(currency)
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
