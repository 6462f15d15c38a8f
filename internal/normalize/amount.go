package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

var currencyCodes = []string{"USD", "EUR", "GBP", "CAD", "AUD", "INR"}

// Amount parses a currency formatted amount such as "$1,234.56",
// "1 234.56 EUR" or "(50.00)". A comma after the decimal point is rejected
// rather than read as a thousands separator. Empty input is absent without error; input
// that cannot be parsed is absent and reported as malformed.
func Amount(raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	upper := strings.ToUpper(s)
	for _, code := range currencyCodes {
		upper = strings.ReplaceAll(upper, code, "")
	}
	negative, seenPoint := false, false
	var b strings.Builder
	for _, r := range upper {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			seenPoint = true
			b.WriteRune(r)
		case r == ',' && seenPoint:
			// "1.234,56" uses the comma as decimal point
			return decimal.NullDecimal{}, fmt.Errorf("amount %q: %w", raw, invoice.ErrMalformedInput)
		case r == '-':
			negative = true
		case r == '(' || r == ')':
			negative = true
		case r == ',', r == ' ', r == '\u00a0', r == '\'':
			// thousands separators
		case strings.ContainsRune("$€£¥₹", r):
		default:
			return decimal.NullDecimal{}, fmt.Errorf("amount %q: %w", raw, invoice.ErrMalformedInput)
		}
	}
	cleaned := b.String()
	if cleaned == "" || strings.Count(cleaned, ".") > 1 {
		return decimal.NullDecimal{}, fmt.Errorf("amount %q: %w", raw, invoice.ErrMalformedInput)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("amount %q: %w", raw, invoice.ErrMalformedInput)
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// Quantity parses a positive whole quantity. Fractional, negative or
// unparseable quantities are malformed and reported as zero.
func Quantity(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil || !d.IsInteger() || d.IsNegative() {
		return 0, fmt.Errorf("quantity %q: %w", raw, invoice.ErrMalformedInput)
	}
	return int(d.IntPart()), nil
}
