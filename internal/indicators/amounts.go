package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
)

// SuspiciousAmount fires when the total equals one of the classic fraud
// amounts. An absent total never matches.
func (e *Evaluator) SuspiciousAmount(inv invoice.Invoice) Signal {
	if !inv.Total.Valid {
		return degraded(TypeSuspiciousAmount, invoice.Notef("indicators.suspicious_amount", invoice.ErrMissingData, "total amount absent"))
	}
	for _, amt := range e.th.SuspiciousAmounts {
		if inv.Total.Decimal.Equal(amt) {
			return Signal{
				Type:        TypeSuspiciousAmount,
				Fired:       true,
				Confidence:  1,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("Amount $%s is a common fraud indicator", inv.Total.Decimal.StringFixed(2)),
				Details:     map[string]any{"amount": inv.Total.Decimal.InexactFloat64()},
			}
		}
	}
	return quiet(TypeSuspiciousAmount)
}

// RoundAmount flags totals above the floor that are multiples of 100. It
// fires only when every line amount is also a multiple of 10.
func (e *Evaluator) RoundAmount(inv invoice.Invoice) Signal {
	if !inv.Total.Valid {
		return degraded(TypeRoundAmount, invoice.Notef("indicators.round_amount", invoice.ErrMissingData, "total amount absent"))
	}
	total := inv.Total.Decimal
	isRound := total.GreaterThan(e.th.RoundAmountFloor) && total.Mod(hundred).IsZero()
	allItemsRound := len(inv.Lines) > 0
	for _, line := range inv.Lines {
		if !line.ExtendedAmount().Mod(ten).IsZero() {
			allItemsRound = false
			break
		}
	}
	details := map[string]any{
		"amount":          total.InexactFloat64(),
		"is_round":        isRound,
		"all_items_round": allItemsRound,
		"is_suspicious":   isRound && allItemsRound,
	}
	if !isRound || !allItemsRound {
		s := quiet(TypeRoundAmount)
		s.Details = details
		return s
	}
	return Signal{
		Type:        TypeRoundAmount,
		Fired:       true,
		Confidence:  0.4,
		Severity:    SeverityLow,
		Description: "Invoice contains only round amounts",
		Details:     details,
	}
}

// ManualEntryAmount is the point-scale round check: any total above the
// manual entry floor divisible by 100.
func (e *Evaluator) ManualEntryAmount(inv invoice.Invoice) Signal {
	if !inv.Total.Valid {
		return quiet(TypeRoundAmount)
	}
	total := inv.Total.Decimal
	if !total.GreaterThan(e.th.ManualEntryFloor) || !total.Mod(hundred).IsZero() {
		return quiet(TypeRoundAmount)
	}
	return Signal{
		Type:        TypeRoundAmount,
		Fired:       true,
		Confidence:  1,
		Severity:    SeverityLow,
		Description: "Round amount may indicate manual entry",
		Details:     map[string]any{"amount": total.InexactFloat64()},
	}
}
