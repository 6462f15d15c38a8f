package indicators

import "github.com/odyssey-erp/invoiceguard/internal/invoice"

// Evaluator runs indicator checks with a fixed set of thresholds.
type Evaluator struct {
	th Thresholds
}

// NewEvaluator builds an evaluator.
func NewEvaluator(th Thresholds) *Evaluator {
	return &Evaluator{th: th}
}

// Thresholds returns the evaluator's tunables.
func (e *Evaluator) Thresholds() Thresholds {
	return e.th
}

// Weighted runs the checks that feed the weighted composite score, in a
// fixed order.
func (e *Evaluator) Weighted(inv invoice.Invoice, ctx Context) []Signal {
	return []Signal{
		e.PotentialDuplicate(inv, ctx.History, ctx.Duplicate),
		e.PriceAnomaly(inv, ctx.History),
		e.RushPayment(inv, ctx.Now),
		e.RoundAmount(inv),
		e.NewVendor(ctx.Vendor, ctx.Now),
		e.PatternAnomaly(inv),
	}
}

// Points runs the checks that feed the additive point score, in a fixed
// order.
func (e *Evaluator) Points(inv invoice.Invoice, ctx Context) []Signal {
	return []Signal{
		e.SuspiciousAmount(inv),
		e.ManualEntryAmount(inv),
		e.SuspiciousVendor(inv),
		e.MissingFields(inv),
		e.BankAccountChange(inv, ctx.Vendor),
		e.UnusualFormat(inv),
	}
}
