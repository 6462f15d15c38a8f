package indicators

import (
	"fmt"
	"math"

	"github.com/odyssey-erp/invoiceguard/internal/duplicate"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	"github.com/odyssey-erp/invoiceguard/internal/normalize"
)

// PriceAnomaly compares the total with the same vendor's historical totals.
// It needs PriceMinHistory records and fires on a z-score above PriceZScore
// or a variance above PriceVariancePct.
func (e *Evaluator) PriceAnomaly(inv invoice.Invoice, history []invoice.Invoice) Signal {
	const check = "indicators.price_anomaly"
	current, ok := inv.TotalFloat()
	if !ok {
		return degraded(TypePriceAnomaly, invoice.Notef(check, invoice.ErrMissingData, "total amount absent"))
	}
	key := inv.VendorKey()
	if key == "" {
		return degraded(TypePriceAnomaly, invoice.Notef(check, invoice.ErrMissingData, "vendor absent"))
	}
	amounts := make([]float64, 0, len(history))
	for _, h := range history {
		if inv.ID != "" && h.ID == inv.ID {
			continue
		}
		if !sameVendor(inv, h) {
			continue
		}
		if v, ok := h.TotalFloat(); ok && v != 0 {
			amounts = append(amounts, v)
		}
	}
	if len(amounts) < e.th.PriceMinHistory {
		return degraded(TypePriceAnomaly, invoice.Notef(check, invoice.ErrInsufficientHistory,
			"%d vendor invoices with amounts, need %d", len(amounts), e.th.PriceMinHistory))
	}

	avg := mean(amounts)
	sd := populationStd(amounts, avg)
	z := 0.0
	if sd > 0 {
		z = math.Abs(current-avg) / sd
	}
	variancePct := 0.0
	if avg > 0 {
		variancePct = (current - avg) / avg * 100
	}
	direction := "below"
	if variancePct > 0 {
		direction = "above"
	}
	details := map[string]any{
		"current_amount":     current,
		"average_amount":     round(avg, 2),
		"standard_deviation": round(sd, 2),
		"z_score":            round(z, 2),
		"variance_percent":   round(variancePct, 1),
		"direction":          direction,
		"history_count":      len(amounts),
	}
	if z <= e.th.PriceZScore && math.Abs(variancePct) <= e.th.PriceVariancePct {
		s := quiet(TypePriceAnomaly)
		s.Details = details
		return s
	}
	// flat history has no z-score, so a variance-only anomaly carries no weight
	confidence := math.Min(0.9, z*0.3)
	severity := SeverityMedium
	if z > 3 {
		severity = SeverityHigh
	}
	return Signal{
		Type:        TypePriceAnomaly,
		Fired:       true,
		Confidence:  confidence,
		Severity:    severity,
		Description: fmt.Sprintf("Invoice amount %.1f%% %s average", math.Abs(variancePct), direction),
		Details:     details,
	}
}

// PotentialDuplicate screens history for resubmissions: the same invoice
// number, or the same vendor billing an amount within
// DuplicateAmountTolerance. A verdict from the duplicate detector raises the
// confidence to the detector's when it confirmed a duplicate.
func (e *Evaluator) PotentialDuplicate(inv invoice.Invoice, history []invoice.Invoice, verdict *duplicate.Verdict) Signal {
	const check = "indicators.duplicate"
	if len(history) == 0 && (verdict == nil || !verdict.IsDuplicate) {
		return degraded(TypeDuplicate, invoice.Notef(check, invoice.ErrInsufficientHistory, "no historical invoices supplied"))
	}
	number := normalize.Text(inv.Number)
	current, hasTotal := inv.TotalFloat()
	type candidate struct {
		InvoiceID    string   `json:"invoice_id"`
		MatchReasons []string `json:"match_reasons"`
	}
	var candidates []candidate
	for _, h := range history {
		if inv.ID != "" && h.ID == inv.ID {
			continue
		}
		var reasons []string
		if number != "" && normalize.Text(h.Number) == number {
			reasons = append(reasons, "same_invoice_number")
		}
		if hasTotal && sameVendor(inv, h) {
			if other, ok := h.TotalFloat(); ok && other != 0 {
				if math.Abs(other-current)/math.Max(other, 1) < e.th.DuplicateAmountTolerance {
					reasons = append(reasons, "same_amount", "same_vendor")
				}
			}
		}
		if len(reasons) > 0 {
			candidates = append(candidates, candidate{InvoiceID: h.ID, MatchReasons: reasons})
		}
	}

	confirmed := verdict != nil && verdict.IsDuplicate
	if len(candidates) == 0 && !confirmed {
		return quiet(TypeDuplicate)
	}
	count := len(candidates)
	confidence := 0.85
	if confirmed {
		confidence = math.Max(confidence, verdict.TopConfidence())
		if verdict.DuplicateCount > count {
			count = verdict.DuplicateCount
		}
	}
	if len(candidates) > 5 {
		candidates = candidates[:5]
	}
	return Signal{
		Type:        TypeDuplicate,
		Fired:       true,
		Confidence:  confidence,
		Severity:    SeverityHigh,
		Description: fmt.Sprintf("Potential duplicate invoice detected (%d matches)", count),
		Details: map[string]any{
			"duplicate_count":      count,
			"confirmed":            confirmed,
			"potential_duplicates": candidates,
		},
	}
}

func sameVendor(a, b invoice.Invoice) bool {
	if a.VendorID != "" && b.VendorID != "" {
		return a.VendorID == b.VendorID
	}
	na := normalize.Text(a.VendorName)
	return na != "" && na == normalize.Text(b.VendorName)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStd(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var variance float64
	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
