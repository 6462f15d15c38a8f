// Package threeway reconciles an invoice against its purchase order and
// goods receipt note.
package threeway

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoiceguard/internal/fuzzy"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	"github.com/odyssey-erp/invoiceguard/internal/normalize"
)

const check = "threeway"

// Matcher performs three-way matching. It holds no per-call state.
type Matcher struct {
	cfg Config
}

// NewMatcher builds a matcher; zero fields fall back to DefaultConfig.
func NewMatcher(cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.PONumberPenalty == 0 {
		cfg.PONumberPenalty = def.PONumberPenalty
	}
	if cfg.VendorPenalty == 0 {
		cfg.VendorPenalty = def.VendorPenalty
	}
	if cfg.HeaderWeight == 0 && cfg.LineWeight == 0 {
		cfg.HeaderWeight, cfg.LineWeight = def.HeaderWeight, def.LineWeight
	}
	if cfg.LinePenaltyCap == 0 {
		cfg.LinePenaltyCap = def.LinePenaltyCap
	}
	if cfg.MatchedScore == 0 {
		cfg.MatchedScore = def.MatchedScore
	}
	return &Matcher{cfg: cfg}
}

// Match runs every stage (PO number, vendor, lines, aggregation, decision)
// even when an earlier stage fails, so the discrepancy list is complete.
// A nil grn leaves quantity variances at zero. A negative tolerance selects
// the configured default.
func (m *Matcher) Match(inv invoice.Invoice, po invoice.PurchaseOrder, grn *invoice.GoodsReceiptNote, tolerance float64) Result {
	if tolerance < 0 {
		tolerance = m.cfg.Tolerance
	}
	res := Result{
		Matched:       true,
		Tolerance:     tolerance,
		Discrepancies: []Discrepancy{},
	}
	header := 100.0

	if !poNumbersMatch(inv.PONumber, po.Number) {
		if inv.PONumber == "" || po.Number == "" {
			res.Notes = append(res.Notes, invoice.Notef(check+".po_number", invoice.ErrMissingData, "po number absent"))
		}
		res.Matched = false
		header -= m.cfg.PONumberPenalty
		res.Discrepancies = append(res.Discrepancies, Discrepancy{
			Type:           DiscrepancyPONumber,
			Severity:       SeverityHigh,
			InvoiceValue:   inv.PONumber,
			ReferenceValue: po.Number,
		})
	}

	if ok, _ := fuzzy.Match(inv.VendorName, po.VendorName); !ok {
		if inv.VendorName == "" || po.VendorName == "" {
			res.Notes = append(res.Notes, invoice.Notef(check+".vendor", invoice.ErrMissingData, "vendor name absent"))
		}
		res.Matched = false
		header -= m.cfg.VendorPenalty
		res.Discrepancies = append(res.Discrepancies, Discrepancy{
			Type:           DiscrepancyVendor,
			Severity:       SeverityHigh,
			InvoiceValue:   inv.VendorName,
			ReferenceValue: po.VendorName,
		})
	}

	var grnLines []invoice.LineItem
	if grn == nil {
		res.Notes = append(res.Notes, invoice.Notef(check+".grn", invoice.ErrMissingData, "goods receipt not supplied"))
	} else {
		grnLines = grn.Lines
	}
	res.Lines = m.matchLines(inv.Lines, po.Lines, grnLines)

	lineScore := 0.0
	if len(res.Lines) > 0 {
		var sum float64
		for _, lm := range res.Lines {
			sum += lm.Score
		}
		lineScore = sum / float64(len(res.Lines))
	}
	res.HeaderScore = round2(header)
	res.LineScore = round2(lineScore)
	res.Score = round2(m.cfg.HeaderWeight*header + m.cfg.LineWeight*lineScore)

	for _, lm := range res.Lines {
		if lm.PriceVariance > tolerance {
			res.Discrepancies = append(res.Discrepancies, Discrepancy{
				Type:           DiscrepancyPrice,
				Severity:       SeverityMedium,
				LineItem:       lm.Description,
				InvoiceValue:   formatMoney(lm.InvoicePrice),
				ReferenceValue: formatMoney(lm.POPrice),
				Variance:       lm.PriceVariance,
			})
		}
		if lm.QuantityVariance > tolerance {
			res.Discrepancies = append(res.Discrepancies, Discrepancy{
				Type:           DiscrepancyQuantity,
				Severity:       SeverityMedium,
				LineItem:       lm.Description,
				InvoiceValue:   formatQty(lm.InvoiceQty),
				ReferenceValue: formatQty(lm.GRNQty),
				Variance:       lm.QuantityVariance,
			})
		}
	}

	if res.Score < m.cfg.MatchedScore {
		res.Matched = false
	}
	res.Status = StatusException
	if res.Matched {
		res.Status = StatusMatched
	}
	return res
}

// matchLines aligns each invoice line with the first PO line whose
// description matches and, once a PO line is found, the first matching GRN
// line. Unmatched lines keep
// zero variance and a full score.
func (m *Matcher) matchLines(invLines, poLines, grnLines []invoice.LineItem) []LineMatch {
	poDescs := descriptions(poLines)
	grnDescs := descriptions(grnLines)
	out := make([]LineMatch, 0, len(invLines))
	for _, line := range invLines {
		lm := LineMatch{
			Description:  line.Description,
			InvoiceQty:   line.Quantity,
			InvoicePrice: line.UnitPrice.InexactFloat64(),
			POLine:       -1,
			GRNLine:      -1,
		}
		if idx, _ := fuzzy.First(line.Description, poDescs); idx >= 0 {
			poLine := poLines[idx]
			lm.POLine = idx
			lm.POQty = poLine.Quantity
			lm.POPrice = poLine.UnitPrice.InexactFloat64()
			lm.PriceVariance = variance(line.UnitPrice, poLine.UnitPrice)

			if gidx, _ := fuzzy.First(line.Description, grnDescs); gidx >= 0 {
				grnLine := grnLines[gidx]
				lm.GRNLine = gidx
				lm.GRNQty = grnLine.Quantity
				lm.QuantityVariance = variance(decimal.NewFromInt(int64(line.Quantity)), decimal.NewFromInt(int64(grnLine.Quantity)))
			}
		}
		score := 100.0
		score -= math.Min(lm.PriceVariance*100, m.cfg.LinePenaltyCap)
		score -= math.Min(lm.QuantityVariance*100, m.cfg.LinePenaltyCap)
		lm.Score = round2(math.Max(score, 0))
		out = append(out, lm)
	}
	return out
}

// variance returns |actual-reference|/reference, or zero for a zero
// reference.
func variance(actual, reference decimal.Decimal) float64 {
	if reference.IsZero() {
		return 0
	}
	return actual.Sub(reference).Abs().Div(reference.Abs()).InexactFloat64()
}

func poNumbersMatch(a, b string) bool {
	na, nb := normalize.Text(a), normalize.Text(b)
	return na != "" && na == nb
}

func descriptions(lines []invoice.LineItem) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Description
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func formatQty(v int) string {
	return decimal.NewFromInt(int64(v)).String()
}
