package threeway

import "github.com/odyssey-erp/invoiceguard/internal/invoice"

// Status is the overall reconciliation outcome.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusException Status = "exception"
)

// DiscrepancyType enumerates reconciliation discrepancies.
type DiscrepancyType string

const (
	DiscrepancyPONumber DiscrepancyType = "po_number_mismatch"
	DiscrepancyVendor   DiscrepancyType = "vendor_mismatch"
	DiscrepancyPrice    DiscrepancyType = "price_variance"
	DiscrepancyQuantity DiscrepancyType = "quantity_variance"
)

// Severity grades a discrepancy.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Discrepancy records one failed comparison. Several may fire per invoice.
type Discrepancy struct {
	Type           DiscrepancyType `json:"type"`
	Severity       Severity        `json:"severity"`
	LineItem       string          `json:"lineItem,omitempty"`
	InvoiceValue   string          `json:"invoiceValue"`
	ReferenceValue string          `json:"referenceValue"`
	Variance       float64         `json:"variance,omitempty"`
}

// LineMatch is the per invoice line outcome. POLine and GRNLine are indexes
// into the reference documents, -1 when no line matched.
type LineMatch struct {
	Description      string  `json:"description"`
	InvoiceQty       int     `json:"invoiceQty"`
	InvoicePrice     float64 `json:"invoicePrice"`
	POLine           int     `json:"poLine"`
	POQty            int     `json:"poQty"`
	POPrice          float64 `json:"poPrice"`
	GRNLine          int     `json:"grnLine"`
	GRNQty           int     `json:"grnQty"`
	PriceVariance    float64 `json:"priceVariance"`
	QuantityVariance float64 `json:"quantityVariance"`
	Score            float64 `json:"score"`
}

// Result is the three-way match outcome for one invoice.
type Result struct {
	Matched       bool           `json:"matched"`
	Status        Status         `json:"status"`
	Score         float64        `json:"matchScore"`
	HeaderScore   float64        `json:"headerScore"`
	LineScore     float64        `json:"lineScore"`
	Tolerance     float64        `json:"tolerance"`
	Discrepancies []Discrepancy  `json:"discrepancies"`
	Lines         []LineMatch    `json:"lineMatches"`
	Notes         []invoice.Note `json:"notes,omitempty"`
}

// Config holds the matcher's fixed penalties and cut-offs.
type Config struct {
	Tolerance       float64
	PONumberPenalty float64
	VendorPenalty   float64
	HeaderWeight    float64
	LineWeight      float64
	LinePenaltyCap  float64
	MatchedScore    float64
}

// DefaultConfig returns the production penalties.
func DefaultConfig() Config {
	return Config{
		Tolerance:       0.05,
		PONumberPenalty: 20,
		VendorPenalty:   15,
		HeaderWeight:    0.3,
		LineWeight:      0.7,
		LinePenaltyCap:  30,
		MatchedScore:    90,
	}
}
