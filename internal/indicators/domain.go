// Package indicators holds the independent fraud and anomaly checks. Every
// evaluator is pure: it reads the normalized invoice and optional context and
// returns a Signal without touching shared state.
package indicators

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoiceguard/internal/duplicate"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

// Type enumerates indicator kinds.
type Type string

const (
	TypeDuplicate         Type = "DUPLICATE_INVOICE"
	TypePriceAnomaly      Type = "PRICE_ANOMALY"
	TypeRushPayment       Type = "RUSH_PAYMENT"
	TypeRoundAmount       Type = "ROUND_AMOUNT"
	TypeNewVendor         Type = "NEW_VENDOR"
	TypePatternAnomaly    Type = "PATTERN_ANOMALY"
	TypeSuspiciousAmount  Type = "SUSPICIOUS_AMOUNT"
	TypeMissingFields     Type = "MISSING_FIELDS"
	TypeBankAccountChange Type = "BANK_ACCOUNT_CHANGE"
	TypeSuspiciousVendor  Type = "SUSPICIOUS_VENDOR"
	TypeUnusualFormat     Type = "UNUSUAL_INVOICE_FORMAT"
)

// Severity grades an individual signal.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities for sorting.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Signal is the output of one evaluator. A signal that did not fire carries
// zero confidence; Notes explain checks that degraded for lack of data.
type Signal struct {
	Type        Type           `json:"type"`
	Fired       bool           `json:"fired"`
	Confidence  float64        `json:"confidence"`
	Severity    Severity       `json:"severity"`
	Description string         `json:"description,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Notes       []invoice.Note `json:"notes,omitempty"`
}

func quiet(t Type) Signal {
	return Signal{Type: t, Severity: SeverityNone}
}

func degraded(t Type, note invoice.Note) Signal {
	s := quiet(t)
	s.Notes = []invoice.Note{note}
	return s
}

// Context is the optional data evaluators may consult.
type Context struct {
	Now       time.Time
	History   []invoice.Invoice
	Vendor    *invoice.VendorProfile
	Duplicate *duplicate.Verdict
}

// Thresholds collects every tunable used by the evaluators.
type Thresholds struct {
	PriceVariancePct         float64
	PriceZScore              float64
	PriceMinHistory          int
	RushPaymentDays          int
	RoundAmountFloor         decimal.Decimal
	ManualEntryFloor         decimal.Decimal
	NewVendorDays            int
	EstablishedVendorDays    int
	PatternMinCount          int
	DuplicateAmountTolerance float64
	MinInvoiceNumberLength   int
	SuspiciousAmounts        []decimal.Decimal
	GenericTerms             []string
	SuspiciousVendorTerms    []string
}

// DefaultThresholds returns the production tunables.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PriceVariancePct:         20,
		PriceZScore:              2,
		PriceMinHistory:          3,
		RushPaymentDays:          3,
		RoundAmountFloor:         decimal.NewFromInt(1000),
		ManualEntryFloor:         decimal.NewFromInt(100),
		NewVendorDays:            30,
		EstablishedVendorDays:    365,
		PatternMinCount:          2,
		DuplicateAmountTolerance: 0.01,
		MinInvoiceNumberLength:   3,
		SuspiciousAmounts: []decimal.Decimal{
			decimal.RequireFromString("9999.99"),
			decimal.RequireFromString("10000.00"),
			decimal.RequireFromString("5000.00"),
		},
		GenericTerms:          []string{"services", "consulting", "misc", "other", "various"},
		SuspiciousVendorTerms: []string{"test", "dummy", "fake", "temp"},
	}
}
