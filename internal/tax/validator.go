// Package tax checks the reported tax and total of an invoice against the
// jurisdiction's rate.
package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

// IssueType classifies a tax finding.
type IssueType string

const (
	IssueTaxCalculation IssueType = "tax_calculation_error"
	IssueTotalMismatch  IssueType = "total_mismatch"
)

var (
	defaultTolerance = decimal.RequireFromString("0.05")
	highDiscrepancy  = decimal.NewFromInt(1)
)

// Rules holds the rate table for a tenant.
type Rules struct {
	Rates               map[string]decimal.Decimal `json:"rates"`
	DefaultJurisdiction string                     `json:"defaultJurisdiction"`
	Tolerance           decimal.NullDecimal        `json:"tolerance"`
}

// Issue is a single tax finding.
type Issue struct {
	Type     IssueType `json:"type"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

// Result summarizes the validation.
type Result struct {
	Valid            bool            `json:"isValid"`
	Jurisdiction     string          `json:"jurisdiction"`
	Rate             decimal.Decimal `json:"taxRate"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ReportedTax      decimal.Decimal `json:"reportedTax"`
	CalculatedTax    decimal.Decimal `json:"calculatedTax"`
	Discrepancy      decimal.Decimal `json:"discrepancy"`
	TotalDiscrepancy decimal.Decimal `json:"totalDiscrepancy"`
	Issues           []Issue         `json:"issues,omitempty"`
	Notes            []invoice.Note  `json:"notes,omitempty"`
	ValidatedAt      time.Time       `json:"validatedAt"`
}

// Validate recomputes tax as round2(subtotal × rate) and compares it and the
// resulting total with the reported figures. Absent amounts are treated as
// zero and reported as notes.
func Validate(inv invoice.Invoice, rules Rules, now time.Time) Result {
	const check = "tax.validate"
	var notes []invoice.Note
	amount := func(v decimal.NullDecimal, field string) decimal.Decimal {
		if !v.Valid {
			notes = append(notes, invoice.Notef(check, invoice.ErrMissingData, "%s absent", field))
			return decimal.Zero
		}
		return v.Decimal
	}
	subtotal := amount(inv.Subtotal, "subtotal")
	reported := amount(inv.TaxAmount, "tax amount")
	total := amount(inv.Total, "total amount")

	jurisdiction := inv.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = rules.DefaultJurisdiction
	}
	rate, ok := rules.Rates[jurisdiction]
	if !ok {
		notes = append(notes, invoice.Notef(check, invoice.ErrMissingData, "no rate for jurisdiction %q", jurisdiction))
	}
	tolerance := defaultTolerance
	if rules.Tolerance.Valid {
		tolerance = rules.Tolerance.Decimal
	}

	calculated := subtotal.Mul(rate).Round(2)
	discrepancy := calculated.Sub(reported).Abs()
	totalDiscrepancy := subtotal.Add(calculated).Sub(total).Abs()

	res := Result{
		Jurisdiction:     jurisdiction,
		Rate:             rate,
		Subtotal:         subtotal,
		ReportedTax:      reported,
		CalculatedTax:    calculated,
		Discrepancy:      discrepancy,
		TotalDiscrepancy: totalDiscrepancy,
		Notes:            notes,
		ValidatedAt:      now.UTC(),
	}
	taxOK := discrepancy.LessThanOrEqual(tolerance)
	totalOK := totalDiscrepancy.LessThanOrEqual(tolerance)
	if !taxOK {
		severity := "medium"
		if discrepancy.GreaterThan(highDiscrepancy) {
			severity = "high"
		}
		res.Issues = append(res.Issues, Issue{
			Type:     IssueTaxCalculation,
			Severity: severity,
			Message:  fmt.Sprintf("Tax discrepancy of $%s exceeds tolerance", discrepancy.StringFixed(2)),
		})
	}
	if !totalOK {
		res.Issues = append(res.Issues, Issue{
			Type:     IssueTotalMismatch,
			Severity: "medium",
			Message:  fmt.Sprintf("Total differs from subtotal plus tax by $%s", totalDiscrepancy.StringFixed(2)),
		})
	}
	res.Valid = taxOK && totalOK
	return res
}
