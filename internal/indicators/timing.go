package indicators

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	"github.com/odyssey-erp/invoiceguard/internal/normalize"
)

const (
	afterHoursStart = 22 * 60
	businessStart   = 6 * 60
)

// RushPayment fires when the due date is at most RushPaymentDays calendar
// days from now. Past-due invoices count as rush.
func (e *Evaluator) RushPayment(inv invoice.Invoice, now time.Time) Signal {
	if inv.DueDate == nil {
		return degraded(TypeRushPayment, invoice.Notef("indicators.rush_payment", invoice.ErrMissingData, "due date absent"))
	}
	days := normalize.DaysBetween(now, *inv.DueDate)
	details := map[string]any{"days_until_due": days}
	if days > e.th.RushPaymentDays {
		s := quiet(TypeRushPayment)
		s.Details = details
		return s
	}
	return Signal{
		Type:        TypeRushPayment,
		Fired:       true,
		Confidence:  0.6,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Payment due in %d days", days),
		Details:     details,
	}
}

// NewVendor fires for vendor records younger than NewVendorDays. A profile
// without a creation date is treated as established.
func (e *Evaluator) NewVendor(vendor *invoice.VendorProfile, now time.Time) Signal {
	if vendor == nil {
		return degraded(TypeNewVendor, invoice.Notef("indicators.new_vendor", invoice.ErrMissingData, "vendor profile not available"))
	}
	age := e.th.EstablishedVendorDays
	if vendor.CreatedAt != nil {
		age = normalize.DaysBetween(*vendor.CreatedAt, now)
	}
	details := map[string]any{"vendor_age_days": age}
	if age >= e.th.NewVendorDays {
		s := quiet(TypeNewVendor)
		s.Details = details
		return s
	}
	return Signal{
		Type:        TypeNewVendor,
		Fired:       true,
		Confidence:  0.6,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Vendor account is only %d days old", age),
		Details:     details,
	}
}

// PatternAnomaly counts weekend submission, after-hours submission and
// all-generic line descriptions. It fires when PatternMinCount of them
// co-occur.
func (e *Evaluator) PatternAnomaly(inv invoice.Invoice) Signal {
	var notes []invoice.Note
	weekend, afterHours := false, false
	if inv.SubmittedAt != nil {
		at := inv.SubmittedAt.UTC()
		weekend = at.Weekday() == time.Saturday || at.Weekday() == time.Sunday
		minute := at.Hour()*60 + at.Minute()
		afterHours = minute < businessStart || minute > afterHoursStart
	} else {
		notes = append(notes, invoice.Notef("indicators.pattern", invoice.ErrMissingData, "submission time absent"))
	}
	generic := len(inv.Lines) > 0
	for _, line := range inv.Lines {
		if !e.isGeneric(line.Description) {
			generic = false
			break
		}
	}

	var issues []string
	if weekend {
		issues = append(issues, "weekend submission")
	}
	if afterHours {
		issues = append(issues, "after-hours submission")
	}
	if generic {
		issues = append(issues, "generic line items")
	}
	details := map[string]any{
		"has_weekend_submission":     weekend,
		"has_after_hours_submission": afterHours,
		"unusual_line_items":         generic,
		"anomaly_count":              len(issues),
	}
	if len(issues) < e.th.PatternMinCount {
		s := quiet(TypePatternAnomaly)
		s.Details = details
		s.Notes = notes
		return s
	}
	severity := SeverityMedium
	if len(issues) >= 3 {
		severity = SeverityHigh
	}
	return Signal{
		Type:        TypePatternAnomaly,
		Fired:       true,
		Confidence:  0.5 + float64(len(issues))*0.1,
		Severity:    severity,
		Description: "Unusual patterns: " + strings.Join(issues, ", "),
		Details:     details,
		Notes:       notes,
	}
}

func (e *Evaluator) isGeneric(description string) bool {
	text := normalize.Text(description)
	for _, term := range e.th.GenericTerms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
