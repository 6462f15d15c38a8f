package indicators

import (
	"slices"
	"strings"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	"github.com/odyssey-erp/invoiceguard/internal/normalize"
)

// SuspiciousVendor fires once per suspicious keyword found as a whole word in
// the vendor name. Details["count"] carries the number of keywords hit.
func (e *Evaluator) SuspiciousVendor(inv invoice.Invoice) Signal {
	tokens := normalize.Tokens(inv.VendorName)
	var hits []string
	for _, term := range e.th.SuspiciousVendorTerms {
		if slices.Contains(tokens, term) {
			hits = append(hits, term)
		}
	}
	if len(hits) == 0 {
		return quiet(TypeSuspiciousVendor)
	}
	return Signal{
		Type:        TypeSuspiciousVendor,
		Fired:       true,
		Confidence:  1,
		Severity:    SeverityHigh,
		Description: "Vendor name contains suspicious keyword: " + strings.Join(hits, ", "),
		Details:     map[string]any{"keywords": hits, "count": len(hits)},
	}
}

// MissingFields lists which of the critical fields are absent.
// Details["count"] carries the number missing.
func (e *Evaluator) MissingFields(inv invoice.Invoice) Signal {
	var missing []string
	if strings.TrimSpace(inv.Number) == "" {
		missing = append(missing, normalize.FieldInvoiceNumber)
	}
	if strings.TrimSpace(inv.VendorName) == "" {
		missing = append(missing, normalize.FieldVendorName)
	}
	if !inv.Total.Valid {
		missing = append(missing, normalize.FieldTotalAmount)
	}
	if inv.InvoiceDate == nil {
		missing = append(missing, normalize.FieldInvoiceDate)
	}
	if len(missing) == 0 {
		return quiet(TypeMissingFields)
	}
	return Signal{
		Type:        TypeMissingFields,
		Fired:       true,
		Confidence:  1,
		Severity:    SeverityMedium,
		Description: "Missing critical fields: " + strings.Join(missing, ", "),
		Details:     map[string]any{"fields": missing, "count": len(missing)},
	}
}

// BankAccountChange fires when the invoice is flagged as carrying changed
// bank details or its account differs from the vendor master.
func (e *Evaluator) BankAccountChange(inv invoice.Invoice, vendor *invoice.VendorProfile) Signal {
	differs := false
	if vendor != nil && vendor.BankAccount != "" && inv.BankAccount != "" {
		differs = normalizeAccount(vendor.BankAccount) != normalizeAccount(inv.BankAccount)
	}
	if !inv.BankAccountChanged && !differs {
		return quiet(TypeBankAccountChange)
	}
	return Signal{
		Type:        TypeBankAccountChange,
		Fired:       true,
		Confidence:  1,
		Severity:    SeverityHigh,
		Description: "Bank account differs from vendor master",
		Details:     map[string]any{"flagged": inv.BankAccountChanged, "differs_from_master": differs},
	}
}

// UnusualFormat fires for invoice numbers shorter than
// MinInvoiceNumberLength. Absent numbers are left to MissingFields.
func (e *Evaluator) UnusualFormat(inv invoice.Invoice) Signal {
	number := strings.TrimSpace(inv.Number)
	if number == "" || len([]rune(number)) >= e.th.MinInvoiceNumberLength {
		return quiet(TypeUnusualFormat)
	}
	return Signal{
		Type:        TypeUnusualFormat,
		Fired:       true,
		Confidence:  1,
		Severity:    SeverityLow,
		Description: "Invoice number format is unusual",
		Details:     map[string]any{"invoice_number": number, "length": len([]rune(number))},
	}
}

func normalizeAccount(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.ToUpper(s))
}
