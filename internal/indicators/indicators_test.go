package indicators

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoiceguard/internal/duplicate"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

var now = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC) // Wednesday

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func at(t time.Time) *time.Time { return &t }

func line(desc, amt string) invoice.LineItem {
	return invoice.LineItem{Description: desc, Quantity: 1, Amount: decimal.RequireFromString(amt)}
}

func newEvaluator() *Evaluator {
	return NewEvaluator(DefaultThresholds())
}

func TestRoundAmount(t *testing.T) {
	e := newEvaluator()

	inv := invoice.Invoice{Total: amount("5000.00"), Lines: []invoice.LineItem{line("Steel beams", "3000"), line("Bolts", "2000")}}
	sig := e.RoundAmount(inv)
	require.True(t, sig.Fired)
	require.Equal(t, 0.4, sig.Confidence)
	require.Equal(t, SeverityLow, sig.Severity)

	inv.Total = amount("5050")
	require.False(t, e.RoundAmount(inv).Fired)

	inv.Total = amount("5000")
	inv.Lines = []invoice.LineItem{line("Steel beams", "4995"), line("Bolts", "5")}
	require.False(t, e.RoundAmount(inv).Fired)

	require.False(t, e.RoundAmount(invoice.Invoice{Total: amount("5000")}).Fired)
	require.False(t, e.RoundAmount(invoice.Invoice{Total: amount("1000"), Lines: []invoice.LineItem{line("x", "1000")}}).Fired)
}

func TestRoundAmountMissingTotalDegrades(t *testing.T) {
	sig := newEvaluator().RoundAmount(invoice.Invoice{})
	require.False(t, sig.Fired)
	require.Len(t, sig.Notes, 1)
	require.Equal(t, invoice.NoteMissingData, sig.Notes[0].Code)
}

func TestRushPayment(t *testing.T) {
	e := newEvaluator()

	sig := e.RushPayment(invoice.Invoice{DueDate: at(now.AddDate(0, 0, 2))}, now)
	require.True(t, sig.Fired)
	require.Equal(t, 0.6, sig.Confidence)
	require.Equal(t, "Payment due in 2 days", sig.Description)

	require.False(t, e.RushPayment(invoice.Invoice{DueDate: at(now.AddDate(0, 0, 4))}, now).Fired)
	require.True(t, e.RushPayment(invoice.Invoice{DueDate: at(now.AddDate(0, 0, 3))}, now).Fired)
	require.True(t, e.RushPayment(invoice.Invoice{DueDate: at(now.AddDate(0, 0, -5))}, now).Fired)

	missing := e.RushPayment(invoice.Invoice{}, now)
	require.False(t, missing.Fired)
	require.Len(t, missing.Notes, 1)
}

func TestNewVendor(t *testing.T) {
	e := newEvaluator()

	sig := e.NewVendor(&invoice.VendorProfile{CreatedAt: at(now.AddDate(0, 0, -10))}, now)
	require.True(t, sig.Fired)
	require.Equal(t, "Vendor account is only 10 days old", sig.Description)

	require.False(t, e.NewVendor(&invoice.VendorProfile{CreatedAt: at(now.AddDate(0, 0, -400))}, now).Fired)

	established := e.NewVendor(&invoice.VendorProfile{Name: "Acme"}, now)
	require.False(t, established.Fired)
	require.Equal(t, 365, established.Details["vendor_age_days"])

	absent := e.NewVendor(nil, now)
	require.False(t, absent.Fired)
	require.Len(t, absent.Notes, 1)
}

func TestPatternAnomaly(t *testing.T) {
	e := newEvaluator()
	saturdayNight := time.Date(2024, 3, 16, 23, 30, 0, 0, time.UTC)

	sig := e.PatternAnomaly(invoice.Invoice{SubmittedAt: &saturdayNight})
	require.True(t, sig.Fired)
	require.InDelta(t, 0.7, sig.Confidence, 1e-9)
	require.Equal(t, SeverityMedium, sig.Severity)
	require.Equal(t, "Unusual patterns: weekend submission, after-hours submission", sig.Description)

	all := e.PatternAnomaly(invoice.Invoice{
		SubmittedAt: &saturdayNight,
		Lines:       []invoice.LineItem{line("Consulting services", "100"), line("Misc", "50")},
	})
	require.True(t, all.Fired)
	require.InDelta(t, 0.8, all.Confidence, 1e-9)
	require.Equal(t, SeverityHigh, all.Severity)

	saturdayNoon := time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC)
	require.False(t, e.PatternAnomaly(invoice.Invoice{SubmittedAt: &saturdayNoon}).Fired)

	tenPM := time.Date(2024, 3, 13, 22, 0, 0, 0, time.UTC)
	single := e.PatternAnomaly(invoice.Invoice{SubmittedAt: &tenPM})
	require.False(t, single.Details["has_after_hours_submission"].(bool))
}

func TestPriceAnomaly(t *testing.T) {
	e := newEvaluator()
	history := []invoice.Invoice{
		{ID: "h1", VendorID: "v1", Total: amount("1000")},
		{ID: "h2", VendorID: "v1", Total: amount("1100")},
		{ID: "h3", VendorID: "v1", Total: amount("900")},
		{ID: "h4", VendorID: "v2", Total: amount("99999")},
	}

	sig := e.PriceAnomaly(invoice.Invoice{ID: "new", VendorID: "v1", Total: amount("1342")}, history)
	require.True(t, sig.Fired)
	require.Equal(t, "Invoice amount 34.2% above average", sig.Description)
	require.Equal(t, SeverityHigh, sig.Severity)
	require.InDelta(t, 0.9, sig.Confidence, 1e-9)

	calm := e.PriceAnomaly(invoice.Invoice{ID: "new", VendorID: "v1", Total: amount("1050")}, history)
	require.False(t, calm.Fired)
	require.Zero(t, calm.Confidence)

	short := e.PriceAnomaly(invoice.Invoice{ID: "new", VendorID: "v1", Total: amount("1050")}, history[:2])
	require.False(t, short.Fired)
	require.Equal(t, invoice.NoteInsufficientHistory, short.Notes[0].Code)
}

func TestPriceAnomalyFlatHistory(t *testing.T) {
	e := newEvaluator()
	history := []invoice.Invoice{
		{VendorName: "Acme", Total: amount("500")},
		{VendorName: "ACME", Total: amount("500")},
		{VendorName: "acme", Total: amount("500")},
	}
	sig := e.PriceAnomaly(invoice.Invoice{VendorName: "Acme", Total: amount("700")}, history)
	require.True(t, sig.Fired)
	require.Zero(t, sig.Confidence)
	require.Equal(t, SeverityMedium, sig.Severity)
	require.Equal(t, "Invoice amount 40.0% above average", sig.Description)
}

func TestPotentialDuplicate(t *testing.T) {
	e := newEvaluator()
	history := []invoice.Invoice{
		{ID: "h1", Number: "INV-1", VendorID: "v1", Total: amount("100")},
		{ID: "h2", Number: "INV-9", VendorID: "v1", Total: amount("2500.00")},
	}

	sig := e.PotentialDuplicate(invoice.Invoice{ID: "n", Number: "INV-2", VendorID: "v1", Total: amount("2505")}, history, nil)
	require.True(t, sig.Fired)
	require.Equal(t, 0.85, sig.Confidence)
	require.Equal(t, 1, sig.Details["duplicate_count"])

	require.False(t, e.PotentialDuplicate(invoice.Invoice{ID: "n", Number: "INV-3", VendorID: "v1", Total: amount("3000")}, history, nil).Fired)

	confirmed := &duplicate.Verdict{IsDuplicate: true, DuplicateCount: 1, Matches: []duplicate.Candidate{{InvoiceID: "h1", Confidence: 1}}}
	boosted := e.PotentialDuplicate(invoice.Invoice{ID: "n", Number: "INV-1", VendorID: "v1", Total: amount("100")}, history, confirmed)
	require.True(t, boosted.Fired)
	require.Equal(t, 1.0, boosted.Confidence)

	empty := e.PotentialDuplicate(invoice.Invoice{Number: "INV-1"}, nil, nil)
	require.False(t, empty.Fired)
	require.Equal(t, invoice.NoteInsufficientHistory, empty.Notes[0].Code)
}

func TestPointIndicators(t *testing.T) {
	e := newEvaluator()
	inv := invoice.Invoice{
		Number:             "12",
		VendorName:         "Temp Test Supplies",
		Total:              amount("10000.00"),
		BankAccountChanged: true,
	}
	signals := e.Points(inv, Context{Now: now})
	require.Len(t, signals, 6)

	byType := map[Type]Signal{}
	for _, s := range signals {
		byType[s.Type] = s
	}
	require.True(t, byType[TypeSuspiciousAmount].Fired)
	require.True(t, byType[TypeRoundAmount].Fired)
	require.Equal(t, 2, byType[TypeSuspiciousVendor].Details["count"])
	require.Equal(t, []string{"invoiceDate"}, byType[TypeMissingFields].Details["fields"])
	require.True(t, byType[TypeBankAccountChange].Fired)
	require.True(t, byType[TypeUnusualFormat].Fired)
}

func TestSuspiciousVendorMatchesWholeWords(t *testing.T) {
	require.False(t, newEvaluator().SuspiciousVendor(invoice.Invoice{VendorName: "Contemporary Testing Labs"}).Fired)
}

func TestBankAccountDiffersFromMaster(t *testing.T) {
	e := newEvaluator()
	vendor := &invoice.VendorProfile{BankAccount: "GB29 NWBK 6016 1331 9268 19"}
	require.False(t, e.BankAccountChange(invoice.Invoice{BankAccount: "gb29-nwbk-6016-1331-9268-19"}, vendor).Fired)
	require.True(t, e.BankAccountChange(invoice.Invoice{BankAccount: "DE89370400440532013000"}, vendor).Fired)
}

func TestWeightedOrder(t *testing.T) {
	signals := newEvaluator().Weighted(invoice.Invoice{}, Context{Now: now})
	var types []Type
	for _, s := range signals {
		types = append(types, s.Type)
		require.False(t, s.Fired)
	}
	require.Equal(t, []Type{TypeDuplicate, TypePriceAnomaly, TypeRushPayment, TypeRoundAmount, TypeNewVendor, TypePatternAnomaly}, types)
}
