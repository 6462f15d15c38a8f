package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

func TestAmount(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		valid bool
		err   bool
	}{
		{in: "$1,234.56", want: "1234.56", valid: true},
		{in: "1 234.50 EUR", want: "1234.5", valid: true},
		{in: "(50.00)", want: "-50", valid: true},
		{in: "5000", want: "5000", valid: true},
		{in: "", valid: false},
		{in: "twelve", valid: false, err: true},
		{in: "1.2.3", valid: false, err: true},
		{in: "1.234,56", valid: false, err: true},
		{in: "EUR 1,234,567.89", want: "1234567.89", valid: true},
	}
	for _, tc := range cases {
		got, err := Amount(tc.in)
		if tc.err {
			require.ErrorIs(t, err, invoice.ErrMalformedInput, tc.in)
		} else {
			require.NoError(t, err, tc.in)
		}
		require.Equal(t, tc.valid, got.Valid, tc.in)
		if tc.valid {
			require.True(t, got.Decimal.Equal(decimal.RequireFromString(tc.want)), "%s -> %s", tc.in, got.Decimal)
		}
	}
}

func TestDateFormats(t *testing.T) {
	want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-07", "03/07/2024", "3/7/2024", "March 7, 2024"} {
		got, err := Date(in)
		require.NoError(t, err, in)
		require.NotNil(t, got, in)
		require.True(t, want.Equal(*got), in)
	}

	got, err := Date("07.03.2024 noon")
	require.ErrorIs(t, err, invoice.ErrMalformedInput)
	require.Nil(t, got)

	got, err = Date("  ")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTextFoldsCaseAndWhitespace(t *testing.T) {
	require.Equal(t, "acme supplies inc.", Text("  ACME   Supplies\tInc. "))
	require.Equal(t, "ＡＢＣ", Display("ＡＢＣ"))
	require.Equal(t, "abc", Text("ＡＢＣ"))
	require.True(t, Equal("PO-100", " po-100"))
}

func TestQuantity(t *testing.T) {
	q, err := Quantity("12")
	require.NoError(t, err)
	require.Equal(t, 12, q)

	q, err = Quantity("2.5")
	require.ErrorIs(t, err, invoice.ErrMalformedInput)
	require.Zero(t, q)
}

func TestNormalizerInvoiceTreatsFailuresAsAbsent(t *testing.T) {
	raw := invoice.RawInvoice{
		ID:            "inv-1",
		InvoiceNumber: " INV-001 ",
		VendorName:    "Acme  Corp",
		TotalAmount:   "$1,2x3",
		InvoiceDate:   "2024-01-15",
		DueDate:       "not a date",
		LineItems: []invoice.RawLineItem{
			{Description: "Widget", Quantity: "10", UnitPrice: "$5.00"},
		},
	}
	inv, notes := New(0).Invoice(raw)

	require.Equal(t, "INV-001", inv.Number)
	require.Equal(t, "Acme Corp", inv.VendorName)
	require.False(t, inv.Total.Valid)
	require.NotNil(t, inv.InvoiceDate)
	require.Nil(t, inv.DueDate)
	require.Len(t, inv.Lines, 1)
	require.True(t, inv.Lines[0].ExtendedAmount().Equal(decimal.NewFromInt(50)))
	require.Len(t, notes, 2)
	for _, n := range notes {
		require.Equal(t, invoice.NoteMalformedInput, n.Code)
	}
}

func TestNormalizerDropsLowConfidenceFields(t *testing.T) {
	raw := invoice.RawInvoice{
		InvoiceNumber:   "INV-9",
		TotalAmount:     "100.00",
		FieldConfidence: map[string]float64{FieldTotalAmount: 0.4, FieldInvoiceNumber: 0.95},
	}
	inv, notes := New(0.7).Invoice(raw)

	require.Equal(t, "INV-9", inv.Number)
	require.False(t, inv.Total.Valid)
	require.Len(t, notes, 1)
	require.Equal(t, invoice.NoteLowConfidence, notes[0].Code)
}
