package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the normalized vendor invoice. Amounts and dates that were not
// supplied or failed to parse are left invalid/nil rather than zeroed.
type Invoice struct {
	ID                 string
	Number             string
	VendorID           string
	VendorName         string
	PONumber           string
	Total              decimal.NullDecimal
	Subtotal           decimal.NullDecimal
	TaxAmount          decimal.NullDecimal
	InvoiceDate        *time.Time
	DueDate            *time.Time
	SubmittedAt        *time.Time
	Lines              []LineItem
	BankAccount        string
	BankAccountChanged bool
	Jurisdiction       string
}

// LineItem represents a single billed, ordered or received line.
type LineItem struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// ExtendedAmount returns the line amount, deriving quantity × unit price when
// no explicit amount was supplied.
func (l LineItem) ExtendedAmount() decimal.Decimal {
	if !l.Amount.IsZero() {
		return l.Amount
	}
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PurchaseOrder is the caller supplied PO used for three-way matching.
type PurchaseOrder struct {
	Number     string
	VendorName string
	Lines      []LineItem
}

// GoodsReceiptNote confirms the quantities physically received.
type GoodsReceiptNote struct {
	Number     string
	VendorName string
	Lines      []LineItem
}

// VendorProfile carries vendor master data supplied by the history store.
type VendorProfile struct {
	ID          string
	Name        string
	CreatedAt   *time.Time
	BankAccount string
}

// HasTotal reports whether the invoice total is known.
func (inv Invoice) HasTotal() bool {
	return inv.Total.Valid
}

// TotalFloat returns the total as float64 and whether it is known.
func (inv Invoice) TotalFloat() (float64, bool) {
	if !inv.Total.Valid {
		return 0, false
	}
	return inv.Total.Decimal.InexactFloat64(), true
}

// VendorKey identifies the vendor for history grouping. Vendor IDs win over
// names because names drift between submissions.
func (inv Invoice) VendorKey() string {
	if inv.VendorID != "" {
		return "id:" + inv.VendorID
	}
	if inv.VendorName != "" {
		return "name:" + inv.VendorName
	}
	return ""
}
