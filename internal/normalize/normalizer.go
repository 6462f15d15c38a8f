package normalize

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

// Field names used for OCR confidence lookups.
const (
	FieldInvoiceNumber = "invoiceNumber"
	FieldVendorName    = "vendorName"
	FieldPONumber      = "poNumber"
	FieldTotalAmount   = "totalAmount"
	FieldSubtotal      = "subtotal"
	FieldTaxAmount     = "taxAmount"
	FieldInvoiceDate   = "invoiceDate"
	FieldDueDate       = "dueDate"
)

// Normalizer converts raw documents into the typed model. Fields whose
// extraction confidence is below MinFieldConfidence are treated as absent.
type Normalizer struct {
	MinFieldConfidence float64
}

// New returns a normalizer with the given extraction confidence floor.
func New(minFieldConfidence float64) Normalizer {
	return Normalizer{MinFieldConfidence: minFieldConfidence}
}

type fieldReader struct {
	check      string
	confidence map[string]float64
	floor      float64
	notes      []invoice.Note
}

func (r *fieldReader) trusted(field string, raw invoice.Text) string {
	if raw == "" {
		return ""
	}
	if c, ok := r.confidence[field]; ok && c < r.floor {
		r.notes = append(r.notes, invoice.Note{
			Check:  r.check,
			Code:   invoice.NoteLowConfidence,
			Detail: fmt.Sprintf("%s extracted with confidence %.2f below %.2f", field, c, r.floor),
		})
		return ""
	}
	return raw.String()
}

func (r *fieldReader) amount(field string, raw invoice.Text) decimal.NullDecimal {
	v, err := Amount(r.trusted(field, raw))
	if err != nil {
		r.notes = append(r.notes, invoice.NewNote(r.check, fmt.Errorf("%s: %w", field, err)))
	}
	return v
}

func (r *fieldReader) date(field string, raw invoice.Text) *time.Time {
	v, err := Date(r.trusted(field, raw))
	if err != nil {
		r.notes = append(r.notes, invoice.NewNote(r.check, fmt.Errorf("%s: %w", field, err)))
	}
	return v
}

func (r *fieldReader) lines(raw []invoice.RawLineItem) []invoice.LineItem {
	if len(raw) == 0 {
		return nil
	}
	out := make([]invoice.LineItem, 0, len(raw))
	for i, item := range raw {
		qty, err := Quantity(item.Quantity.String())
		if err != nil {
			r.notes = append(r.notes, invoice.NewNote(r.check, fmt.Errorf("line %d: %w", i+1, err)))
		}
		price, err := Amount(item.UnitPrice.String())
		if err != nil {
			r.notes = append(r.notes, invoice.NewNote(r.check, fmt.Errorf("line %d unit price: %w", i+1, err)))
		}
		amount, err := Amount(item.Amount.String())
		if err != nil {
			r.notes = append(r.notes, invoice.NewNote(r.check, fmt.Errorf("line %d amount: %w", i+1, err)))
		}
		out = append(out, invoice.LineItem{
			Description: Display(item.Description),
			Quantity:    qty,
			UnitPrice:   price.Decimal,
			Amount:      amount.Decimal,
		})
	}
	return out
}

// Invoice normalizes a raw invoice.
func (n Normalizer) Invoice(raw invoice.RawInvoice) (invoice.Invoice, []invoice.Note) {
	r := &fieldReader{check: "normalize.invoice", confidence: raw.FieldConfidence, floor: n.MinFieldConfidence}
	inv := invoice.Invoice{
		ID:                 raw.ID,
		Number:             Display(r.trusted(FieldInvoiceNumber, raw.InvoiceNumber)),
		VendorID:           raw.VendorID,
		VendorName:         Display(r.trusted(FieldVendorName, raw.VendorName)),
		PONumber:           Display(r.trusted(FieldPONumber, raw.PONumber)),
		Total:              r.amount(FieldTotalAmount, raw.TotalAmount),
		Subtotal:           r.amount(FieldSubtotal, raw.Subtotal),
		TaxAmount:          r.amount(FieldTaxAmount, raw.TaxAmount),
		InvoiceDate:        r.date(FieldInvoiceDate, raw.InvoiceDate),
		DueDate:            r.date(FieldDueDate, raw.DueDate),
		SubmittedAt:        r.date("submittedAt", raw.SubmittedAt),
		Lines:              r.lines(raw.LineItems),
		BankAccount:        Display(raw.BankAccount),
		BankAccountChanged: raw.BankAccountChanged,
		Jurisdiction:       Display(raw.Jurisdiction),
	}
	return inv, r.notes
}

// Invoices normalizes a set of historical invoices, discarding notes.
func (n Normalizer) Invoices(raw []invoice.RawInvoice) []invoice.Invoice {
	if len(raw) == 0 {
		return nil
	}
	out := make([]invoice.Invoice, 0, len(raw))
	for _, item := range raw {
		inv, _ := n.Invoice(item)
		out = append(out, inv)
	}
	return out
}

// PurchaseOrder normalizes a raw PO.
func (n Normalizer) PurchaseOrder(raw invoice.RawPurchaseOrder) (invoice.PurchaseOrder, []invoice.Note) {
	r := &fieldReader{check: "normalize.po"}
	po := invoice.PurchaseOrder{
		Number:     Display(raw.PONumber.String()),
		VendorName: Display(raw.VendorName.String()),
		Lines:      r.lines(raw.LineItems),
	}
	return po, r.notes
}

// GoodsReceipt normalizes a raw GRN.
func (n Normalizer) GoodsReceipt(raw invoice.RawGoodsReceipt) (invoice.GoodsReceiptNote, []invoice.Note) {
	r := &fieldReader{check: "normalize.grn"}
	grn := invoice.GoodsReceiptNote{
		Number:     Display(raw.GRNNumber.String()),
		VendorName: Display(raw.VendorName.String()),
		Lines:      r.lines(raw.LineItems),
	}
	return grn, r.notes
}

// Vendor normalizes a raw vendor profile.
func (n Normalizer) Vendor(raw invoice.RawVendorProfile) (invoice.VendorProfile, []invoice.Note) {
	r := &fieldReader{check: "normalize.vendor"}
	return invoice.VendorProfile{
		ID:          raw.ID,
		Name:        Display(raw.Name),
		CreatedAt:   r.date("createdAt", raw.CreatedAt),
		BankAccount: Display(raw.BankAccount),
	}, r.notes
}
