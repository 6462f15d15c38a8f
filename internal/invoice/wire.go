package invoice

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Text is a loosely typed wire value. Extracted and submitted payloads carry
// amounts both as JSON numbers and as currency formatted strings, so the
// value is kept verbatim and parsed by the normalizer.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(strings.TrimSpace(string(data)))
	return nil
}

// String returns the raw value.
func (t Text) String() string {
	return string(t)
}

// RawInvoice is the ingestion shape of an invoice as submitted or extracted.
type RawInvoice struct {
	ID                 string             `json:"id"`
	InvoiceNumber      Text               `json:"invoiceNumber"`
	VendorID           string             `json:"vendorId"`
	VendorName         Text               `json:"vendorName"`
	PONumber           Text               `json:"poNumber"`
	TotalAmount        Text               `json:"totalAmount"`
	Subtotal           Text               `json:"subtotal"`
	TaxAmount          Text               `json:"taxAmount"`
	InvoiceDate        Text               `json:"invoiceDate"`
	DueDate            Text               `json:"dueDate"`
	SubmittedAt        Text               `json:"submittedAt"`
	LineItems          []RawLineItem      `json:"lineItems" validate:"omitempty,dive"`
	BankAccount        string             `json:"bankAccount"`
	BankAccountChanged bool               `json:"bankAccountChanged"`
	Jurisdiction       string             `json:"jurisdiction"`
	FieldConfidence    map[string]float64 `json:"fieldConfidence" validate:"omitempty,dive,gte=0,lte=1"`
}

// RawLineItem is the ingestion shape of a line item.
type RawLineItem struct {
	Description string `json:"description"`
	Quantity    Text   `json:"quantity"`
	UnitPrice   Text   `json:"unitPrice"`
	Amount      Text   `json:"amount"`
}

// RawPurchaseOrder is the ingestion shape of a PO.
type RawPurchaseOrder struct {
	PONumber   Text          `json:"poNumber"`
	VendorName Text          `json:"vendorName"`
	LineItems  []RawLineItem `json:"lineItems" validate:"omitempty,dive"`
}

// RawGoodsReceipt is the ingestion shape of a GRN.
type RawGoodsReceipt struct {
	GRNNumber  Text          `json:"grnNumber"`
	VendorName Text          `json:"vendorName"`
	LineItems  []RawLineItem `json:"lineItems" validate:"omitempty,dive"`
}

// RawVendorProfile is the ingestion shape of vendor master data.
type RawVendorProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedAt   Text   `json:"createdAt"`
	BankAccount string `json:"bankAccount"`
}

// Empty reports whether the payload carries no invoice number, vendor,
// amount or lines, which makes it unusable for analysis. A bare ID does not
// count.
func (r RawInvoice) Empty() bool {
	return r.InvoiceNumber == "" && r.VendorID == "" && r.VendorName == "" &&
		r.TotalAmount == "" && len(r.LineItems) == 0
}
