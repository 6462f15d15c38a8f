package engine

import (
	"time"

	"github.com/odyssey-erp/invoiceguard/internal/catalog"
	"github.com/odyssey-erp/invoiceguard/internal/duplicate"
	"github.com/odyssey-erp/invoiceguard/internal/glcoding"
	"github.com/odyssey-erp/invoiceguard/internal/indicators"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	"github.com/odyssey-erp/invoiceguard/internal/risk"
	"github.com/odyssey-erp/invoiceguard/internal/tax"
	"github.com/odyssey-erp/invoiceguard/internal/threeway"
)

// AnalyzeRequest is the wire shape accepted by Analyze.
type AnalyzeRequest struct {
	Invoice            *invoice.RawInvoice       `json:"invoice" validate:"required"`
	PurchaseOrder      *invoice.RawPurchaseOrder `json:"po,omitempty"`
	GoodsReceipt       *invoice.RawGoodsReceipt  `json:"grn,omitempty"`
	History            []invoice.RawInvoice      `json:"historicalInvoices,omitempty" validate:"omitempty,dive"`
	Vendor             *invoice.RawVendorProfile `json:"vendorProfile,omitempty"`
	Tolerance          *float64                  `json:"tolerance,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinFieldConfidence *float64                  `json:"minFieldConfidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	GLAccounts         []glcoding.Account        `json:"glAccounts,omitempty" validate:"omitempty,dive"`
	TaxRules           *tax.Rules                `json:"taxRules,omitempty"`
}

// BatchRequest analyzes many invoices against one shared history.
type BatchRequest struct {
	Invoices           []invoice.RawInvoice       `json:"invoices" validate:"required,min=1,dive"`
	History            []invoice.RawInvoice       `json:"historicalInvoices,omitempty" validate:"omitempty,dive"`
	Vendors            []invoice.RawVendorProfile `json:"vendorProfiles,omitempty"`
	MinFieldConfidence *float64                   `json:"minFieldConfidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// TaxRequest validates one invoice's tax.
type TaxRequest struct {
	Invoice *invoice.RawInvoice `json:"invoice" validate:"required"`
	Rules   tax.Rules           `json:"rules"`
}

// CatalogRequest asks which catalog item an invoice line refers to.
type CatalogRequest struct {
	Line  catalog.Line   `json:"line"`
	Items []catalog.Item `json:"catalogItems" validate:"required,min=1,dive"`
}

// GLRequest asks for a coding suggestion for one line.
type GLRequest struct {
	Description string             `json:"description" validate:"required"`
	Accounts    []glcoding.Account `json:"accounts" validate:"required,min=1,dive"`
}

// Input is the typed, normalized form of an analysis request. Notes carries
// normalization diagnostics. A zero Now uses the engine clock.
type Input struct {
	Invoice       invoice.Invoice
	PurchaseOrder *invoice.PurchaseOrder
	GoodsReceipt  *invoice.GoodsReceiptNote
	History       []invoice.Invoice
	Vendor        *invoice.VendorProfile
	Tolerance     *float64
	GLAccounts    []glcoding.Account
	TaxRules      *tax.Rules
	Notes         []invoice.Note
	Now           time.Time
}

// LineCoding is the ledger suggestion for one invoice line. Error is set
// when no account could be proposed.
type LineCoding struct {
	Line        int                  `json:"line"`
	Description string               `json:"description"`
	Suggestion  *glcoding.Suggestion `json:"suggestion,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Analysis is the engine's output for one invoice.
type Analysis struct {
	ID            string            `json:"id"`
	InvoiceID     string            `json:"invoiceId,omitempty"`
	InvoiceNumber string            `json:"invoiceNumber,omitempty"`
	AnalyzedAt    time.Time         `json:"analyzedAt"`
	Matching      *threeway.Result  `json:"matching,omitempty"`
	Duplicate     duplicate.Verdict `json:"duplicate"`
	Risk          risk.Verdict      `json:"risk"`
	Fraud         risk.PointVerdict `json:"fraud"`
	GLCoding      []LineCoding      `json:"glCoding,omitempty"`
	Tax           *tax.Result       `json:"taxValidation,omitempty"`
	Notes         []invoice.Note    `json:"notes,omitempty"`
}

// FailedItem records a batch entry that could not be analyzed.
type FailedItem struct {
	Index     int    `json:"index"`
	InvoiceID string `json:"invoiceId,omitempty"`
	Error     string `json:"error"`
}

// BatchResult partitions the analyzed invoices. Results keeps input order.
type BatchResult struct {
	ID        string       `json:"batchId"`
	Total     int          `json:"total"`
	Results   []Analysis   `json:"results"`
	HighRisk  []Analysis   `json:"highRisk"`
	Failed    []FailedItem `json:"failed"`
	Completed time.Time    `json:"completedAt"`
}

// Statistics summarizes the risk distribution of a set of invoices.
// Indicator frequencies count only high and critical invoices.
type Statistics struct {
	Status          string                  `json:"status"`
	Total           int                     `json:"totalAnalyzed"`
	ByTier          map[risk.Tier]int       `json:"byRiskLevel"`
	ByIndicatorType map[indicators.Type]int `json:"byIndicatorType"`
	Flagged         int                     `json:"totalFlagged"`
	AverageScore    float64                 `json:"averageRiskScore"`
	Notes           []invoice.Note          `json:"notes,omitempty"`
}
