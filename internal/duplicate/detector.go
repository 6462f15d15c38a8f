// Package duplicate detects resubmitted invoices by canonical hash and by
// gated field overlap against historical records.
package duplicate

import (
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	"github.com/odyssey-erp/invoiceguard/internal/normalize"
)

// MatchType distinguishes how a candidate was found.
type MatchType string

const (
	MatchExactHash  MatchType = "exact_hash"
	MatchFieldBased MatchType = "field_based"
)

const check = "duplicate"

// Candidate is one historical invoice suspected to be the same submission.
type Candidate struct {
	InvoiceID     string    `json:"invoiceId"`
	InvoiceNumber string    `json:"invoiceNumber"`
	MatchType     MatchType `json:"matchType"`
	Confidence    float64   `json:"confidence"`
	MatchedFields []string  `json:"matchedFields"`
}

// Verdict is the duplicate detection outcome.
type Verdict struct {
	IsDuplicate    bool           `json:"isDuplicate"`
	DuplicateCount int            `json:"duplicateCount"`
	Matches        []Candidate    `json:"matches"`
	Notes          []invoice.Note `json:"notes,omitempty"`
}

// TopConfidence returns the highest candidate confidence, zero when none.
func (v Verdict) TopConfidence() float64 {
	if len(v.Matches) == 0 {
		return 0
	}
	return v.Matches[0].Confidence
}

// Config tunes the detector.
type Config struct {
	// Threshold is the fraction of the 100 point field score required.
	Threshold float64
	// DateWindow bounds how far apart invoice dates may be.
	DateWindow time.Duration
	// MaxMatches caps reported candidates.
	MaxMatches int
}

// DefaultConfig mirrors production settings.
func DefaultConfig() Config {
	return Config{Threshold: 0.95, DateWindow: 7 * 24 * time.Hour, MaxMatches: 5}
}

// Field score weights. Amount only counts once vendor matched and date only
// once amount matched, so a vendor-only match never crosses the threshold.
const (
	weightNumber = 40
	weightVendor = 20
	weightAmount = 30
	weightDate   = 10
)

// Detector compares an invoice against history. It is safe for concurrent use.
type Detector struct {
	cfg Config
}

// NewDetector builds a detector, defaulting unset fields.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.DateWindow <= 0 {
		cfg.DateWindow = def.DateWindow
	}
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = def.MaxMatches
	}
	return &Detector{cfg: cfg}
}

// Detect checks inv against every historical record. Records carrying the
// same ID as inv are the invoice itself and are skipped.
func (d *Detector) Detect(inv invoice.Invoice, history []invoice.Invoice) Verdict {
	verdict := Verdict{Matches: []Candidate{}}
	if len(history) == 0 {
		verdict.Notes = append(verdict.Notes, invoice.Notef(check, invoice.ErrInsufficientHistory, "no historical invoices supplied"))
		return verdict
	}
	hash, hashable := CanonicalHash(inv)
	if !hashable {
		verdict.Notes = append(verdict.Notes, invoice.Notef(check+".hash", invoice.ErrMissingData, "invoice number or vendor absent, exact hash skipped"))
	}
	threshold := d.cfg.Threshold * 100

	var found []Candidate
	for _, hist := range history {
		if inv.ID != "" && hist.ID == inv.ID {
			continue
		}
		if hashable {
			if histHash, ok := CanonicalHash(hist); ok && histHash == hash {
				found = append(found, Candidate{
					InvoiceID:     hist.ID,
					InvoiceNumber: hist.Number,
					MatchType:     MatchExactHash,
					Confidence:    1.0,
					MatchedFields: []string{"all"},
				})
				continue
			}
		}
		score, fields := d.fieldScore(inv, hist)
		if float64(score) >= threshold {
			found = append(found, Candidate{
				InvoiceID:     hist.ID,
				InvoiceNumber: hist.Number,
				MatchType:     MatchFieldBased,
				Confidence:    float64(score) / 100,
				MatchedFields: fields,
			})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Confidence > found[j].Confidence
	})
	verdict.IsDuplicate = len(found) > 0
	verdict.DuplicateCount = len(found)
	if len(found) > d.cfg.MaxMatches {
		found = found[:d.cfg.MaxMatches]
	}
	if len(found) > 0 {
		verdict.Matches = found
	}
	return verdict
}

func (d *Detector) fieldScore(inv, hist invoice.Invoice) (int, []string) {
	score := 0
	fields := make([]string, 0, 4)
	if sameText(inv.Number, hist.Number) {
		score += weightNumber
		fields = append(fields, "invoice_number")
	}
	if !sameText(inv.VendorName, hist.VendorName) {
		return score, fields
	}
	score += weightVendor
	fields = append(fields, "vendor")
	if !inv.Total.Valid || !hist.Total.Valid || !inv.Total.Decimal.Equal(hist.Total.Decimal) {
		return score, fields
	}
	score += weightAmount
	fields = append(fields, "amount")
	if datesClose(inv.InvoiceDate, hist.InvoiceDate, d.cfg.DateWindow) {
		score += weightDate
		fields = append(fields, "date")
	}
	return score, fields
}

// CanonicalHash digests the normalized invoice number, vendor name, total and
// invoice date. The second result is false when number or vendor is absent,
// since an all-blank key would collide across unrelated invoices.
func CanonicalHash(inv invoice.Invoice) (string, bool) {
	number := normalize.Text(inv.Number)
	vendor := normalize.Text(inv.VendorName)
	if number == "" || vendor == "" {
		return "", false
	}
	amount := ""
	if inv.Total.Valid {
		amount = inv.Total.Decimal.StringFixed(2)
	}
	date := ""
	if inv.InvoiceDate != nil {
		date = inv.InvoiceDate.UTC().Format("2006-01-02")
	}
	pairs := []string{
		"invoice_number=" + number,
		"vendor_name=" + vendor,
		"total_amount=" + amount,
		"invoice_date=" + date,
	}
	sort.Strings(pairs)
	sum := blake2b.Sum256([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(sum[:]), true
}

func sameText(a, b string) bool {
	na := normalize.Text(a)
	return na != "" && na == normalize.Text(b)
}

func datesClose(a, b *time.Time, window time.Duration) bool {
	if a == nil || b == nil {
		return false
	}
	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}
