// Package engine orchestrates normalization, three-way matching, duplicate
// detection and risk scoring for a single invoice or a batch.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/invoiceguard/internal/duplicate"
	"github.com/odyssey-erp/invoiceguard/internal/glcoding"
	"github.com/odyssey-erp/invoiceguard/internal/indicators"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	"github.com/odyssey-erp/invoiceguard/internal/normalize"
	"github.com/odyssey-erp/invoiceguard/internal/risk"
	"github.com/odyssey-erp/invoiceguard/internal/tax"
	"github.com/odyssey-erp/invoiceguard/internal/threeway"
)

// Config tunes the engine. Zero values fall back to production defaults.
type Config struct {
	Tolerance          float64
	DuplicateThreshold float64
	MinFieldConfidence float64
	BatchWorkers       int
	Policy             risk.Policy
	Thresholds         indicators.Thresholds
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Tolerance:          threeway.DefaultConfig().Tolerance,
		DuplicateThreshold: duplicate.DefaultConfig().Threshold,
		BatchWorkers:       4,
		Policy:             risk.DefaultPolicy(),
		Thresholds:         indicators.DefaultThresholds(),
	}
}

// Engine is pure: Evaluate reads its input and returns a value. The only
// non-deterministic fields are the analysis ID and the default clock.
type Engine struct {
	cfg        Config
	normalizer normalize.Normalizer
	matcher    *threeway.Matcher
	detector   *duplicate.Detector
	evaluator  *indicators.Evaluator
	scorer     *risk.Scorer
	points     *risk.PointScorer
	gl         *glcoding.Suggester
	now        func() time.Time
	newID      func() string
}

// New builds an engine. It fails only when the risk policy is invalid.
func New(cfg Config) (*Engine, error) {
	def := DefaultConfig()
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = def.BatchWorkers
	}
	if cfg.Policy.Weights == nil {
		cfg.Policy = def.Policy
	}
	if cfg.Thresholds.PriceMinHistory == 0 {
		cfg.Thresholds = def.Thresholds
	}
	scorer, err := risk.NewScorer(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	matchCfg := threeway.DefaultConfig()
	matchCfg.Tolerance = cfg.Tolerance
	return &Engine{
		cfg:        cfg,
		normalizer: normalize.New(cfg.MinFieldConfidence),
		matcher:    threeway.NewMatcher(matchCfg),
		detector:   duplicate.NewDetector(duplicate.Config{Threshold: cfg.DuplicateThreshold}),
		evaluator:  indicators.NewEvaluator(cfg.Thresholds),
		scorer:     scorer,
		points:     risk.NewPointScorer(cfg.Policy),
		gl:         glcoding.New(nil),
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Normalize converts a wire request into the typed input. A missing or empty
// invoice is the only error.
func (e *Engine) Normalize(req AnalyzeRequest) (Input, error) {
	if req.Invoice == nil || req.Invoice.Empty() {
		return Input{}, fmt.Errorf("invoice is required: %w", invoice.ErrInvalidRequest)
	}
	n := e.normalizer
	if req.MinFieldConfidence != nil {
		n = normalize.New(*req.MinFieldConfidence)
	}
	inv, notes := n.Invoice(*req.Invoice)
	in := Input{
		Invoice:    inv,
		History:    n.Invoices(req.History),
		Tolerance:  req.Tolerance,
		GLAccounts: req.GLAccounts,
		TaxRules:   req.TaxRules,
		Notes:      notes,
	}
	if req.PurchaseOrder != nil {
		po, poNotes := n.PurchaseOrder(*req.PurchaseOrder)
		in.PurchaseOrder = &po
		in.Notes = append(in.Notes, poNotes...)
	}
	if req.GoodsReceipt != nil {
		grn, grnNotes := n.GoodsReceipt(*req.GoodsReceipt)
		in.GoodsReceipt = &grn
		in.Notes = append(in.Notes, grnNotes...)
	}
	if req.Vendor != nil {
		vendor, vendorNotes := n.Vendor(*req.Vendor)
		in.Vendor = &vendor
		in.Notes = append(in.Notes, vendorNotes...)
	}
	return in, nil
}

// Evaluate runs every stage over a normalized input. Sub-check failures are
// reported as notes and never abort the evaluation.
func (e *Engine) Evaluate(in Input) Analysis {
	now := in.Now
	if now.IsZero() {
		now = e.now()
	}
	notes := append([]invoice.Note(nil), in.Notes...)

	var matching *threeway.Result
	if in.PurchaseOrder != nil {
		tolerance := -1.0
		if in.Tolerance != nil {
			tolerance = *in.Tolerance
		}
		res := e.matcher.Match(in.Invoice, *in.PurchaseOrder, in.GoodsReceipt, tolerance)
		matching = &res
	}

	dup := e.detector.Detect(in.Invoice, in.History)
	notes = append(notes, dup.Notes...)

	ctx := indicators.Context{Now: now, History: in.History, Vendor: in.Vendor, Duplicate: &dup}
	weighted := e.evaluator.Weighted(in.Invoice, ctx)
	for _, sig := range weighted {
		notes = append(notes, sig.Notes...)
	}
	points := e.evaluator.Points(in.Invoice, ctx)

	out := Analysis{
		ID:            e.newID(),
		InvoiceID:     in.Invoice.ID,
		InvoiceNumber: in.Invoice.Number,
		AnalyzedAt:    now.UTC(),
		Matching:      matching,
		Duplicate:     dup,
		Risk:          e.scorer.Score(weighted, dup.IsDuplicate),
		Fraud:         e.points.Score(points),
		Notes:         notes,
	}
	if len(in.GLAccounts) > 0 {
		out.GLCoding = e.codeLines(in.Invoice.Lines, in.GLAccounts)
	}
	if in.TaxRules != nil {
		res := tax.Validate(in.Invoice, *in.TaxRules, now)
		out.Tax = &res
	}
	return out
}

// codeLines suggests an account per line; lines without a suggestion carry
// the reason instead.
func (e *Engine) codeLines(lines []invoice.LineItem, accounts []glcoding.Account) []LineCoding {
	out := make([]LineCoding, 0, len(lines))
	for i, line := range lines {
		lc := LineCoding{Line: i, Description: line.Description}
		if sug, err := e.gl.Suggest(line.Description, accounts); err != nil {
			lc.Error = err.Error()
		} else {
			lc.Suggestion = &sug
		}
		out = append(out, lc)
	}
	return out
}

// FraudScore runs only the point-scale checks.
func (e *Engine) FraudScore(inv invoice.Invoice, vendor *invoice.VendorProfile) risk.PointVerdict {
	return e.points.Score(e.evaluator.Points(inv, indicators.Context{Now: e.now(), Vendor: vendor}))
}

// Normalizer exposes the engine's default normalizer.
func (e *Engine) Normalizer() normalize.Normalizer {
	return e.normalizer
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}
