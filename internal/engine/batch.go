package engine

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/invoiceguard/internal/indicators"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	"github.com/odyssey-erp/invoiceguard/internal/normalize"
	"github.com/odyssey-erp/invoiceguard/internal/risk"
)

// MinStatisticsSample is the smallest set Statistics will summarize.
const MinStatisticsSample = 10

// BatchAnalyze evaluates every invoice against the shared history using a
// bounded worker pool. Results keep input order; empty payloads are reported
// as failed entries.
func (s *Service) BatchAnalyze(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if err := s.check(req); err != nil {
		return BatchResult{}, err
	}
	return s.runBatch(ctx, req)
}

func (s *Service) runBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	n := s.engine.Normalizer()
	if req.MinFieldConfidence != nil {
		n = normalize.New(*req.MinFieldConfidence)
	}
	history := n.Invoices(req.History)
	vendors := indexVendors(n, req.Vendors)
	now := s.engine.now()

	analyses := make([]*Analysis, len(req.Invoices))
	failures := make([]*FailedItem, len(req.Invoices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.engine.cfg.BatchWorkers)
	for i := range req.Invoices {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw := req.Invoices[i]
			if raw.Empty() {
				failures[i] = &FailedItem{Index: i, InvoiceID: raw.ID, Error: invoice.ErrInvalidRequest.Error()}
				return nil
			}
			inv, notes := n.Invoice(raw)
			analysis := s.engine.Evaluate(Input{
				Invoice: inv,
				History: history,
				Vendor:  vendors.lookup(inv),
				Notes:   notes,
				Now:     now,
			})
			analyses[i] = &analysis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	out := BatchResult{
		ID:        s.engine.newID(),
		Total:     len(req.Invoices),
		Results:   make([]Analysis, 0, len(req.Invoices)),
		HighRisk:  []Analysis{},
		Failed:    []FailedItem{},
		Completed: s.engine.now().UTC(),
	}
	for i := range req.Invoices {
		if failures[i] != nil {
			out.Failed = append(out.Failed, *failures[i])
			continue
		}
		a := *analyses[i]
		out.Results = append(out.Results, a)
		if a.Risk.Tier == risk.TierHigh || a.Risk.Tier == risk.TierCritical {
			out.HighRisk = append(out.HighRisk, a)
		}
		s.metrics.ObserveAnalysis(string(a.Risk.Tier), string(a.Risk.Action), a.Duplicate.IsDuplicate, 0)
	}
	s.logger.Info("batch analyzed",
		slog.String("batch_id", out.ID),
		slog.Int("total", out.Total),
		slog.Int("high_risk", len(out.HighRisk)),
		slog.Int("failed", len(out.Failed)),
	)
	return out, nil
}

// Statistics summarizes the risk distribution of a set of invoices. Fewer
// than MinStatisticsSample invoices yields an insufficient_data status.
func (s *Service) Statistics(ctx context.Context, req BatchRequest) (Statistics, error) {
	stats := Statistics{
		Status:          "ok",
		Total:           len(req.Invoices),
		ByTier:          map[risk.Tier]int{},
		ByIndicatorType: map[indicators.Type]int{},
	}
	if len(req.Invoices) < MinStatisticsSample {
		stats.Status = "insufficient_data"
		stats.Notes = []invoice.Note{invoice.Notef("engine.statistics", invoice.ErrInsufficientHistory,
			"%d invoices supplied, need %d", len(req.Invoices), MinStatisticsSample)}
		return stats, nil
	}
	if err := s.check(req); err != nil {
		return Statistics{}, err
	}
	batch, err := s.runBatch(ctx, req)
	if err != nil {
		return Statistics{}, err
	}
	return summarize(batch), nil
}

func summarize(batch BatchResult) Statistics {
	stats := Statistics{
		Status:          "ok",
		Total:           len(batch.Results),
		ByTier:          map[risk.Tier]int{},
		ByIndicatorType: map[indicators.Type]int{},
		Flagged:         len(batch.HighRisk),
	}
	var total float64
	for _, a := range batch.Results {
		stats.ByTier[a.Risk.Tier]++
		total += a.Risk.Score
	}
	for _, a := range batch.HighRisk {
		for _, ind := range a.Risk.Indicators {
			stats.ByIndicatorType[ind.Type]++
		}
	}
	if stats.Total > 0 {
		stats.AverageScore = math.Round(total/float64(stats.Total)*10000) / 10000
	}
	return stats
}

type vendorIndex struct {
	byID   map[string]*invoice.VendorProfile
	byName map[string]*invoice.VendorProfile
}

func indexVendors(n normalize.Normalizer, raw []invoice.RawVendorProfile) vendorIndex {
	idx := vendorIndex{byID: map[string]*invoice.VendorProfile{}, byName: map[string]*invoice.VendorProfile{}}
	for _, r := range raw {
		v, _ := n.Vendor(r)
		profile := &v
		if v.ID != "" {
			idx.byID[v.ID] = profile
		}
		if name := normalize.Text(v.Name); name != "" {
			idx.byName[name] = profile
		}
	}
	return idx
}

func (idx vendorIndex) lookup(inv invoice.Invoice) *invoice.VendorProfile {
	if v, ok := idx.byID[inv.VendorID]; ok && inv.VendorID != "" {
		return v
	}
	return idx.byName[normalize.Text(inv.VendorName)]
}
