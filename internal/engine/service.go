package engine

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/invoiceguard/internal/catalog"
	"github.com/odyssey-erp/invoiceguard/internal/glcoding"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	"github.com/odyssey-erp/invoiceguard/internal/risk"
	"github.com/odyssey-erp/invoiceguard/internal/tax"
)

// ResultCache memoizes analyses keyed by request digest.
type ResultCache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}

// HistorySource supplies history and vendor master data when the caller did
// not send them. Implementations are read-only.
type HistorySource interface {
	VendorHistory(ctx context.Context, vendorID string, limit int) ([]invoice.Invoice, error)
	Vendor(ctx context.Context, vendorID string) (*invoice.VendorProfile, error)
}

// Recorder receives verdict telemetry.
type Recorder interface {
	ObserveAnalysis(tier, action string, duplicate bool, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAnalysis(string, string, bool, time.Duration) {}

// historyLimit bounds the records loaded from the history store per vendor.
const historyLimit = 200

// Service wraps the engine with validation, caching, history lookup and
// telemetry. All collaborators are optional.
type Service struct {
	engine   *Engine
	validate *validator.Validate
	cache    ResultCache
	history  HistorySource
	metrics  Recorder
	logger   *slog.Logger
	flight   singleflight.Group
}

// NewService builds the service.
func NewService(engine *Engine, cache ResultCache, history HistorySource, metrics Recorder, logger *slog.Logger) *Service {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:   engine,
		validate: validator.New(),
		cache:    cache,
		history:  history,
		metrics:  metrics,
		logger:   logger,
	}
}

// Engine exposes the underlying engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

func (s *Service) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%v: %w", err, invoice.ErrInvalidRequest)
	}
	return nil
}

// Analyze evaluates one invoice. The only error is ErrInvalidRequest (or a
// cancelled context); every other failure degrades into notes.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (Analysis, error) {
	start := time.Now()
	if req.Invoice == nil {
		return Analysis{}, fmt.Errorf("invoice is required: %w", invoice.ErrInvalidRequest)
	}
	if err := s.check(req); err != nil {
		return Analysis{}, err
	}
	in, err := s.engine.Normalize(req)
	if err != nil {
		return Analysis{}, err
	}
	in.Now = s.engine.now()
	enriched := s.enrich(ctx, &in, req)

	analysis, err := s.evaluateCached(ctx, req, in, enriched)
	if err != nil {
		return Analysis{}, err
	}
	s.metrics.ObserveAnalysis(string(analysis.Risk.Tier), string(analysis.Risk.Action), analysis.Duplicate.IsDuplicate, time.Since(start))
	s.logger.Debug("invoice analyzed",
		slog.String("analysis_id", analysis.ID),
		slog.String("invoice_id", analysis.InvoiceID),
		slog.String("tier", string(analysis.Risk.Tier)),
		slog.Float64("score", analysis.Risk.Score),
		slog.Int("notes", len(analysis.Notes)),
	)
	return analysis, nil
}

// enrich fills history and vendor data from the store when the request
// omitted them. Store failures become notes. It reports whether the store
// was consulted, in which case the input is no longer a function of the
// request alone.
func (s *Service) enrich(ctx context.Context, in *Input, req AnalyzeRequest) bool {
	if s.history == nil || in.Invoice.VendorID == "" || (req.History != nil && req.Vendor != nil) {
		return false
	}
	vendorID := in.Invoice.VendorID
	if req.History == nil {
		history, err := s.history.VendorHistory(ctx, vendorID, historyLimit)
		if err != nil {
			s.logger.Warn("history lookup failed", slog.String("vendor_id", vendorID), slog.Any("error", err))
			in.Notes = append(in.Notes, invoice.Notef("engine.history", invoice.ErrMissingData, "history lookup failed: %v", err))
		} else {
			in.History = history
		}
	}
	if req.Vendor == nil {
		vendor, err := s.history.Vendor(ctx, vendorID)
		if err != nil {
			s.logger.Warn("vendor lookup failed", slog.String("vendor_id", vendorID), slog.Any("error", err))
			in.Notes = append(in.Notes, invoice.Notef("engine.vendor", invoice.ErrMissingData, "vendor lookup failed: %v", err))
		} else {
			in.Vendor = vendor
		}
	}
	return true
}

func (s *Service) evaluateCached(ctx context.Context, req AnalyzeRequest, in Input, enriched bool) (Analysis, error) {
	if s.cache == nil || enriched {
		return s.engine.Evaluate(in), nil
	}
	digest, err := requestDigest(req)
	if err != nil {
		return s.engine.Evaluate(in), nil
	}
	// the clock feeds rush and vendor age checks, so keys roll daily
	key, err := s.cache.BuildKey(ctx, "analysis", in.Now.UTC().Format("2006-01-02"), digest)
	if err != nil {
		s.logger.Warn("analysis cache key failed", slog.Any("error", err))
		return s.engine.Evaluate(in), nil
	}
	val, err, _ := s.singleflight(ctx, key, func(ctx context.Context) (any, error) {
		var out Analysis
		err := s.cache.FetchJSON(ctx, key, &out, func(context.Context) (any, error) {
			return s.engine.Evaluate(in), nil
		})
		return out, err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Analysis{}, err
		}
		s.logger.Warn("analysis cache unavailable", slog.Any("error", err))
		return s.engine.Evaluate(in), nil
	}
	return val.(Analysis), nil
}

func (s *Service) singleflight(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	// the shared call outlives any single caller
	shared := context.WithoutCancel(ctx)
	resultChan := s.flight.DoChan(key, func() (any, error) {
		return fn(shared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

func requestDigest(req AnalyzeRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// FraudScoreRequest asks for the point-scale score only.
type FraudScoreRequest struct {
	Invoice *invoice.RawInvoice       `json:"invoice" validate:"required"`
	Vendor  *invoice.RawVendorProfile `json:"vendorProfile,omitempty"`
}

// FraudScore computes the additive 0-100 score.
func (s *Service) FraudScore(ctx context.Context, req FraudScoreRequest) (risk.PointVerdict, error) {
	if err := s.check(req); err != nil {
		return risk.PointVerdict{}, err
	}
	n := s.engine.Normalizer()
	inv, _ := n.Invoice(*req.Invoice)
	var vendor *invoice.VendorProfile
	if req.Vendor != nil {
		v, _ := n.Vendor(*req.Vendor)
		vendor = &v
	}
	return s.engine.FraudScore(inv, vendor), nil
}

// ValidateTax checks reported tax against the supplied rate table.
func (s *Service) ValidateTax(ctx context.Context, req TaxRequest) (tax.Result, error) {
	if err := s.check(req); err != nil {
		return tax.Result{}, err
	}
	inv, _ := s.engine.Normalizer().Invoice(*req.Invoice)
	return tax.Validate(inv, req.Rules, s.engine.now()), nil
}

// SuggestGL proposes a ledger account for a line description.
func (s *Service) SuggestGL(ctx context.Context, req GLRequest) (glcoding.Suggestion, error) {
	if err := s.check(req); err != nil {
		return glcoding.Suggestion{}, err
	}
	return s.engine.gl.Suggest(req.Description, req.Accounts)
}

// MatchCatalog finds the catalog item an invoice line refers to.
func (s *Service) MatchCatalog(ctx context.Context, req CatalogRequest) (catalog.Result, error) {
	if err := s.check(req); err != nil {
		return catalog.Result{}, err
	}
	return catalog.Match(req.Line, req.Items), nil
}
