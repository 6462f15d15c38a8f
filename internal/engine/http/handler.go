package enginehttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/invoiceguard/internal/catalog"
	"github.com/odyssey-erp/invoiceguard/internal/engine"
	"github.com/odyssey-erp/invoiceguard/internal/glcoding"
	"github.com/odyssey-erp/invoiceguard/internal/platform/httpx"
	"github.com/odyssey-erp/invoiceguard/internal/risk"
	"github.com/odyssey-erp/invoiceguard/internal/tax"
	"github.com/odyssey-erp/invoiceguard/jobs"
)

// Analyzer is the engine surface exposed over HTTP.
type Analyzer interface {
	Analyze(ctx context.Context, req engine.AnalyzeRequest) (engine.Analysis, error)
	BatchAnalyze(ctx context.Context, req engine.BatchRequest) (engine.BatchResult, error)
	Statistics(ctx context.Context, req engine.BatchRequest) (engine.Statistics, error)
	FraudScore(ctx context.Context, req engine.FraudScoreRequest) (risk.PointVerdict, error)
	ValidateTax(ctx context.Context, req engine.TaxRequest) (tax.Result, error)
	SuggestGL(ctx context.Context, req engine.GLRequest) (glcoding.Suggestion, error)
	MatchCatalog(ctx context.Context, req engine.CatalogRequest) (catalog.Result, error)
}

// BatchJobs queues batches for the worker.
type BatchJobs interface {
	Submit(ctx context.Context, req engine.BatchRequest) (jobs.JobStatus, error)
	Status(ctx context.Context, id string) (jobs.JobStatus, error)
}

// Handler wires the invoice analysis JSON API.
type Handler struct {
	logger  *slog.Logger
	service Analyzer
	jobs    BatchJobs
}

// NewHandler constructs handler. A nil jobs disables the async batch routes.
func NewHandler(logger *slog.Logger, service Analyzer, batchJobs BatchJobs) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, jobs: batchJobs}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/v1/invoices", func(r chi.Router) {
		r.Post("/analyze", h.analyze)
		r.Post("/batch", h.batch)
		r.Post("/batch/jobs", h.submitBatch)
		r.Get("/batch/jobs/{id}", h.batchStatus)
		r.Post("/statistics", h.statistics)
		r.Post("/fraud-score", h.fraudScore)
		r.Post("/tax/validate", h.validateTax)
		r.Post("/gl/suggest", h.suggestGL)
		r.Post("/catalog/match", h.matchCatalog)
	})
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req engine.AnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.Analyze(r.Context(), req)
	h.respond(w, r, out, err)
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request) {
	var req engine.BatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.BatchAnalyze(r.Context(), req)
	h.respond(w, r, out, err)
}

func (h *Handler) submitBatch(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.RespondError(w, fmt.Errorf("batch jobs: %w", httpx.ErrUnavailable))
		return
	}
	var req engine.BatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	status, err := h.jobs.Submit(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/invoices/batch/jobs/"+status.ID)
	httpx.JSON(w, http.StatusAccepted, status)
}

func (h *Handler) batchStatus(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.RespondError(w, fmt.Errorf("batch jobs: %w", httpx.ErrUnavailable))
		return
	}
	id := chi.URLParam(r, "id")
	status, err := h.jobs.Status(r.Context(), id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		err = fmt.Errorf("job %s: %w", id, httpx.ErrNotFound)
	}
	h.respond(w, r, status, err)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	var req engine.BatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.Statistics(r.Context(), req)
	h.respond(w, r, out, err)
}

func (h *Handler) fraudScore(w http.ResponseWriter, r *http.Request) {
	var req engine.FraudScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.FraudScore(r.Context(), req)
	h.respond(w, r, out, err)
}

func (h *Handler) validateTax(w http.ResponseWriter, r *http.Request) {
	var req engine.TaxRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.ValidateTax(r.Context(), req)
	h.respond(w, r, out, err)
}

func (h *Handler) suggestGL(w http.ResponseWriter, r *http.Request) {
	var req engine.GLRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.SuggestGL(r.Context(), req)
	if errors.Is(err, glcoding.ErrNoCategory) || errors.Is(err, glcoding.ErrNoAccount) {
		err = fmt.Errorf("%v: %w", err, httpx.ErrNotFound)
	}
	h.respond(w, r, out, err)
}

func (h *Handler) matchCatalog(w http.ResponseWriter, r *http.Request) {
	var req engine.CatalogRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.MatchCatalog(r.Context(), req)
	h.respond(w, r, out, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(w, r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, httpx.ErrNotFound) {
		h.logger.Warn("invoice api", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
