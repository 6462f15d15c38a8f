package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/invoiceguard/internal/engine"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	jobmetrics "github.com/odyssey-erp/invoiceguard/internal/jobs"
)

// BatchAnalyzer runs a batch analysis.
type BatchAnalyzer interface {
	BatchAnalyze(ctx context.Context, req engine.BatchRequest) (engine.BatchResult, error)
}

// BatchAnalyzeJob executes queued batch analyses and records their status.
type BatchAnalyzeJob struct {
	Analyzer BatchAnalyzer
	Store    JobStore
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewBatchAnalyzeJob constructs the job handler.
func NewBatchAnalyzeJob(analyzer BatchAnalyzer, store JobStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *BatchAnalyzeJob {
	return &BatchAnalyzeJob{
		Analyzer: analyzer,
		Store:    store,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one batch analysis task.
func (j *BatchAnalyzeJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Analyzer == nil || j.Store == nil {
		return errors.New("batch analyze: dependencies not configured")
	}
	var payload BatchAnalyzePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.JobID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskBatchAnalyze)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	status, err := j.Store.Load(ctx, payload.JobID)
	if err != nil {
		if !errors.Is(err, ErrJobNotFound) {
			j.log().Warn("load job status", slog.String("job_id", payload.JobID), slog.Any("error", err))
		}
		status = JobStatus{ID: payload.JobID, Total: len(payload.Request.Invoices), SubmittedAt: j.now()}
	}
	status.State = StateRunning
	status.Attempts++
	status.UpdatedAt = j.now()
	j.save(ctx, status)

	start := j.now()
	result, err := j.Analyzer.BatchAnalyze(ctx, payload.Request)
	if err != nil {
		status.State = StateFailed
		status.Error = err.Error()
		status.UpdatedAt = j.now()
		j.save(ctx, status)
		j.log().Error("batch analyze", slog.String("job_id", payload.JobID), slog.Any("error", err))
		if errors.Is(err, invoice.ErrInvalidRequest) {
			resultErr = fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			return resultErr
		}
		resultErr = err
		return resultErr
	}

	j.countOutcomes(result)
	status.State = StateCompleted
	status.Error = ""
	status.Total = result.Total
	status.Result = &result
	status.UpdatedAt = j.now()
	j.save(ctx, status)

	j.log().Info("batch analysis completed",
		slog.String("job_id", payload.JobID),
		slog.Int("total", result.Total),
		slog.Int("high_risk", len(result.HighRisk)),
		slog.Int("failed", len(result.Failed)),
		slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *BatchAnalyzeJob) countOutcomes(result engine.BatchResult) {
	counts := make(map[string]int)
	for _, analysis := range result.Results {
		counts[string(analysis.Risk.Tier)]++
	}
	for outcome, count := range counts {
		j.metrics().AddInvoices(TaskBatchAnalyze, outcome, count)
	}
	j.metrics().AddInvoices(TaskBatchAnalyze, "failed", len(result.Failed))
}

func (j *BatchAnalyzeJob) save(ctx context.Context, status JobStatus) {
	if err := j.Store.Save(ctx, status); err != nil {
		j.log().Warn("save job status", slog.String("job_id", status.ID), slog.String("state", string(status.State)), slog.Any("error", err))
	}
}

func (j *BatchAnalyzeJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *BatchAnalyzeJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBatchAnalyze))
	}
	return slog.Default().With(slog.String("job", TaskBatchAnalyze))
}

func (j *BatchAnalyzeJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *BatchAnalyzeJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}

// Enqueuer places batch tasks on the queue.
type Enqueuer interface {
	EnqueueBatchAnalyze(ctx context.Context, payload BatchAnalyzePayload) (*asynq.TaskInfo, error)
}

// BatchSubmitter records a queued status and enqueues the batch.
type BatchSubmitter struct {
	queue Enqueuer
	store JobStore
	now   func() time.Time
	newID func() string
}

// NewBatchSubmitter wires a submitter.
func NewBatchSubmitter(queue Enqueuer, store JobStore) *BatchSubmitter {
	return &BatchSubmitter{
		queue: queue,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

// Submit queues req and returns its initial status.
func (s *BatchSubmitter) Submit(ctx context.Context, req engine.BatchRequest) (JobStatus, error) {
	if len(req.Invoices) == 0 {
		return JobStatus{}, fmt.Errorf("invoices are required: %w", invoice.ErrInvalidRequest)
	}
	now := s.now()
	status := JobStatus{
		ID:          s.newID(),
		State:       StateQueued,
		Total:       len(req.Invoices),
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := s.store.Save(ctx, status); err != nil {
		return JobStatus{}, fmt.Errorf("save job status: %w", err)
	}
	if _, err := s.queue.EnqueueBatchAnalyze(ctx, BatchAnalyzePayload{JobID: status.ID, Request: req}); err != nil {
		status.State = StateFailed
		status.Error = err.Error()
		_ = s.store.Save(ctx, status)
		return JobStatus{}, fmt.Errorf("enqueue batch: %w", err)
	}
	return status, nil
}

// Status returns the current status for id.
func (s *BatchSubmitter) Status(ctx context.Context, id string) (JobStatus, error) {
	return s.store.Load(ctx, id)
}
