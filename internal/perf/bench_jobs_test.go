package perf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/odyssey-erp/invoiceguard/internal/engine"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
	jobmetrics "github.com/odyssey-erp/invoiceguard/internal/jobs"
	"github.com/odyssey-erp/invoiceguard/internal/risk"
	"github.com/odyssey-erp/invoiceguard/jobs"
)

type flakyAnalyzer struct {
	calls int
}

// BatchAnalyze fails every tenth call to mimic a transient store outage.
func (f *flakyAnalyzer) BatchAnalyze(ctx context.Context, req engine.BatchRequest) (engine.BatchResult, error) {
	f.calls++
	if f.calls%10 == 0 {
		return engine.BatchResult{}, errors.New("history store timeout")
	}
	results := make([]engine.Analysis, len(req.Invoices))
	for i := range results {
		results[i].Risk.Tier = risk.TierLow
	}
	return engine.BatchResult{Total: len(req.Invoices), Results: results}, nil
}

type nopStore struct{}

func (nopStore) Save(context.Context, jobs.JobStatus) error { return nil }
func (nopStore) Load(context.Context, string) (jobs.JobStatus, error) {
	return jobs.JobStatus{}, jobs.ErrJobNotFound
}

func TestBatchJobThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := jobs.NewBatchAnalyzeJob(&flakyAnalyzer{}, nopStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)

	for i := 0; i < 50; i++ {
		task, err := jobs.NewBatchAnalyzeTask(jobs.BatchAnalyzePayload{
			JobID:   fmt.Sprintf("job-%d", i),
			Request: engine.BatchRequest{Invoices: []invoice.RawInvoice{sampleInvoice(i), sampleInvoice(i + 1)}},
		})
		if err != nil {
			t.Fatalf("build task: %v", err)
		}
		_ = job.Handle(context.Background(), task)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "invoiceguard_jobs_total", map[string]string{"job": jobs.TaskBatchAnalyze, "status": "success"})
	failure := metricValue(t, families, "invoiceguard_jobs_total", map[string]string{"job": jobs.TaskBatchAnalyze, "status": "failure"})
	if success != 45 || failure != 5 {
		t.Fatalf("unexpected outcomes: success=%v failure=%v", success, failure)
	}
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("batch job success ratio too low: %f", ratio)
	}

	analyzed := metricValue(t, families, "invoiceguard_job_invoices_total", map[string]string{"job": jobs.TaskBatchAnalyze, "outcome": "low"})
	if analyzed != 90 {
		t.Fatalf("expected 90 analyzed invoices, got %v", analyzed)
	}

	if mean := histogramMean(t, families, "invoiceguard_job_duration_seconds", map[string]string{"job": jobs.TaskBatchAnalyze}); mean > 0.5 {
		t.Fatalf("batch job duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
