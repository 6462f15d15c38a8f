package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("batch").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("batch").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("batch", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("batch", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("batch")))
}

func TestAddInvoices(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddInvoices("batch", "high", 3)
	m.AddInvoices("batch", "", 1)
	m.AddInvoices("batch", "low", 0)

	require.Equal(t, 3.0, testutil.ToFloat64(m.invoices.WithLabelValues("batch", "high")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.invoices.WithLabelValues("batch", "unknown")))

	var nilMetrics *Metrics
	nilMetrics.AddInvoices("batch", "high", 1)
	require.NoError(t, nilMetrics.Track("batch").End(nil))
}
