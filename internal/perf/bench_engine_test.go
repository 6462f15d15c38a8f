package perf

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/odyssey-erp/invoiceguard/internal/engine"
	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

func sampleInvoice(i int) invoice.RawInvoice {
	return invoice.RawInvoice{
		ID:            fmt.Sprintf("inv-%d", i),
		InvoiceNumber: invoice.Text(fmt.Sprintf("INV-%05d", i)),
		VendorID:      fmt.Sprintf("V-%d", i%7),
		VendorName:    invoice.Text(fmt.Sprintf("Vendor %d Supplies", i%7)),
		TotalAmount:   invoice.Text(fmt.Sprintf("%d.%02d", 900+i*13, i%100)),
		InvoiceDate:   "2024-03-01",
		DueDate:       "2024-03-30",
		PONumber:      invoice.Text(fmt.Sprintf("PO-%d", i)),
		LineItems: []invoice.RawLineItem{
			{Description: "Steel beam 4m", Quantity: "10", UnitPrice: "90.00", Amount: "900.00"},
			{Description: "Anchor bolts", Quantity: invoice.Text(fmt.Sprint(i%5 + 1)), UnitPrice: "13.00"},
		},
	}
}

func sampleHistory(n int) []invoice.RawInvoice {
	out := make([]invoice.RawInvoice, n)
	for i := range out {
		out[i] = sampleInvoice(10_000 + i)
		out[i].InvoiceDate = "2024-01-15"
	}
	return out
}

func newService(tb testing.TB) *engine.Service {
	tb.Helper()
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		tb.Fatalf("engine: %v", err)
	}
	return engine.NewService(eng, nil, nil, nil, nil)
}

func analyzeRequest(i int, history []invoice.RawInvoice) engine.AnalyzeRequest {
	inv := sampleInvoice(i)
	po := invoice.RawPurchaseOrder{PONumber: inv.PONumber, VendorName: inv.VendorName, LineItems: inv.LineItems}
	return engine.AnalyzeRequest{Invoice: &inv, PurchaseOrder: &po, History: history}
}

func TestAnalyzeLatencyTarget(t *testing.T) {
	svc := newService(t)
	history := sampleHistory(200)
	samples := make([]time.Duration, 0, 100)
	for i := 0; i < 100; i++ {
		req := analyzeRequest(i, history)
		start := time.Now()
		if _, err := svc.Analyze(context.Background(), req); err != nil {
			t.Fatalf("analyze: %v", err)
		}
		samples = append(samples, time.Since(start))
	}
	if p95 := percentile95(samples); p95 > 100*time.Millisecond {
		t.Fatalf("analysis latency regression: p95=%s threshold=100ms", p95)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	svc := newService(b)
	history := sampleHistory(200)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Analyze(context.Background(), analyzeRequest(i, history)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBatchAnalyze(b *testing.B) {
	svc := newService(b)
	req := engine.BatchRequest{History: sampleHistory(200)}
	for i := 0; i < 250; i++ {
		req.Invoices = append(req.Invoices, sampleInvoice(i))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.BatchAnalyze(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	return sorted[index]
}
