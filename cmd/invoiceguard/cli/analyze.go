package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/odyssey-erp/invoiceguard/internal/engine"
)

// ExitHighRisk is returned when any analyzed invoice lands in a high or
// critical tier, so scripts can gate on it.
const ExitHighRisk = 10

// BatchAnalyzer runs a batch analysis in-process.
type BatchAnalyzer interface {
	BatchAnalyze(ctx context.Context, req engine.BatchRequest) (engine.BatchResult, error)
}

// AnalyzeOptions defines available flags for the analyze command.
type AnalyzeOptions struct {
	Path       string
	JSONOutput bool
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// AnalyzeCommand reads a batch request from Path ("-" for stdin), analyzes
// it and prints the outcome.
func AnalyzeCommand(ctx context.Context, svc BatchAnalyzer, opts AnalyzeOptions) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	req, err := readBatch(opts)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "analyze: %v\n", err)
		return 1
	}
	result, err := svc.BatchAnalyze(ctx, req)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "analyze: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "analyze: encode json: %v\n", err)
			return 1
		}
	} else {
		renderBatchHuman(opts.Stdout, result)
	}
	if len(result.HighRisk) > 0 {
		return ExitHighRisk
	}
	return 0
}

func readBatch(opts AnalyzeOptions) (engine.BatchRequest, error) {
	var req engine.BatchRequest
	var src io.Reader
	switch opts.Path {
	case "":
		return req, fmt.Errorf("--file is required")
	case "-":
		src = opts.Stdin
	default:
		f, err := os.Open(opts.Path)
		if err != nil {
			return req, err
		}
		defer f.Close()
		src = f
	}
	if err := json.NewDecoder(src).Decode(&req); err != nil {
		return req, fmt.Errorf("decode %s: %w", opts.Path, err)
	}
	return req, nil
}

func renderBatchHuman(w io.Writer, result engine.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "INVOICE\tSCORE\tTIER\tACTION\tFRAUD")
	for _, a := range result.Results {
		ref := a.InvoiceNumber
		if ref == "" {
			ref = a.InvoiceID
		}
		_, _ = fmt.Fprintf(tw, "%s\t%.4f\t%s\t%s\t%d\n", ref, a.Risk.Score, a.Risk.Tier, a.Risk.Action, a.Fraud.Score)
	}
	_ = tw.Flush()
	for _, f := range result.Failed {
		_, _ = fmt.Fprintf(w, "failed #%d %s: %s\n", f.Index, f.InvoiceID, f.Error)
	}
	_, _ = fmt.Fprintf(w, "%d analyzed, %d high risk, %d failed\n", len(result.Results), len(result.HighRisk), len(result.Failed))
}
