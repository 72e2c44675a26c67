package model

import (
	"fmt"
	"strings"
	"time"
)

// BatchResult is the outcome of analyzing one batch.
// A result with Succeeded == false has no report text; it is dropped from
// synthesis input but still counts toward the number of batches processed.
type BatchResult struct {
	// BatchIndex is the 1-based index of the batch.
	BatchIndex int `json:"batch_index"`

	// DocumentNames are the names of the documents in the batch.
	DocumentNames []string `json:"document_names"`

	// ReportText is the batch-level analysis. Empty when the batch failed.
	ReportText string `json:"report_text,omitempty"`

	// Succeeded is true when ReportText holds accepted generated text.
	Succeeded bool `json:"succeeded"`

	// Backend is the label of the backend that produced ReportText.
	Backend string `json:"backend,omitempty"`

	// Err is a human-readable failure reason for failed batches.
	Err string `json:"error,omitempty"`
}

// FileCount returns the number of documents that contributed to the batch.
func (r BatchResult) FileCount() int {
	return len(r.DocumentNames)
}

// SucceededResults returns the successful results, preserving order.
func SucceededResults(results []BatchResult) []BatchResult {
	out := make([]BatchResult, 0, len(results))
	for _, r := range results {
		if r.Succeeded {
			out = append(out, r)
		}
	}
	return out
}

// headerRule separates the metadata header from the report body.
var headerRule = strings.Repeat("=", 70)

// ReportHeader is the stable metadata preamble of a final report.
// It is rendered on both the synthesized and the fallback path so that
// consumers always see the same fields.
type ReportHeader struct {
	// TotalFiles is the number of uploaded file names.
	TotalFiles int `json:"total_files"`

	// BatchCount is the number of batches processed, including failed ones.
	BatchCount int `json:"batches_processed"`

	// SucceededBatches is the number of batches that contributed content.
	SucceededBatches int `json:"batches_succeeded"`

	// BatchSize is the configured maximum number of documents per batch.
	BatchSize int `json:"files_per_batch"`

	// ReportType is the engagement type (e.g. "M&A Due Diligence").
	ReportType string `json:"report_type"`

	// ReportFocus is the report focus (e.g. "Financial Report").
	ReportFocus string `json:"report_focus"`

	// ChecklistType is the checklist depth (e.g. "Simple").
	ChecklistType string `json:"checklist_type"`

	// Synthesized is true when the body was produced by the synthesis call,
	// false when the deterministic fallback was used.
	Synthesized bool `json:"synthesized"`
}

// SynthesisMode returns "ai" or "fallback".
func (h ReportHeader) SynthesisMode() string {
	if h.Synthesized {
		return "ai"
	}
	return "fallback"
}

// Render returns the header as plain text, one "key: value" per line.
func (h ReportHeader) Render() string {
	method := "Batch analysis with AI synthesis"
	if !h.Synthesized {
		method = "Batch analysis with concatenated batch reports"
	}

	var sb strings.Builder
	sb.WriteString(headerRule + "\n")
	sb.WriteString("BATCH PROCESSING SUMMARY\n")
	sb.WriteString(headerRule + "\n")
	fmt.Fprintf(&sb, "total_files: %d\n", h.TotalFiles)
	fmt.Fprintf(&sb, "batches_processed: %d\n", h.BatchCount)
	fmt.Fprintf(&sb, "batches_succeeded: %d\n", h.SucceededBatches)
	fmt.Fprintf(&sb, "files_per_batch: %d\n", h.BatchSize)
	fmt.Fprintf(&sb, "report_type: %s\n", h.ReportType)
	fmt.Fprintf(&sb, "report_focus: %s\n", h.ReportFocus)
	fmt.Fprintf(&sb, "checklist_type: %s\n", h.ChecklistType)
	fmt.Fprintf(&sb, "synthesis: %s\n", h.SynthesisMode())
	fmt.Fprintf(&sb, "processing_method: %s\n", method)
	sb.WriteString(headerRule + "\n\n")
	return sb.String()
}

// FinalReport is the synthesized due-diligence report.
// It is built once per request and is never persisted.
type FinalReport struct {
	Header ReportHeader `json:"header"`
	Body   string       `json:"body"`
}

// Text returns the full report: rendered header followed by the body.
func (r *FinalReport) Text() string {
	return r.Header.Render() + r.Body
}

// FinancialSummary is a best-effort numeric summary extracted from the
// report text. It lets chart renderers skip re-parsing the report.
type FinancialSummary struct {
	// Years are the fiscal years matched alongside revenue figures.
	Years []int `json:"years"`

	// Revenue values in millions of dollars, aligned with Years.
	Revenue []float64 `json:"revenue"`

	// EBITDA values in millions of dollars.
	EBITDA []float64 `json:"ebitda"`

	// Margins are percentages below 100.
	Margins []float64 `json:"margins"`
}

// IsEmpty reports whether nothing was extracted.
func (s FinancialSummary) IsEmpty() bool {
	return len(s.Years) == 0 && len(s.Revenue) == 0 && len(s.EBITDA) == 0 && len(s.Margins) == 0
}

// AnalysisMetadata is the structured metadata returned with a report.
type AnalysisMetadata struct {
	UploadedFiles    []string `json:"uploaded_files"`
	TotalFiles       int      `json:"total_files"`
	BatchesProcessed int      `json:"batches_processed"`
	ProcessingTime   string   `json:"processing_time"`
}

// FormatProcessingTime renders an elapsed duration as seconds with one decimal.
func FormatProcessingTime(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
