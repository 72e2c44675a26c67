package model

import (
	"time"

	"github.com/google/uuid"
)

// Default classification values used when the caller leaves a field empty.
const (
	DefaultDDType        = "M&A Due Diligence"
	DefaultReportFocus   = "Financial Report"
	DefaultChecklistType = "Simple"
)

// Classification holds the free-form fields that describe the engagement.
type Classification struct {
	// DDType is the engagement type.
	DDType string `json:"dd_type" validate:"max=200"`

	// ReportFocus is the requested focus of the report.
	ReportFocus string `json:"report_focus" validate:"max=200"`

	// ChecklistType selects the checklist depth.
	ChecklistType string `json:"checklist_type" validate:"omitempty,oneof=Simple Detailed Comprehensive"`
}

// WithDefaults returns a copy with empty fields replaced by defaults.
func (c Classification) WithDefaults() Classification {
	if c.DDType == "" {
		c.DDType = DefaultDDType
	}
	if c.ReportFocus == "" {
		c.ReportFocus = DefaultReportFocus
	}
	if c.ChecklistType == "" {
		c.ChecklistType = DefaultChecklistType
	}
	return c
}

// Analysis is the request-scoped state carried through the pipeline.
// Each step reads what earlier steps produced and fills in its own part.
//
// Design decision: Steps share a single mutable struct so that every step
// has the same signature. It is never shared between requests.
type Analysis struct {
	// RunID uniquely identifies this analysis.
	RunID string `json:"run_id"`

	// StartedAt is when the analysis began.
	StartedAt time.Time `json:"started_at"`

	// Classification describes the engagement.
	Classification Classification `json:"classification"`

	// Uploads are the raw inputs. They are not serialized.
	Uploads []Upload `json:"-"`

	// Documents are the extracted documents.
	Documents []Document `json:"-"`

	// UploadedNames are the file names reported back to the caller.
	UploadedNames []string `json:"uploaded_files"`

	// Batches is the partition of Documents.
	Batches []Batch `json:"-"`

	// Results holds one entry per batch, indexed by batch number - 1.
	Results []BatchResult `json:"batch_results"`

	// Report is the final report. Nil until synthesis has run.
	Report *FinalReport `json:"report,omitempty"`

	// Summary is the numeric summary extracted from the report.
	Summary FinancialSummary `json:"summary"`

	// Charts is the rendered chart section (Markdown with mermaid blocks).
	Charts string `json:"charts,omitempty"`

	// Elapsed is the total processing time.
	Elapsed time.Duration `json:"elapsed"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps"`
}

// NewAnalysis creates a new Analysis for the given uploads.
func NewAnalysis(uploads []Upload, c Classification) *Analysis {
	return &Analysis{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now(),
		Classification: c.WithDefaults(),
		Uploads:        uploads,
	}
}

// SucceededBatches returns how many batches produced report text.
func (a *Analysis) SucceededBatches() int {
	n := 0
	for _, r := range a.Results {
		if r.Succeeded {
			n++
		}
	}
	return n
}

// Metadata returns the response metadata for this analysis.
func (a *Analysis) Metadata() AnalysisMetadata {
	names := a.UploadedNames
	if names == nil {
		names = []string{}
	}
	return AnalysisMetadata{
		UploadedFiles:    names,
		TotalFiles:       len(a.UploadedNames),
		BatchesProcessed: len(a.Batches),
		ProcessingTime:   FormatProcessingTime(a.Elapsed),
	}
}

// ReportText returns the full final report text, or "" before synthesis.
func (a *Analysis) ReportText() string {
	if a.Report == nil {
		return ""
	}
	return a.Report.Text()
}
