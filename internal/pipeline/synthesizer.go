package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pks0715/seggy/internal/model"
)

// Synthesis defaults.
const (
	// DefaultSynthesisMaxTokens is the output budget for the final report.
	DefaultSynthesisMaxTokens = 4000

	// DefaultSynthesisContentLimit caps the merged batch reports sent to
	// the synthesis call.
	DefaultSynthesisContentLimit = 20000

	// truncationMarker is appended when the merged content was capped.
	truncationMarker = "\n\n[Content truncated...]"
)

var separator = strings.Repeat("=", 60)

// Synthesizer merges successful batch reports into one final report.
type Synthesizer struct {
	generator      Generator
	backends       []model.Backend
	maxTokens      int
	contentLimit   int
	classification model.Classification
	logger         *slog.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithSynthesisMaxTokens sets the output budget for the synthesis call.
func WithSynthesisMaxTokens(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithSynthesisContentLimit sets the cap on merged batch content.
func WithSynthesisContentLimit(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.contentLimit = n
		}
	}
}

// WithSynthesisClassification sets the engagement fields quoted in the prompt.
func WithSynthesisClassification(c model.Classification) SynthesizerOption {
	return func(s *Synthesizer) {
		s.classification = c.WithDefaults()
	}
}

// WithSynthesizerLogger sets a custom logger for the synthesizer.
func WithSynthesizerLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// NewSynthesizer creates a synthesizer that calls generator with the given
// synthesis-tier backends.
func NewSynthesizer(generator Generator, backends []model.Backend, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		generator:      generator,
		backends:       backends,
		maxTokens:      DefaultSynthesisMaxTokens,
		contentLimit:   DefaultSynthesisContentLimit,
		classification: model.Classification{}.WithDefaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Synthesize builds the final report from results.
//
// Failed results are ignored. When synthesis does not succeed the body is
// the deterministic concatenation of the surviving batch reports. The
// header is filled from header with SucceededBatches and Synthesized set
// here, and is present on both paths.
func (s *Synthesizer) Synthesize(ctx context.Context, results []model.BatchResult, header model.ReportHeader) (*model.FinalReport, error) {
	succeeded := model.SucceededResults(results)
	if len(succeeded) == 0 {
		return nil, ErrNoBatchesSucceeded
	}
	header.SucceededBatches = len(succeeded)

	content := mergeBatchReports(succeeded, header.TotalFiles, s.contentLimit)

	prompt, err := buildSynthesisPrompt(content, header.TotalFiles, s.classification)
	if err != nil {
		s.logger.Warn("failed to build synthesis prompt, using fallback", "error", err)
		return fallbackReport(succeeded, header), nil
	}

	outcome := s.generator.Generate(ctx, model.GenerationRequest{
		Prompt:          prompt,
		MaxOutputTokens: s.maxTokens,
		BackendPriority: s.backends,
	})
	if !outcome.OK() {
		s.logger.Warn("synthesis failed, using fallback",
			"outcome", outcome.Kind,
			"attempts", len(outcome.Attempts),
			"batches", len(succeeded),
		)
		return fallbackReport(succeeded, header), nil
	}

	header.Synthesized = true
	return &model.FinalReport{Header: header, Body: outcome.Text}, nil
}

// mergeBatchReports concatenates batch reports with separator blocks and
// caps the result at limit bytes.
func mergeBatchReports(results []model.BatchResult, totalFiles, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SYNTHESIS OF %d BATCH ANALYSES\n\n", len(results))
	fmt.Fprintf(&sb, "Total Documents Analyzed: %d\n\n", totalFiles)

	for _, r := range results {
		sb.WriteString("\n" + separator + "\n")
		fmt.Fprintf(&sb, "BATCH %d - %d FILES\n", r.BatchIndex, r.FileCount())
		fmt.Fprintf(&sb, "Files: %s\n", strings.Join(r.DocumentNames, ", "))
		sb.WriteString(separator + "\n\n")
		sb.WriteString(r.ReportText)
		sb.WriteString("\n\n")
	}

	content := sb.String()
	if len(content) > limit {
		content = model.TruncateText(content, limit) + truncationMarker
	}
	return content
}

// fallbackReport concatenates batch reports verbatim in batch order.
func fallbackReport(results []model.BatchResult, header model.ReportHeader) *model.FinalReport {
	var sb strings.Builder
	sb.WriteString("# FINANCIAL DUE DILIGENCE REPORT\n\n")
	sb.WriteString("**Note:** Report generated from batch processing\n\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "\n## Batch %d Analysis\n\n", r.BatchIndex)
		sb.WriteString(r.ReportText)
		sb.WriteString("\n\n")
	}

	header.Synthesized = false
	return &model.FinalReport{Header: header, Body: sb.String()}
}
