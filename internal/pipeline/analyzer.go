package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pks0715/seggy/internal/model"
)

// DefaultBatchMaxTokens is the output budget for one batch analysis.
const DefaultBatchMaxTokens = 2000

// Generator produces text from a prompt using a backend priority list.
// *llm.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req model.GenerationRequest) model.GenerationOutcome
}

// BatchAnalyzer produces the report text for a single batch.
type BatchAnalyzer struct {
	generator      Generator
	backends       []model.Backend
	maxTokens      int
	classification model.Classification
	logger         *slog.Logger
}

// BatchAnalyzerOption configures a BatchAnalyzer.
type BatchAnalyzerOption func(*BatchAnalyzer)

// WithBatchMaxTokens sets the output budget per batch.
func WithBatchMaxTokens(n int) BatchAnalyzerOption {
	return func(a *BatchAnalyzer) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithClassification sets the engagement fields quoted in the prompt.
func WithClassification(c model.Classification) BatchAnalyzerOption {
	return func(a *BatchAnalyzer) {
		a.classification = c.WithDefaults()
	}
}

// WithAnalyzerLogger sets a custom logger for the analyzer.
func WithAnalyzerLogger(logger *slog.Logger) BatchAnalyzerOption {
	return func(a *BatchAnalyzer) {
		a.logger = logger
	}
}

// NewBatchAnalyzer creates an analyzer that calls generator with the given
// batch-tier backends.
func NewBatchAnalyzer(generator Generator, backends []model.Backend, opts ...BatchAnalyzerOption) *BatchAnalyzer {
	a := &BatchAnalyzer{
		generator:      generator,
		backends:       backends,
		maxTokens:      DefaultBatchMaxTokens,
		classification: model.Classification{}.WithDefaults(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// AnalyzeBatch analyzes one batch. It never returns an error: any failure,
// including a panic in the generator, yields a result with Succeeded false.
func (a *BatchAnalyzer) AnalyzeBatch(ctx context.Context, b model.Batch) (result model.BatchResult) {
	result = model.BatchResult{
		BatchIndex:    b.Index,
		DocumentNames: b.DocumentNames(),
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("batch analysis panicked", "batch", b.Index, "panic", r)
			result.Succeeded = false
			result.ReportText = ""
			result.Err = fmt.Sprintf("internal error: %v", r)
		}
	}()

	prompt, err := buildBatchPrompt(b, a.classification)
	if err != nil {
		a.logger.Warn("failed to build batch prompt", "batch", b.Index, "error", err)
		result.Err = err.Error()
		return result
	}

	outcome := a.generator.Generate(ctx, model.GenerationRequest{
		Prompt:          prompt,
		MaxOutputTokens: a.maxTokens,
		BackendPriority: a.backends,
	})
	if !outcome.OK() {
		a.logger.Warn("batch analysis failed",
			"batch", b.Index,
			"total", b.Total,
			"files", b.Len(),
			"outcome", outcome.Kind,
			"attempts", len(outcome.Attempts),
		)
		result.Err = outcome.Err().Error()
		return result
	}

	result.Succeeded = true
	result.ReportText = outcome.Text
	result.Backend = outcome.Backend
	return result
}
