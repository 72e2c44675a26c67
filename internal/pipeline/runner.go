package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pks0715/seggy/internal/model"
)

// DefaultBatchSize is the number of documents analyzed per batch.
const DefaultBatchSize = 5

// Tiers holds the backend priority lists for each kind of call.
type Tiers struct {
	// Batch is used for per-batch analysis.
	Batch []model.Backend

	// Synthesis is used for the final report. When empty, Batch is used.
	Synthesis []model.Backend
}

// synthesis returns the synthesis tier, falling back to the batch tier.
func (t Tiers) synthesis() []model.Backend {
	if len(t.Synthesis) > 0 {
		return t.Synthesis
	}
	return t.Batch
}

// Limits are the token and size budgets of an analysis.
type Limits struct {
	BatchSize             int
	Concurrency           int
	BatchMaxTokens        int
	SynthesisMaxTokens    int
	SynthesisContentLimit int
}

// withDefaults returns a copy of l with zero fields filled in.
func (l Limits) withDefaults() Limits {
	if l.BatchSize <= 0 {
		l.BatchSize = DefaultBatchSize
	}
	if l.Concurrency <= 0 {
		l.Concurrency = DefaultConcurrency
	}
	if l.BatchMaxTokens <= 0 {
		l.BatchMaxTokens = DefaultBatchMaxTokens
	}
	if l.SynthesisMaxTokens <= 0 {
		l.SynthesisMaxTokens = DefaultSynthesisMaxTokens
	}
	if l.SynthesisContentLimit <= 0 {
		l.SynthesisContentLimit = DefaultSynthesisContentLimit
	}
	return l
}

// AnalyzeRequest is one analysis request.
type AnalyzeRequest struct {
	Uploads        []model.Upload
	Classification model.Classification

	// OnBatch, when set, is called as each batch completes.
	OnBatch func(result model.BatchResult, index int)
}

// Runner wires the pipeline steps for each request.
// A Runner holds only read-only collaborators and is safe for concurrent use.
type Runner struct {
	extractor DocumentExtractor
	generator Generator
	post      PostProcessor
	tiers     Tiers
	limits    Limits
	logger    *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a custom logger for the runner and its steps.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithLimits sets the analysis budgets.
func WithLimits(l Limits) RunnerOption {
	return func(r *Runner) {
		r.limits = l.withDefaults()
	}
}

// WithPostProcessor sets the chart post-processor.
func WithPostProcessor(p PostProcessor) RunnerOption {
	return func(r *Runner) {
		r.post = p
	}
}

// NewRunner creates a Runner.
func NewRunner(extractor DocumentExtractor, generator Generator, tiers Tiers, opts ...RunnerOption) *Runner {
	r := &Runner{
		extractor: extractor,
		generator: generator,
		tiers:     tiers,
		limits:    Limits{}.withDefaults(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Limits returns the effective budgets.
func (r *Runner) Limits() Limits {
	return r.limits
}

// Analyze runs a full analysis: extract, batch, analyze, synthesize and
// post-process. The returned Analysis is non-nil even on error and holds
// whatever the completed steps produced.
func (r *Runner) Analyze(ctx context.Context, req AnalyzeRequest) (*model.Analysis, error) {
	analysis := model.NewAnalysis(req.Uploads, req.Classification)
	logger := r.logger.With("run_id", analysis.RunID)

	analyzer := NewBatchAnalyzer(r.generator, r.tiers.Batch,
		WithBatchMaxTokens(r.limits.BatchMaxTokens),
		WithClassification(analysis.Classification),
		WithAnalyzerLogger(logger),
	)
	processor := NewBatchProcessor(analyzer,
		WithConcurrency(r.limits.Concurrency),
		WithBatchLogger(logger),
	)
	synthesizer := NewSynthesizer(r.generator, r.tiers.synthesis(),
		WithSynthesisMaxTokens(r.limits.SynthesisMaxTokens),
		WithSynthesisContentLimit(r.limits.SynthesisContentLimit),
		WithSynthesisClassification(analysis.Classification),
		WithSynthesizerLogger(logger),
	)

	p := New([]Step{
		NewExtractStep(r.extractor, logger),
		NewBatchStep(r.limits.BatchSize),
		NewAnalyzeStep(processor, req.OnBatch),
		NewSynthesizeStep(synthesizer, r.limits.BatchSize),
		NewPostProcessStep(r.post, logger),
	}, WithLogger(logger))

	err := p.Execute(ctx, analysis)
	analysis.Elapsed = time.Since(analysis.StartedAt)

	if err != nil {
		logger.Warn("analysis failed", "error", err, "elapsed", analysis.Elapsed)
		return analysis, err
	}
	logger.Info("analysis complete",
		"files", len(analysis.UploadedNames),
		"batches", len(analysis.Batches),
		"succeeded", analysis.SucceededBatches(),
		"synthesis", analysis.Report.Header.SynthesisMode(),
		"elapsed", analysis.Elapsed,
	)
	return analysis, nil
}
