package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pks0715/seggy/internal/batch"
	"github.com/pks0715/seggy/internal/model"
)

// DocumentExtractor turns uploads into documents. *extract.Extractor implements it.
type DocumentExtractor interface {
	Extract(ctx context.Context, uploads []model.Upload) ([]model.Document, []string)
}

// PostProcessor derives charts and summaries from a finished report.
type PostProcessor interface {
	PostProcess(ctx context.Context, analysis *model.Analysis) error
}

// PostProcessorFunc adapts a function to the PostProcessor interface.
type PostProcessorFunc func(ctx context.Context, analysis *model.Analysis) error

// PostProcess implements PostProcessor.
func (f PostProcessorFunc) PostProcess(ctx context.Context, analysis *model.Analysis) error {
	return f(ctx, analysis)
}

// ExtractStep reads the uploads into documents.
type ExtractStep struct {
	extractor DocumentExtractor
	logger    *slog.Logger
}

// NewExtractStep creates an extraction step.
func NewExtractStep(extractor DocumentExtractor, logger *slog.Logger) *ExtractStep {
	return &ExtractStep{extractor: extractor, logger: loggerOrDefault(logger)}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do extracts documents and fails with ErrNoContent when none yield text.
func (s *ExtractStep) Do(ctx context.Context, analysis *model.Analysis) error {
	docs, names := s.extractor.Extract(ctx, analysis.Uploads)
	analysis.Documents = docs
	analysis.UploadedNames = names

	s.logger.Info("documents extracted",
		"uploads", len(analysis.Uploads),
		"files", len(names),
		"documents", len(docs),
	)

	if len(docs) == 0 {
		return ErrNoContent
	}
	return nil
}

// BatchStep partitions the documents into batches.
type BatchStep struct {
	size int
}

// NewBatchStep creates a batching step with the given batch size.
func NewBatchStep(size int) *BatchStep {
	return &BatchStep{size: size}
}

// Name returns the step name.
func (s *BatchStep) Name() string {
	return "batch"
}

// Do splits analysis.Documents.
func (s *BatchStep) Do(_ context.Context, analysis *model.Analysis) error {
	batches, err := batch.Split(analysis.Documents, s.size)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return ErrNoContent
	}
	analysis.Batches = batches
	return nil
}

// AnalyzeStep runs the batch analyses.
type AnalyzeStep struct {
	processor *BatchProcessor
	onBatch   func(result model.BatchResult, index int)
}

// NewAnalyzeStep creates a batch analysis step. onBatch may be nil.
func NewAnalyzeStep(processor *BatchProcessor, onBatch func(result model.BatchResult, index int)) *AnalyzeStep {
	return &AnalyzeStep{processor: processor, onBatch: onBatch}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze_batches"
}

// Do analyzes every batch and fails with ErrAllBatchesFailed when none succeed.
func (s *AnalyzeStep) Do(ctx context.Context, analysis *model.Analysis) error {
	results, err := s.processor.ProcessBatchesWithCallback(ctx, analysis.Batches, s.onBatch)
	analysis.Results = results
	if err != nil {
		return err
	}
	if analysis.SucceededBatches() == 0 {
		return ErrAllBatchesFailed
	}
	return nil
}

// SynthesizeStep merges the batch reports into the final report.
type SynthesizeStep struct {
	synthesizer *Synthesizer
	batchSize   int
}

// NewSynthesizeStep creates a synthesis step. batchSize is reported in the header.
func NewSynthesizeStep(synthesizer *Synthesizer, batchSize int) *SynthesizeStep {
	return &SynthesizeStep{synthesizer: synthesizer, batchSize: batchSize}
}

// Name returns the step name.
func (s *SynthesizeStep) Name() string {
	return "synthesize"
}

// Do builds analysis.Report.
func (s *SynthesizeStep) Do(ctx context.Context, analysis *model.Analysis) error {
	header := model.ReportHeader{
		TotalFiles:    len(analysis.UploadedNames),
		BatchCount:    len(analysis.Batches),
		BatchSize:     s.batchSize,
		ReportType:    analysis.Classification.DDType,
		ReportFocus:   analysis.Classification.ReportFocus,
		ChecklistType: analysis.Classification.ChecklistType,
	}

	report, err := s.synthesizer.Synthesize(ctx, analysis.Results, header)
	if errors.Is(err, ErrNoBatchesSucceeded) {
		return ErrAllBatchesFailed
	}
	if err != nil {
		return err
	}
	analysis.Report = report
	return nil
}

// PostProcessStep derives charts from the report. It never fails the analysis.
type PostProcessStep struct {
	processor PostProcessor
	logger    *slog.Logger
}

// NewPostProcessStep creates a post-processing step. A nil processor makes
// the step a no-op.
func NewPostProcessStep(processor PostProcessor, logger *slog.Logger) *PostProcessStep {
	return &PostProcessStep{processor: processor, logger: loggerOrDefault(logger)}
}

// Name returns the step name.
func (s *PostProcessStep) Name() string {
	return "post_process"
}

// Do runs the post-processor, logging and swallowing any failure.
func (s *PostProcessStep) Do(ctx context.Context, analysis *model.Analysis) (err error) {
	if s.processor == nil || analysis.Report == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("post-processing panicked", "run_id", analysis.RunID, "panic", r)
			analysis.Charts = ""
			err = nil
		}
	}()

	if perr := s.processor.PostProcess(ctx, analysis); perr != nil {
		s.logger.Warn("post-processing failed", "run_id", analysis.RunID, "error", perr)
		analysis.Charts = ""
	}
	return nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
