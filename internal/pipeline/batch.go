package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pks0715/seggy/internal/model"
)

// DefaultConcurrency is the number of batches analyzed at once.
// One keeps the request rate to free-tier gateways low and makes runs
// reproducible; raise it for paid backends.
const DefaultConcurrency = 1

// BatchRunner analyzes a single batch. *BatchAnalyzer implements it.
type BatchRunner interface {
	AnalyzeBatch(ctx context.Context, b model.Batch) model.BatchResult
}

// BatchProcessor analyzes many batches with bounded concurrency.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because each batch is an independent call chain and errgroup already
// bounds the goroutines. Results are written into a slice pre-allocated by
// batch position, so completion order never changes report order.
type BatchProcessor struct {
	runner      BatchRunner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of batches analyzed at once.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor around runner.
func NewBatchProcessor(runner BatchRunner, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		runner:      runner,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatches analyzes every batch and returns one result per batch,
// in batch order. A failed batch is a result with Succeeded false, never an
// error; the returned error is only set when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatches(ctx context.Context, batches []model.Batch) ([]model.BatchResult, error) {
	return bp.ProcessBatchesWithCallback(ctx, batches, nil)
}

// ProcessBatchesWithCallback is ProcessBatches with a callback invoked as
// each batch completes. The callback runs on the worker goroutine and must
// be safe for concurrent use when concurrency is above one.
func (bp *BatchProcessor) ProcessBatchesWithCallback(
	ctx context.Context,
	batches []model.Batch,
	callback func(result model.BatchResult, index int),
) ([]model.BatchResult, error) {
	bp.logger.Info("starting batch processing",
		"total_batches", len(batches),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	// Slots for batches that never start stay failed.
	results := make([]model.BatchResult, len(batches))
	for i, b := range batches {
		results[i] = model.BatchResult{
			BatchIndex:    b.Index,
			DocumentNames: b.DocumentNames(),
			Err:           "not processed",
		}
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, b := range batches {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("analyzing batch",
				"batch", b.Index,
				"total", b.Total,
				"files", b.Len(),
			)

			result := bp.runner.AnalyzeBatch(ctx, b)

			mu.Lock()
			results[i] = result
			mu.Unlock()

			if callback != nil {
				callback(result, i)
			}

			if !result.Succeeded {
				bp.logger.Warn("batch failed", "batch", b.Index, "error", result.Err)
				return nil
			}
			bp.logger.Info("batch completed", "batch", b.Index, "backend", result.Backend)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_batches", len(batches),
		"succeeded", len(model.SucceededResults(results)),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
