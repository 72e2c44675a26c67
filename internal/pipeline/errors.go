package pipeline

import "errors"

// Request-fatal analysis errors.
var (
	// ErrNoContent is returned when no uploaded file yielded text. It is
	// raised before any generation call is made.
	ErrNoContent = errors.New("no content could be extracted from the uploaded files")

	// ErrAllBatchesFailed is returned when every batch failed analysis.
	ErrAllBatchesFailed = errors.New("all batches failed analysis")
)

// ErrNoBatchesSucceeded is returned by Synthesize when given no successful
// batch results. The pipeline never reaches it because AnalyzeStep stops
// first with ErrAllBatchesFailed.
var ErrNoBatchesSucceeded = errors.New("no successful batch results to synthesize")
