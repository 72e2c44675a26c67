// Package pipeline runs a due-diligence analysis from uploaded files to a
// final report.
//
// An analysis flows through five steps, each operating on a shared
// *model.Analysis: extract, batch, analyze_batches, synthesize and
// post_process. Batches are analyzed by a BatchProcessor with bounded
// concurrency; their reports are then merged by the Synthesizer, which
// falls back to a deterministic concatenation when synthesis fails.
//
// Design decision: We keep the step pattern even though the order is fixed
// because:
// 1. Each stage can be tested with a hand-built Analysis
// 2. Cancellation and step logging are handled once, in Execute
// 3. The CLI and HTTP server share the same Runner without duplicating flow
//
// Only two errors end a request: ErrNoContent and ErrAllBatchesFailed.
// Everything else degrades (a failed file is skipped, a failed batch is
// dropped, a failed synthesis falls back, a failed post-process leaves the
// charts empty).
package pipeline
