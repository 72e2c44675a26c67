// Package model defines the core data structures used throughout seggy.
//
// This package contains the following main types:
//   - Upload: A raw file blob received from the caller
//   - Document: Extracted text of a single financial document
//   - Batch: A bounded, ordered group of documents analyzed together
//   - BatchResult: The outcome of analyzing one batch
//   - GenerationRequest / GenerationOutcome: The contract of the generation client
//   - FinalReport: The synthesized report with its metadata header
//   - Analysis: The request-scoped state carried through the pipeline
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The extractor, batcher, generation client, pipeline and report
// writers all exchange these types, so centralizing them prevents import cycles.
//
// Every type here is request-scoped. Nothing in this package holds
// process-wide state.
package model
