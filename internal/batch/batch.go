// Package batch partitions extracted documents into fixed-size batches.
//
// Design decision: The batch size is a fixed configuration value rather than
// adaptive to content size. Every document is already capped at ingestion,
// so a fixed count bounds the prompt size well enough and keeps the
// partition deterministic.
package batch

import (
	"errors"

	"github.com/pks0715/seggy/internal/model"
)

// ErrInvalidBatchSize is returned when the batch size is not positive.
var ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

// Split partitions docs into consecutive batches of at most size documents.
//
// The partition is deterministic and preserves input order: concatenating
// the returned batches reconstructs docs exactly. Each batch is tagged with
// its 1-based index and the total batch count. Zero documents yield zero
// batches and no error; callers decide what an empty input means.
func Split(docs []model.Document, size int) ([]model.Batch, error) {
	if size <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if len(docs) == 0 {
		return []model.Batch{}, nil
	}

	total := (len(docs) + size - 1) / size
	batches := make([]model.Batch, 0, total)
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))

		// Copy so batches never alias the caller's slice.
		group := make([]model.Document, end-start)
		copy(group, docs[start:end])

		batches = append(batches, model.Batch{
			Index:     len(batches) + 1,
			Total:     total,
			Documents: group,
		})
	}
	return batches, nil
}
