package batch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pks0715/seggy/internal/model"
)

// makeDocs creates n documents with distinct names.
func makeDocs(n int) []model.Document {
	docs := make([]model.Document, n)
	for i := range docs {
		docs[i] = model.Document{
			Name: fmt.Sprintf("doc-%02d.pdf", i+1),
			Text: fmt.Sprintf("Revenue 2023 $%d M", i+1),
		}
	}
	return docs
}

// TestSplitPartition checks the partition property for a grid of document
// counts and batch sizes: ceil(L/B) batches, all of size B except possibly
// the last, and concatenation reconstructs the input.
func TestSplitPartition(t *testing.T) {
	t.Parallel()

	for l := 0; l <= 23; l++ {
		for b := 1; b <= 7; b++ {
			t.Run(fmt.Sprintf("L=%d/B=%d", l, b), func(t *testing.T) {
				t.Parallel()

				docs := makeDocs(l)
				batches, err := Split(docs, b)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				wantCount := (l + b - 1) / b
				if len(batches) != wantCount {
					t.Fatalf("expected %d batches, got %d", wantCount, len(batches))
				}

				var rebuilt []model.Document
				for i, bt := range batches {
					if bt.Index != i+1 {
						t.Errorf("batch %d has index %d", i, bt.Index)
					}
					if bt.Total != wantCount {
						t.Errorf("batch %d has total %d, want %d", i, bt.Total, wantCount)
					}
					if i < len(batches)-1 && bt.Len() != b {
						t.Errorf("non-final batch %d has size %d, want %d", i+1, bt.Len(), b)
					}
					if bt.Len() == 0 || bt.Len() > b {
						t.Errorf("batch %d has invalid size %d", i+1, bt.Len())
					}
					rebuilt = append(rebuilt, bt.Documents...)
				}

				if len(rebuilt) != len(docs) {
					t.Fatalf("rebuilt %d documents, want %d", len(rebuilt), len(docs))
				}
				for i := range docs {
					if rebuilt[i] != docs[i] {
						t.Errorf("document %d mismatch: got %v, want %v", i, rebuilt[i], docs[i])
					}
				}
			})
		}
	}
}

// TestSplitTwelveByFive covers the 12-document, batch-size-5 layout.
func TestSplitTwelveByFive(t *testing.T) {
	t.Parallel()

	batches, err := Split(makeDocs(12), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sizes := []int{5, 5, 2}
	if len(batches) != len(sizes) {
		t.Fatalf("expected %d batches, got %d", len(sizes), len(batches))
	}
	for i, want := range sizes {
		if batches[i].Len() != want {
			t.Errorf("batch %d: expected size %d, got %d", i+1, want, batches[i].Len())
		}
	}
	if names := batches[2].DocumentNames(); names[0] != "doc-11.pdf" || names[1] != "doc-12.pdf" {
		t.Errorf("unexpected names in last batch: %v", names)
	}
}

// TestSplitDeterministic checks that identical inputs give identical output.
func TestSplitDeterministic(t *testing.T) {
	t.Parallel()

	docs := makeDocs(9)
	first, err := Split(docs, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Split(docs, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first {
		a, b := first[i].DocumentNames(), second[i].DocumentNames()
		if fmt.Sprint(a) != fmt.Sprint(b) {
			t.Errorf("batch %d differs: %v vs %v", i+1, a, b)
		}
	}
}

// TestSplitDoesNotAlias checks that batches do not share memory with the input.
func TestSplitDoesNotAlias(t *testing.T) {
	t.Parallel()

	docs := makeDocs(3)
	batches, err := Split(docs, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	docs[0].Name = "mutated.pdf"
	if batches[0].Documents[0].Name == "mutated.pdf" {
		t.Error("batch aliases the input slice")
	}
}

// TestSplitInvalidSize checks that non-positive sizes are rejected.
func TestSplitInvalidSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		if _, err := Split(makeDocs(3), size); !errors.Is(err, ErrInvalidBatchSize) {
			t.Errorf("size %d: expected ErrInvalidBatchSize, got %v", size, err)
		}
	}
}

// TestSplitEmpty checks that no documents yield no batches.
func TestSplitEmpty(t *testing.T) {
	t.Parallel()

	batches, err := Split(nil, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 0 {
		t.Errorf("expected 0 batches, got %d", len(batches))
	}
}
