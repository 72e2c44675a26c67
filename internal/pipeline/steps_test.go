package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/pks0715/seggy/internal/model"
)

func TestExtractStep(t *testing.T) {
	t.Parallel()

	t.Run("records documents and names", func(t *testing.T) {
		t.Parallel()

		docs, names := makeDocs(3)
		step := NewExtractStep(staticExtractor{docs: docs, names: append(names, "notes.txt")}, discardLogger())
		a := model.NewAnalysis([]model.Upload{{Name: "x"}}, model.Classification{})

		if err := step.Do(context.Background(), a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(a.Documents) != 3 || len(a.UploadedNames) != 4 {
			t.Errorf("got %d docs and %d names", len(a.Documents), len(a.UploadedNames))
		}
	})

	t.Run("no documents is ErrNoContent", func(t *testing.T) {
		t.Parallel()

		step := NewExtractStep(staticExtractor{names: []string{"broken.pdf"}}, discardLogger())
		a := model.NewAnalysis(nil, model.Classification{})

		if err := step.Do(context.Background(), a); !errors.Is(err, ErrNoContent) {
			t.Errorf("expected ErrNoContent, got %v", err)
		}
		if len(a.UploadedNames) != 1 {
			t.Error("uploaded names should be kept for the response")
		}
	})
}

func TestBatchStep(t *testing.T) {
	t.Parallel()

	docs, _ := makeDocs(12)
	a := &model.Analysis{Documents: docs}
	if err := NewBatchStep(5).Do(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Batches) != 3 {
		t.Errorf("expected 3 batches, got %d", len(a.Batches))
	}

	if err := NewBatchStep(0).Do(context.Background(), a); err == nil {
		t.Error("expected error for invalid batch size")
	}
	if err := NewBatchStep(5).Do(context.Background(), &model.Analysis{}); !errors.Is(err, ErrNoContent) {
		t.Errorf("expected ErrNoContent for empty input, got %v", err)
	}
}

func TestAnalyzeStepAllFailed(t *testing.T) {
	t.Parallel()

	runner := runnerFunc(func(_ context.Context, b model.Batch) model.BatchResult {
		return model.BatchResult{BatchIndex: b.Index, Err: "down"}
	})
	step := NewAnalyzeStep(NewBatchProcessor(runner, WithBatchLogger(discardLogger())), nil)
	a := &model.Analysis{Batches: splitDocs(t, 4, 2)}

	if err := step.Do(context.Background(), a); !errors.Is(err, ErrAllBatchesFailed) {
		t.Errorf("expected ErrAllBatchesFailed, got %v", err)
	}
	if len(a.Results) != 2 {
		t.Errorf("results should still be recorded, got %d", len(a.Results))
	}
}

func TestPostProcessStep(t *testing.T) {
	t.Parallel()

	withReport := func() *model.Analysis {
		return &model.Analysis{Report: &model.FinalReport{Body: groundedText}}
	}

	t.Run("failure is not fatal", func(t *testing.T) {
		t.Parallel()

		step := NewPostProcessStep(PostProcessorFunc(func(_ context.Context, a *model.Analysis) error {
			a.Charts = "partial"
			return errors.New("chart failed")
		}), discardLogger())

		a := withReport()
		if err := step.Do(context.Background(), a); err != nil {
			t.Fatalf("post-processing failure must be swallowed: %v", err)
		}
		if a.Charts != "" {
			t.Error("charts should be absent after a failure")
		}
	})

	t.Run("panic is not fatal", func(t *testing.T) {
		t.Parallel()

		step := NewPostProcessStep(PostProcessorFunc(func(context.Context, *model.Analysis) error {
			panic("bad regexp")
		}), discardLogger())

		if err := step.Do(context.Background(), withReport()); err != nil {
			t.Fatalf("post-processing panic must be swallowed: %v", err)
		}
	})

	t.Run("nil processor is a no-op", func(t *testing.T) {
		t.Parallel()

		if err := NewPostProcessStep(nil, nil).Do(context.Background(), withReport()); err != nil {
			t.Fatal(err)
		}
	})
}
