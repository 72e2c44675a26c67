package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/pks0715/seggy/internal/model"
)

// recordingStep appends its name to a shared log when run.
type recordingStep struct {
	name  string
	log   *[]string
	err   error
	after func()
}

func (s *recordingStep) Do(context.Context, *model.Analysis) error {
	*s.log = append(*s.log, s.name)
	if s.after != nil {
		s.after()
	}
	return s.err
}

func (s *recordingStep) Name() string {
	return s.name
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	errFatal := errors.New("no content")

	tests := []struct {
		name      string
		failAt    string
		wantRun   []string
		wantError error
	}{
		{
			name:    "runs every step in order",
			wantRun: []string{"extract", "batch", "analyze"},
		},
		{
			name:      "stops at the first failing step",
			failAt:    "batch",
			wantRun:   []string{"extract", "batch"},
			wantError: errFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ran []string
			steps := make([]Step, 0, 3)
			for _, name := range []string{"extract", "batch", "analyze"} {
				s := &recordingStep{name: name, log: &ran}
				if name == tt.failAt {
					s.err = errFatal
				}
				steps = append(steps, s)
			}

			analysis := model.NewAnalysis(nil, model.Classification{})
			err := New(steps, WithLogger(discardLogger())).Execute(context.Background(), analysis)

			if !errors.Is(err, tt.wantError) {
				t.Fatalf("expected error %v, got %v", tt.wantError, err)
			}
			if len(ran) != len(tt.wantRun) {
				t.Fatalf("expected steps %v, ran %v", tt.wantRun, ran)
			}
			for i := range ran {
				if ran[i] != tt.wantRun[i] {
					t.Errorf("step %d: expected %s, got %s", i, tt.wantRun[i], ran[i])
				}
			}
			if len(analysis.PerformedSteps) != len(tt.wantRun) {
				t.Errorf("expected performed steps %v, got %v", tt.wantRun, analysis.PerformedSteps)
			}
		})
	}
}

func TestPipelineCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ran []string
	p := New([]Step{
		&recordingStep{name: "extract", log: &ran, after: cancel},
		&recordingStep{name: "batch", log: &ran},
	}, WithLogger(discardLogger()))

	err := p.Execute(ctx, model.NewAnalysis(nil, model.Classification{}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(ran) != 1 {
		t.Errorf("expected only the first step to run, got %v", ran)
	}
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	if names := New(nil).StepNames(); len(names) != 0 {
		t.Errorf("expected no names, got %v", names)
	}

	var ran []string
	steps := []Step{&recordingStep{name: "a", log: &ran}, &recordingStep{name: "b", log: &ran}}
	p := New(steps)
	steps[0] = &recordingStep{name: "replaced", log: &ran}

	names := p.StepNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected names %v", names)
	}
}
