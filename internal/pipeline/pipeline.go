package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pks0715/seggy/internal/model"
)

// Step is one stage of an analysis. It reads what earlier stages left on
// the Analysis and adds its own part.
//
// A returned error is fatal for the request. Steps that can degrade
// (a skipped file, a failed batch, a missing chart) log the problem and
// return nil.
type Step interface {
	Do(ctx context.Context, analysis *model.Analysis) error
	Name() string
}

// Pipeline runs a fixed list of steps over one Analysis.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline that runs steps in the given order.
func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{steps: append([]Step(nil), steps...)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Execute runs the steps until one fails or ctx is done.
// Every step that was started is recorded in analysis.PerformedSteps.
func (p *Pipeline) Execute(ctx context.Context, analysis *model.Analysis) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("analysis cancelled before step",
				"step", step.Name(),
				"run_id", analysis.RunID,
				"reason", err,
			)
			return err
		}

		start := time.Now()
		err := step.Do(ctx, analysis)
		analysis.PerformedSteps = append(analysis.PerformedSteps, step.Name())

		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"run_id", analysis.RunID,
				"error", err,
			)
			return err
		}
		p.logger.Debug("step done",
			"step", step.Name(),
			"run_id", analysis.RunID,
			"elapsed", time.Since(start),
		)
	}
	return nil
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
