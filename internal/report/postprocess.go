package report

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pks0715/seggy/internal/model"
)

// ErrNoReport is returned when post-processing runs before synthesis.
var ErrNoReport = errors.New("no final report to post-process")

// ChartPostProcessor fills in the financial summary and the chart section
// of an analysis from its final report text.
type ChartPostProcessor struct {
	logger *slog.Logger
}

// NewChartPostProcessor creates a ChartPostProcessor. A nil logger uses
// slog.Default().
func NewChartPostProcessor(logger *slog.Logger) *ChartPostProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartPostProcessor{logger: logger}
}

// PostProcess sets a.Summary and a.Charts.
func (p *ChartPostProcessor) PostProcess(ctx context.Context, a *model.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.Report == nil {
		return ErrNoReport
	}

	a.Summary = ExtractFinancialSummary(a.Report.Body)
	a.Charts = RenderCharts(BuildCharts(a.Summary))

	p.logger.Debug("charts rendered",
		"run_id", a.RunID,
		"years", len(a.Summary.Years),
		"margins", len(a.Summary.Margins),
		"ebitda", len(a.Summary.EBITDA),
	)
	return nil
}
