package report

import (
	"io"

	"github.com/pks0715/seggy/internal/model"
)

// Writer defines the interface for report output.
// Implementations write a finished analysis in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or HTTP
// responses with the same API.
type Writer interface {
	// Write outputs the analysis to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(a *model.Analysis) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the analysis to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(a *model.Analysis) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(a)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// chartsFor returns the chart data of a, extracting the summary from the
// report text when no post-processor filled it in.
func chartsFor(a *model.Analysis) Charts {
	summary := a.Summary
	if summary.IsEmpty() {
		summary = ExtractFinancialSummary(a.ReportText())
	}
	return BuildCharts(summary)
}
