package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/pks0715/seggy/internal/model"
)

// TextWriter outputs the plain report for terminal display.
//
// Design decision: We print the report text exactly as synthesized so that
// the terminal output matches the "report" field of the API response.
// Batch details are appended after it, never interleaved.
type TextWriter struct {
	baseWriter

	// verbose adds per-batch details below the report.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables the per-batch section.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *TextWriter) Write(a *model.Analysis) (int, error) {
	var sb strings.Builder

	sb.WriteString(a.ReportText())
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if w.verbose {
		w.writeBatches(&sb, a)
	}
	w.writeFooter(&sb, a)

	return io.WriteString(w.output, sb.String())
}

// writeBatches writes one line per batch with its outcome.
func (w *TextWriter) writeBatches(sb *strings.Builder, a *model.Analysis) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("BATCHES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, r := range a.Results {
		if r.Succeeded {
			fmt.Fprintf(sb, "  [+] batch %d: %d file(s) via %s\n", r.BatchIndex, r.FileCount(), r.Backend)
		} else {
			fmt.Fprintf(sb, "  [!] batch %d: %d file(s) failed: %s\n", r.BatchIndex, r.FileCount(), r.Err)
		}
		fmt.Fprintf(sb, "      %s\n", strings.Join(r.DocumentNames, ", "))
	}
	sb.WriteString("\n")
}

// writeFooter writes the run summary line.
func (w *TextWriter) writeFooter(sb *strings.Builder, a *model.Analysis) {
	meta := a.Metadata()
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Run %s: %d file(s), %d batch(es), %s\n",
		a.RunID, meta.TotalFiles, meta.BatchesProcessed, meta.ProcessingTime)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
