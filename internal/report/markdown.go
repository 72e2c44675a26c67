package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/pks0715/seggy/internal/model"
)

// MarkdownWriter outputs the report in Markdown format with mermaid charts.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Mermaid pie and quadrant chart builders
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the analysis in Markdown format.
func (w *MarkdownWriter) Write(a *model.Analysis) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, a)
	w.writeAlert(md, a)
	w.writeBody(md, a)
	writeCharts(md, chartsFor(a))
	w.writeBatches(md, a)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the run metadata table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, a *model.Analysis) {
	md.H1("Financial Due Diligence Report")
	md.PlainText("")

	meta := a.Metadata()
	synthesis := "-"
	if a.Report != nil {
		synthesis = a.Report.Header.SynthesisMode()
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + a.RunID + "`"},
			{"Date", a.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Engagement", a.Classification.DDType},
			{"Focus", a.Classification.ReportFocus},
			{"Checklist", a.Classification.ChecklistType},
			{"Files", strconv.Itoa(meta.TotalFiles)},
			{"Batches", strconv.Itoa(meta.BatchesProcessed)},
			{"Synthesis", synthesis},
			{"Processing Time", meta.ProcessingTime},
		},
	})
	md.PlainText("")
}

// writeAlert flags partial or degraded runs.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, a *model.Analysis) {
	failed := len(a.Results) - a.SucceededBatches()
	switch {
	case failed > 0:
		md.Warningf("%d of %d batch(es) failed and are not covered by this report.", failed, len(a.Results))
	case a.Report != nil && !a.Report.Header.Synthesized:
		md.Importantf("Synthesis was unavailable. The report concatenates %d batch analyses.", len(a.Results))
	default:
		md.Tip("All batches were analyzed and synthesized.")
	}
	md.PlainText("")
}

// writeBody writes the report body. The body is already Markdown.
func (w *MarkdownWriter) writeBody(md *markdown.Markdown, a *model.Analysis) {
	if a.Report == nil {
		md.PlainText("No report was produced.")
		md.PlainText("")
		return
	}
	md.PlainText(strings.TrimSpace(a.Report.Body))
	md.PlainText("")
}

// writeBatches writes the per-batch table.
func (w *MarkdownWriter) writeBatches(md *markdown.Markdown, a *model.Analysis) {
	md.H2("Batches")
	md.PlainText("")

	if len(a.Results) == 0 {
		md.PlainText("No batches were processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(a.Results))
	for i, r := range a.Results {
		status := "✅ " + r.Backend
		if !r.Succeeded {
			status = "❌ " + r.Err
		}
		rows[i] = []string{
			strconv.Itoa(r.BatchIndex),
			strconv.Itoa(r.FileCount()),
			truncateString(strings.Join(r.DocumentNames, ", "), 60),
			status,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Batch", "Files", "Documents", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [seggy](https://github.com/pks0715/seggy)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
