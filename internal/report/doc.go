// Package report turns a finished analysis into output documents.
//
// It contains:
//   - ExtractFinancialSummary: best-effort figures pulled from report text
//   - BuildCharts / RenderCharts: chart data and its Markdown rendering
//   - TextWriter: the plain report for terminals
//   - MarkdownWriter: the report with mermaid charts and tables
//   - JSONWriter: the API response document
//   - PDFWriter: a printable PDF of the report
//
// Design decision: We separate report writing from the analysis data
// structures (which are in the model package) so that new output formats
// can be added without touching the pipeline.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
