package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pks0715/seggy/internal/model"
)

// JSONWriter writes the Response document that the HTTP API returns.
// HTML escaping is off so that report text such as "M&A" stays readable
// in files and terminals.
type JSONWriter struct {
	baseWriter
	pretty bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents the output by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.pretty = true
	}
}

// NewJSONWriter creates a JSONWriter. Output is compact unless
// WithPrettyPrint is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write encodes NewResponse(a) followed by a newline.
func (w *JSONWriter) Write(a *model.Analysis) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(NewResponse(a)); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// Response is the document returned for a successful analysis.
//
// Design decision: We build a dedicated response type rather than
// serializing model.Analysis because the analysis carries request-scoped
// data (uploads, extracted text) that must never leave the process.
type Response struct {
	// Report is the full report text, header included.
	Report string `json:"report"`

	// Charts is the Markdown chart section. Empty when post-processing failed.
	Charts string `json:"charts"`

	UploadedFiles    []string `json:"uploaded_files"`
	TotalFiles       int      `json:"total_files"`
	BatchesProcessed int      `json:"batches_processed"`
	ProcessingTime   string   `json:"processing_time"`

	// RunID identifies the run in logs and in the history store.
	RunID string `json:"run_id"`
}

// NewResponse builds the response document for a.
func NewResponse(a *model.Analysis) *Response {
	meta := a.Metadata()
	return &Response{
		Report:           a.ReportText(),
		Charts:           a.Charts,
		UploadedFiles:    meta.UploadedFiles,
		TotalFiles:       meta.TotalFiles,
		BatchesProcessed: meta.BatchesProcessed,
		ProcessingTime:   meta.ProcessingTime,
		RunID:            a.RunID,
	}
}
