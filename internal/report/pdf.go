package report

import (
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/pks0715/seggy/internal/model"
)

// PDF layout in millimetres and points.
const (
	pdfMargin     = 15.0
	pdfLineHeight = 5.0
	pdfBodySize   = 10.0
	pdfFont       = "Helvetica"
)

// headingSizes maps a Markdown heading prefix to its font size.
var headingSizes = []struct {
	prefix string
	size   float64
}{
	{"### ", 11},
	{"## ", 13},
	{"# ", 16},
}

// PDFWriter renders the report text as a printable A4 document.
//
// Design decision: The report body is Markdown produced by a model, so we
// only interpret headings and bullets. Anything else is printed as-is,
// which keeps the PDF faithful to the text returned by the API.
type PDFWriter struct {
	baseWriter
}

// NewPDFWriter creates a PDFWriter that outputs to the given writer.
func NewPDFWriter(output io.Writer) *PDFWriter {
	return &PDFWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report as PDF bytes.
func (w *PDFWriter) Write(a *model.Analysis) (int, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(true, pdfMargin)
	doc.SetTitle("Financial Due Diligence Report", true)
	doc.SetCreator("seggy", true)
	doc.AddPage()

	// Core fonts are cp1252; translate so that curly quotes and the euro
	// sign survive.
	tr := doc.UnicodeTranslatorFromDescriptor("")

	for _, line := range strings.Split(a.ReportText(), "\n") {
		writePDFLine(doc, tr, line)
	}

	if a.Charts != "" {
		doc.AddPage()
		for _, line := range strings.Split(a.Charts, "\n") {
			writePDFLine(doc, tr, line)
		}
	}

	if err := doc.Error(); err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w.output}
	err := doc.Output(cw)
	return cw.n, err
}

// writePDFLine renders one line of Markdown-ish text.
func writePDFLine(doc *fpdf.Fpdf, tr func(string) string, line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		doc.Ln(pdfLineHeight / 2)
		return
	}

	for _, h := range headingSizes {
		if strings.HasPrefix(trimmed, h.prefix) {
			doc.SetFont(pdfFont, "B", h.size)
			doc.MultiCell(0, h.size/2, tr(stripEmphasis(strings.TrimPrefix(trimmed, h.prefix))), "", "L", false)
			doc.Ln(1)
			return
		}
	}

	doc.SetFont(pdfFont, "", pdfBodySize)
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
		trimmed = "• " + trimmed[2:]
	}
	doc.MultiCell(0, pdfLineHeight, tr(stripEmphasis(trimmed)), "", "L", false)
}

// stripEmphasis removes Markdown bold and code markers.
func stripEmphasis(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}

// countingWriter counts bytes passed through to w.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
