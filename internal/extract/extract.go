package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/pks0715/seggy/internal/model"
)

// Default extraction limits.
const (
	// DefaultMaxPagesPerDocument is the number of leading pages read from each PDF.
	// Financial statements and summaries sit at the front of filings.
	DefaultMaxPagesPerDocument = 10

	// DefaultMaxExtractBytes stops page reading once this much text has accumulated.
	DefaultMaxExtractBytes = 25000

	// DefaultMaxContentPerFile caps the text stored per document.
	DefaultMaxContentPerFile = 15000

	// DefaultMaxArchiveEntryBytes skips ZIP entries whose uncompressed size
	// exceeds this bound.
	DefaultMaxArchiveEntryBytes = 50 << 20
)

// Extraction errors. They are logged per file and never returned by Extract.
var (
	// ErrEmptyFilename is reported for uploads without a name.
	ErrEmptyFilename = errors.New("upload has an empty filename")

	// ErrNoText is reported when a PDF parses but yields no text.
	ErrNoText = errors.New("no extractable text")

	// ErrEntryTooLarge is reported for oversized archive entries.
	ErrEntryTooLarge = errors.New("archive entry exceeds size limit")

	// ErrParserPanic is reported when the PDF parser panics on malformed input.
	ErrParserPanic = errors.New("pdf parser panicked")
)

// Options holds the extraction limits. Zero fields take their defaults.
type Options struct {
	MaxPagesPerDocument  int
	MaxExtractBytes      int
	MaxContentPerFile    int
	MaxArchiveEntryBytes int64
}

// withDefaults returns a copy of o with zero fields filled in.
func (o Options) withDefaults() Options {
	if o.MaxPagesPerDocument <= 0 {
		o.MaxPagesPerDocument = DefaultMaxPagesPerDocument
	}
	if o.MaxExtractBytes <= 0 {
		o.MaxExtractBytes = DefaultMaxExtractBytes
	}
	if o.MaxContentPerFile <= 0 {
		o.MaxContentPerFile = DefaultMaxContentPerFile
	}
	if o.MaxArchiveEntryBytes <= 0 {
		o.MaxArchiveEntryBytes = DefaultMaxArchiveEntryBytes
	}
	return o
}

// Extractor converts uploads into documents.
// An Extractor holds no per-request state and is safe for concurrent use.
type Extractor struct {
	opts   Options
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger for the extractor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithOptions sets the extraction limits.
func WithOptions(opts Options) Option {
	return func(e *Extractor) {
		e.opts = opts.withDefaults()
	}
}

// New creates an Extractor with default limits.
func New(opts ...Option) *Extractor {
	e := &Extractor{opts: Options{}.withDefaults()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Limits returns the effective extraction limits.
func (e *Extractor) Limits() Options {
	return e.opts
}

// Extract reads every upload and returns the documents that yielded text,
// in upload order, together with the list of uploaded file names.
//
// ZIP uploads contribute one name per contained PDF (base name only); other
// entries are ignored entirely. Any other upload contributes its own name
// whether or not text could be extracted from it.
//
// Extract stops early, returning what it has, when ctx is cancelled.
func (e *Extractor) Extract(ctx context.Context, uploads []model.Upload) ([]model.Document, []string) {
	docs := make([]model.Document, 0, len(uploads))
	names := make([]string, 0, len(uploads))

	for _, up := range uploads {
		if ctx.Err() != nil {
			e.logger.Debug("extraction cancelled", "remaining", len(uploads)-len(names))
			break
		}

		if strings.TrimSpace(up.Name) == "" {
			e.logger.Debug("skipping upload", "error", ErrEmptyFilename)
			continue
		}

		if hasExt(up.Name, ".zip") {
			d, n := e.extractArchive(ctx, up)
			docs = append(docs, d...)
			names = append(names, n...)
			continue
		}

		names = append(names, up.Name)
		text, err := e.pdfText(up.Data)
		if err != nil {
			e.logger.Debug("skipping file", "file", up.Name, "error", err)
			continue
		}
		docs = append(docs, model.Document{Name: up.Name, Text: text})
	}

	e.logger.Debug("extraction complete", "uploads", len(uploads), "documents", len(docs))
	return docs, names
}

// extractArchive expands a ZIP upload into its PDF documents.
func (e *Extractor) extractArchive(ctx context.Context, up model.Upload) ([]model.Document, []string) {
	zr, err := zip.NewReader(bytes.NewReader(up.Data), int64(len(up.Data)))
	if err != nil {
		e.logger.Debug("skipping archive", "file", up.Name, "error", err)
		return nil, nil
	}

	var docs []model.Document
	var names []string
	for _, f := range zr.File {
		if ctx.Err() != nil {
			break
		}
		if f.FileInfo().IsDir() || !hasExt(f.Name, ".pdf") {
			continue
		}

		name := path.Base(strings.ReplaceAll(f.Name, `\`, "/"))
		names = append(names, name)

		data, err := e.readEntry(f)
		if err != nil {
			e.logger.Debug("skipping archive entry", "archive", up.Name, "file", name, "error", err)
			continue
		}
		text, err := e.pdfText(data)
		if err != nil {
			e.logger.Debug("skipping archive entry", "archive", up.Name, "file", name, "error", err)
			continue
		}
		docs = append(docs, model.Document{Name: name, Text: text})
	}
	return docs, names
}

// readEntry reads one archive entry, refusing entries over the size limit.
// The declared size is checked first and the read is capped as well, since
// headers can lie.
func (e *Extractor) readEntry(f *zip.File) ([]byte, error) {
	limit := e.opts.MaxArchiveEntryBytes
	if f.UncompressedSize64 > uint64(limit) {
		return nil, ErrEntryTooLarge
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrEntryTooLarge
	}
	return data, nil
}

// pdfText extracts normalized text from the leading pages of a PDF.
func (e *Extractor) pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrParserPanic, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := r.NumPage()
	if pages > e.opts.MaxPagesPerDocument {
		pages = e.opts.MaxPagesPerDocument
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			e.logger.Debug("skipping page", "page", i, "error", err)
			continue
		}
		sb.WriteString(pageText)
		sb.WriteByte('\n')
		if sb.Len() > e.opts.MaxExtractBytes {
			break
		}
	}

	text = strings.TrimSpace(norm.NFKC.String(sb.String()))
	if text == "" {
		return "", ErrNoText
	}
	return model.TruncateText(text, e.opts.MaxContentPerFile), nil
}

// hasExt reports whether name ends with ext, ignoring case.
func hasExt(name, ext string) bool {
	return strings.EqualFold(path.Ext(name), ext)
}
