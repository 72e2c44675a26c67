package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"

	"github.com/pks0715/seggy/internal/model"
)

// makePDF renders one page per entry of pages and returns the PDF bytes.
func makePDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		doc.Cell(0, 10, text)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	return buf.Bytes()
}

// makeZip packs name/content pairs into a ZIP archive.
func makeZip(t *testing.T, files map[string][]byte, order ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func newTestExtractor(opts ...Option) *Extractor {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

func TestExtractSinglePDF(t *testing.T) {
	t.Parallel()

	data := makePDF(t, "Revenue 2023 was 120 million")
	docs, names := newTestExtractor().Extract(context.Background(), []model.Upload{
		{Name: "annual.pdf", Data: data},
	})

	if len(names) != 1 || names[0] != "annual.pdf" {
		t.Fatalf("names = %v", names)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Name != "annual.pdf" {
		t.Errorf("document name = %q", docs[0].Name)
	}
	if !strings.Contains(docs[0].Text, "Revenue") {
		t.Errorf("expected extracted text to contain Revenue, got %q", docs[0].Text)
	}
}

// TestExtractZipKeepsOnlyPDFs covers a ZIP holding two PDFs and a text file:
// the text file appears in neither output list.
func TestExtractZipKeepsOnlyPDFs(t *testing.T) {
	t.Parallel()

	archive := makeZip(t, map[string][]byte{
		"statements/income.pdf": makePDF(t, "Income statement"),
		"readme.txt":            []byte("not a pdf"),
		"BALANCE.PDF":           makePDF(t, "Balance sheet"),
	}, "statements/income.pdf", "readme.txt", "BALANCE.PDF")

	docs, names := newTestExtractor().Extract(context.Background(), []model.Upload{
		{Name: "bundle.ZIP", Data: archive},
	})

	wantNames := []string{"income.pdf", "BALANCE.PDF"}
	if fmt.Sprint(names) != fmt.Sprint(wantNames) {
		t.Errorf("names = %v, want %v", names, wantNames)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Name != "income.pdf" || docs[1].Name != "BALANCE.PDF" {
		t.Errorf("unexpected document order: %s, %s", docs[0].Name, docs[1].Name)
	}
}

func TestExtractSkipsBadFiles(t *testing.T) {
	t.Parallel()

	uploads := []model.Upload{
		{Name: "", Data: makePDF(t, "nameless")},
		{Name: "corrupt.pdf", Data: []byte("%PDF-1.4 garbage")},
		{Name: "notes.txt", Data: []byte("plain text")},
		{Name: "broken.zip", Data: []byte("PK not really")},
		{Name: "good.pdf", Data: makePDF(t, "EBITDA margin")},
	}

	docs, names := newTestExtractor().Extract(context.Background(), uploads)

	wantNames := []string{"corrupt.pdf", "notes.txt", "good.pdf"}
	if fmt.Sprint(names) != fmt.Sprint(wantNames) {
		t.Errorf("names = %v, want %v", names, wantNames)
	}
	if len(docs) != 1 || docs[0].Name != "good.pdf" {
		t.Fatalf("expected only good.pdf, got %+v", docs)
	}
}

func TestExtractPageLimit(t *testing.T) {
	t.Parallel()

	data := makePDF(t, "FIRSTPAGE", "SECONDPAGE", "THIRDPAGE")
	docs, _ := newTestExtractor(WithOptions(Options{MaxPagesPerDocument: 2})).
		Extract(context.Background(), []model.Upload{{Name: "three.pdf", Data: data}})

	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if strings.Contains(docs[0].Text, "THIRDPAGE") {
		t.Errorf("page limit not applied: %q", docs[0].Text)
	}
	if !strings.Contains(docs[0].Text, "FIRSTPAGE") {
		t.Errorf("first page missing: %q", docs[0].Text)
	}
}

func TestExtractContentCap(t *testing.T) {
	t.Parallel()

	data := makePDF(t, strings.Repeat("ABCDEFGHIJ", 8))
	docs, _ := newTestExtractor(WithOptions(Options{MaxContentPerFile: 25})).
		Extract(context.Background(), []model.Upload{{Name: "long.pdf", Data: data}})

	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if len(docs[0].Text) > 25 {
		t.Errorf("text length %d exceeds cap", len(docs[0].Text))
	}
}

func TestExtractArchiveEntryLimit(t *testing.T) {
	t.Parallel()

	archive := makeZip(t, map[string][]byte{
		"big.pdf": makePDF(t, strings.Repeat("large ", 50)),
	}, "big.pdf")

	docs, names := newTestExtractor(WithOptions(Options{MaxArchiveEntryBytes: 64})).
		Extract(context.Background(), []model.Upload{{Name: "a.zip", Data: archive}})

	if len(docs) != 0 {
		t.Errorf("oversized entry should be skipped, got %d docs", len(docs))
	}
	if len(names) != 1 {
		t.Errorf("oversized entry is still a PDF upload name, got %v", names)
	}
}

func TestExtractCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs, names := newTestExtractor().Extract(ctx, []model.Upload{{Name: "a.pdf", Data: makePDF(t, "x")}})
	if len(docs) != 0 || len(names) != 0 {
		t.Errorf("expected nothing after cancellation, got %v %v", docs, names)
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	t.Parallel()

	got := Options{MaxPagesPerDocument: 3}.withDefaults()
	want := Options{
		MaxPagesPerDocument:  3,
		MaxExtractBytes:      DefaultMaxExtractBytes,
		MaxContentPerFile:    DefaultMaxContentPerFile,
		MaxArchiveEntryBytes: DefaultMaxArchiveEntryBytes,
	}
	if got != want {
		t.Errorf("withDefaults() = %+v, want %+v", got, want)
	}
}
