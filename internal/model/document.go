package model

import "unicode/utf8"

// Upload is a single file blob handed to the extractor.
// It is either a document (PDF) or an archive (ZIP) of documents.
type Upload struct {
	// Name is the client-supplied file name. Uploads with an empty name
	// are rejected by the extractor.
	Name string `json:"name"`

	// Data is the raw file content.
	Data []byte `json:"-"`
}

// Document is the extracted text of one financial document.
// Documents are created by the extractor and are immutable thereafter.
type Document struct {
	// Name is the base file name of the document.
	Name string `json:"name"`

	// Text is the extracted plain text, already capped at ingestion.
	Text string `json:"text"`
}

// Batch is an ordered group of documents processed in one generation call.
//
// Invariant: the batches produced for a request partition the document
// sequence exactly, preserving order. Only the last batch may be smaller
// than the configured batch size.
type Batch struct {
	// Index is the 1-based position of this batch.
	Index int `json:"index"`

	// Total is the number of batches in the request.
	Total int `json:"total"`

	// Documents are the documents in this batch, in input order.
	Documents []Document `json:"documents"`
}

// DocumentNames returns the names of the documents in the batch, in order.
func (b Batch) DocumentNames() []string {
	names := make([]string, len(b.Documents))
	for i, d := range b.Documents {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of documents in the batch.
func (b Batch) Len() int {
	return len(b.Documents)
}

// TruncateText cuts s to at most maxBytes bytes without splitting a UTF-8
// sequence. A non-positive maxBytes returns s unchanged.
func TruncateText(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
