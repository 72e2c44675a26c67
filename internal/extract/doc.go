// Package extract turns uploaded files into plain-text documents.
//
// Uploads are either single PDFs or ZIP archives of PDFs. Extraction is
// bounded (pages per PDF, bytes per file, uncompressed size per archive
// entry) and lossy: a file that cannot be read is logged and omitted, never
// fatal. Only the pipeline decides whether an empty result is an error.
//
// The package makes no network calls.
package extract
