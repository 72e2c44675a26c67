// Package main provides the entry point for the seggy CLI.
//
// seggy turns a set of financial documents (PDFs, or ZIP archives of PDFs)
// into a due-diligence report. Documents are analyzed in batches by
// language-model backends with automatic fallback, then synthesized into
// one report with charts.
//
// Usage:
//
//	seggy analyze income.pdf balance.pdf statements.zip
//	seggy serve --port 10000
//
// See --help for all available options.
package main

// main is the entry point for seggy.
func main() {
	Execute()
}
