// Package database provides SQLite-based storage for seggy run history.
//
// This package implements the HistoryDB, which stores one row per analysis
// run: classification, file and batch counts, the synthesis path, the
// extracted financial summary, and a fingerprint of the uploaded file
// names. Document text and report text are never stored.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
