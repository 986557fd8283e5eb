// Package database provides SQLite-based storage for PhishGuard training data.
//
// This package implements the DatasetDB, which stores:
//   - Labeled URLs used to train the local classifier
//   - An import log recording where each batch of samples came from
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Importing a large CSV once is much faster than re-parsing it on every start
//
// Scan verdicts are never written here. Every scan is evaluated from scratch
// and the store only feeds the classifier's one-time training.
package database
