// Package database provides SQLite-based storage for imagefinder harvests.
//
// This package implements the HarvestDB, which stores:
//   - One row per crawl run with its summary counters and fingerprint
//   - The discovered image URLs of each run, indexed for reverse lookup
//   - Per-page records (depth, status, title, error) of each run
//   - The complete harvest as JSON for lossless reload
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Stored harvests power the compare command, which diffs the image sets of
// two runs against the same seed.
package database
