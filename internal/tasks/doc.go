// Package tasks runs long study-history operations with real-time progress reporting.
//
// # Archive
//
// [ArchiveEngine.Archive] splits the recorded session history by calendar month and writes one
// export file per month with a pool of workers:
//
//  1. Loads every session from the [SessionLister]
//  2. Groups sessions by the month of their study date
//  3. Renders each month with [formatter.WriteExport] on up to [MaxWorkers] goroutines
//  4. Writes export_manifest.json summarizing successes and failures
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends use select with default so a
// slow or absent reader never blocks the work.
package tasks
