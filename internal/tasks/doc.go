// Package tasks runs long playlist operations against the music server with progress reporting.
//
// # Bulk Export
//
// [Exporter.BulkExport] writes many playlists to disk at once:
//
//  1. A producer fetches each playlist from the [services.Library], paced by a rate limiter
//  2. A fixed pool of workers renders the fetched playlists with the formatter package
//  3. The results are summarized in export_manifest.json inside the output directory
//
// A playlist that fails to fetch or render is recorded in the manifest and does not stop the run.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Updates are sent with select and
// default, so a slow or absent reader drops updates instead of stalling the export.
package tasks
