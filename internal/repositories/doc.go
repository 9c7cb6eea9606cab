// Package repositories implements SQLite persistence for the local track cache.
//
// [TrackRepository] stores track records fetched from the server, keyed by server id, with
// soft deletes via a deleted_at timestamp. Deleted rows are excluded from queries by default.
//
// [TrackCache] layers an in-memory map and a deduplicated background fetch on top of the
// repository. Playback resolves authenticated tracks through it: a miss reports the record
// as pending and fires the OnReady callback once the fetch lands.
//
// Sequence numbers give stable first-cached ordering independent of server ids and creation
// timestamps. The [NextSequence] function atomically increments per-table sequence counters
// in dedicated sequence tables.
package repositories
