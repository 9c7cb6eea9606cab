// Package playback owns audio playback for a session.
//
// # Components
//
//   - [Resolver] maps a track id onto a record from the authenticated track cache or the bundled demo list.
//   - [Loader] turns a track's audio reference into a playable URL. Authenticated audio is fetched
//     once and kept in the [BlobStore] behind a blob URL; demo references are already URLs.
//   - [Coordinator] is the playback state machine. It holds the current and previously loaded
//     track ids, playback timing, and the playlist used for next/previous navigation.
//   - [Device] is the single audio output. [NewSpeakerDevice] drives the system speaker through beep.
//   - [Session] builds the pieces, registers the global key dispatcher, and tears everything down.
//
// # Load Sequence
//
// Every operation that changes the current id, the authentication flag, or the playing flag
// re-runs the load sequence explicitly. When the current id differs from the last loaded id the
// audio is loaded on a goroutine. A completed load is assigned only if the same id, flag, and
// load generation are still current; otherwise its blob URL is released and the result dropped.
//
// # Resource Lifetime
//
// Every blob URL handed to the device is released exactly once: when another source replaces it,
// when a load result is discarded, or when the coordinator is closed.
package playback
