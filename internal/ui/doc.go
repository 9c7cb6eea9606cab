// Package ui implements the interactive player using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [TrackListView] : All tracks or one playlist, with search and a now-playing marker
//  2. [PlaylistListView] : Browse server playlists
//  3. [ConfirmDeleteView] : Confirm removing a track from the server
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Playback state flows from the coordinator through a one-slot channel that always holds the newest snapshot,
// and a poll tick copies the device position into the coordinator for the progress bar.
//
// Space and "/" are published on the process-wide key bus so the session's dispatcher decides whether they are consumed.
// Everything else uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
