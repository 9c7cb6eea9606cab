// Package models defines the domain entities shared by the encore client.
//
//   - [Track] : a single audio track as served by the music server, or a bundled demo track
//   - [Playlist] : an ordered collection of tracks, either user-created or the favorites list
//
// Field names follow the server's JSON so records decode directly from API responses
// and round-trip through the local track cache unchanged.
package models
