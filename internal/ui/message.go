package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/playback"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTracksFetched MsgKind = iota
	MsgPlaylistsFetched
	MsgPlaybackChanged
	MsgPoll
	MsgFavoriteToggled
	MsgTrackDeleted
)

type tracksFetched struct {
	listing       *formatter.Listing
	authenticated bool
	err           error
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched].
// authenticated records which source the listing came from so a listing that lost a race with a mode switch can be dropped.
func tracksFetchedMsg(listing *formatter.Listing, authenticated bool, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksFetched{listing, authenticated, err}}
}

type playlistsFetched struct {
	playlists []models.Playlist
	err       error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}

// playbackChangedMsg is the constructor for [MsgPlaybackChanged]
func playbackChangedMsg(st playback.State) Msg {
	return Msg{kind: MsgPlaybackChanged, data: st}
}

// pollMsg is the constructor for [MsgPoll]
func pollMsg() Msg {
	return Msg{kind: MsgPoll}
}

type trackChanged struct {
	track models.Track
	err   error
}

// favoriteToggledMsg is the constructor for [MsgFavoriteToggled]
func favoriteToggledMsg(track models.Track, err error) Msg {
	return Msg{kind: MsgFavoriteToggled, data: trackChanged{track, err}}
}

// trackDeletedMsg is the constructor for [MsgTrackDeleted]
func trackDeletedMsg(track models.Track, err error) Msg {
	return Msg{kind: MsgTrackDeleted, data: trackChanged{track, err}}
}
