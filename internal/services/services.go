// package services defines the interfaces encore consumes from the music server
package services

import (
	"context"

	"github.com/desertthunder/encore/internal/models"
)

// Library defines the track and playlist operations the CLI and TUI perform against the server.
type Library interface {
	// GetTracks lists tracks matching query; an empty query lists everything.
	GetTracks(ctx context.Context, query string) ([]models.Track, error)

	// GetTrackByID retrieves a single track by ID.
	GetTrackByID(ctx context.Context, id string) (*models.Track, error)

	// DeleteTrack permanently removes a track.
	DeleteTrack(ctx context.Context, id string) error

	GetPlaylists(ctx context.Context) ([]models.Playlist, error)
	GetPlaylistByID(ctx context.Context, id string) (*models.Playlist, error)

	// CreatePlaylist creates an empty regular playlist titled title.
	CreatePlaylist(ctx context.Context, title string) (*models.Playlist, error)
	RenamePlaylist(ctx context.Context, id, title string) error
	DeletePlaylist(ctx context.Context, id string) error

	AddTrackToPlaylist(ctx context.Context, playlistID, trackID string) error
	RemoveTrackFromPlaylist(ctx context.Context, playlistID, trackID string) error

	AddFavorite(ctx context.Context, trackID string) error
	RemoveFavorite(ctx context.Context, trackID string) error
}

// TrackFetcher fetches a single track record by id.
type TrackFetcher interface {
	GetTrackByID(ctx context.Context, id string) (*models.Track, error)
}

// AudioFetcher downloads the raw audio bytes stored under a track reference.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, reference string) ([]byte, error)
}
