package models

import (
	"fmt"
	"strings"
	"time"
)

// PlaylistType distinguishes user playlists from the built-in favorites list.
type PlaylistType string

const (
	PlaylistRegular  PlaylistType = "regular"
	PlaylistFavorite PlaylistType = "favorite"
)

// Track represents a music track from the server or the demo catalog.
type Track struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	UserID    string    `json:"user_id,omitempty"`
	TrackName string    `json:"track_name"` // audio reference: server file name or a full demo URL
	Favorite  bool      `json:"favorite"`
	ImageName *string   `json:"image_name"`
	Duration  int       `json:"duration"` // Duration in seconds
	BitRate   int       `json:"bit_rate,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields every cached or playable track must carry.
func (t Track) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("track id is required")
	}
	if t.Duration < 0 {
		return fmt.Errorf("track %s has negative duration", t.ID)
	}
	return nil
}

// Cover returns the cover image reference, or "" when the track has none.
func (t Track) Cover() string {
	if t.ImageName == nil {
		return ""
	}
	return *t.ImageName
}

// Playlist represents a playlist with its tracks.
type Playlist struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Type       PlaylistType `json:"type"`
	ImageName  string       `json:"image_name,omitempty"`
	TrackCount int          `json:"track_count"`
	Duration   int          `json:"duration"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Tracks     []Track      `json:"tracks,omitempty"`
}

// IsFavorites reports whether p is the favorites playlist.
func (p Playlist) IsFavorites() bool {
	return p.Type == PlaylistFavorite
}
