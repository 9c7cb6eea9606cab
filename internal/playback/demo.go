package playback

import (
	"time"

	"github.com/desertthunder/encore/internal/models"
)

var demoCreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// demoTracks are playable without a server. Their track names are full URLs.
var demoTracks = []models.Track{
	{
		ID:        "demo-1",
		Title:     "Song 1",
		Artist:    "SoundHelix",
		TrackName: "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-1.mp3",
		Duration:  372,
		CreatedAt: demoCreatedAt,
	},
	{
		ID:        "demo-2",
		Title:     "Song 2",
		Artist:    "SoundHelix",
		TrackName: "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-2.mp3",
		Duration:  425,
		CreatedAt: demoCreatedAt,
	},
	{
		ID:        "demo-3",
		Title:     "Song 3",
		Artist:    "SoundHelix",
		TrackName: "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-3.mp3",
		Duration:  344,
		CreatedAt: demoCreatedAt,
	},
	{
		ID:        "demo-4",
		Title:     "Song 4",
		Artist:    "SoundHelix",
		TrackName: "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-4.mp3",
		Duration:  302,
		CreatedAt: demoCreatedAt,
	},
}

// DemoTracks returns a copy of the bundled demo tracks in their fixed order.
func DemoTracks() []models.Track {
	return append([]models.Track(nil), demoTracks...)
}
