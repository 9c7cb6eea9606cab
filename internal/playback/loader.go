package playback

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

// Source is a playable URL together with the release of whatever backs it.
type Source struct {
	URL string

	release func()
	once    sync.Once
}

// Release frees the payload behind the URL. Safe to call more than once and on a nil Source.
func (s *Source) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Loader produces playable sources for tracks.
type Loader struct {
	fetcher services.AudioFetcher
	blobs   *BlobStore
	logger  *log.Logger
}

// NewLoader creates a Loader. fetcher may be nil for demo-only sessions.
func NewLoader(fetcher services.AudioFetcher, blobs *BlobStore, logger *log.Logger) *Loader {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Loader{fetcher: fetcher, blobs: blobs, logger: logger}
}

// Load returns a playable source for track.
//
// Authenticated tracks are downloaded and wrapped in a blob URL that the caller must release.
// Demo tracks already carry a URL and need no download.
func (l *Loader) Load(ctx context.Context, track models.Track, authenticated bool) (*Source, error) {
	ref := strings.TrimSpace(track.TrackName)
	if ref == "" {
		return nil, fmt.Errorf("%w: track %s", shared.ErrMissingReference, track.ID)
	}

	if !authenticated {
		return &Source{URL: ref}, nil
	}

	if l.fetcher == nil {
		return nil, shared.ErrNotAuthenticated
	}

	data, err := l.fetcher.FetchAudio(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio for %s: %w", track.ID, err)
	}

	url := l.blobs.CreateObjectURL(data)
	l.logger.Debug("audio blob created", "track", track.ID, "url", url, "bytes", len(data))

	return &Source{URL: url, release: func() {
		l.blobs.RevokeObjectURL(url)
		l.logger.Debug("audio blob released", "track", track.ID, "url", url)
	}}, nil
}
