package playback

import (
	"github.com/desertthunder/encore/internal/models"
	"github.com/samber/lo"
)

// TrackLookup is a keyed cache of authenticated track records.
// Lookup reports false while the record is being fetched.
type TrackLookup interface {
	Lookup(id string) (*models.Track, bool)
}

// ReadyNotifier is implemented by lookups that report when a pending record arrives.
type ReadyNotifier interface {
	OnReady(fn func(id string))
}

// Resolver picks the track record for an id from the source matching the authentication state.
type Resolver struct {
	remote TrackLookup
	demo   []models.Track
}

// NewResolver creates a Resolver. remote may be nil when no server is configured.
func NewResolver(remote TrackLookup, demo []models.Track) *Resolver {
	return &Resolver{remote: remote, demo: demo}
}

// Resolve returns the track for id. It reports false for an empty id, a pending
// authenticated record, or an id absent from the selected source.
func (r *Resolver) Resolve(id string, authenticated bool) (*models.Track, bool) {
	if id == "" {
		return nil, false
	}

	if authenticated {
		if r.remote == nil {
			return nil, false
		}
		return r.remote.Lookup(id)
	}

	track, ok := lo.Find(r.demo, func(t models.Track) bool { return t.ID == id })
	if !ok {
		return nil, false
	}
	return &track, true
}
