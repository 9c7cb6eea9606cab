package repositories

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/sync/singleflight"
)

// TrackCache is the keyed cache of authenticated track records.
//
// Lookups are served from memory, then from the sqlite [TrackRepository]. A miss schedules
// one background fetch per id (misses while it runs share it) and reports the record as pending.
// When the fetch lands the record is persisted and the OnReady callback fires with its id.
type TrackCache struct {
	ctx     context.Context
	fetcher services.TrackFetcher
	repo    *TrackRepository
	logger  *log.Logger

	mu       sync.RWMutex
	tracks   map[string]models.Track
	inflight map[string]struct{}
	onReady  func(id string)

	group singleflight.Group
	wg    sync.WaitGroup
}

// NewTrackCache creates a TrackCache. repo may be nil, in which case records only live in memory.
func NewTrackCache(ctx context.Context, fetcher services.TrackFetcher, repo *TrackRepository, logger *log.Logger) *TrackCache {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TrackCache{
		ctx:      ctx,
		fetcher:  fetcher,
		repo:     repo,
		logger:   logger.With("component", "track-cache"),
		tracks:   map[string]models.Track{},
		inflight: map[string]struct{}{},
	}
}

// OnReady registers the callback invoked after a pending record is fetched.
func (c *TrackCache) OnReady(fn func(id string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReady = fn
}

// Lookup returns the record for id, or false while it is missing or being fetched.
func (c *TrackCache) Lookup(id string) (*models.Track, bool) {
	if id == "" {
		return nil, false
	}

	c.mu.RLock()
	track, ok := c.tracks[id]
	c.mu.RUnlock()
	if ok {
		return &track, true
	}

	if c.repo != nil {
		if persisted, err := c.repo.Get(id); err == nil {
			c.store(*persisted)
			return persisted, true
		} else if !errors.Is(err, shared.ErrTrackNotFound) {
			c.logger.Warn("failed to read cached track", "id", id, "error", err)
		}
	}

	c.schedule(id)
	return nil, false
}

// Put primes the cache with records obtained elsewhere, e.g. a list response.
func (c *TrackCache) Put(tracks ...models.Track) {
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			c.logger.Debug("skipping invalid track", "error", err)
			continue
		}
		c.store(t)
		c.persist(t)
	}
}

// Invalidate drops id from memory and the database; the next lookup refetches it.
func (c *TrackCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.tracks, id)
	c.mu.Unlock()

	if c.repo != nil {
		if err := c.repo.Delete(id); err != nil && !errors.Is(err, shared.ErrTrackNotFound) {
			c.logger.Warn("failed to invalidate cached track", "id", id, "error", err)
		}
	}
}

// Wait blocks until scheduled fetches have finished.
func (c *TrackCache) Wait() {
	c.wg.Wait()
}

// schedule starts a fetch for id unless one is already running.
func (c *TrackCache) schedule(id string) {
	c.mu.Lock()
	if _, busy := c.inflight[id]; busy {
		c.mu.Unlock()
		return
	}
	c.inflight[id] = struct{}{}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, id)
			c.mu.Unlock()
		}()
		_, _, _ = c.group.Do(id, func() (any, error) {
			// A lookup whose goroutine arrives after the shared fetch finished must not refetch.
			c.mu.RLock()
			cached, ok := c.tracks[id]
			c.mu.RUnlock()
			if ok {
				return &cached, nil
			}

			track, err := c.fetcher.GetTrackByID(c.ctx, id)
			if err != nil {
				c.logger.Warn("failed to fetch track", "id", id, "error", err)
				return nil, err
			}
			if track.ID == "" {
				track.ID = id
			}

			c.store(*track)
			c.persist(*track)

			c.mu.RLock()
			onReady := c.onReady
			c.mu.RUnlock()
			if onReady != nil {
				onReady(id)
			}
			return track, nil
		})
	}()
}

func (c *TrackCache) store(t models.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[t.ID] = t
}

func (c *TrackCache) persist(t models.Track) {
	if c.repo == nil {
		return
	}
	if err := c.repo.Upsert(t); err != nil {
		c.logger.Warn("failed to persist track", "id", t.ID, "error", err)
	}
}
