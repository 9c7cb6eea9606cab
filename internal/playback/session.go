package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/keys"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

// SessionConfig wires a [Session] to its collaborators.
type SessionConfig struct {
	// Device is the session's audio output. Nil runs without sound.
	Device Device
	// Blobs backs authenticated audio; one is created when nil.
	Blobs *BlobStore
	// Audio downloads authenticated audio. Nil limits the session to demo tracks.
	Audio services.AudioFetcher
	// Tracks is the authenticated track cache. If it implements [ReadyNotifier] the
	// coordinator re-runs its load sequence whenever a pending record arrives.
	Tracks TrackLookup
	// Demo overrides the bundled demo tracks.
	Demo []models.Track
	// Keys receives the global shortcut dispatcher for the session's lifetime.
	Keys          *keys.Bus
	Authenticated bool
}

// Session owns everything playback needs for one run of the application.
type Session struct {
	Blobs       *BlobStore
	Resolver    *Resolver
	Loader      *Loader
	Coordinator *Coordinator

	device Device
	logger *log.Logger

	registerOnce sync.Once
	unregister   func()
	closeOnce    sync.Once
	closeErr     error
}

// NewSession builds a session and registers its key dispatcher on cfg.Keys.
func NewSession(ctx context.Context, cfg SessionConfig, logger *log.Logger) *Session {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	blobs := cfg.Blobs
	if blobs == nil {
		blobs = NewBlobStore()
	}

	demo := cfg.Demo
	if demo == nil {
		demo = DemoTracks()
	}

	s := &Session{
		Blobs:    blobs,
		Resolver: NewResolver(cfg.Tracks, demo),
		Loader:   NewLoader(cfg.Audio, blobs, logger),
		device:   cfg.Device,
		logger:   logger,
	}
	s.Coordinator = NewCoordinator(ctx, s.Resolver, s.Loader, cfg.Device, cfg.Authenticated, logger)

	if n, ok := cfg.Tracks.(ReadyNotifier); ok {
		n.OnReady(func(id string) {
			s.logger.Debug("track record ready", "track", id)
			s.Coordinator.Refresh()
		})
	}

	if cfg.Keys != nil {
		s.RegisterKeys(cfg.Keys)
	}
	return s
}

// RegisterKeys subscribes the global shortcut dispatcher to bus.
// Only the first call has any effect.
func (s *Session) RegisterKeys(bus *keys.Bus) {
	s.registerOnce.Do(func() {
		s.unregister = bus.Subscribe(keys.Dispatcher(s.Coordinator))
	})
}

// Poll copies the device's position and length into the coordinator.
func (s *Session) Poll() {
	if s.device == nil {
		return
	}
	if s.Coordinator.State().IsPlaying {
		s.Coordinator.SetCurrentTime(s.device.Position())
	}
	if d := s.device.Duration(); d > 0 {
		s.Coordinator.SetDuration(d)
	}
}

// Close unregisters the key dispatcher, closes the coordinator, then closes the device.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.registerOnce.Do(func() {})
		if s.unregister != nil {
			s.unregister()
		}

		errs := []error{s.Coordinator.Close()}
		if s.device != nil {
			errs = append(errs, s.device.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
