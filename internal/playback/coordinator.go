package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/samber/lo"
)

// TrackResolver maps a track id to a record from the source selected by authenticated.
type TrackResolver interface {
	Resolve(id string, authenticated bool) (*models.Track, bool)
}

// AudioLoader produces a playable source for a track.
type AudioLoader interface {
	Load(ctx context.Context, track models.Track, authenticated bool) (*Source, error)
}

// State is a read-only snapshot of the coordinator.
type State struct {
	IsPlaying      bool
	CurrentTrackID string
	// CurrentTrack is nil while the current id does not resolve.
	CurrentTrack  *models.Track
	CurrentTime   time.Duration
	Duration      time.Duration
	Playlist      []models.Track
	Authenticated bool
}

type pendingLoad struct {
	generation    uint64
	id            string
	authenticated bool
}

// Coordinator is the playback state machine for a session.
//
// All state and every device command are guarded by one mutex, so each operation is atomic with
// respect to the others and to loads finishing in the background. A device implementing
// [Preloader] is asked to prepare a source before the lock is taken. Listeners registered with
// [Coordinator.Subscribe] run outside the lock and must not block.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	resolver TrackResolver
	loader   AudioLoader
	device   Device
	logger   *log.Logger

	mu            sync.Mutex
	playing       bool
	currentID     string
	currentTrack  *models.Track
	previousID    string
	currentTime   time.Duration
	duration      time.Duration
	playlist      []models.Track
	authenticated bool
	source        *Source
	pending       *pendingLoad
	generation    uint64
	closed        bool
	detachEnded   func()

	lmu       sync.Mutex
	listeners map[int]func(State)
	nextID    int

	wg sync.WaitGroup
}

// NewCoordinator creates a Coordinator driving device and subscribes to its end-of-track events.
// device may be nil, in which case state is tracked but nothing is played.
func NewCoordinator(ctx context.Context, resolver TrackResolver, loader AudioLoader, device Device, authenticated bool, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	ctx, cancel := context.WithCancel(ctx)

	c := &Coordinator{
		ctx:           ctx,
		cancel:        cancel,
		resolver:      resolver,
		loader:        loader,
		device:        device,
		logger:        logger.With("component", "playback"),
		authenticated: authenticated,
		listeners:     map[int]func(State){},
	}

	if device != nil {
		c.detachEnded = device.OnEnded(c.PlayNextTrack)
	}
	return c
}

// Device returns the audio device, which may be nil.
func (c *Coordinator) Device() Device {
	return c.device
}

// State returns a snapshot of the current playback state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		IsPlaying:      c.playing,
		CurrentTrackID: c.currentID,
		CurrentTime:    c.currentTime,
		Duration:       c.duration,
		Playlist:       append([]models.Track(nil), c.playlist...),
		Authenticated:  c.authenticated,
	}
	if c.currentTrack != nil {
		track := *c.currentTrack
		st.CurrentTrack = &track
	}
	return st
}

// Authenticated reports whether server tracks are in use.
func (c *Coordinator) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Subscribe registers fn to receive the state after every change.
func (c *Coordinator) Subscribe(fn func(State)) (unsubscribe func()) {
	c.lmu.Lock()
	defer c.lmu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.lmu.Lock()
		defer c.lmu.Unlock()
		delete(c.listeners, id)
	}
}

// PlayTrack makes track current and starts playing it from the beginning.
// Selecting the track that is already current does nothing.
func (c *Coordinator) PlayTrack(track models.Track) {
	c.mu.Lock()
	changed := c.playTrackLocked(track)
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

func (c *Coordinator) playTrackLocked(track models.Track) bool {
	if c.closed || track.ID == "" || track.ID == c.currentID {
		return false
	}
	c.currentID = track.ID
	c.currentTime = 0
	c.playing = true
	c.syncLocked()
	return true
}

// TogglePlayPause pauses a playing device, remembering its position, or resumes a paused one.
func (c *Coordinator) TogglePlayPause() {
	c.mu.Lock()
	if c.device == nil || c.closed {
		c.mu.Unlock()
		return
	}

	if c.playing {
		c.currentTime = c.device.Position()
		c.device.Pause()
	} else if err := c.device.Play(); err != nil {
		c.logger.Debug("device not ready to play", "track", c.currentID, "error", err)
	}
	c.playing = !c.playing
	c.syncLocked()
	c.mu.Unlock()

	c.notify()
}

// PlayNextTrack plays the track after the current one, wrapping to the start of the playlist.
func (c *Coordinator) PlayNextTrack() {
	c.step(1)
}

// PlayPreviousTrack plays the track before the current one, wrapping to the end of the playlist.
func (c *Coordinator) PlayPreviousTrack() {
	c.step(-1)
}

func (c *Coordinator) step(delta int) {
	c.mu.Lock()
	n := len(c.playlist)
	if n == 0 || c.currentID == "" {
		c.mu.Unlock()
		return
	}

	_, i, ok := lo.FindIndexOf(c.playlist, func(t models.Track) bool { return t.ID == c.currentID })
	if !ok {
		c.mu.Unlock()
		return
	}

	changed := c.playTrackLocked(c.playlist[(i+delta+n)%n])
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

// StopPlayback stops and unloads trackID if it is the current track. Other ids are ignored.
func (c *Coordinator) StopPlayback(trackID string) {
	c.mu.Lock()
	if trackID == "" || trackID != c.currentID {
		c.mu.Unlock()
		return
	}

	if c.device != nil {
		c.device.Pause()
		c.device.Clear()
	}
	c.source.Release()
	c.source = nil

	c.playing = false
	c.currentID = ""
	c.currentTrack = nil
	c.previousID = ""
	c.currentTime = 0
	c.pending = nil
	c.mu.Unlock()

	c.logger.Info("playback stopped", "track", trackID)
	c.notify()
}

// SetCurrentTime records the device-reported position. Negative values are ignored.
func (c *Coordinator) SetCurrentTime(t time.Duration) {
	if t < 0 {
		return
	}
	c.mu.Lock()
	if c.currentTime == t {
		c.mu.Unlock()
		return
	}
	c.currentTime = t
	c.mu.Unlock()

	c.notify()
}

// SetDuration records the device-reported length of the current source. Negative values are ignored.
func (c *Coordinator) SetDuration(d time.Duration) {
	if d < 0 {
		return
	}
	c.mu.Lock()
	if c.duration == d {
		c.mu.Unlock()
		return
	}
	c.duration = d
	c.mu.Unlock()

	c.notify()
}

// SetPlaylist replaces the navigation context. The current track is left alone.
func (c *Coordinator) SetPlaylist(tracks []models.Track) {
	c.mu.Lock()
	c.playlist = append([]models.Track(nil), tracks...)
	c.mu.Unlock()

	c.notify()
}

// SetAuthenticated switches between server and demo tracks.
func (c *Coordinator) SetAuthenticated(authenticated bool) {
	c.mu.Lock()
	if c.authenticated == authenticated {
		c.mu.Unlock()
		return
	}
	c.authenticated = authenticated
	c.syncLocked()
	c.mu.Unlock()

	c.logger.Info("authentication changed", "authenticated", authenticated)
	c.notify()
}

// Refresh re-runs the load sequence, e.g. after a pending track record arrives.
func (c *Coordinator) Refresh() {
	c.mu.Lock()
	c.syncLocked()
	c.mu.Unlock()

	c.notify()
}

// Wait blocks until in-flight loads have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close detaches from the device, abandons in-flight loads, and releases the current source.
// The device itself is left open.
func (c *Coordinator) Close() error {
	c.cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	detach := c.detachEnded
	c.detachEnded = nil
	c.mu.Unlock()

	if detach != nil {
		detach()
	}

	c.wg.Wait()

	c.mu.Lock()
	c.source.Release()
	c.source = nil
	c.pending = nil
	c.mu.Unlock()

	c.lmu.Lock()
	clear(c.listeners)
	c.lmu.Unlock()
	return nil
}

// syncLocked is the load sequence. It must be called with c.mu held after any change to the
// current id, the authentication flag, or the playing flag. It is the only place the
// resolver is consulted; State reads the track it leaves in c.currentTrack.
func (c *Coordinator) syncLocked() {
	if c.currentID == "" {
		c.currentTrack = nil
	}
	if c.closed || c.currentID == "" {
		return
	}

	track, ok := c.resolver.Resolve(c.currentID, c.authenticated)
	c.currentTrack = track
	if !ok {
		c.currentTrack = nil
		c.logger.Debug("track not resolved", "track", c.currentID, "authenticated", c.authenticated)
		return
	}

	if c.currentID == c.previousID {
		return
	}
	if p := c.pending; p != nil && p.id == c.currentID && p.authenticated == c.authenticated {
		return
	}

	c.generation++
	p := pendingLoad{generation: c.generation, id: c.currentID, authenticated: c.authenticated}
	c.pending = &p

	c.wg.Add(1)
	go c.load(p, *track)
}

func (c *Coordinator) load(p pendingLoad, track models.Track) {
	defer c.wg.Done()

	src, err := c.loader.Load(c.ctx, track, p.authenticated)

	c.mu.Lock()
	if c.pending != nil && c.pending.generation == p.generation {
		c.pending = nil
	}

	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, context.Canceled) {
			c.logger.Debug("audio load abandoned", "track", p.id)
			return
		}
		c.logger.Warn("failed to load audio", "track", p.id, "error", err)
		return
	}

	if c.staleLocked(p) {
		c.mu.Unlock()
		src.Release()
		c.logger.Debug("discarding stale audio", "track", p.id)
		return
	}
	c.mu.Unlock()

	if pl, ok := c.device.(Preloader); ok {
		if err := pl.Preload(c.ctx, src.URL); err != nil {
			src.Release()
			c.mu.Lock()
			if !c.staleLocked(p) {
				c.previousID = p.id
			}
			c.mu.Unlock()
			c.logger.Error("device rejected source", "track", p.id, "url", src.URL, "error", err)
			return
		}
	}

	c.mu.Lock()
	if c.staleLocked(p) {
		c.mu.Unlock()
		src.Release()
		c.logger.Debug("discarding stale audio", "track", p.id)
		return
	}
	c.previousID = p.id
	c.assignLocked(src)
	c.mu.Unlock()

	c.notify()
}

// staleLocked reports whether the current id, flag, or load generation moved on since p started.
func (c *Coordinator) staleLocked(p pendingLoad) bool {
	return c.closed || p.generation != c.generation || p.id != c.currentID || p.authenticated != c.authenticated
}

// assignLocked hands src to the device and releases the source it replaces.
func (c *Coordinator) assignLocked(src *Source) {
	if c.device == nil {
		src.Release()
		return
	}

	if err := c.device.Load(c.ctx, src.URL); err != nil {
		c.logger.Error("device rejected source", "track", c.currentID, "url", src.URL, "error", err)
		src.Release()
		return
	}

	c.source.Release()
	c.source = src

	if d := c.device.Duration(); d > 0 {
		c.duration = d
	}

	if c.playing {
		if err := c.device.Play(); err != nil {
			c.logger.Error("device failed to play", "track", c.currentID, "error", err)
		}
	}
}

func (c *Coordinator) notify() {
	c.lmu.Lock()
	fns := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lmu.Unlock()

	if len(fns) == 0 {
		return
	}

	st := c.State()
	for _, fn := range fns {
		fn(st)
	}
}
