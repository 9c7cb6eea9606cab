// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// MockLibrary is an in-memory test double for [services.Library]
type MockLibrary struct {
	mu        sync.Mutex
	Tracks    []models.Track
	Playlists []models.Playlist
	Err       error
	Deleted   []string
	Favorited []string
}

func (m *MockLibrary) GetTracks(ctx context.Context, query string) ([]models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]models.Track(nil), m.Tracks...), nil
}

func (m *MockLibrary) GetTrackByID(ctx context.Context, id string) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, t := range m.Tracks {
		if t.ID == id {
			track := t
			return &track, nil
		}
	}
	return nil, shared.ErrTrackNotFound
}

func (m *MockLibrary) DeleteTrack(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Deleted = append(m.Deleted, id)
	kept := m.Tracks[:0]
	for _, t := range m.Tracks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	m.Tracks = kept
	return nil
}

func (m *MockLibrary) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]models.Playlist(nil), m.Playlists...), nil
}

func (m *MockLibrary) GetPlaylistByID(ctx context.Context, id string) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.Playlists {
		if p.ID == id {
			playlist := p
			return &playlist, nil
		}
	}
	return nil, shared.ErrPlaylistNotFound
}

func (m *MockLibrary) CreatePlaylist(ctx context.Context, title string) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	playlist := models.Playlist{ID: shared.GenerateID(), Title: title, Type: models.PlaylistRegular}
	m.Playlists = append(m.Playlists, playlist)
	return &playlist, nil
}

func (m *MockLibrary) RenamePlaylist(ctx context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Playlists {
		if m.Playlists[i].ID == id {
			m.Playlists[i].Title = title
			return nil
		}
	}
	return shared.ErrPlaylistNotFound
}

func (m *MockLibrary) DeletePlaylist(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i, p := range m.Playlists {
		if p.ID == id {
			m.Playlists = append(m.Playlists[:i], m.Playlists[i+1:]...)
			return nil
		}
	}
	return shared.ErrPlaylistNotFound
}

func (m *MockLibrary) AddTrackToPlaylist(ctx context.Context, playlistID, trackID string) error {
	return m.Err
}

func (m *MockLibrary) RemoveTrackFromPlaylist(ctx context.Context, playlistID, trackID string) error {
	return m.Err
}

func (m *MockLibrary) AddFavorite(ctx context.Context, trackID string) error {
	return m.setFavorite(trackID, true)
}

func (m *MockLibrary) RemoveFavorite(ctx context.Context, trackID string) error {
	return m.setFavorite(trackID, false)
}

func (m *MockLibrary) setFavorite(trackID string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Favorited = append(m.Favorited, trackID)
	for i := range m.Tracks {
		if m.Tracks[i].ID == trackID {
			m.Tracks[i].Favorite = favorite
		}
	}
	return nil
}

// MockAudioFetcher serves audio payloads from memory.
//
// A reference registered with [MockAudioFetcher.Block] waits until its release func is called.
type MockAudioFetcher struct {
	mu    sync.Mutex
	Data  map[string][]byte
	Err   error
	gates map[string]chan struct{}
	calls map[string]int
}

func NewMockAudioFetcher(data map[string][]byte) *MockAudioFetcher {
	return &MockAudioFetcher{Data: data, gates: map[string]chan struct{}{}, calls: map[string]int{}}
}

// Block holds fetches of ref until the returned func is called.
func (m *MockAudioFetcher) Block(ref string) (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.gates[ref] = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (m *MockAudioFetcher) FetchAudio(ctx context.Context, reference string) ([]byte, error) {
	m.mu.Lock()
	m.calls[reference]++
	gate := m.gates[reference]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	data, ok := m.Data[reference]
	if !ok {
		return nil, shared.ErrTrackNotFound
	}
	return data, nil
}

// Calls returns how many times reference was fetched.
func (m *MockAudioFetcher) Calls(reference string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[reference]
}

// MockDevice records every command an audio device receives.
type MockDevice struct {
	mu         sync.Mutex
	source     string
	loads      []string
	playing    bool
	playCalls  int
	pauseCalls int
	clearCalls int
	position   time.Duration
	length     time.Duration
	handlers   map[int]func()
	nextID     int
	closed     bool

	LoadErr error
}

func NewMockDevice() *MockDevice {
	return &MockDevice{handlers: map[int]func(){}}
}

func (d *MockDevice) Load(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.LoadErr != nil {
		return d.LoadErr
	}
	d.source = url
	d.loads = append(d.loads, url)
	d.playing = false
	d.position = 0
	return nil
}

func (d *MockDevice) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearCalls++
	d.source = ""
	d.playing = false
	d.position = 0
}

func (d *MockDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playCalls++
	if d.source == "" {
		return shared.ErrNoSource
	}
	d.playing = true
	return nil
}

func (d *MockDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauseCalls++
	d.playing = false
}

func (d *MockDevice) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

func (d *MockDevice) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.length
}

func (d *MockDevice) OnEnded(fn func()) (detach func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.handlers[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers, id)
	}
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// SetPosition moves the simulated playhead.
func (d *MockDevice) SetPosition(pos, length time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = pos
	d.length = length
}

// End simulates the current source reaching its natural end.
func (d *MockDevice) End() {
	d.mu.Lock()
	d.playing = false
	fns := make([]func(), 0, len(d.handlers))
	for _, fn := range d.handlers {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (d *MockDevice) Source() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

func (d *MockDevice) Loads() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.loads...)
}

func (d *MockDevice) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *MockDevice) PlayCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playCalls
}

func (d *MockDevice) PauseCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pauseCalls
}

func (d *MockDevice) ClearCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clearCalls
}

func (d *MockDevice) Listeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}

func (d *MockDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// Eventually polls cond until it holds or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

var _ io.Writer = (*FWriter)(nil)
