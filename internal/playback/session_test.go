package playback

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/keys"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
)

type searchView struct{ focused bool }

// unavailableFetcher fails every track request.
type unavailableFetcher struct{ calls atomic.Int32 }

func (f *unavailableFetcher) GetTrackByID(ctx context.Context, id string) (*models.Track, error) {
	f.calls.Add(1)
	return nil, shared.ErrServiceUnavailable
}

func (v *searchView) FocusSearch() bool {
	v.focused = true
	return true
}

func newTestSession(t *testing.T, cfg SessionConfig) *Session {
	t.Helper()
	s := NewSession(context.Background(), cfg, shared.NewLogger(io.Discard))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSession(t *testing.T) {
	t.Run("key dispatcher registered once", func(t *testing.T) {
		bus := keys.NewBus()
		device := tu.NewMockDevice()
		s := newTestSession(t, SessionConfig{Device: device, Keys: bus})

		s.RegisterKeys(bus)
		if bus.Len() != 1 {
			t.Fatalf("expected 1 key handler, got %d", bus.Len())
		}

		s.Coordinator.PlayTrack(demo(0))
		s.Coordinator.Wait()

		if !bus.Publish(keys.Event{Key: keys.Space}) {
			t.Error("expected space to be handled")
		}
		if s.Coordinator.State().IsPlaying {
			t.Error("expected space to pause playback")
		}

		if bus.Publish(keys.Event{Key: keys.Space, Editing: true}) {
			t.Error("expected space while editing to pass through")
		}
		if s.Coordinator.State().IsPlaying {
			t.Error("expected playback to stay paused while editing")
		}

		view := &searchView{}
		if !bus.Publish(keys.Event{Key: keys.Search, View: view}) || !view.focused {
			t.Error("expected slash to focus search")
		}
	})

	t.Run("close tears everything down", func(t *testing.T) {
		bus := keys.NewBus()
		device := tu.NewMockDevice()
		a := serverTrack("a")
		fetcher := tu.NewMockAudioFetcher(map[string][]byte{a.TrackName: []byte("audio")})

		s := NewSession(context.Background(), SessionConfig{
			Device:        device,
			Audio:         fetcher,
			Tracks:        newLookup(a),
			Keys:          bus,
			Authenticated: true,
		}, shared.NewLogger(io.Discard))

		s.Coordinator.PlayTrack(a)
		s.Coordinator.Wait()
		if s.Blobs.Len() != 1 {
			t.Fatalf("expected 1 live blob, got %d", s.Blobs.Len())
		}

		if err := s.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("unexpected second close error: %v", err)
		}

		if bus.Len() != 0 {
			t.Errorf("expected key handler to be removed, got %d", bus.Len())
		}
		if device.Listeners() != 0 {
			t.Errorf("expected ended listener to be detached, got %d", device.Listeners())
		}
		if !device.Closed() {
			t.Error("expected device to be closed")
		}
		if s.Blobs.Len() != 0 {
			t.Errorf("expected blobs released, %d live", s.Blobs.Len())
		}
	})

	t.Run("pending record triggers load when ready", func(t *testing.T) {
		device := tu.NewMockDevice()
		a := serverTrack("a")
		remote := newLookup()
		fetcher := tu.NewMockAudioFetcher(map[string][]byte{a.TrackName: []byte("audio")})

		s := newTestSession(t, SessionConfig{Device: device, Audio: fetcher, Tracks: remote, Authenticated: true})

		s.Coordinator.PlayTrack(a)
		s.Coordinator.Wait()
		if device.Source() != "" {
			t.Fatal("expected nothing loaded while pending")
		}

		remote.arrive(a)
		s.Coordinator.Wait()
		if st := s.Coordinator.State(); st.CurrentTrack == nil || st.CurrentTrack.ID != a.ID {
			t.Errorf("expected current track %s once its record arrived, got %+v", a.ID, st.CurrentTrack)
		}

		if !IsBlobURL(device.Source()) {
			t.Errorf("expected blob source after record arrived, got %q", device.Source())
		}
	})

	t.Run("polling an unresolvable track does not refetch it", func(t *testing.T) {
		device := tu.NewMockDevice()
		fetcher := &unavailableFetcher{}
		cache := repositories.NewTrackCache(context.Background(), fetcher, nil, shared.NewLogger(io.Discard))

		s := newTestSession(t, SessionConfig{Device: device, Tracks: cache, Authenticated: true})

		s.Coordinator.PlayTrack(models.Track{ID: "gone"})
		s.Coordinator.Wait()
		cache.Wait()
		if got := fetcher.calls.Load(); got != 1 {
			t.Fatalf("expected 1 fetch after play, got %d", got)
		}

		for range 20 {
			s.Poll()
			if st := s.Coordinator.State(); st.CurrentTrack != nil {
				t.Fatalf("expected unresolved track, got %+v", st.CurrentTrack)
			}
			if !s.Coordinator.Authenticated() {
				t.Fatal("expected session to stay authenticated")
			}
		}
		cache.Wait()

		if got := fetcher.calls.Load(); got != 1 {
			t.Errorf("expected polling to make no fetches, got %d", got-1)
		}
	})

	t.Run("poll mirrors device timing", func(t *testing.T) {
		device := tu.NewMockDevice()
		s := newTestSession(t, SessionConfig{Device: device})

		s.Coordinator.PlayTrack(demo(0))
		s.Coordinator.Wait()
		device.SetPosition(15*time.Second, 372*time.Second)

		s.Poll()

		st := s.Coordinator.State()
		if st.CurrentTime != 15*time.Second || st.Duration != 372*time.Second {
			t.Errorf("expected 15s of 372s, got %v of %v", st.CurrentTime, st.Duration)
		}

		s.Coordinator.TogglePlayPause()
		device.SetPosition(20*time.Second, 372*time.Second)
		s.Poll()

		if got := s.Coordinator.State().CurrentTime; got != 15*time.Second {
			t.Errorf("expected paused position to hold at 15s, got %v", got)
		}
	})

	t.Run("no device", func(t *testing.T) {
		s := newTestSession(t, SessionConfig{})
		s.Poll()
		if s.Coordinator.Device() != nil {
			t.Error("expected nil device")
		}
	})
}
