package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newTrack(id, title string) models.Track {
	cover := id + ".jpg"
	return models.Track{
		ID:        id,
		Title:     title,
		Artist:    "Artist " + id,
		TrackName: id + ".mp3",
		ImageName: &cover,
		Duration:  180,
		BitRate:   320,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTrackRepository(t *testing.T) {
	t.Run("Upsert and Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		track := newTrack("t1", "First")

		if err := repo.Upsert(track); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}

		retrieved, err := repo.Get("t1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}

		if retrieved.Title != "First" {
			t.Errorf("expected title First, got %s", retrieved.Title)
		}
		if retrieved.TrackName != "t1.mp3" {
			t.Errorf("expected track name t1.mp3, got %s", retrieved.TrackName)
		}
		if retrieved.Cover() != "t1.jpg" {
			t.Errorf("expected cover t1.jpg, got %q", retrieved.Cover())
		}
		if !retrieved.CreatedAt.Equal(track.CreatedAt) {
			t.Errorf("expected created_at %v, got %v", track.CreatedAt, retrieved.CreatedAt)
		}
	})

	t.Run("Upsert updates existing row", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		track := newTrack("t1", "First")
		if err := repo.Upsert(track); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}

		track.Title = "Renamed"
		track.Favorite = true
		track.ImageName = nil
		if err := repo.Upsert(track); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}

		retrieved, err := repo.Get("t1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if retrieved.Title != "Renamed" || !retrieved.Favorite {
			t.Errorf("expected renamed favorite track, got %+v", retrieved)
		}
		if retrieved.ImageName != nil {
			t.Errorf("expected nil image name, got %q", *retrieved.ImageName)
		}

		tracks, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list tracks: %v", err)
		}
		if len(tracks) != 1 {
			t.Errorf("expected 1 track, got %d", len(tracks))
		}
	})

	t.Run("Upsert rejects invalid track", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		if err := repo.Upsert(models.Track{Title: "no id"}); err == nil {
			t.Error("expected validation error for track without id")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		_, err := repo.Get("missing")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("List orders by first cached", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		for _, tr := range []models.Track{newTrack("c", "C"), newTrack("a", "A"), newTrack("b", "B")} {
			if err := repo.Upsert(tr); err != nil {
				t.Fatalf("failed to upsert track: %v", err)
			}
		}

		tracks, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list tracks: %v", err)
		}

		want := []string{"c", "a", "b"}
		if len(tracks) != len(want) {
			t.Fatalf("expected %d tracks, got %d", len(want), len(tracks))
		}
		for i, id := range want {
			if tracks[i].ID != id {
				t.Errorf("position %d: expected %s, got %s", i, id, tracks[i].ID)
			}
		}
	})

	t.Run("Delete is soft and revivable", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		if err := repo.Upsert(newTrack("t1", "First")); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}

		if err := repo.Delete("t1"); err != nil {
			t.Fatalf("failed to delete track: %v", err)
		}

		if _, err := repo.Get("t1"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected deleted track to be hidden, got %v", err)
		}

		if err := repo.Delete("t1"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected second delete to fail with ErrTrackNotFound, got %v", err)
		}

		var deletedAt sql.NullTime
		if err := db.QueryRow("SELECT deleted_at FROM tracks WHERE id = ?", "t1").Scan(&deletedAt); err != nil {
			t.Fatalf("failed to read row: %v", err)
		}
		if !deletedAt.Valid {
			t.Error("expected deleted_at to be set")
		}

		if err := repo.Upsert(newTrack("t1", "Back")); err != nil {
			t.Fatalf("failed to revive track: %v", err)
		}
		if got, err := repo.Get("t1"); err != nil || got.Title != "Back" {
			t.Errorf("expected revived track, got %+v (%v)", got, err)
		}
	})

	t.Run("Purge", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		for _, tr := range []models.Track{newTrack("a", "A"), newTrack("b", "B")} {
			if err := repo.Upsert(tr); err != nil {
				t.Fatalf("failed to upsert track: %v", err)
			}
		}

		n, err := repo.Purge()
		if err != nil {
			t.Fatalf("failed to purge: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 purged rows, got %d", n)
		}

		tracks, _ := repo.List()
		if len(tracks) != 0 {
			t.Errorf("expected empty cache after purge, got %d", len(tracks))
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	first, err := NextSequence(db, "tracks")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(db, "tracks")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	if second != first+1 {
		t.Errorf("expected consecutive sequences, got %d then %d", first, second)
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without sequence")
	}
}

// gatedFetcher counts fetches and holds them until release is closed.
type gatedFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	track   models.Track
	err     error
}

func (f *gatedFetcher) GetTrackByID(ctx context.Context, id string) (*models.Track, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	track := f.track
	return &track, nil
}

func TestTrackCache(t *testing.T) {
	t.Run("miss schedules fetch and reports ready", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		lib := &tu.MockLibrary{Tracks: []models.Track{newTrack("t1", "First")}}
		cache := NewTrackCache(context.Background(), lib, NewTrackRepository(db), nil)

		var (
			mu    sync.Mutex
			ready []string
		)
		cache.OnReady(func(id string) {
			mu.Lock()
			defer mu.Unlock()
			ready = append(ready, id)
		})

		if _, ok := cache.Lookup("t1"); ok {
			t.Fatal("expected first lookup to be pending")
		}
		cache.Wait()

		mu.Lock()
		if len(ready) != 1 || ready[0] != "t1" {
			t.Errorf("expected one ready notification for t1, got %v", ready)
		}
		mu.Unlock()

		track, ok := cache.Lookup("t1")
		if !ok || track.Title != "First" {
			t.Fatalf("expected cached track, got %+v (%v)", track, ok)
		}

		persisted, err := NewTrackRepository(db).Get("t1")
		if err != nil {
			t.Fatalf("expected track to be persisted: %v", err)
		}
		if persisted.Title != "First" {
			t.Errorf("expected persisted title First, got %s", persisted.Title)
		}
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		fetcher := &gatedFetcher{release: make(chan struct{}), track: newTrack("t1", "First")}
		cache := NewTrackCache(context.Background(), fetcher, nil, nil)

		var notified atomic.Int32
		cache.OnReady(func(string) { notified.Add(1) })

		cache.Lookup("t1")
		tu.Eventually(t, time.Second, func() bool { return fetcher.calls.Load() == 1 }, "fetch started")
		cache.Lookup("t1")
		cache.Lookup("t1")
		close(fetcher.release)
		cache.Wait()

		if got := fetcher.calls.Load(); got != 1 {
			t.Errorf("expected 1 fetch, got %d", got)
		}
		if got := notified.Load(); got != 1 {
			t.Errorf("expected 1 ready notification, got %d", got)
		}
	})

	t.Run("misses during a failing fetch do not start more", func(t *testing.T) {
		fetcher := &gatedFetcher{release: make(chan struct{}), err: shared.ErrServiceUnavailable}
		cache := NewTrackCache(context.Background(), fetcher, nil, nil)

		cache.Lookup("t1")
		tu.Eventually(t, time.Second, func() bool { return fetcher.calls.Load() == 1 }, "fetch started")
		for range 10 {
			if _, ok := cache.Lookup("t1"); ok {
				t.Fatal("expected lookup to be pending")
			}
		}
		close(fetcher.release)
		cache.Wait()

		if got := fetcher.calls.Load(); got != 1 {
			t.Errorf("expected 1 fetch, got %d", got)
		}
	})

	t.Run("failed fetch stays pending", func(t *testing.T) {
		fetcher := &gatedFetcher{err: shared.ErrServiceUnavailable}
		cache := NewTrackCache(context.Background(), fetcher, nil, nil)

		var notified atomic.Int32
		cache.OnReady(func(string) { notified.Add(1) })

		cache.Lookup("t1")
		cache.Wait()

		if _, ok := cache.Lookup("t1"); ok {
			t.Error("expected lookup to stay pending after failed fetch")
		}
		cache.Wait()

		if notified.Load() != 0 {
			t.Error("expected no ready notification after failed fetch")
		}
		if fetcher.calls.Load() != 2 {
			t.Errorf("expected a retry on the next lookup, got %d fetches", fetcher.calls.Load())
		}
	})

	t.Run("database hit skips fetch", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		if err := repo.Upsert(newTrack("t1", "Stored")); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}

		fetcher := &gatedFetcher{}
		cache := NewTrackCache(context.Background(), fetcher, repo, nil)

		track, ok := cache.Lookup("t1")
		if !ok || track.Title != "Stored" {
			t.Fatalf("expected stored track, got %+v (%v)", track, ok)
		}
		if fetcher.calls.Load() != 0 {
			t.Error("expected no fetch on database hit")
		}
	})

	t.Run("Put and Invalidate", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		fetcher := &gatedFetcher{track: newTrack("a", "Fetched")}
		cache := NewTrackCache(context.Background(), fetcher, repo, nil)

		cache.Put(newTrack("a", "Primed"), models.Track{})

		track, ok := cache.Lookup("a")
		if !ok || track.Title != "Primed" {
			t.Fatalf("expected primed track, got %+v (%v)", track, ok)
		}

		cache.Invalidate("a")
		if _, ok := cache.Lookup("a"); ok {
			t.Error("expected invalidated track to be pending")
		}
		cache.Wait()

		track, ok = cache.Lookup("a")
		if !ok || track.Title != "Fetched" {
			t.Errorf("expected refetched track, got %+v (%v)", track, ok)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		fetcher := &gatedFetcher{}
		cache := NewTrackCache(context.Background(), fetcher, nil, nil)

		if _, ok := cache.Lookup(""); ok {
			t.Error("expected empty id to be absent")
		}
		cache.Wait()
		if fetcher.calls.Load() != 0 {
			t.Error("expected no fetch for empty id")
		}
	})
}
