package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient)

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.baseURL != "http://localhost:3000" {
				t.Errorf("expected default baseURL 'http://localhost:3000', got %s", srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})

		t.Run("Rate Limit", func(t *testing.T) {
			srv := NewAPIService("", nil).WithRateLimit(5)
			if srv.limiter == nil {
				t.Fatal("expected limiter to be installed")
			}
			srv.WithRateLimit(0)
			if srv.limiter != nil {
				t.Error("expected zero rps to disable the limiter")
			}
		})
	})

	t.Run("CoverURL", func(t *testing.T) {
		srv := NewAPIService("http://example.com", nil)

		if got := srv.CoverURL("cover art.png"); got != "http://example.com/images/cover%20art.png" {
			t.Errorf("unexpected cover URL %s", got)
		}
		if got := srv.CoverURL(""); got != "http://example.com/images/default_cover_track_image.png" {
			t.Errorf("expected default cover, got %s", got)
		}
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() {
				t.Errorf("expected 2xx status, got %d", resp.StatusCode)
			}
			if !resp.IsJSON {
				t.Error("expected response to be JSON")
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)
			_, err := srv.Get(context.Background(), "/test\x00invalid")

			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}

			srv := NewAPIService("http://example.com", client)
			_, err := srv.Get(context.Background(), "/test")

			if err == nil || !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			srv := NewAPIService("http://example.com", client)
			_, err := srv.Get(context.Background(), "/test")

			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			srv := NewAPIService(server.URL, nil).WithRateLimit(1)
			if _, err := srv.Get(ctx, "/test"); err == nil {
				t.Error("expected error for canceled context")
			}
		})
	})

	t.Run("Post", func(t *testing.T) {
		t.Run("Sends JSON Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("expected Content-Type 'application/json', got %s", r.Header.Get("Content-Type"))
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"test":"data"}` {
					t.Errorf("unexpected body %s", body)
				}
				w.WriteHeader(http.StatusCreated)
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Post(context.Background(), "/test", []byte(`{"test":"data"}`))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusCreated {
				t.Errorf("expected status 201, got %d", resp.StatusCode)
			}
		})
	})
}

func TestAPIServiceTracks(t *testing.T) {
	cover := "cover-1"
	track := models.Track{
		ID:        "t1",
		Title:     "Blue in Green",
		Artist:    "Miles Davis",
		TrackName: "t1.mp3",
		ImageName: &cover,
		Duration:  337,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tracks", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "blue green" {
			t.Errorf("expected query 'blue green', got %q", got)
		}
		json.NewEncoder(w).Encode([]models.Track{track})
	})
	mux.HandleFunc("/api/tracks/t1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(track)
		case http.MethodDelete:
			json.NewEncoder(w).Encode(map[string]string{"message": "Track deleted successfully."})
		}
	})
	mux.HandleFunc("/api/tracks/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Track not found"})
	})
	mux.HandleFunc("/api/tracks/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "database unavailable"})
	})
	mux.HandleFunc("/audio/t1.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3-fake-audio"))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	srv := NewAPIService(server.URL, nil)
	ctx := context.Background()

	t.Run("GetTracks", func(t *testing.T) {
		tracks, err := srv.GetTracks(ctx, "blue green")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].Title != "Blue in Green" {
			t.Errorf("unexpected tracks %+v", tracks)
		}
		if tracks[0].Cover() != "cover-1" {
			t.Errorf("expected cover-1, got %q", tracks[0].Cover())
		}
	})

	t.Run("GetTrackByID", func(t *testing.T) {
		got, err := srv.GetTrackByID(ctx, "t1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Duration != 337 || !got.CreatedAt.Equal(track.CreatedAt) {
			t.Errorf("unexpected track %+v", got)
		}
	})

	t.Run("GetTrackByID Not Found", func(t *testing.T) {
		_, err := srv.GetTrackByID(ctx, "missing")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("GetTrackByID Empty", func(t *testing.T) {
		_, err := srv.GetTrackByID(ctx, "")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Server Error Carries Message", func(t *testing.T) {
		_, err := srv.GetTrackByID(ctx, "broken")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "database unavailable") {
			t.Errorf("expected server message in error, got %v", err)
		}
	})

	t.Run("DeleteTrack", func(t *testing.T) {
		if err := srv.DeleteTrack(ctx, "t1"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("FetchAudio", func(t *testing.T) {
		data, err := srv.FetchAudio(ctx, "t1.mp3")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != "ID3-fake-audio" {
			t.Errorf("unexpected payload %q", data)
		}
	})

	t.Run("FetchAudio Missing Reference", func(t *testing.T) {
		if _, err := srv.FetchAudio(ctx, ""); !errors.Is(err, shared.ErrMissingReference) {
			t.Errorf("expected ErrMissingReference, got %v", err)
		}
	})
}

func TestAPIServicePlaylists(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/playlists":
			json.NewEncoder(w).Encode([]models.Playlist{
				{ID: "fav", Title: "Favorites", Type: models.PlaylistFavorite},
				{ID: "p1", Title: "Late Night", Type: models.PlaylistRegular, TrackCount: 2},
			})
		case "/api/playlists/p1":
			json.NewEncoder(w).Encode(models.Playlist{
				ID:     "p1",
				Title:  "Late Night",
				Tracks: []models.Track{{ID: "a"}, {ID: "b"}},
			})
		case "/api/playlists/nope":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	srv := NewAPIService(server.URL, nil)
	ctx := context.Background()

	playlists, err := srv.GetPlaylists(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(playlists) != 2 || !playlists[0].IsFavorites() {
		t.Errorf("unexpected playlists %+v", playlists)
	}

	playlist, err := srv.GetPlaylistByID(ctx, "p1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(playlist.Tracks) != 2 {
		t.Errorf("expected 2 tracks, got %d", len(playlist.Tracks))
	}

	if _, err := srv.GetPlaylistByID(ctx, "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}

	if err := srv.AddTrackToPlaylist(ctx, "p1", "a"); err != nil {
		t.Errorf("AddTrackToPlaylist: %v", err)
	}
	if err := srv.RemoveTrackFromPlaylist(ctx, "p1", "a"); err != nil {
		t.Errorf("RemoveTrackFromPlaylist: %v", err)
	}
	if err := srv.AddFavorite(ctx, "a"); err != nil {
		t.Errorf("AddFavorite: %v", err)
	}
	if err := srv.RemoveFavorite(ctx, "a"); err != nil {
		t.Errorf("RemoveFavorite: %v", err)
	}

	want := []string{
		"POST /api/playlists/p1/tracks/a",
		"DELETE /api/playlists/p1/tracks/a",
		"POST /api/playlists/favorites/tracks/a",
		"DELETE /api/playlists/favorites/tracks/a",
	}
	mu.Lock()
	got := calls[len(calls)-len(want):]
	mu.Unlock()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestAPIServicePlaylistEdits(t *testing.T) {
	type request struct {
		method, path string
		body         map[string]string
	}
	var (
		mu       sync.Mutex
		requests []request
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := request{method: r.Method, path: r.URL.Path}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			if err := json.Unmarshal(data, &req.body); err != nil {
				t.Errorf("expected JSON body, got %s", data)
			}
		}
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		if strings.HasSuffix(r.URL.Path, "/nope") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"ok","playlistId":"p1"}`))
	}))
	defer server.Close()

	srv := NewAPIService(server.URL, nil)
	ctx := context.Background()

	last := func() request {
		mu.Lock()
		defer mu.Unlock()
		return requests[len(requests)-1]
	}

	t.Run("CreatePlaylist", func(t *testing.T) {
		playlist, err := srv.CreatePlaylist(ctx, "  Late Night ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.ID == "" || playlist.Title != "Late Night" || playlist.Type != models.PlaylistRegular {
			t.Errorf("unexpected playlist %+v", playlist)
		}

		req := last()
		if req.method != http.MethodPost || req.path != "/api/playlists" {
			t.Errorf("unexpected request %s %s", req.method, req.path)
		}
		if req.body["id"] != playlist.ID || req.body["title"] != "Late Night" || req.body["type"] != "regular" {
			t.Errorf("unexpected body %v", req.body)
		}
	})

	t.Run("CreatePlaylist Empty Title", func(t *testing.T) {
		if _, err := srv.CreatePlaylist(ctx, " "); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("RenamePlaylist", func(t *testing.T) {
		if err := srv.RenamePlaylist(ctx, "p1", "Early Morning"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		req := last()
		if req.method != http.MethodPatch || req.path != "/api/playlists/p1" || req.body["title"] != "Early Morning" {
			t.Errorf("unexpected request %+v", req)
		}

		if err := srv.RenamePlaylist(ctx, "nope", "x"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("DeletePlaylist", func(t *testing.T) {
		if err := srv.DeletePlaylist(ctx, "p1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		req := last()
		if req.method != http.MethodDelete || req.path != "/api/playlists/p1" || req.body != nil {
			t.Errorf("unexpected request %+v", req)
		}

		if err := srv.DeletePlaylist(ctx, "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if err := srv.DeletePlaylist(ctx, ""); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAPIServiceCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	srv := NewAPIService(server.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := map[string]func() error{
		"GetTracks": func() error {
			_, err := srv.GetTracks(ctx, "")
			return err
		},
		"DeleteTrack": func() error { return srv.DeleteTrack(ctx, "t1") },
		"FetchAudio": func() error {
			_, err := srv.FetchAudio(ctx, "t1.mp3")
			return err
		},
		"Health": func() error { return srv.Health(ctx) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled in the chain, got %v", err)
			}
		})
	}
}

func TestNewAuthenticatedClient(t *testing.T) {
	t.Run("Sends Bearer Token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer s3cret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewAuthenticatedClient(context.Background(), "s3cret", time.Second)
		srv := NewAPIService(server.URL, client)
		if err := srv.Health(context.Background()); err != nil {
			t.Errorf("expected healthy, got %v", err)
		}
	})

	t.Run("Unauthorized Without Token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewAuthenticatedClient(context.Background(), "", time.Second)
		if client.Timeout != time.Second {
			t.Errorf("expected timeout to be kept, got %v", client.Timeout)
		}
		srv := NewAPIService(server.URL, client)
		if err := srv.Health(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}
