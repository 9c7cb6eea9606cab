// API service for the music server's REST endpoints
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// APIService talks to the music server. It implements [Library], [TrackFetcher] and [AudioFetcher].
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var (
	_ Library      = (*APIService)(nil)
	_ TrackFetcher = (*APIService)(nil)
	_ AudioFetcher = (*APIService)(nil)
)

// NewAPIService creates a new API service instance for the music server.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// WithRateLimit gates every request on a token bucket of rps requests per second.
//
// A non-positive rps disables limiting.
func (a *APIService) WithRateLimit(rps float64) *APIService {
	if rps <= 0 {
		a.limiter = nil
		return a
	}
	a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return a
}

// NewAuthenticatedClient returns an [http.Client] that sends token as a Bearer credential.
//
// An empty token yields a plain client with the same timeout.
func NewAuthenticatedClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	if token == "" {
		return &http.Client{Timeout: timeout}
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = timeout
	return client
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status code is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

// Patch performs a PATCH request with the given JSON data and returns the raw response.
func (a *APIService) Patch(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPatch, path, data)
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodDelete, path, nil)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	fullURL := a.baseURL + path

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	var jsonData any
	if err := json.Unmarshal(respBody, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// statusError converts a non-2xx response into an error wrapping [shared.ErrAPIRequest],
// or notFound when the server answered 404 and notFound is set.
func statusError(resp *APIResponse, notFound error) error {
	if notFound != nil && resp.StatusCode == http.StatusNotFound {
		return notFound
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: status %d", shared.ErrNotAuthenticated, resp.StatusCode)
	}

	var payload struct {
		Message string `json:"message"`
	}
	if resp.IsJSON && json.Unmarshal(resp.Body, &payload) == nil && payload.Message != "" {
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, payload.Message)
	}
	return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
}

func (a *APIService) getJSON(ctx context.Context, path string, notFound error, v any) error {
	resp, err := a.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return statusError(resp, notFound)
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

// send issues a request whose response body is ignored. A nil body is sent as "{}" on POST.
func (a *APIService) send(ctx context.Context, method, path string, body any, notFound error) error {
	var data []byte
	switch {
	case body != nil:
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request: %w", shared.ErrAPIRequest, err)
		}
		data = encoded
	case method == http.MethodPost:
		data = []byte("{}")
	}

	resp, err := a.do(ctx, method, path, data)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return statusError(resp, notFound)
	}
	return nil
}

// GetTracks lists the user's tracks, filtered server-side by query.
func (a *APIService) GetTracks(ctx context.Context, query string) ([]models.Track, error) {
	var tracks []models.Track
	if err := a.getJSON(ctx, "/api/tracks?q="+url.QueryEscape(query), nil, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// GetTrackByID fetches a single track record.
func (a *APIService) GetTrackByID(ctx context.Context, id string) (*models.Track, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty track id", shared.ErrInvalidArgument)
	}

	var track models.Track
	if err := a.getJSON(ctx, "/api/tracks/"+url.PathEscape(id), shared.ErrTrackNotFound, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// DeleteTrack permanently removes a track from the server.
func (a *APIService) DeleteTrack(ctx context.Context, id string) error {
	return a.send(ctx, http.MethodDelete, "/api/tracks/"+url.PathEscape(id), nil, shared.ErrTrackNotFound)
}

// GetPlaylists lists all playlists, including favorites.
func (a *APIService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := a.getJSON(ctx, "/api/playlists", nil, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// GetPlaylistByID fetches a playlist with its tracks.
func (a *APIService) GetPlaylistByID(ctx context.Context, id string) (*models.Playlist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty playlist id", shared.ErrInvalidArgument)
	}

	var playlist models.Playlist
	if err := a.getJSON(ctx, "/api/playlists/"+url.PathEscape(id), shared.ErrPlaylistNotFound, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// CreatePlaylist creates an empty regular playlist. The id is generated client-side.
func (a *APIService) CreatePlaylist(ctx context.Context, title string) (*models.Playlist, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty playlist title", shared.ErrInvalidArgument)
	}

	playlist := models.Playlist{ID: shared.GenerateID(), Title: title, Type: models.PlaylistRegular}
	body := map[string]string{"id": playlist.ID, "title": playlist.Title, "type": string(playlist.Type)}
	if err := a.send(ctx, http.MethodPost, "/api/playlists", body, nil); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// RenamePlaylist changes a playlist's title.
func (a *APIService) RenamePlaylist(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if id == "" || title == "" {
		return fmt.Errorf("%w: playlist id and title are required", shared.ErrInvalidArgument)
	}
	return a.send(ctx, http.MethodPatch, "/api/playlists/"+url.PathEscape(id), map[string]string{"title": title}, shared.ErrPlaylistNotFound)
}

// DeletePlaylist removes a playlist. Its tracks are kept.
func (a *APIService) DeletePlaylist(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty playlist id", shared.ErrInvalidArgument)
	}
	return a.send(ctx, http.MethodDelete, "/api/playlists/"+url.PathEscape(id), nil, shared.ErrPlaylistNotFound)
}

// AddTrackToPlaylist appends a track to a playlist.
func (a *APIService) AddTrackToPlaylist(ctx context.Context, playlistID, trackID string) error {
	return a.send(ctx, http.MethodPost, playlistTrackPath(playlistID, trackID), nil, shared.ErrPlaylistNotFound)
}

// RemoveTrackFromPlaylist removes a track from a playlist.
func (a *APIService) RemoveTrackFromPlaylist(ctx context.Context, playlistID, trackID string) error {
	return a.send(ctx, http.MethodDelete, playlistTrackPath(playlistID, trackID), nil, shared.ErrPlaylistNotFound)
}

// AddFavorite marks a track as a favorite.
func (a *APIService) AddFavorite(ctx context.Context, trackID string) error {
	return a.send(ctx, http.MethodPost, playlistTrackPath("favorites", trackID), nil, shared.ErrTrackNotFound)
}

// RemoveFavorite unmarks a favorite track.
func (a *APIService) RemoveFavorite(ctx context.Context, trackID string) error {
	return a.send(ctx, http.MethodDelete, playlistTrackPath("favorites", trackID), nil, shared.ErrTrackNotFound)
}

// FetchAudio downloads the raw audio payload stored under reference.
func (a *APIService) FetchAudio(ctx context.Context, reference string) ([]byte, error) {
	if reference == "" {
		return nil, shared.ErrMissingReference
	}

	resp, err := a.Get(ctx, "/audio/"+url.PathEscape(reference))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return nil, statusError(resp, shared.ErrTrackNotFound)
	}
	return resp.Body, nil
}

// Health checks that the server is reachable and accepts the configured credentials.
func (a *APIService) Health(ctx context.Context) error {
	resp, err := a.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return statusError(resp, nil)
	}
	return nil
}

// defaultCover is served for tracks and playlists without their own image.
const defaultCover = "default_cover_track_image.png"

// CoverURL returns the absolute URL of a cover image, falling back to the server's default cover.
func (a *APIService) CoverURL(imageName string) string {
	if imageName == "" {
		imageName = defaultCover
	}
	return a.baseURL + "/images/" + url.PathEscape(imageName)
}

func playlistTrackPath(playlistID, trackID string) string {
	return "/api/playlists/" + url.PathEscape(playlistID) + "/tracks/" + url.PathEscape(trackID)
}
