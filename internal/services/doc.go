// Package services implements the client side of the music server's REST API.
//
// # Interfaces
//
// [Library] covers track and playlist management, [TrackFetcher] the single-record lookup
// backing the track cache, and [AudioFetcher] the raw byte download the blob loader uses.
// [APIService] implements all three.
//
// # Authentication
//
// Requests carry a Bearer token through an [oauth2.Transport] built by [NewAuthenticatedClient]
// from a static token source. The server issues long-lived tokens, so no refresh is attempted.
//
// # Rate Limiting
//
// [APIService.WithRateLimit] installs a [rate.Limiter]; every request waits on it with the caller's context.
//
// # Error Handling
//
// Non-2xx responses map to typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrTrackNotFound] / [shared.ErrPlaylistNotFound] : 404 on a single-record endpoint
//   - [shared.ErrAPIRequest] : everything else, carrying the server's message when it sent one
package services
