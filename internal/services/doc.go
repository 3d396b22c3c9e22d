// Package services implements the Spotify panel: an OAuth2 client for the Spotify Web API covering
// the profile, playlists, listening history, search, focus-music recommendations and playback.
//
// # Interfaces
//
// [Service] is the minimal contract shared by providers. [OAuthService] adds what the CLI needs to
// run the authorization-code flow with a local callback server (see internal/server).
// [MusicService] is the full panel used by the CLI, TUI and dashboard; [SpotifyService] implements it.
//
// # Tokens
//
// Every request carries the current bearer token. When Spotify answers 401 the client refreshes the
// token once, reports the new token to the handler registered with [WithTokenRefreshHandler] so it
// can be saved, and retries. A second 401 yields [shared.ErrTokenExpired] and the caller has to
// reauthorize.
//
// # Rate limiting
//
// Requests pass through a [rate.Limiter] so bursts from the TUI or search fallbacks stay under the
// API's limits.
//
// # Errors
//
//   - [shared.ErrNotAuthenticated] : no token yet
//   - [shared.ErrTokenExpired] : refresh failed or the refreshed token was rejected
//   - [shared.ErrNoActiveDevice] : playback command with no active Spotify device
//   - [shared.ErrAPIRequest] : any other non-2xx answer
package services
