// package services defines the music provider interfaces and the Spotify implementation
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Service is implemented by every music provider.
type Service interface {
	// Authenticate accepts either "access_token" (optionally with "refresh_token" and an RFC3339
	// "expiry") or "auth_code" to exchange.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Name returns the display name of the provider.
	Name() string
}

// OAuthService is a [Service] authorized through the OAuth2 authorization-code flow.
type OAuthService interface {
	Service
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// MusicService is the Spotify panel.
type MusicService interface {
	OAuthService
	Profile(ctx context.Context) (*SpotifyUser, error)
	GetPlaylists(ctx context.Context) ([]Playlist, error)
	TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]Track, error)
	TopArtists(ctx context.Context, timeRange TimeRange, limit int) ([]Artist, error)
	RecentlyPlayed(ctx context.Context, limit int) ([]PlayedTrack, error)
	Search(ctx context.Context, query string, types []string, limit int) (*SearchResults, error)
	SearchWithFallbacks(ctx context.Context, query string, types []string, limit int) (*FallbackSearch, error)
	Recommendations(ctx context.Context, params RecommendationParams) ([]Track, error)
	AvailableGenres(ctx context.Context) ([]string, error)
	Play(ctx context.Context, opts PlayOptions) error
	Pause(ctx context.Context, deviceID string) error
	Next(ctx context.Context, deviceID string) error
	Previous(ctx context.Context, deviceID string) error
	SetVolume(ctx context.Context, deviceID string, percent int) error
}

// TimeRange selects the window for top tracks and artists.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"
	MediumTerm TimeRange = "medium_term"
	LongTerm   TimeRange = "long_term"
)

// Valid reports whether r is one of the ranges Spotify accepts.
func (r TimeRange) Valid() bool {
	return r == ShortTerm || r == MediumTerm || r == LongTerm
}

// Playlist is a provider-neutral playlist summary.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	URI         string `json:"uri"`
}

// Track is a provider-neutral track summary.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration"` // Duration in seconds
	URI      string `json:"uri"`
}

// Artist is a provider-neutral artist summary.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres,omitempty"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
}

// PlayedTrack is an entry of the listening history.
type PlayedTrack struct {
	Track    Track  `json:"track"`
	PlayedAt string `json:"played_at"`
}
