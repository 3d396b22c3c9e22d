// Spotify Web API implementation of [MusicService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/studyx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL     = "https://accounts.spotify.com/authorize"
	spotifyTokenURL    = "https://accounts.spotify.com/api/token"
	spotifyBaseURL     = "https://api.spotify.com/v1"
	defaultRedirectURI = "http://127.0.0.1:3000/callback"
	defaultRateLimit   = 5
	defaultPageLimit   = 20
	maxPageLimit       = 50
)

// SpotifyScopes are requested during authorization: profile and email, private and collaborative
// playlists, top items, recently played, streaming and playback control.
var SpotifyScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-top-read",
	"user-read-recently-played",
	"streaming",
	"user-read-playback-state",
	"user-modify-playback-state",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// Track converts t to the provider-neutral [Track].
func (t SpotifyTrack) Track() Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return Track{
		ID:       t.ID,
		Title:    t.Name,
		Artist:   strings.Join(names, ", "),
		Album:    t.Album.Name,
		Duration: t.DurationMS / 1000,
		URI:      t.URI,
	}
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Popularity int            `json:"popularity"`
	Images     []SpotifyImage `json:"images"`
	URI        string         `json:"uri"`
}

// Artist converts a to the provider-neutral [Artist].
func (a SpotifyArtist) Artist() Artist {
	return Artist{ID: a.ID, Name: a.Name, Genres: a.Genres, Popularity: a.Popularity, URI: a.URI}
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists and search).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	Images      []SpotifyImage      `json:"images"`
	URI         string              `json:"uri"`
}

// Playlist converts p to the provider-neutral [Playlist].
func (p SpotifySimplePlaylist) Playlist() Playlist {
	return Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Owner:       p.Owner.DisplayName,
		TrackCount:  p.Tracks.Total,
		Public:      p.Public,
		URI:         p.URI,
	}
}

// SpotifyPage is Spotify's offset paging envelope.
type SpotifyPage[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SpotifyPlayHistory is one item of the recently played list.
type SpotifyPlayHistory struct {
	Track    SpotifyTrack `json:"track"`
	PlayedAt string       `json:"played_at"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the API client somewhere other than api.spotify.com.
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithTokenURL overrides the token endpoint used for exchange and refresh.
func WithTokenURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.config.Endpoint.TokenURL = u }
}

// WithHTTPClient sets the client used for API and token requests.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithRateLimit caps requests per second. Zero or less disables the limit.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) { s.logger = l }
}

// WithTokenRefreshHandler registers fn to receive every refreshed token.
func WithTokenRefreshHandler(fn func(*oauth2.Token)) SpotifyOption {
	return func(s *SpotifyService) { s.onRefresh = fn }
}

// WithFallbackQueries replaces the canned queries used by [SpotifyService.SearchWithFallbacks].
func WithFallbackQueries(queries []string) SpotifyOption {
	return func(s *SpotifyService) {
		if len(queries) > 0 {
			s.fallbackQueries = queries
		}
	}
}

// SpotifyService implements [MusicService] for the Spotify Web API.
type SpotifyService struct {
	config          *oauth2.Config
	baseURL         string
	httpClient      *http.Client
	limiter         *rate.Limiter
	logger          *log.Logger
	onRefresh       func(*oauth2.Token)
	fallbackQueries []string

	mu    sync.Mutex
	token *oauth2.Token
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		baseURL:         spotifyBaseURL,
		httpClient:      http.DefaultClient,
		limiter:         rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit),
		logger:          log.Default(),
		fallbackQueries: DefaultFallbackQueries,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate sets the token from an access token or exchanges an authorization code.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		token := &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    credentials["token_type"],
		}
		if expiry := credentials["expiry"]; expiry != "" {
			t, err := time.Parse(time.RFC3339, expiry)
			if err != nil {
				return fmt.Errorf("%w: bad expiry %q", shared.ErrInvalidCredentials, expiry)
			}
			token.Expiry = t
		}
		return s.OAuthenticate(ctx, token)
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.config.Exchange(s.clientContext(ctx), authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// OAuthenticate sets token as the current token.
func (s *SpotifyService) OAuthenticate(_ context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidCredentials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := *token
	s.token = &t
	return nil
}

// Token returns a copy of the current token or nil.
func (s *SpotifyService) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil
	}
	t := *s.token
	return &t
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 config, used by the callback handler to exchange codes.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// refresh exchanges the refresh token for a new access token and reports it to the refresh handler.
func (s *SpotifyService) refresh(ctx context.Context) error {
	current := s.Token()
	if current == nil || current.RefreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	src := s.config.TokenSource(s.clientContext(ctx), &oauth2.Token{RefreshToken: current.RefreshToken})
	next, err := src.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}

	if err := s.OAuthenticate(ctx, next); err != nil {
		return err
	}
	s.logger.Debug("refreshed spotify token", "expiry", next.Expiry)

	if s.onRefresh != nil {
		s.onRefresh(s.Token())
	}
	return nil
}

// doRequest performs an authenticated request against the API, refreshing the token once on 401.
//
// body, when not nil, is sent as JSON. result, when not nil, receives the decoded JSON answer.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	token := s.Token()
	if token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if !token.Valid() && token.RefreshToken != "" {
		if err := s.refresh(ctx); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrTokenExpired, err)
		}
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := s.send(ctx, method, endpoint, query, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		s.logger.Debug("spotify rejected token, refreshing", "endpoint", endpoint)

		if err := s.refresh(ctx); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrTokenExpired, err)
		}
		if resp, err = s.send(ctx, method, endpoint, query, payload); err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			return fmt.Errorf("%w: refreshed token rejected", shared.ErrTokenExpired)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.statusError(method, endpoint, resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (s *SpotifyService) send(ctx context.Context, method, endpoint string, query url.Values, payload []byte) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.Token().AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return resp, nil
}

func (s *SpotifyService) statusError(method, endpoint string, resp *http.Response) error {
	var apiErr spotifyError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	msg := apiErr.Error.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && method != http.MethodGet && strings.HasPrefix(endpoint, "/me/player"):
		return fmt.Errorf("%w: %s", shared.ErrNoActiveDevice, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited, retry after %ss", shared.ErrServiceUnavailable, resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	return min(limit, maxPageLimit)
}

// Profile retrieves the current authenticated user's profile.
func (s *SpotifyService) Profile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPage[SpotifySimplePlaylist], error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(clampLimit(limit)))
	query.Set("offset", strconv.Itoa(offset))

	var page SpotifyPage[SpotifySimplePlaylist]
	if err := s.doRequest(ctx, http.MethodGet, "/me/playlists", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPlaylists retrieves all playlists for the authenticated user, following pagination.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]Playlist, error) {
	var playlists []Playlist
	offset := 0

	for {
		page, err := s.UserPlaylists(ctx, maxPageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			playlists = append(playlists, sp.Playlist())
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return playlists, nil
}

func topQuery(timeRange TimeRange, limit int) url.Values {
	if !timeRange.Valid() {
		timeRange = MediumTerm
	}
	query := url.Values{}
	query.Set("time_range", string(timeRange))
	query.Set("limit", strconv.Itoa(clampLimit(limit)))
	return query
}

// TopTracks retrieves the user's most played tracks over timeRange.
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]Track, error) {
	var page SpotifyPage[SpotifyTrack]
	if err := s.doRequest(ctx, http.MethodGet, "/me/top/tracks", topQuery(timeRange, limit), nil, &page); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(page.Items))
	for _, t := range page.Items {
		tracks = append(tracks, t.Track())
	}
	return tracks, nil
}

// TopArtists retrieves the user's most played artists over timeRange.
func (s *SpotifyService) TopArtists(ctx context.Context, timeRange TimeRange, limit int) ([]Artist, error) {
	var page SpotifyPage[SpotifyArtist]
	if err := s.doRequest(ctx, http.MethodGet, "/me/top/artists", topQuery(timeRange, limit), nil, &page); err != nil {
		return nil, err
	}

	artists := make([]Artist, 0, len(page.Items))
	for _, a := range page.Items {
		artists = append(artists, a.Artist())
	}
	return artists, nil
}

// RecentlyPlayed retrieves the most recently played tracks, newest first.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, limit int) ([]PlayedTrack, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(clampLimit(limit)))

	var page SpotifyPage[SpotifyPlayHistory]
	if err := s.doRequest(ctx, http.MethodGet, "/me/player/recently-played", query, nil, &page); err != nil {
		return nil, err
	}

	played := make([]PlayedTrack, 0, len(page.Items))
	for _, item := range page.Items {
		played = append(played, PlayedTrack{Track: item.Track.Track(), PlayedAt: item.PlayedAt})
	}
	return played, nil
}

// AvailableGenres lists the genres accepted as recommendation seeds.
func (s *SpotifyService) AvailableGenres(ctx context.Context) ([]string, error) {
	var response struct {
		Genres []string `json:"genres"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations/available-genre-seeds", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Genres, nil
}

// PlayOptions selects what to play. With no context or URIs the current playback resumes.
type PlayOptions struct {
	DeviceID   string   `json:"-"`
	ContextURI string   `json:"context_uri,omitempty"`
	URIs       []string `json:"uris,omitempty"`
	PositionMS int      `json:"position_ms,omitempty"`
}

func deviceQuery(deviceID string) url.Values {
	if deviceID == "" {
		return nil
	}
	return url.Values{"device_id": []string{deviceID}}
}

// Play starts or resumes playback.
func (s *SpotifyService) Play(ctx context.Context, opts PlayOptions) error {
	var body any
	if opts.ContextURI != "" || len(opts.URIs) > 0 || opts.PositionMS > 0 {
		body = opts
	}
	return s.doRequest(ctx, http.MethodPut, "/me/player/play", deviceQuery(opts.DeviceID), body, nil)
}

// Pause pauses playback.
func (s *SpotifyService) Pause(ctx context.Context, deviceID string) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/pause", deviceQuery(deviceID), nil, nil)
}

// Next skips to the next track.
func (s *SpotifyService) Next(ctx context.Context, deviceID string) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/next", deviceQuery(deviceID), nil, nil)
}

// Previous skips to the previous track.
func (s *SpotifyService) Previous(ctx context.Context, deviceID string) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/previous", deviceQuery(deviceID), nil, nil)
}

// SetVolume sets the playback volume in percent.
func (s *SpotifyService) SetVolume(ctx context.Context, deviceID string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume must be between 0 and 100, got %d", shared.ErrInvalidArgument, percent)
	}

	query := deviceQuery(deviceID)
	if query == nil {
		query = url.Values{}
	}
	query.Set("volume_percent", strconv.Itoa(percent))
	return s.doRequest(ctx, http.MethodPut, "/me/player/volume", query, nil, nil)
}
