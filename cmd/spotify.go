package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/studyx/internal/server"
	"github.com/desertthunder/studyx/internal/services"
	"github.com/desertthunder/studyx/internal/shared"
)

// AuthTimeout bounds how long `spotify auth` waits for the browser callback.
var AuthTimeout = 2 * time.Minute

// SpotifyReauth performs the full OAuth2 flow to get new tokens
func (r *Runner) SpotifyReauth(ctx context.Context, configPath string, config *shared.Config, srv services.OAuthService) (*shared.Config, error) {
	token, err := r.doOAuth(ctx, config, srv, "reauthorization")
	if err != nil {
		return nil, err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return nil, fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Reauthorization successful")
	r.writePlain("✓ New tokens saved to %s\n", configPath)

	return config, nil
}

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	configPath := r.resolveConfigPath(cmd)
	config := r.loadConfig(configPath)

	if !config.Credentials.Spotify.Configured() {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, configPath)
	}

	spotifyService, err := services.NewSpotifyService(config.Credentials.Spotify.Map(), services.WithLogger(r.logger))
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, config, spotifyService, "authorization")
	if err != nil {
		return err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.config = config

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: studyx spotify recommend\n")

	return nil
}

// SpotifyProfile shows the connected account.
func (r *Runner) SpotifyProfile(ctx context.Context, cmd *cli.Command) error {
	var user *services.SpotifyUser
	err := r.spotifyCall(ctx, cmd, func() (err error) {
		user, err = r.spotify.Profile(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlain("%s (%s)\n", user.DisplayName, user.ID)
	if user.Email != "" {
		r.writePlain("  Email: %s\n", user.Email)
	}
	r.writePlain("  Plan: %s\n", user.Product)
	r.writePlain("  Followers: %d\n", user.Followers.Total)
	return nil
}

// SpotifyPlaylists lists Spotify playlists with optional limit.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	r.logger.Infof("listing spotify playlists with limit %v", limit)

	var playlists []services.Playlist
	err := r.spotifyCall(ctx, cmd, func() (err error) {
		playlists, err = r.spotify.GetPlaylists(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   URI: %s\n", p.URI)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("\n")
	}

	return nil
}

// SpotifyTop lists the user's top tracks or artists.
func (r *Runner) SpotifyTop(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	timeRange := services.TimeRange(cmd.String("range"))
	if !timeRange.Valid() {
		return fmt.Errorf("%w: --range must be short_term, medium_term or long_term", shared.ErrInvalidFlag)
	}

	switch kind := cmd.String("type"); kind {
	case "tracks":
		var tracks []services.Track
		err := r.spotifyCall(ctx, cmd, func() (err error) {
			tracks, err = r.spotify.TopTracks(ctx, timeRange, limit)
			return err
		})
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(tracks, cmd.Bool("pretty"))
		}
		r.writeTracks(fmt.Sprintf("Top tracks (%s)", timeRange), tracks)
		return nil
	case "artists":
		var artists []services.Artist
		err := r.spotifyCall(ctx, cmd, func() (err error) {
			artists, err = r.spotify.TopArtists(ctx, timeRange, limit)
			return err
		})
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(artists, cmd.Bool("pretty"))
		}
		r.writeArtists(fmt.Sprintf("Top artists (%s)", timeRange), artists)
		return nil
	default:
		return fmt.Errorf("%w: --type must be tracks or artists, got %q", shared.ErrInvalidFlag, kind)
	}
}

// SpotifyRecent lists recently played tracks.
func (r *Runner) SpotifyRecent(ctx context.Context, cmd *cli.Command) error {
	var played []services.PlayedTrack
	err := r.spotifyCall(ctx, cmd, func() (err error) {
		played, err = r.spotify.RecentlyPlayed(ctx, cmd.Int("limit"))
		return err
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(played, cmd.Bool("pretty"))
	}

	r.writePlain("Recently played (%d):\n\n", len(played))
	for i, p := range played {
		r.writePlain("%d. %s - %s\n", i+1, p.Track.Artist, p.Track.Title)
		if p.PlayedAt != "" {
			r.writePlain("   Played: %s\n", p.PlayedAt)
		}
	}
	return nil
}

// SpotifySearch searches Spotify, loosening the query step by step unless --exact is set.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	types := cmd.StringSlice("type")
	limit := cmd.Int("limit")

	var answer *services.FallbackSearch
	err := r.spotifyCall(ctx, cmd, func() error {
		if cmd.Bool("exact") {
			results, err := r.spotify.Search(ctx, query, types, limit)
			if err != nil {
				return err
			}
			answer = &services.FallbackSearch{Results: results, Query: query}
			return nil
		}

		var err error
		answer, err = r.spotify.SearchWithFallbacks(ctx, query, types, limit)
		return err
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(answer, cmd.Bool("pretty"))
	}

	if answer.FallbackUsed {
		r.writePlain("⚠ %s\n\n", answer.Message)
	}
	if answer.Results.Empty() {
		return r.writePlain("No results for %q\n", query)
	}
	if len(answer.Results.Tracks) > 0 {
		r.writeTracks("Tracks", answer.Results.Tracks)
	}
	if len(answer.Results.Artists) > 0 {
		r.writeArtists("Artists", answer.Results.Artists)
	}
	if len(answer.Results.Playlists) > 0 {
		r.writePlain("Playlists:\n")
		for i, p := range answer.Results.Playlists {
			r.writePlain("%d. %s (%d tracks)\n   %s\n", i+1, p.Name, p.TrackCount, p.URI)
		}
	}
	return nil
}

// SpotifyRecommend lists focus-friendly recommendations.
func (r *Runner) SpotifyRecommend(ctx context.Context, cmd *cli.Command) error {
	params := services.RecommendationParams{
		SeedGenres:             cmd.StringSlice("genre"),
		SeedArtists:            cmd.StringSlice("artist"),
		SeedTracks:             cmd.StringSlice("track"),
		Limit:                  cmd.Int("limit"),
		TargetEnergy:           cmd.Float("energy"),
		TargetInstrumentalness: cmd.Float("instrumentalness"),
	}
	if seeds := len(params.SeedGenres) + len(params.SeedArtists) + len(params.SeedTracks); seeds > 5 {
		return fmt.Errorf("%w: at most 5 seeds in total, got %d", shared.ErrInvalidFlag, seeds)
	}

	var tracks []services.Track
	err := r.spotifyCall(ctx, cmd, func() (err error) {
		tracks, err = r.spotify.Recommendations(ctx, params)
		return err
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	r.writeTracks("Recommended for studying", tracks)
	return nil
}

// SpotifyGenres lists the genres accepted as recommendation seeds.
func (r *Runner) SpotifyGenres(ctx context.Context, cmd *cli.Command) error {
	var genres []string
	err := r.spotifyCall(ctx, cmd, func() (err error) {
		genres, err = r.spotify.AvailableGenres(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(genres, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", strings.Join(genres, "\n"))
}

// SpotifyPlay resumes playback or starts a context or list of tracks.
func (r *Runner) SpotifyPlay(ctx context.Context, cmd *cli.Command) error {
	opts := services.PlayOptions{
		DeviceID:   cmd.String("device"),
		ContextURI: cmd.String("context"),
		URIs:       cmd.StringSlice("uri"),
	}
	if opts.ContextURI != "" && len(opts.URIs) > 0 {
		return fmt.Errorf("%w: --context and --uri are mutually exclusive", shared.ErrInvalidFlag)
	}

	if err := r.spotifyCall(ctx, cmd, func() error { return r.spotify.Play(ctx, opts) }); err != nil {
		return r.playbackError(err)
	}
	return r.writePlain("▶ Playing\n")
}

// SpotifyPause pauses playback.
func (r *Runner) SpotifyPause(ctx context.Context, cmd *cli.Command) error {
	device := cmd.String("device")
	if err := r.spotifyCall(ctx, cmd, func() error { return r.spotify.Pause(ctx, device) }); err != nil {
		return r.playbackError(err)
	}
	return r.writePlain("⏸ Paused\n")
}

// SpotifyNext skips to the next track.
func (r *Runner) SpotifyNext(ctx context.Context, cmd *cli.Command) error {
	device := cmd.String("device")
	if err := r.spotifyCall(ctx, cmd, func() error { return r.spotify.Next(ctx, device) }); err != nil {
		return r.playbackError(err)
	}
	return r.writePlain("⏭ Skipped\n")
}

// SpotifyPrevious goes back to the previous track.
func (r *Runner) SpotifyPrevious(ctx context.Context, cmd *cli.Command) error {
	device := cmd.String("device")
	if err := r.spotifyCall(ctx, cmd, func() error { return r.spotify.Previous(ctx, device) }); err != nil {
		return r.playbackError(err)
	}
	return r.writePlain("⏮ Previous track\n")
}

// SpotifyVolume sets the playback volume.
func (r *Runner) SpotifyVolume(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("percent")
	if arg == "" {
		return fmt.Errorf("%w: volume percent", shared.ErrMissingArgument)
	}
	percent, err := strconv.Atoi(strings.TrimSuffix(arg, "%"))
	if err != nil || percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume must be between 0 and 100, got %q", shared.ErrInvalidArgument, arg)
	}

	device := cmd.String("device")
	if err := r.spotifyCall(ctx, cmd, func() error { return r.spotify.SetVolume(ctx, device, percent) }); err != nil {
		return r.playbackError(err)
	}
	return r.writePlain("🔊 Volume %d%%\n", percent)
}

func (r *Runner) playbackError(err error) error {
	if errors.Is(err, shared.ErrNoActiveDevice) {
		return fmt.Errorf("%w: open Spotify on a device first or pass --device", err)
	}
	return err
}

func (r *Runner) writeTracks(title string, tracks []services.Track) {
	r.writePlain("%s (%d):\n\n", title, len(tracks))
	for i, t := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, t.Artist, t.Title)
		if t.Album != "" {
			r.writePlain("   Album: %s\n", t.Album)
		}
		r.writePlain("   URI: %s\n", t.URI)
	}
	r.writePlain("\n")
}

func (r *Runner) writeArtists(title string, artists []services.Artist) {
	r.writePlain("%s (%d):\n\n", title, len(artists))
	for i, a := range artists {
		r.writePlain("%d. %s\n", i+1, a.Name)
		if len(a.Genres) > 0 {
			r.writePlain("   Genres: %s\n", strings.Join(a.Genres, ", "))
		}
	}
	r.writePlain("\n")
}

// spotifyCall runs fn against the configured Spotify service. An expired token triggers
// reauthorization and a single retry.
func (r *Runner) spotifyCall(ctx context.Context, cmd *cli.Command, fn func() error) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized (set credentials, then run `studyx spotify auth`)", shared.ErrServiceUnavailable)
	}

	err := fn()
	if err == nil {
		return nil
	}

	reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd)
	if !reauthed {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if authErr != nil {
		return authErr
	}
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

func (r *Runner) resolveConfigPath(cmd *cli.Command) string {
	if path := cmd.String("config"); path != "" {
		return path
	}
	if r.configPath != "" {
		return r.configPath
	}
	return "config.toml"
}

// loadConfig returns the runner's config or loads it from path, falling back to defaults.
func (r *Runner) loadConfig(path string) *shared.Config {
	if r.config != nil {
		return r.config
	}
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err == nil {
			return config
		}
		r.logger.Warnf("failed to load config, using defaults %v", err)
	}
	return shared.DefaultConfig()
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, config *shared.Config, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger), server.RecoverMiddleware(r.logger))
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveCtx, stop := context.WithCancel(ctx)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, httpServer.Addr)
		serverErrors <- server.Serve(serveCtx, httpServer)
	}()

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", AuthTimeout)

	timeout := time.NewTimer(AuthTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = errors.New("callback server stopped")
		}
		return nil, err
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, AuthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	stop()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// handleSpotifyAuthError checks if an error is a token expiration error and triggers reauthorization if needed.
func (r *Runner) handleSpotifyAuthError(ctx context.Context, err error, cmd *cli.Command) (bool, error) {
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, shared.ErrTokenExpired) {
		return false, err
	}

	r.writePlainln("⚠ Authentication token expired. Starting reauthorization...\n")

	configPath := r.resolveConfigPath(cmd)
	config := r.config
	if config == nil {
		if _, statErr := os.Stat(configPath); statErr != nil {
			return true, fmt.Errorf("config file not found: %w", statErr)
		}
		var loadErr error
		if config, loadErr = shared.LoadConfig(configPath); loadErr != nil {
			return true, fmt.Errorf("failed to load config: %w", loadErr)
		}
	}

	updatedConfig, reauthErr := r.SpotifyReauth(ctx, configPath, config, r.spotify)
	if reauthErr != nil {
		return true, fmt.Errorf("reauthorization failed: %w", reauthErr)
	}

	if authErr := r.spotify.OAuthenticate(ctx, updatedConfig.Credentials.Spotify.Token()); authErr != nil {
		return true, fmt.Errorf("failed to authenticate with new tokens: %w", authErr)
	}

	r.config = updatedConfig
	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...\n")

	return true, nil
}
