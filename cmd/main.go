package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/studyx/internal/services"
	"github.com/desertthunder/studyx/internal/shared"
)

// ConfigEnv overrides the default config.toml location.
const ConfigEnv = "STUDYX_CONFIG"

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	if p := os.Getenv(ConfigEnv); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	shared.SetLogLevel(logger, config.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Spotify:    newSpotifyService(ctx, config, configPath, logger),
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "studyx",
		Usage:    "Pomodoro study timer with streaks, history and focus music",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Error("command failed", "error", err)
		runner.Close()
		stop()
		os.Exit(shared.ExitCode(err))
	}
}

// newSpotifyService builds the Spotify client when credentials are configured. Refreshed tokens are
// written back to the config file.
func newSpotifyService(ctx context.Context, config *shared.Config, configPath string, logger *log.Logger) services.MusicService {
	if !config.Credentials.Spotify.Configured() {
		return nil
	}

	svcLogger := shared.WithLogger(logger, "service", "spotify")
	svc, err := services.NewSpotifyService(
		config.Credentials.Spotify.Map(),
		services.WithLogger(svcLogger),
		services.WithRateLimit(config.Spotify.RateLimit),
		services.WithFallbackQueries(config.Spotify.FallbackQueries),
		services.WithTokenRefreshHandler(func(token *oauth2.Token) {
			if err := config.Credentials.Spotify.Update(token); err != nil {
				svcLogger.Warn("failed to record refreshed token", "error", err)
				return
			}
			if err := shared.SaveConfig(configPath, config); err != nil {
				svcLogger.Warn("failed to save refreshed token", "error", err)
			}
		}),
	)
	if err != nil {
		logger.Warn("spotify disabled", "error", err)
		return nil
	}

	if token := config.Credentials.Spotify.Token(); token != nil {
		if err := svc.OAuthenticate(ctx, token); err != nil {
			logger.Debug("stored spotify token rejected", "error", err)
		}
	}
	return svc
}
