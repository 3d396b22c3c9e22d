package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./studyx.db" {
			t.Errorf("expected database path ./studyx.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Timer.Namespace != "timer-storage" {
			t.Errorf("expected namespace timer-storage, got %s", config.Timer.Namespace)
		}

		if !config.Timer.AutoContinue {
			t.Error("expected auto_continue to default to true")
		}

		if config.Spotify.RateLimit != 5.0 {
			t.Errorf("expected rate limit 5, got %v", config.Spotify.RateLimit)
		}

		if len(config.Spotify.FallbackQueries) == 0 {
			t.Error("expected fallback queries")
		}

		if config.Credentials.Spotify.Configured() {
			t.Error("placeholder credentials should not count as configured")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[timer]
auto_continue = false

[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Timer.AutoContinue {
			t.Error("expected auto_continue to be overridden")
		}

		if config.Timer.Namespace != "timer-storage" {
			t.Errorf("missing keys should keep defaults, got namespace %q", config.Timer.Namespace)
		}

		if !config.Credentials.Spotify.Configured() {
			t.Error("expected spotify credentials to be configured")
		}
	})

	t.Run("LoadConfig rejects invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[timer\nnope"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("SaveConfig round trips tokens", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()

		expiry := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
		token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: expiry}
		if err := config.Credentials.Spotify.Update(token); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("SaveConfig() error = %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		got := loaded.Credentials.Spotify.Token()
		if got == nil {
			t.Fatal("expected token after reload")
		}
		if got.AccessToken != "access" || got.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", got)
		}
		if !got.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, got.Expiry)
		}
	})
}

func TestSpotifyConfigUpdate(t *testing.T) {
	t.Run("keeps refresh token when response omits it", func(t *testing.T) {
		cfg := SpotifyConfig{RefreshToken: "old_refresh"}
		if err := cfg.Update(&oauth2.Token{AccessToken: "new_access"}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if cfg.RefreshToken != "old_refresh" {
			t.Errorf("expected refresh token to be kept, got %q", cfg.RefreshToken)
		}
		if cfg.Expiry != "" {
			t.Errorf("expected empty expiry, got %q", cfg.Expiry)
		}
	})

	t.Run("rejects empty tokens", func(t *testing.T) {
		var cfg SpotifyConfig
		if err := cfg.Update(nil); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for nil, got %v", err)
		}
		if err := cfg.Update(&oauth2.Token{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for empty, got %v", err)
		}
	})

	t.Run("Token is nil without stored tokens", func(t *testing.T) {
		if (SpotifyConfig{}).Token() != nil {
			t.Error("expected nil token")
		}
	})
}
