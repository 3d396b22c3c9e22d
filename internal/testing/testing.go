// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/studyx/internal/services"
	"github.com/desertthunder/studyx/internal/shared"
)

// MockMusicService is a test double for [services.MusicService]. Fields hold canned results;
// Calls records the invoked method names in order.
type MockMusicService struct {
	mu sync.Mutex

	User      *services.SpotifyUser
	Playlists []services.Playlist
	Tracks    []services.Track
	Artists   []services.Artist
	Played    []services.PlayedTrack
	Results   *services.SearchResults
	Genres    []string
	Err       error
	Token     *oauth2.Token

	Calls        []string
	PlayRequests []services.PlayOptions
}

func (m *MockMusicService) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
	return m.Err
}

// CallCount returns how many times name was invoked.
func (m *MockMusicService) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockMusicService) Name() string { return "mock" }

func (m *MockMusicService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return m.record("Authenticate")
}

func (m *MockMusicService) GetAuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (m *MockMusicService) GetOAuthConfig() *oauth2.Config {
	return &oauth2.Config{ClientID: "mock", RedirectURL: "http://127.0.0.1:0/callback"}
}

func (m *MockMusicService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	m.mu.Lock()
	m.Token = token
	m.mu.Unlock()
	return m.record("OAuthenticate")
}

func (m *MockMusicService) Profile(ctx context.Context) (*services.SpotifyUser, error) {
	return m.User, m.record("Profile")
}

func (m *MockMusicService) GetPlaylists(ctx context.Context) ([]services.Playlist, error) {
	return m.Playlists, m.record("GetPlaylists")
}

func (m *MockMusicService) TopTracks(ctx context.Context, timeRange services.TimeRange, limit int) ([]services.Track, error) {
	return m.Tracks, m.record("TopTracks")
}

func (m *MockMusicService) TopArtists(ctx context.Context, timeRange services.TimeRange, limit int) ([]services.Artist, error) {
	return m.Artists, m.record("TopArtists")
}

func (m *MockMusicService) RecentlyPlayed(ctx context.Context, limit int) ([]services.PlayedTrack, error) {
	return m.Played, m.record("RecentlyPlayed")
}

func (m *MockMusicService) Search(ctx context.Context, query string, types []string, limit int) (*services.SearchResults, error) {
	return m.Results, m.record("Search")
}

func (m *MockMusicService) SearchWithFallbacks(ctx context.Context, query string, types []string, limit int) (*services.FallbackSearch, error) {
	if err := m.record("SearchWithFallbacks"); err != nil {
		return nil, err
	}
	return &services.FallbackSearch{Query: query, Results: m.Results}, nil
}

func (m *MockMusicService) Recommendations(ctx context.Context, params services.RecommendationParams) ([]services.Track, error) {
	return m.Tracks, m.record("Recommendations")
}

func (m *MockMusicService) AvailableGenres(ctx context.Context) ([]string, error) {
	return m.Genres, m.record("AvailableGenres")
}

func (m *MockMusicService) Play(ctx context.Context, opts services.PlayOptions) error {
	m.mu.Lock()
	m.PlayRequests = append(m.PlayRequests, opts)
	m.mu.Unlock()
	return m.record("Play")
}

func (m *MockMusicService) Pause(ctx context.Context, deviceID string) error {
	return m.record("Pause")
}

func (m *MockMusicService) Next(ctx context.Context, deviceID string) error {
	return m.record("Next")
}

func (m *MockMusicService) Previous(ctx context.Context, deviceID string) error {
	return m.record("Previous")
}

func (m *MockMusicService) SetVolume(ctx context.Context, deviceID string, percent int) error {
	return m.record("SetVolume")
}

// MustOpenDB opens a migrated in-memory database that is closed when the test ends.
func MustOpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
