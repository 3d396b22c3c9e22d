package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/studyx/internal/shared"
)

// DefaultSearchTypes are searched when the caller does not name any.
var DefaultSearchTypes = []string{"track"}

// DefaultFallbackQueries are tried in order when a search finds nothing.
var DefaultFallbackQueries = []string{
	"lofi study",
	"classical focus",
	"ambient study",
	"instrumental concentration",
}

const lastResortQuery = "popular music"

// FallbackKind names the strategy that produced a [FallbackSearch].
type FallbackKind string

const (
	FallbackNone      FallbackKind = ""
	FallbackPartial   FallbackKind = "partial"
	FallbackWords     FallbackKind = "words"
	FallbackCanned    FallbackKind = "canned"
	FallbackEmergency FallbackKind = "emergency"
)

// SearchResults holds the items of a search, grouped by type.
type SearchResults struct {
	Tracks    []Track    `json:"tracks"`
	Artists   []Artist   `json:"artists"`
	Playlists []Playlist `json:"playlists"`
}

// Empty reports whether the search found nothing of any type.
func (r *SearchResults) Empty() bool {
	return r == nil || (len(r.Tracks) == 0 && len(r.Artists) == 0 && len(r.Playlists) == 0)
}

// FallbackSearch is the answer of [SpotifyService.SearchWithFallbacks].
type FallbackSearch struct {
	Results      *SearchResults `json:"results"`
	Query        string         `json:"query"`
	FallbackUsed bool           `json:"fallback_used"`
	FallbackType FallbackKind   `json:"fallback_type,omitempty"`
	Message      string         `json:"message,omitempty"`
}

type spotifySearchResponse struct {
	Tracks    *SpotifyPage[SpotifyTrack]           `json:"tracks"`
	Artists   *SpotifyPage[SpotifyArtist]          `json:"artists"`
	Playlists *SpotifyPage[*SpotifySimplePlaylist] `json:"playlists"`
}

// Search runs a single search query for the given item types (track, artist, playlist).
func (s *SpotifyService) Search(ctx context.Context, q string, types []string, limit int) (*SearchResults, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidArgument)
	}
	if len(types) == 0 {
		types = DefaultSearchTypes
	}

	query := url.Values{}
	query.Set("q", q)
	query.Set("type", strings.Join(types, ","))
	query.Set("limit", strconv.Itoa(clampLimit(limit)))

	var response spotifySearchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search", query, nil, &response); err != nil {
		return nil, err
	}

	results := &SearchResults{}
	if response.Tracks != nil {
		for _, t := range response.Tracks.Items {
			results.Tracks = append(results.Tracks, t.Track())
		}
	}
	if response.Artists != nil {
		for _, a := range response.Artists.Items {
			results.Artists = append(results.Artists, a.Artist())
		}
	}
	if response.Playlists != nil {
		for _, p := range response.Playlists.Items {
			if p != nil {
				results.Playlists = append(results.Playlists, p.Playlist())
			}
		}
	}
	return results, nil
}

// PartialQuery turns q into a prefix match.
func PartialQuery(q string) string {
	return strings.TrimSpace(q) + "*"
}

// WordQuery joins the words of q longer than two characters with OR. ok is false when fewer than two
// such words exist, in which case the word strategy is skipped.
func WordQuery(q string) (query string, ok bool) {
	var words []string
	for _, w := range strings.Fields(q) {
		if len([]rune(w)) > 2 {
			words = append(words, w)
		}
	}
	if len(words) < 2 {
		return "", false
	}
	return strings.Join(words, " OR "), true
}

// SearchWithFallbacks searches for q and, when nothing is found, retries progressively looser:
// a prefix match, then any of the significant words, then the canned focus-music queries, then a
// generic popular query.
//
// Failures other than authentication trigger an emergency pass over the canned queries. Only when
// that also fails is [shared.ErrServiceUnavailable] returned.
func (s *SpotifyService) SearchWithFallbacks(ctx context.Context, q string, types []string, limit int) (*FallbackSearch, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return &FallbackSearch{Results: &SearchResults{}, Message: "Please enter a search term"}, nil
	}
	limit = clampLimit(limit)

	result, err := s.searchLoosening(ctx, q, types, limit)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
		return nil, err
	}

	s.logger.Warn("search failed, using emergency fallback", "query", q, "error", err)
	results, emergencyErr := s.cannedSearch(ctx, types, min(limit, 10))
	if emergencyErr != nil {
		return nil, fmt.Errorf("%w: search temporarily unavailable: %v", shared.ErrServiceUnavailable, emergencyErr)
	}

	return &FallbackSearch{
		Results:      results,
		Query:        q,
		FallbackUsed: true,
		FallbackType: FallbackEmergency,
		Message:      "Search temporarily unavailable. Here are some popular focus tracks",
	}, nil
}

func (s *SpotifyService) searchLoosening(ctx context.Context, q string, types []string, limit int) (*FallbackSearch, error) {
	results, err := s.Search(ctx, q, types, limit)
	if err != nil {
		return nil, err
	}
	if !results.Empty() {
		return &FallbackSearch{Results: results, Query: q}, nil
	}

	partial := PartialQuery(q)
	s.logger.Debug("no exact results, trying partial match", "query", partial)
	if results, err = s.Search(ctx, partial, types, limit); err != nil {
		return nil, err
	}
	if !results.Empty() {
		return &FallbackSearch{
			Results:      results,
			Query:        partial,
			FallbackUsed: true,
			FallbackType: FallbackPartial,
			Message:      "Showing partial matches for your search",
		}, nil
	}

	if words, ok := WordQuery(q); ok {
		s.logger.Debug("trying individual words", "query", words)
		if results, err = s.Search(ctx, words, types, limit); err != nil {
			return nil, err
		}
		if !results.Empty() {
			return &FallbackSearch{
				Results:      results,
				Query:        words,
				FallbackUsed: true,
				FallbackType: FallbackWords,
				Message:      "Showing results matching some of your search terms",
			}, nil
		}
	}

	if results, err = s.cannedSearch(ctx, types, limit); err != nil {
		return nil, err
	}
	return &FallbackSearch{
		Results:      results,
		Query:        q,
		FallbackUsed: true,
		FallbackType: FallbackCanned,
		Message:      "No exact matches found. Here are some focus tracks you might enjoy",
	}, nil
}

// cannedSearch tries each fallback query with half the limit until one returns tracks, then falls
// back to a generic popular query.
func (s *SpotifyService) cannedSearch(ctx context.Context, types []string, limit int) (*SearchResults, error) {
	half := (limit + 1) / 2
	for _, q := range s.fallbackQueries {
		results, err := s.Search(ctx, q, types, half)
		if err != nil {
			s.logger.Warn("fallback query failed", "query", q, "error", err)
			continue
		}
		if len(results.Tracks) > 0 {
			return results, nil
		}
	}
	return s.Search(ctx, lastResortQuery, types, limit)
}
