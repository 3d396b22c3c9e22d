package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/studyx/internal/shared"
)

const maxSeeds = 5

// RecommendationParams tunes /recommendations. Zero fields take the study defaults from
// [DefaultRecommendationParams]; seeds default to the study genres only when no seed of any kind
// is given.
type RecommendationParams struct {
	SeedTracks             []string
	SeedArtists            []string
	SeedGenres             []string
	Limit                  int
	TargetEnergy           float64
	TargetValence          float64
	TargetDanceability     float64
	TargetInstrumentalness float64
}

// DefaultRecommendationParams favours calm, instrumental music for studying.
func DefaultRecommendationParams() RecommendationParams {
	return RecommendationParams{
		SeedGenres:             []string{"ambient", "chill", "study"},
		Limit:                  20,
		TargetEnergy:           0.4,
		TargetValence:          0.5,
		TargetDanceability:     0.2,
		TargetInstrumentalness: 0.8,
	}
}

// WithDefaults fills unset fields of p from [DefaultRecommendationParams].
func (p RecommendationParams) WithDefaults() RecommendationParams {
	d := DefaultRecommendationParams()
	if len(p.SeedTracks) == 0 && len(p.SeedArtists) == 0 && len(p.SeedGenres) == 0 {
		p.SeedGenres = d.SeedGenres
	}
	if p.Limit <= 0 {
		p.Limit = d.Limit
	}
	if p.TargetEnergy == 0 {
		p.TargetEnergy = d.TargetEnergy
	}
	if p.TargetValence == 0 {
		p.TargetValence = d.TargetValence
	}
	if p.TargetDanceability == 0 {
		p.TargetDanceability = d.TargetDanceability
	}
	if p.TargetInstrumentalness == 0 {
		p.TargetInstrumentalness = d.TargetInstrumentalness
	}
	return p
}

// Query validates p and encodes it as query parameters.
func (p RecommendationParams) Query() (url.Values, error) {
	if seeds := len(p.SeedTracks) + len(p.SeedArtists) + len(p.SeedGenres); seeds > maxSeeds {
		return nil, fmt.Errorf("%w: at most %d seeds allowed, got %d", shared.ErrInvalidArgument, maxSeeds, seeds)
	}

	targets := map[string]float64{
		"target_energy":           p.TargetEnergy,
		"target_valence":          p.TargetValence,
		"target_danceability":     p.TargetDanceability,
		"target_instrumentalness": p.TargetInstrumentalness,
	}

	query := url.Values{}
	for name, v := range targets {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("%w: %s must be between 0 and 1", shared.ErrInvalidArgument, name)
		}
		query.Set(name, strconv.FormatFloat(v, 'f', -1, 64))
	}

	if len(p.SeedTracks) > 0 {
		query.Set("seed_tracks", strings.Join(p.SeedTracks, ","))
	}
	if len(p.SeedArtists) > 0 {
		query.Set("seed_artists", strings.Join(p.SeedArtists, ","))
	}
	if len(p.SeedGenres) > 0 {
		query.Set("seed_genres", strings.Join(p.SeedGenres, ","))
	}
	query.Set("limit", strconv.Itoa(min(p.Limit, 100)))
	return query, nil
}

// Recommendations returns tracks suggested from params, merged over the study defaults.
func (s *SpotifyService) Recommendations(ctx context.Context, params RecommendationParams) ([]Track, error) {
	query, err := params.WithDefaults().Query()
	if err != nil {
		return nil, err
	}

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations", query, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(response.Tracks))
	for _, t := range response.Tracks {
		tracks = append(tracks, t.Track())
	}
	return tracks, nil
}
