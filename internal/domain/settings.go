package domain

import (
	"fmt"
	"time"
)

// RefreshOptions are the refresh intervals offered to the user.
var RefreshOptions = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
	20 * time.Second,
	30 * time.Second,
}

// Genres accepted by the genre filter.
var Genres = []string{
	"Rock", "Pop", "Alternative", "Indie", "Electronic", "Dance", "Alternative Rock",
	"Jazz", "Metal", "Chillout", "Classic Rock", "Soul", "Indie Rock", "Electronica",
	"Folk", "Chill", "Instrumental", "Punk", "Blues", "Hard Rock", "Ambient", "Acoustic",
	"Experimental", "Hip-Hop", "Country", "Easy Listening", "Funk", "Electro",
	"Heavy Metal", "Progressive Rock", "RnB", "Indie Pop", "House",
}

// Filter is an optional recommendation filter.
type Filter struct {
	Enabled bool    `json:"enabled"`
	Value   float64 `json:"value"`
}

// RecommendationSettings is a snapshot of the user's recommendation preferences.
type RecommendationSettings struct {
	RefreshInterval time.Duration `json:"refreshInterval"`
	ArousalWeight   float64       `json:"arousalWeight"`
	ValenceWeight   float64       `json:"valenceWeight"`
	InvertArousal   bool          `json:"invertArousal"`
	InvertValence   bool          `json:"invertValence"`
	SessionEnabled  bool          `json:"sessionEnabled"`

	GenreEnabled bool    `json:"genreEnabled"`
	Genre        *string `json:"genre"`

	Authenticity Filter `json:"authenticity"`
	Timeliness   Filter `json:"timeliness"`
	Complexity   Filter `json:"complexity"`
	Danceability Filter `json:"danceability"`
	Tonal        Filter `json:"tonal"`
	Voice        Filter `json:"voice"`
	BPM          Filter `json:"bpm"`
}

// DefaultSettings mirrors the initial state of the settings sheet.
func DefaultSettings() RecommendationSettings {
	return RecommendationSettings{
		RefreshInterval: 20 * time.Second,
		ArousalWeight:   0.5,
		ValenceWeight:   0.5,
		BPM:             Filter{Value: 120},
	}
}

// WithValenceWeight sets the valence weight and its complementary arousal weight.
func (s RecommendationSettings) WithValenceWeight(v float64) RecommendationSettings {
	v = clamp01(v)
	s.ValenceWeight = v
	s.ArousalWeight = 1 - v
	return s
}

// Clone returns a copy that shares no pointers with s.
func (s RecommendationSettings) Clone() RecommendationSettings {
	if s.Genre != nil {
		genre := *s.Genre
		s.Genre = &genre
	}
	return s
}

// Validate rejects settings the backend cannot use.
func (s RecommendationSettings) Validate() error {
	if s.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", s.RefreshInterval)
	}
	if s.ArousalWeight < 0 || s.ArousalWeight > 1 {
		return fmt.Errorf("arousal weight out of range: %v", s.ArousalWeight)
	}
	if s.ValenceWeight < 0 || s.ValenceWeight > 1 {
		return fmt.Errorf("valence weight out of range: %v", s.ValenceWeight)
	}
	if s.GenreEnabled && s.Genre != nil && !IsKnownGenre(*s.Genre) {
		return fmt.Errorf("unknown genre %q", *s.Genre)
	}
	if s.BPM.Enabled && s.BPM.Value <= 0 {
		return fmt.Errorf("bpm filter must be positive, got %v", s.BPM.Value)
	}
	return nil
}

// IsKnownGenre reports whether genre is one of Genres.
func IsKnownGenre(genre string) bool {
	for _, g := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
