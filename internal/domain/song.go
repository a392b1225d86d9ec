package domain

// Album is the album descriptor attached to a song.
type Album struct {
	ID         string `json:"id"`
	Name       string `json:"album_name"`
	Artist     string `json:"artist"`
	ArtworkURL string `json:"artwork_url"`
}

// SongFeatures are the musical features of a track. Every field is optional on the wire.
type SongFeatures struct {
	Valence      *float64 `json:"valence"`
	Arousal      *float64 `json:"arousal"`
	Authenticity *float64 `json:"authenticity"`
	Timeliness   *float64 `json:"timeliness"`
	Complexity   *float64 `json:"complexity"`
	Danceability *float64 `json:"danceability"`
	Tonal        *float64 `json:"tonal"`
	Voice        *float64 `json:"voice"`
	BPM          *float64 `json:"bpm"`
}

// SongGenres holds genre likelihoods.
type SongGenres struct {
	Top3 map[string]float64 `json:"top3_genres"`
	All  map[string]float64 `json:"all_genres"`
}

// Song is a track descriptor returned by the backend.
type Song struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Album      *Album       `json:"album,omitempty"`
	Artist     string       `json:"artist"`
	DurationS  float64      `json:"duration_s"`
	Features   SongFeatures `json:"features"`
	Genres     SongGenres   `json:"genres"`
	SongURL    string       `json:"song_url,omitempty"`
	ArtworkURL string       `json:"artwork_url,omitempty"`
}

// EmotionFeatures are the features derived from a speech segment.
type EmotionFeatures struct {
	Valence      float64  `json:"valence"`
	Arousal      float64  `json:"arousal"`
	Authenticity *float64 `json:"authenticity,omitempty"`
	Timeliness   *float64 `json:"timeliness,omitempty"`
	Complexity   *float64 `json:"complexity,omitempty"`
	Danceability *float64 `json:"danceability,omitempty"`
	Tonal        *float64 `json:"tonal,omitempty"`
	Voice        *float64 `json:"voice,omitempty"`
	BPM          *float64 `json:"bpm,omitempty"`
}

// RefreshResult is the outcome of one refresh cycle. It is consumed immediately.
type RefreshResult struct {
	Song              Song            `json:"song"`
	Features          EmotionFeatures `json:"features"`
	SwitchProbability float64         `json:"switch_probability"`
}

// PlaybackTarget is what the UI currently intends to play.
type PlaybackTarget struct {
	Playlist []Song `json:"playlist"`
	Position int    `json:"position"`
}

// Current returns the intended song, if any.
func (t PlaybackTarget) Current() (Song, bool) {
	if t.Position < 0 || t.Position >= len(t.Playlist) {
		return Song{}, false
	}
	return t.Playlist[t.Position], true
}

// ReconcileOutcome describes what the reconciler did with a result.
type ReconcileOutcome string

const (
	OutcomeSwitched   ReconcileOutcome = "switched"
	OutcomeUnchanged  ReconcileOutcome = "unchanged"
	OutcomeStopped    ReconcileOutcome = "discarded_stopped"
	OutcomeSuperseded ReconcileOutcome = "discarded_superseded"
)
