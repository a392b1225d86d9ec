package usecase

import (
	"fmt"
	"sync"

	"remommender/internal/domain"
)

// SettingsStore is the live settings cell. Refresh cycles read it when they fire.
type SettingsStore struct {
	mu       sync.Mutex
	settings domain.RecommendationSettings
}

func NewSettingsStore(initial domain.RecommendationSettings) *SettingsStore {
	return &SettingsStore{settings: initial.Clone()}
}

func (s *SettingsStore) Get() domain.RecommendationSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

// Set replaces the settings and returns the previous value.
func (s *SettingsStore) Set(next domain.RecommendationSettings) domain.RecommendationSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.settings
	s.settings = next.Clone()
	return prev
}

// PlaybackState is the live cell holding what the UI intends to play.
type PlaybackState struct {
	mu     sync.Mutex
	target domain.PlaybackTarget
}

func NewPlaybackState() *PlaybackState {
	return &PlaybackState{}
}

// Snapshot returns a copy of the current target.
func (p *PlaybackState) Snapshot() domain.PlaybackTarget {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyTarget(p.target)
}

func (p *PlaybackState) Current() (domain.Song, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target.Current()
}

// SetPlaylist replaces the queue and points at position.
func (p *PlaybackState) SetPlaylist(songs []domain.Song, position int) error {
	if len(songs) > 0 && (position < 0 || position >= len(songs)) {
		return fmt.Errorf("position %d outside playlist of %d songs", position, len(songs))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = copyTarget(domain.PlaybackTarget{Playlist: songs, Position: position})
	if len(songs) == 0 {
		p.target.Position = 0
	}
	return nil
}

// Select moves to position within the current queue.
func (p *PlaybackState) Select(position int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if position < 0 || position >= len(p.target.Playlist) {
		return fmt.Errorf("position %d outside playlist of %d songs", position, len(p.target.Playlist))
	}
	p.target.Position = position
	return nil
}

// Next advances one song. It does not wrap and reports whether it moved.
func (p *PlaybackState) Next() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target.Position+1 >= len(p.target.Playlist) {
		return false
	}
	p.target.Position++
	return true
}

// Previous goes back one song. It does not wrap and reports whether it moved.
func (p *PlaybackState) Previous() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target.Position <= 0 || len(p.target.Playlist) == 0 {
		return false
	}
	p.target.Position--
	return true
}

func copyTarget(t domain.PlaybackTarget) domain.PlaybackTarget {
	if t.Playlist != nil {
		t.Playlist = append([]domain.Song(nil), t.Playlist...)
	}
	return t
}
