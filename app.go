package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"remommender/internal/backend"
	"remommender/internal/bootstrap"
	"remommender/internal/config"
	"remommender/internal/domain"
	"remommender/internal/usecase"
)

const (
	eventSession        = "remommender:session"
	eventRecommendation = "remommender:recommendation"
	eventPlayback       = "remommender:playback"
	eventError          = "remommender:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	services   bootstrap.Services
	controller *usecase.RecorderController
	backend    *backend.Client
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, bootstrap.Options{LogConsole: os.Stderr})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.cfg = services.Config
	a.controller = services.Controller
	a.backend = services.Backend
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonNotRecording)
}

func (a *App) shutdown(context.Context) {
	if a.controller == nil {
		return
	}
	_ = a.controller.Stop()
	a.controller.Wait()
	_ = a.services.Close()
}

// StartRecording starts capturing speech and arms periodic refreshes.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// StopRecording stops capturing. Refreshes still in flight are discarded.
func (a *App) StopRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := a.controller.Stop()
	return a.controller.Status(), err
}

// ToggleRecording flips between recording and stopped.
func (a *App) ToggleRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := a.controller.Toggle(a.ctx)
	return a.controller.Status(), err
}

func (a *App) GetSettings() (domain.RecommendationSettings, error) {
	if err := a.requireReady(); err != nil {
		return domain.RecommendationSettings{}, err
	}
	return a.controller.Settings(), nil
}

// UpdateSettings stores new recommendation settings. They apply from the next refresh.
func (a *App) UpdateSettings(settings domain.RecommendationSettings) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.UpdateSettings(a.ctx, settings)
}

// ClearListeningSession forgets which songs were already played in this session.
func (a *App) ClearListeningSession() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.ClearListeningSession(a.ctx)
}

func (a *App) GetPlayback() (domain.PlaybackTarget, error) {
	if err := a.requireReady(); err != nil {
		return domain.PlaybackTarget{}, err
	}
	return a.resolveTarget(a.controller.Playback()), nil
}

func (a *App) SelectTrack(position int) (domain.PlaybackTarget, error) {
	if err := a.requireReady(); err != nil {
		return domain.PlaybackTarget{}, err
	}
	if err := a.controller.SelectTrack(position); err != nil {
		return domain.PlaybackTarget{}, err
	}
	return a.resolveTarget(a.controller.Playback()), nil
}

func (a *App) NextTrack() (domain.PlaybackTarget, error) {
	if err := a.requireReady(); err != nil {
		return domain.PlaybackTarget{}, err
	}
	a.controller.NextTrack()
	return a.resolveTarget(a.controller.Playback()), nil
}

func (a *App) PreviousTrack() (domain.PlaybackTarget, error) {
	if err := a.requireReady(); err != nil {
		return domain.PlaybackTarget{}, err
	}
	a.controller.PreviousTrack()
	return a.resolveTarget(a.controller.Playback()), nil
}

// GetGenres lists the values the genre filter accepts.
func (a *App) GetGenres() []string {
	return append([]string(nil), domain.Genres...)
}

// GetRefreshOptions lists the selectable refresh intervals in seconds.
func (a *App) GetRefreshOptions() []int {
	out := make([]int, 0, len(domain.RefreshOptions))
	for _, option := range domain.RefreshOptions {
		out = append(out, int(option.Seconds()))
	}
	return out
}

// ResolveURL turns a backend-relative media path into an absolute URL.
func (a *App) ResolveURL(relative string) string {
	if a.backend == nil {
		return relative
	}
	return a.backend.AbsoluteURL(relative)
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"backend":          a.cfg.Backend.BaseURL,
		"captureBackend":   a.cfg.Audio.CaptureBackend,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"format":           a.GetStatus().Format,
		"transcoder":       a.cfg.Audio.Transcoder,
		"logFile":          a.cfg.Log.File,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits recording lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// RecommendationReceived emits every refresh result, including discarded ones, so the
// UI can chart the speech features.
func (a *App) RecommendationReceived(result domain.RefreshResult, outcome domain.ReconcileOutcome) {
	if a.ctx == nil {
		return
	}
	result.Song = a.resolveSong(result.Song)
	runtime.EventsEmit(a.ctx, eventRecommendation, map[string]any{
		"result":  result,
		"outcome": string(outcome),
	})
}

// PlaybackChanged emits the new intended playback target.
func (a *App) PlaybackChanged(target domain.PlaybackTarget) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPlayback, a.resolveTarget(target))
}

// SessionError emits engine errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) resolveTarget(target domain.PlaybackTarget) domain.PlaybackTarget {
	for i := range target.Playlist {
		target.Playlist[i] = a.resolveSong(target.Playlist[i])
	}
	return target
}

func (a *App) resolveSong(song domain.Song) domain.Song {
	song.SongURL = a.ResolveURL(song.SongURL)
	song.ArtworkURL = a.ResolveURL(song.ArtworkURL)
	if song.Album != nil {
		album := *song.Album
		album.ArtworkURL = a.ResolveURL(album.ArtworkURL)
		song.Album = &album
	}
	return song
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonNotRecording:
		return "Not recording"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonRecordingStopped:
		return "Recording stopped"
	case domain.SessionReasonPermissionDenied:
		return "Microphone access denied"
	case domain.SessionReasonDeviceFailed:
		return "Microphone unavailable"
	case domain.SessionReasonIntervalChanged:
		return "Refresh interval updated"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermission:
		return "Microphone access denied"
	case domain.ErrorCodeDevice:
		return "Microphone unavailable"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeConverterLoad:
		return "Audio converter failed to load"
	case domain.ErrorCodeTranscode:
		return "Audio conversion failed"
	case domain.ErrorCodeUpload:
		return "Recommendation request failed"
	case domain.ErrorCodeResponse:
		return "Unexpected recommendation response"
	case domain.ErrorCodeState:
		return "Recording is not running"
	case domain.ErrorCodeSession:
		return "Listening session update failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
