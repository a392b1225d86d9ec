package main

import (
	"errors"
	"testing"

	"remommender/internal/backend"
	"remommender/internal/domain"
)

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonNotRecording:    "Not recording",
		domain.SessionReasonRecordingStarted: "Recording started",
		domain.SessionReasonRecordingStopped: "Recording stopped",
		domain.SessionReasonPermissionDenied: "Microphone access denied",
		domain.SessionReasonDeviceFailed:     "Microphone unavailable",
		domain.SessionReasonIntervalChanged:  "Refresh interval updated",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:       "Startup failed",
		domain.ErrorCodePermission:    "Microphone access denied",
		domain.ErrorCodeDevice:        "Microphone unavailable",
		domain.ErrorCodeAudioStop:     "Audio stop issue",
		domain.ErrorCodeConverterLoad: "Audio converter failed to load",
		domain.ErrorCodeTranscode:     "Audio conversion failed",
		domain.ErrorCodeUpload:        "Recommendation request failed",
		domain.ErrorCodeResponse:      "Unexpected recommendation response",
		domain.ErrorCodeState:         "Recording is not running",
		domain.ErrorCodeSession:       "Listening session update failed",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
	if _, err := app.StartRecording(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error from binding, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.SessionStateIdle || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.State != domain.SessionStateError || status.Active != false || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
}

func TestResolveTargetUsesBackendBase(t *testing.T) {
	t.Parallel()

	client, err := backend.NewClient("http://backend.test:8000", 0)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	app := &App{backend: client}

	target := app.resolveTarget(domain.PlaybackTarget{Playlist: []domain.Song{{
		ID:      "a",
		SongURL: "/media/a.mp3",
		Album:   &domain.Album{ArtworkURL: "media/cover.jpg"},
	}}})

	song := target.Playlist[0]
	if song.SongURL != "http://backend.test:8000/media/a.mp3" {
		t.Fatalf("unexpected song url: %s", song.SongURL)
	}
	if song.Album.ArtworkURL != "http://backend.test:8000/media/cover.jpg" {
		t.Fatalf("unexpected artwork url: %s", song.Album.ArtworkURL)
	}
	if song.ArtworkURL != "" {
		t.Fatalf("empty urls must stay empty, got %q", song.ArtworkURL)
	}
}

func TestRefreshOptionsInSeconds(t *testing.T) {
	t.Parallel()

	got := (&App{}).GetRefreshOptions()
	want := []int{5, 10, 15, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("unexpected options: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected options: %v", got)
		}
	}
}
