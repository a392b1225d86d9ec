package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the recorder.
type Config struct {
	Backend BackendConfig
	Audio   AudioConfig
	Refresh RefreshConfig
	Log     LogConfig
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AudioConfig struct {
	CaptureBackend  string
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
	Codec           string
	Timeslice       time.Duration
	Transcoder      string
}

type RefreshConfig struct {
	Interval time.Duration
}

type LogConfig struct {
	File  string
	Level string
}

// Load resolves configuration from an optional .env file, environment variables and
// sensible defaults. Variables already set in the environment win over the .env file.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	loadDotEnv(".env", filepath.Join(home, ".config", "remommender", ".env"))

	cfg := Config{
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(firstNonEmpty(
				os.Getenv("REMOMMENDER_BACKEND_BASE_URL"),
				os.Getenv("VITE_BACKEND_BASE_URL"),
				"http://localhost:8000",
			), "/"),
			Timeout: time.Duration(envOrDefaultInt("REMOMMENDER_HTTP_TIMEOUT_MS", 60000)) * time.Millisecond,
		},
		Audio: AudioConfig{
			CaptureBackend:  strings.ToLower(envOrDefault("REMOMMENDER_CAPTURE_BACKEND", "ffmpeg")),
			RecorderCommand: envOrDefault("REMOMMENDER_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("REMOMMENDER_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("REMOMMENDER_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("REMOMMENDER_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("REMOMMENDER_CHANNELS", 1),
			ChunkSize:       envOrDefaultInt("REMOMMENDER_AUDIO_CHUNK_SIZE", 4096),
			Codec:           strings.ToLower(envOrDefault("REMOMMENDER_AUDIO_CODEC", "auto")),
			Timeslice:       time.Duration(envOrDefaultInt("REMOMMENDER_ENCODER_TIMESLICE_MS", 500)) * time.Millisecond,
			Transcoder:      strings.ToLower(envOrDefault("REMOMMENDER_TRANSCODER", "ffmpeg")),
		},
		Refresh: RefreshConfig{
			Interval: time.Duration(envOrDefaultInt("REMOMMENDER_REFRESH_SECONDS", 20)) * time.Second,
		},
		Log: LogConfig{
			File:  envOrDefault("REMOMMENDER_LOG_FILE", filepath.Join(home, ".local", "state", "remommender", "remommender.log")),
			Level: strings.ToLower(envOrDefault("REMOMMENDER_LOG_LEVEL", "info")),
		},
	}

	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 60 * time.Second
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Audio.Timeslice <= 0 {
		cfg.Audio.Timeslice = 500 * time.Millisecond
	}
	if !oneOf(cfg.Audio.CaptureBackend, "ffmpeg", "portaudio") {
		cfg.Audio.CaptureBackend = "ffmpeg"
	}
	if !oneOf(cfg.Audio.Codec, "auto", "opus", "pcm") {
		cfg.Audio.Codec = "auto"
	}
	if !oneOf(cfg.Audio.Transcoder, "ffmpeg", "native") {
		cfg.Audio.Transcoder = "ffmpeg"
	}
	if cfg.Refresh.Interval <= 0 {
		cfg.Refresh.Interval = 20 * time.Second
	}

	return cfg, nil
}

func loadDotEnv(paths ...string) {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return
	}
	_ = godotenv.Load(existing...)
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
