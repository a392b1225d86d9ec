package bootstrap

import (
	"io"
	"log/slog"

	"remommender/internal/audio"
	"remommender/internal/backend"
	"remommender/internal/config"
	"remommender/internal/domain"
	"remommender/internal/logging"
	"remommender/internal/ports"
	"remommender/internal/usecase"
)

// Options are front-end specific wiring choices.
type Options struct {
	// LogConsole mirrors log output, e.g. to stderr for the desktop shell.
	LogConsole io.Writer
}

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.RecorderController
	Backend    *backend.Client
	Config     config.Config
	Logger     *slog.Logger

	logCloser io.Closer
}

// Close flushes and releases the log file.
func (s Services) Close() error {
	if s.logCloser == nil {
		return nil
	}
	return s.logCloser.Close()
}

// Build wires all engine dependencies for the current runtime.
func Build(eventSink ports.EventSink, opts Options) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, logCloser, err := logging.New(logging.Options{
		File:    cfg.Log.File,
		Level:   cfg.Log.Level,
		Console: opts.LogConsole,
	})
	if err != nil {
		return Services{}, err
	}

	client, err := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	if err != nil {
		_ = logCloser.Close()
		return Services{}, err
	}

	format := audio.SelectFormat(cfg.Audio.Codec, cfg.Audio.SampleRate, cfg.Audio.Channels)
	framesPerBuffer := cfg.Audio.ChunkSize / (2 * cfg.Audio.Channels)

	session := usecase.NewCaptureSession(
		audio.NewCapture(cfg.Audio.CaptureBackend, cfg.Audio.RecorderCommand, framesPerBuffer),
		audio.Encoders{},
		usecase.CaptureConfig{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Format:    format,
			Timeslice: cfg.Audio.Timeslice,
			ChunkSize: cfg.Audio.ChunkSize,
		},
		logger,
	)

	converter := audio.NewConverter(audio.NewEngine(cfg.Audio.Transcoder, cfg.Audio.RecorderCommand), logger)

	settings := domain.DefaultSettings()
	settings.RefreshInterval = cfg.Refresh.Interval

	controller := usecase.NewRecorderController(session, converter, client, client, eventSink, settings, logger)

	logger.Info("remommender wired",
		"backend", cfg.Backend.BaseURL,
		"capture", cfg.Audio.CaptureBackend,
		"format", format.String(),
		"transcoder", cfg.Audio.Transcoder,
		"refresh", cfg.Refresh.Interval,
	)

	return Services{
		Controller: controller,
		Backend:    client,
		Config:     cfg,
		Logger:     logger,
		logCloser:  logCloser,
	}, nil
}
