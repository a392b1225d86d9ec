package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"remommender/internal/domain"
)

const (
	TranscoderFFMPEG = "ffmpeg"
	TranscoderNative = "native"
)

// TranscodeEngine performs the actual conversion to WAV.
type TranscodeEngine interface {
	Load(ctx context.Context) error
	Transcode(ctx context.Context, segment domain.Segment) ([]byte, error)
}

// Converter wraps a transcode engine that must be loaded once before use.
type Converter struct {
	engine TranscodeEngine
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
}

func NewConverter(engine TranscodeEngine, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Converter{engine: engine, logger: logger}
}

// NewEngine returns the engine named by kind.
func NewEngine(kind string, ffmpegCommand string) TranscodeEngine {
	if strings.EqualFold(strings.TrimSpace(kind), TranscoderNative) {
		return WAVEngine{}
	}
	return NewFFMPEGEngine(ffmpegCommand)
}

// Load initializes the engine. Calling it again after success is a no-op; a failed load
// is retried on the next call.
func (c *Converter) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	if err := c.engine.Load(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConverterLoad, err)
	}
	c.loaded = true
	c.logger.Info("audio converter loaded")
	return nil
}

func (c *Converter) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Convert transcodes segment to WAV unless the backend already accepts its format.
func (c *Converter) Convert(ctx context.Context, segment domain.Segment) (domain.Segment, error) {
	if segment.Format.UploadCompatible() {
		return segment, nil
	}
	if !c.Loaded() {
		return domain.Segment{}, fmt.Errorf("audio converter not loaded: %w", domain.ErrState)
	}

	target := domain.MediaFormat{
		MimeType:   domain.MimeWAV,
		SampleRate: segment.Format.SampleRate,
		Channels:   segment.Format.Channels,
	}
	if segment.Empty() {
		return domain.Segment{Format: target}, nil
	}

	data, err := c.engine.Transcode(ctx, segment)
	if err != nil {
		return domain.Segment{}, fmt.Errorf("%w: %v", domain.ErrTranscode, err)
	}
	c.logger.Debug("segment transcoded", "from", segment.Format.String(), "in_bytes", len(segment.Data), "out_bytes", len(data))
	return domain.Segment{Data: data, Format: target, Chunks: segment.Chunks}, nil
}

// FFMPEGEngine transcodes with an ffmpeg binary.
type FFMPEGEngine struct {
	command string
}

func NewFFMPEGEngine(command string) *FFMPEGEngine {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGEngine{command: command}
}

// Load verifies the binary exists and runs.
func (e *FFMPEGEngine) Load(ctx context.Context) error {
	path, err := exec.LookPath(e.command)
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-hide_banner", "-version")
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg did not start: %w: %s", err, stringsTrimSpaceSafe(stderr.String()))
	}
	e.command = path
	return nil
}

func (e *FFMPEGEngine) Transcode(ctx context.Context, segment domain.Segment) ([]byte, error) {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if strings.HasPrefix(segment.Format.String(), domain.MimePCM) {
		args = append(args,
			"-f", "s16le",
			"-ar", strconv.Itoa(segment.Format.SampleRate),
			"-ac", strconv.Itoa(segment.Format.Channels),
		)
	}
	args = append(args, "-i", "pipe:0", "-f", "wav", "-acodec", "pcm_s16le", "pipe:1")

	cmd := exec.CommandContext(ctx, e.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(segment.Data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg transcode: %w: %s", err, stringsTrimSpaceSafe(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// WAVEngine wraps raw PCM in a WAV container without external tools.
type WAVEngine struct{}

func (WAVEngine) Load(context.Context) error {
	return nil
}

func (WAVEngine) Transcode(_ context.Context, segment domain.Segment) ([]byte, error) {
	if !strings.HasPrefix(segment.Format.String(), domain.MimePCM) {
		return nil, fmt.Errorf("native transcoder only accepts PCM, got %s", segment.Format.MimeType)
	}

	f, err := os.CreateTemp("", "remommender-*.wav")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	enc := wav.NewEncoder(f, segment.Format.SampleRate, 16, segment.Format.Channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: segment.Format.Channels,
			SampleRate:  segment.Format.SampleRate,
		},
		Data:           make([]int, len(segment.Data)/2),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(uint16(segment.Data[i*2]) | uint16(segment.Data[i*2+1])<<8))
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}
