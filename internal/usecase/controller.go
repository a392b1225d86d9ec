package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"remommender/internal/domain"
	"remommender/internal/ports"
)

// ErrEmptySegment is returned when a segment boundary produced no audio to upload.
var ErrEmptySegment = errors.New("segment holds no audio")

// RecorderController runs the capture-and-refresh engine on behalf of a front-end.
type RecorderController struct {
	session     *CaptureSession
	converter   ports.SegmentConverter
	recommender ports.Recommender
	sessions    ports.ListeningSessions
	events      ports.EventSink
	logger      *slog.Logger

	settings   *SettingsStore
	playback   *PlaybackState
	reconciler *PlaybackReconciler
	scheduler  *RefreshScheduler

	// mu serializes Start, Stop and settings changes. The scheduler's fire path never takes it.
	mu        sync.Mutex
	recording atomic.Bool
	inflight  sync.WaitGroup

	stateMu  sync.Mutex
	state    domain.SessionState
	cycleCtx context.Context
}

func NewRecorderController(
	session *CaptureSession,
	converter ports.SegmentConverter,
	recommender ports.Recommender,
	sessions ports.ListeningSessions,
	events ports.EventSink,
	settings domain.RecommendationSettings,
	logger *slog.Logger,
) *RecorderController {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &RecorderController{
		session:     session,
		converter:   converter,
		recommender: recommender,
		sessions:    sessions,
		events:      events,
		logger:      logger,
		settings:    NewSettingsStore(settings),
		playback:    NewPlaybackState(),
		cycleCtx:    context.Background(),
		state:       domain.SessionStateIdle,
	}
	c.reconciler = NewPlaybackReconciler(c.playback, c.recording.Load)
	c.scheduler = NewRefreshScheduler(c.fire)
	session.OnDeviceLost = c.deviceLost
	return c
}

// Start acquires the microphone, starts encoding and arms the refresh scheduler.
func (c *RecorderController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording.Load() {
		return nil
	}

	if err := c.session.Start(ctx); err != nil {
		reason := domain.SessionReasonDeviceFailed
		if errors.Is(err, domain.ErrPermission) {
			reason = domain.SessionReasonPermissionDenied
		}
		c.logger.Error("failed to start recording", "error", err)
		c.events.SessionError(domain.CodeFor(err), err.Error())
		c.setState(domain.SessionStateError, reason)
		return err
	}

	if !c.session.Format().UploadCompatible() && c.converter != nil {
		if err := c.converter.Load(ctx); err != nil {
			c.logger.Warn("audio converter unavailable; refreshes will fail until it loads", "error", err)
			c.events.SessionError(domain.ErrorCodeConverterLoad, err.Error())
		}
	}

	_ = c.reconciler.UserAction(func(*PlaybackState) error { return nil })
	c.stateMu.Lock()
	c.cycleCtx = context.WithoutCancel(ctx)
	c.stateMu.Unlock()
	c.recording.Store(true)
	c.scheduler.Sync(true, c.settings.Get().RefreshInterval)
	c.logger.Info("recording started", "refresh", c.scheduler.Interval(), "format", c.session.Format().String())
	c.setState(domain.SessionStateRecording, domain.SessionReasonRecordingStarted)
	return nil
}

// Stop halts the scheduler and releases the microphone. Cycles already in flight keep
// running, but their results are discarded.
func (c *RecorderController) Stop() error {
	return c.stop(domain.SessionStateIdle, domain.SessionReasonRecordingStopped)
}

// Toggle starts recording when stopped and stops it when recording.
func (c *RecorderController) Toggle(ctx context.Context) error {
	if c.recording.Load() {
		return c.Stop()
	}
	return c.Start(ctx)
}

func (c *RecorderController) stop(state domain.SessionState, reason domain.SessionStateReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasRecording := false
	c.reconciler.Halt(func() { wasRecording = c.recording.Swap(false) })
	if !wasRecording {
		return nil
	}
	c.scheduler.Cancel()

	err := c.session.Stop()
	if err != nil {
		c.logger.Warn("audio capture did not stop cleanly", "error", err)
		c.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}
	c.setState(state, reason)
	return err
}

func (c *RecorderController) deviceLost(err error) {
	c.events.SessionError(domain.ErrorCodeDevice, err.Error())
	_ = c.stop(domain.SessionStateError, domain.SessionReasonDeviceFailed)
}

// Recording reports the live recording flag.
func (c *RecorderController) Recording() bool {
	return c.recording.Load()
}

func (c *RecorderController) Settings() domain.RecommendationSettings {
	return c.settings.Get()
}

// UpdateSettings validates and stores next. The scheduler is re-armed when the interval
// changes while recording; toggling session isolation starts or ends the backend session.
func (c *RecorderController) UpdateSettings(ctx context.Context, next domain.RecommendationSettings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	prev := c.settings.Set(next)
	if c.recording.Load() && prev.RefreshInterval != next.RefreshInterval {
		c.scheduler.Sync(true, next.RefreshInterval)
		c.logger.Info("refresh re-armed", "refresh", c.scheduler.Interval())
		c.events.SessionStateChanged(domain.SessionStateRecording, domain.SessionReasonIntervalChanged)
	}
	c.mu.Unlock()

	if prev.SessionEnabled == next.SessionEnabled || c.sessions == nil {
		return nil
	}
	var err error
	if next.SessionEnabled {
		err = c.sessions.StartSession(ctx)
	} else {
		if err = c.sessions.ClearSession(ctx); err == nil {
			err = c.sessions.EndSession(ctx)
		}
	}
	if err != nil {
		c.events.SessionError(domain.ErrorCodeSession, err.Error())
		return fmt.Errorf("listening session: %w", err)
	}
	return nil
}

// ClearListeningSession resets the backend's no-repeat history when isolation is on.
func (c *RecorderController) ClearListeningSession(ctx context.Context) error {
	if c.sessions == nil || !c.settings.Get().SessionEnabled {
		return nil
	}
	if err := c.sessions.ClearSession(ctx); err != nil {
		c.events.SessionError(domain.ErrorCodeSession, err.Error())
		return fmt.Errorf("clear listening session: %w", err)
	}
	return nil
}

func (c *RecorderController) Playback() domain.PlaybackTarget {
	return c.playback.Snapshot()
}

func (c *RecorderController) SetPlaylist(songs []domain.Song, position int) error {
	return c.userAction(func(p *PlaybackState) error { return p.SetPlaylist(songs, position) })
}

func (c *RecorderController) SelectTrack(position int) error {
	return c.userAction(func(p *PlaybackState) error { return p.Select(position) })
}

// NextTrack moves forward in the queue and reports whether it moved.
func (c *RecorderController) NextTrack() bool {
	moved := false
	_ = c.userAction(func(p *PlaybackState) error {
		moved = p.Next()
		return nil
	})
	return moved
}

// PreviousTrack moves back in the queue and reports whether it moved.
func (c *RecorderController) PreviousTrack() bool {
	moved := false
	_ = c.userAction(func(p *PlaybackState) error {
		moved = p.Previous()
		return nil
	})
	return moved
}

func (c *RecorderController) userAction(change func(*PlaybackState) error) error {
	if err := c.reconciler.UserAction(change); err != nil {
		return err
	}
	c.events.PlaybackChanged(c.playback.Snapshot())
	return nil
}

// Refresh runs one refresh cycle now and reconciles its result.
func (c *RecorderController) Refresh(ctx context.Context) (domain.RefreshResult, domain.ReconcileOutcome, error) {
	seq := c.reconciler.Begin()
	return c.runCycle(ctx, seq, c.settings.Get())
}

// RefreshAndGetResult closes the current segment, transcodes it when needed and uploads
// it with the current settings. It does not touch playback.
func (c *RecorderController) RefreshAndGetResult(ctx context.Context) (domain.RefreshResult, error) {
	return c.refreshAndGetResult(ctx, c.settings.Get())
}

func (c *RecorderController) fire() {
	if !c.recording.Load() {
		return
	}
	seq := c.reconciler.Begin()
	settings := c.settings.Get()

	c.stateMu.Lock()
	ctx := c.cycleCtx
	c.stateMu.Unlock()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		_, _, _ = c.runCycle(ctx, seq, settings)
	}()
}

func (c *RecorderController) runCycle(ctx context.Context, seq uint64, settings domain.RecommendationSettings) (domain.RefreshResult, domain.ReconcileOutcome, error) {
	result, err := c.refreshAndGetResult(ctx, settings)
	if err != nil {
		c.reportCycleError(seq, err)
		return domain.RefreshResult{}, "", err
	}

	outcome, target := c.reconciler.Apply(seq, result)
	c.logger.Info("refresh result", "cycle", seq, "song", result.Song.ID, "outcome", outcome,
		"switch_probability", result.SwitchProbability)
	c.events.RecommendationReceived(result, outcome)

	if outcome == domain.OutcomeSwitched {
		c.events.PlaybackChanged(target)
		if c.sessions != nil && c.settings.Get().SessionEnabled {
			if err := c.sessions.AddPlayedSong(ctx, result.Song.ID); err != nil {
				c.logger.Warn("failed to record played song", "song", result.Song.ID, "error", err)
			}
		}
	}
	return result, outcome, nil
}

func (c *RecorderController) refreshAndGetResult(ctx context.Context, settings domain.RecommendationSettings) (domain.RefreshResult, error) {
	segment, err := c.session.CloseSegment()
	if err != nil {
		return domain.RefreshResult{}, err
	}
	if segment.Empty() {
		return domain.RefreshResult{}, ErrEmptySegment
	}

	if !segment.Format.UploadCompatible() {
		if c.converter == nil {
			return domain.RefreshResult{}, fmt.Errorf("%w: no converter for %s", domain.ErrConverterLoad, segment.Format.MimeType)
		}
		if err := c.converter.Load(ctx); err != nil {
			return domain.RefreshResult{}, err
		}
		if segment, err = c.converter.Convert(ctx, segment); err != nil {
			return domain.RefreshResult{}, err
		}
	}

	return c.recommender.RecommendFromSpeech(ctx, segment, settings)
}

func (c *RecorderController) reportCycleError(seq uint64, err error) {
	switch {
	case errors.Is(err, ErrEmptySegment):
		c.logger.Debug("skipping empty segment", "cycle", seq)
		return
	case errors.Is(err, domain.ErrState) && !c.recording.Load():
		c.logger.Debug("cycle fired after stop", "cycle", seq)
		return
	}
	c.logger.Warn("refresh cycle failed", "cycle", seq, "error", err)
	c.events.SessionError(domain.CodeFor(err), err.Error())
}

// Status returns the current engine status.
func (c *RecorderController) Status() domain.Status {
	c.stateMu.Lock()
	state := c.state
	c.stateMu.Unlock()
	return domain.Status{
		State:  state,
		Active: c.recording.Load(),
		Format: c.session.Format().String(),
	}
}

// SchedulerState exposes the refresh scheduler lifecycle.
func (c *RecorderController) SchedulerState() SchedulerState {
	return c.scheduler.State()
}

// Wait blocks until every dispatched refresh cycle has finished.
func (c *RecorderController) Wait() {
	c.inflight.Wait()
}

func (c *RecorderController) setState(state domain.SessionState, reason domain.SessionStateReason) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()
	c.events.SessionStateChanged(state, reason)
}
