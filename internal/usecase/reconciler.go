package usecase

import (
	"sync"

	"remommender/internal/domain"
)

// PlaybackReconciler decides whether a refresh result replaces the intended track.
//
// Each cycle takes a sequence number when it fires. A result is applied only while
// recording and only if its cycle is newer than the last reconciled cycle and newer than
// the last direct user playback action; otherwise it is discarded as superseded.
type PlaybackReconciler struct {
	playback  *PlaybackState
	recording func() bool

	mu         sync.Mutex
	issued     uint64
	reconciled uint64
}

func NewPlaybackReconciler(playback *PlaybackState, recording func() bool) *PlaybackReconciler {
	return &PlaybackReconciler{playback: playback, recording: recording}
}

// Begin reserves the sequence number of a cycle that is firing now.
func (r *PlaybackReconciler) Begin() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	return r.issued
}

// Apply reconciles the result of cycle seq against the live playback state.
func (r *PlaybackReconciler) Apply(seq uint64, result domain.RefreshResult) (domain.ReconcileOutcome, domain.PlaybackTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording() {
		return domain.OutcomeStopped, r.playback.Snapshot()
	}
	if seq <= r.reconciled {
		return domain.OutcomeSuperseded, r.playback.Snapshot()
	}
	r.reconciled = seq

	if current, ok := r.playback.Current(); ok && current.ID == result.Song.ID {
		return domain.OutcomeUnchanged, r.playback.Snapshot()
	}
	_ = r.playback.SetPlaylist([]domain.Song{result.Song}, 0)
	return domain.OutcomeSwitched, r.playback.Snapshot()
}

// UserAction runs a direct user change to playback. Cycles already fired are superseded.
func (r *PlaybackReconciler) UserAction(change func(*PlaybackState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciled = r.issued
	return change(r.playback)
}

// Halt runs stop while no result is being applied. A result whose liveness check passed
// before Halt has finished applying when Halt returns; every later one sees stop's effect.
func (r *PlaybackReconciler) Halt(stop func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stop()
}
