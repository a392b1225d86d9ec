package tui

import "remommender/internal/domain"

// SessionStateMsg carries a recording lifecycle change.
type SessionStateMsg struct {
	State  domain.SessionState
	Reason domain.SessionStateReason
}

// RecommendationMsg carries a refresh result and what the reconciler did with it.
type RecommendationMsg struct {
	Result  domain.RefreshResult
	Outcome domain.ReconcileOutcome
}

// PlaybackMsg carries the new intended playback target.
type PlaybackMsg struct {
	Target domain.PlaybackTarget
}

// SessionErrorMsg carries an engine error.
type SessionErrorMsg struct {
	Code   domain.ErrorCode
	Detail string
}

// CommandResultMsg reports the outcome of a controller call made from a key press.
type CommandResultMsg struct {
	Action string
	Status domain.Status
	Err    error
}

// SettingsAppliedMsg reports the settings after an update attempt.
type SettingsAppliedMsg struct {
	Settings domain.RecommendationSettings
	Err      error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}

// bridgeClosedMsg is returned once the event bridge shuts down.
type bridgeClosedMsg struct{}
