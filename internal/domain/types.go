package domain

// SessionState models the recording lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateRecording SessionState = "recording"
	SessionStateError     SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonNotRecording     SessionStateReason = "not_recording"
	SessionReasonRecordingStarted SessionStateReason = "recording_started"
	SessionReasonRecordingStopped SessionStateReason = "recording_stopped"
	SessionReasonPermissionDenied SessionStateReason = "permission_denied"
	SessionReasonDeviceFailed     SessionStateReason = "device_failed"
	SessionReasonIntervalChanged  SessionStateReason = "interval_changed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodePermission    ErrorCode = "permission"
	ErrorCodeDevice        ErrorCode = "device"
	ErrorCodeAudioStop     ErrorCode = "audio_stop"
	ErrorCodeConverterLoad ErrorCode = "converter_load"
	ErrorCodeTranscode     ErrorCode = "transcode"
	ErrorCodeUpload        ErrorCode = "upload"
	ErrorCodeResponse      ErrorCode = "response"
	ErrorCodeState         ErrorCode = "state"
	ErrorCodeSession       ErrorCode = "session"
	ErrorCodeUnknown       ErrorCode = "unknown"
)

// EncoderState is the lifecycle of a single encoder instance.
type EncoderState string

const (
	EncoderInactive EncoderState = "inactive"
	EncoderActive   EncoderState = "active"
)

// Status summarizes the current runtime status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Message string       `json:"message,omitempty"`
	Format  string       `json:"format,omitempty"`
}
