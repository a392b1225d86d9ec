package domain

import "errors"

var (
	ErrPermission        = errors.New("microphone access denied")
	ErrDevice            = errors.New("audio input device unavailable")
	ErrConverterLoad     = errors.New("audio converter failed to load")
	ErrTranscode         = errors.New("audio transcoding failed")
	ErrUpload            = errors.New("recommendation upload failed")
	ErrMalformedResponse = errors.New("malformed recommendation response")
	ErrState             = errors.New("operation not valid in current state")
)

// CodeFor maps an error onto the code reported to the UI.
func CodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermission):
		return ErrorCodePermission
	case errors.Is(err, ErrDevice):
		return ErrorCodeDevice
	case errors.Is(err, ErrConverterLoad):
		return ErrorCodeConverterLoad
	case errors.Is(err, ErrTranscode):
		return ErrorCodeTranscode
	case errors.Is(err, ErrUpload):
		return ErrorCodeUpload
	case errors.Is(err, ErrMalformedResponse):
		return ErrorCodeResponse
	case errors.Is(err, ErrState):
		return ErrorCodeState
	default:
		return ErrorCodeUnknown
	}
}
