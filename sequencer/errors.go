package sequencer

import "errors"

var (
	ErrInvalidClock       = errors.New("invalid clock parameters")
	ErrZeroLength         = errors.New("loop length must be positive")
	ErrUnterminated       = errors.New("track has no end-of-track marker")
	ErrDeviceUnavailable  = errors.New("device unavailable")
	ErrCaptureInterrupted = errors.New("capture interrupted")
	ErrNoTrack            = errors.New("no such track")
	ErrNoRecorder         = errors.New("no such recorder")
)
