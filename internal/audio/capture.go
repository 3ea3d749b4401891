package audio

import "github.com/pkg/errors"

// ErrNotCapturing is returned when a frame is requested from a capturer
// that has not been started (or has already been stopped).
var ErrNotCapturing = errors.New("audio capture not started")

// Frame is one buffer of normalized mono samples in [-1, 1] plus the rate
// it was captured at. A Frame is handed out by value and never mutated by
// the capturer after delivery.
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Capturer delivers audio frames on demand, one per pull, until stopped.
type Capturer interface {
	// Start begins audio capture.
	Start() error

	// Stop ends audio capture and releases the device.
	Stop() error

	// Frame returns the most recent frame of captured audio.
	Frame() (Frame, error)

	// IsCapturing reports whether the capturer is currently running.
	IsCapturing() bool
}
