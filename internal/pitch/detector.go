package pitch

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/lcortes/semitone/internal/audio"
)

// ErrInvalidFrame reports a structurally invalid audio frame: empty, odd
// length, bad sample rate, or non-finite sample values. This always points
// at a bug in the upstream capturer and is never coerced into a "no pitch"
// result.
var ErrInvalidFrame = errors.New("invalid audio frame")

// Estimate is the outcome of analyzing one frame: either a detected
// fundamental frequency or no pitch at all. The zero value is NoPitch.
type Estimate struct {
	freq float64
	ok   bool
}

// Detected wraps a detected fundamental frequency in Hz.
func Detected(freq float64) Estimate {
	return Estimate{freq: freq, ok: true}
}

// NoPitch is the estimate for a frame with no detectable pitch.
func NoPitch() Estimate {
	return Estimate{}
}

// Frequency returns the detected fundamental in Hz; ok is false when the
// frame carried no detectable pitch.
func (e Estimate) Frequency() (freq float64, ok bool) {
	return e.freq, e.ok
}

// Detector estimates the fundamental frequency of single audio frames.
type Detector interface {
	// Analyze inspects one frame and returns a pitch estimate. It returns
	// an error only for structurally invalid input.
	Analyze(frame audio.Frame) (Estimate, error)
}

// Loudness returns the RMS level of the frame in dB, or -Inf for a frame
// of pure silence.
func Loudness(frame audio.Frame) (float64, error) {
	if err := validateFrame(frame); err != nil {
		return 0, err
	}
	r := rms(toFloat64(frame.Samples, nil))
	if r == 0 {
		return math.Inf(-1), nil
	}
	return 20 * math.Log10(r), nil
}

func validateFrame(frame audio.Frame) error {
	n := len(frame.Samples)
	if n == 0 {
		return errors.Wrap(ErrInvalidFrame, "empty frame")
	}
	if n%2 != 0 {
		return errors.Wrapf(ErrInvalidFrame, "odd frame length %d", n)
	}
	if frame.SampleRate <= 0 {
		return errors.Wrapf(ErrInvalidFrame, "sample rate %d", frame.SampleRate)
	}
	for i, s := range frame.Samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.Wrapf(ErrInvalidFrame, "non-finite sample at index %d", i)
		}
	}
	return nil
}

// toFloat64 widens samples into dst, growing it if needed.
func toFloat64(samples []float32, dst []float64) []float64 {
	if cap(dst) < len(samples) {
		dst = make([]float64, len(samples))
	}
	dst = dst[:len(samples)]
	for i, s := range samples {
		dst[i] = float64(s)
	}
	return dst
}

func rms(buf []float64) float64 {
	return math.Sqrt(floats.Dot(buf, buf) / float64(len(buf)))
}
