package pitch

import (
	"math"

	"github.com/lcortes/semitone/internal/audio"
)

const (
	// DefaultNoiseThreshold is the RMS floor below which a frame is
	// treated as silence and skipped entirely.
	DefaultNoiseThreshold = 0.02

	// regionThreshold is the score a lag must clear, while rising, to
	// open a correlation region.
	regionThreshold = 0.9

	// fallbackFloor is the minimum best score for the unrefined fallback
	// when no region was ever found.
	fallbackFloor = 0.01

	// shiftWeight scales the parabolic interpolation term. Fitted
	// empirically against the curvature of the absolute-difference
	// score; not a tunable.
	shiftWeight = 8.0
)

// Analyzer estimates the fundamental frequency of a frame with a
// normalized absolute-difference autocorrelation search.
//
// The search walks lags in increasing order and locks onto the first
// region where the score rises above regionThreshold. Taking the first
// such local maximum, rather than the global one, is what keeps a strong
// subharmonic from reading as an octave down. Scratch buffers are reused
// across calls, so an Analyzer must only be driven by one consumer at a
// time.
type Analyzer struct {
	noiseThreshold float64

	buf    []float64
	scores []float64
}

// AnalyzerConfig carries the tunable analysis parameters. The zero value
// selects the defaults.
type AnalyzerConfig struct {
	// NoiseThreshold overrides DefaultNoiseThreshold when positive.
	NoiseThreshold float64
}

// NewAnalyzer creates an autocorrelation analyzer.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	threshold := cfg.NoiseThreshold
	if threshold <= 0 {
		threshold = DefaultNoiseThreshold
	}
	return &Analyzer{noiseThreshold: threshold}
}

// Analyze estimates the fundamental frequency of one frame. Frames quieter
// than the noise threshold, and frames with no usable periodicity, yield
// NoPitch. Structurally invalid frames yield ErrInvalidFrame.
func (a *Analyzer) Analyze(frame audio.Frame) (Estimate, error) {
	if err := validateFrame(frame); err != nil {
		return NoPitch(), err
	}

	a.buf = toFloat64(frame.Samples, a.buf)
	buf := a.buf

	if rms(buf) < a.noiseThreshold {
		return NoPitch(), nil
	}

	m := len(buf) / 2
	if cap(a.scores) < m {
		a.scores = make([]float64, m)
	}
	scores := a.scores[:m]

	var (
		bestScore float64 // best at any lag >= 1, for the fallback
		bestLag   = -1
		peakScore float64 // best inside the qualifying region
		peakLag   = -1
		lastScore = 1.0
		inRegion  bool
	)

	for lag := 0; lag < m; lag++ {
		diff := 0.0
		for i := 0; i < m; i++ {
			diff += math.Abs(buf[i] - buf[i+lag])
		}
		score := 1 - diff/float64(m)
		scores[lag] = score

		// Lag 0 scores exactly 1 against itself and never counts.
		if lag > 0 && score > bestScore {
			bestScore = score
			bestLag = lag
		}

		if score > regionThreshold && score > lastScore {
			inRegion = true
			if score > peakScore {
				peakScore = score
				peakLag = lag
			}
		} else if inRegion {
			// First non-improving lag past the region: refine the peak
			// by parabolic interpolation over its neighbors and stop.
			shift := (scores[peakLag+1] - scores[peakLag-1]) / scores[peakLag]
			return Detected(float64(frame.SampleRate) / (float64(peakLag) + shiftWeight*shift)), nil
		}
		lastScore = score
	}

	if inRegion {
		// Region ran off the end of the scan; no neighbor to refine with.
		return Detected(float64(frame.SampleRate) / float64(peakLag)), nil
	}
	if bestScore > fallbackFloor {
		return Detected(float64(frame.SampleRate) / float64(bestLag)), nil
	}
	return NoPitch(), nil
}
