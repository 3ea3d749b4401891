package pitch

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/lcortes/semitone/internal/audio"
)

// FFTDetector is an alternative detection engine that picks the strongest
// spectral peak in a band of interest. It is cheaper per frame than the
// correlation search but offers no protection against reading a strong
// harmonic instead of the fundamental, so it is not the default.
type FFTDetector struct {
	minFrequency   float64
	maxFrequency   float64
	noiseThreshold float64
	peakThreshold  float64

	buf []float64
	win []float64
}

// NewFFTDetector creates an FFT-based detector covering roughly the
// range of fretted string instruments.
func NewFFTDetector(cfg AnalyzerConfig) *FFTDetector {
	threshold := cfg.NoiseThreshold
	if threshold <= 0 {
		threshold = DefaultNoiseThreshold
	}
	return &FFTDetector{
		minFrequency:   60.0,   // below B1
		maxFrequency:   1400.0, // above E6
		noiseThreshold: threshold,
		peakThreshold:  0.2, // peaks below this fraction of the maximum are ignored
	}
}

// Analyze windows the frame, transforms it and returns the interpolated
// frequency of the strongest in-band peak.
func (d *FFTDetector) Analyze(frame audio.Frame) (Estimate, error) {
	if err := validateFrame(frame); err != nil {
		return NoPitch(), err
	}

	d.buf = toFloat64(frame.Samples, d.buf)
	buf := d.buf

	if rms(buf) < d.noiseThreshold {
		return NoPitch(), nil
	}

	if len(d.win) != len(buf) {
		d.win = window.Hann(len(buf))
	}
	windowed := make([]float64, len(buf))
	for i, s := range buf {
		windowed[i] = s * d.win[i]
	}

	spectrum := fft.FFTReal(windowed)
	freq, ok := d.findPeak(spectrum, frame.SampleRate)
	if !ok {
		return NoPitch(), nil
	}
	return Detected(freq), nil
}

// findPeak scans the in-band half spectrum for the strongest local
// maximum and refines its position with quadratic interpolation.
func (d *FFTDetector) findPeak(spectrum []complex128, sampleRate int) (float64, bool) {
	half := spectrum[:len(spectrum)/2]
	binHz := float64(sampleRate) / float64(len(spectrum))

	minBin := int(d.minFrequency / binHz)
	if minBin < 1 {
		minBin = 1 // skip DC
	}
	maxBin := int(d.maxFrequency / binHz)
	if maxBin >= len(half)-1 {
		maxBin = len(half) - 2
	}
	if minBin >= maxBin {
		return 0, false
	}

	maxMag := 0.0
	for i := minBin; i <= maxBin; i++ {
		if mag := cmplx.Abs(half[i]); mag > maxMag {
			maxMag = mag
		}
	}
	if maxMag == 0 {
		return 0, false
	}

	bestFreq := 0.0
	bestMag := 0.0
	for i := minBin; i <= maxBin; i++ {
		mag := cmplx.Abs(half[i])
		prev := cmplx.Abs(half[i-1])
		next := cmplx.Abs(half[i+1])
		if mag <= prev || mag <= next || mag < maxMag*d.peakThreshold || mag <= bestMag {
			continue
		}

		freq := float64(i) * binHz
		if denom := prev - 2*mag + next; denom != 0 {
			delta := 0.5 * (prev - next) / denom
			freq = (float64(i) + delta) * binHz
		}
		bestFreq = freq
		bestMag = mag
	}

	if bestMag == 0 || bestFreq < d.minFrequency || bestFreq > d.maxFrequency {
		return 0, false
	}
	return bestFreq, true
}
