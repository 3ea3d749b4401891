package pitch

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/lcortes/semitone/internal/audio"
)

func sineFrame(freq, amp float64, n, sampleRate int) audio.Frame {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return audio.Frame{Samples: samples, SampleRate: sampleRate}
}

func TestAnalyzePureTones(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{})

	for _, target := range []float64{110, 220, 440, 880} {
		frame := sineFrame(target, 0.5, 4096, 44100)
		est, err := a.Analyze(frame)
		if err != nil {
			t.Fatalf("%.0f Hz: unexpected error: %v", target, err)
		}
		freq, ok := est.Frequency()
		if !ok {
			t.Fatalf("%.0f Hz: expected a detection", target)
		}
		if rel := math.Abs(freq-target) / target; rel > 0.02 {
			t.Fatalf("%.0f Hz: detected %.2f Hz, relative error %.4f", target, freq, rel)
		}
	}
}

func TestAnalyzeSilence(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{})

	est, err := a.Analyze(audio.Frame{Samples: make([]float32, 2048), SampleRate: 44100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := est.Frequency(); ok {
		t.Fatalf("expected no pitch for an all-zero frame")
	}

	// Periodic but below the noise gate: amplitude 0.02 puts RMS at
	// ~0.014, under the 0.02 floor.
	est, err = a.Analyze(sineFrame(440, 0.02, 2048, 44100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := est.Frequency(); ok {
		t.Fatalf("expected no pitch below the noise gate")
	}
}

// A weak subharmonic makes the correlation score at double the period
// slightly higher than at the true period. A global-maximum rule reads
// that as an octave down; the first-rising-region rule must not.
func TestAnalyzeOctaveRegression(t *testing.T) {
	const (
		target     = 220.0
		sampleRate = 44100
		n          = 4096
	)
	samples := make([]float32, n)
	for i := range samples {
		ti := float64(i) / sampleRate
		s := math.Sin(2*math.Pi*target*ti) + 0.07*math.Sin(2*math.Pi*target/2*ti)
		samples[i] = float32(0.8 * s)
	}

	a := NewAnalyzer(AnalyzerConfig{})
	est, err := a.Analyze(audio.Frame{Samples: samples, SampleRate: sampleRate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	freq, ok := est.Frequency()
	if !ok {
		t.Fatalf("expected a detection")
	}
	if rel := math.Abs(freq-target) / target; rel > 0.02 {
		t.Fatalf("expected ~%.0f Hz, got %.2f Hz", target, freq)
	}
	if math.Abs(freq-110) < 20 {
		t.Fatalf("octave-down error: got %.2f Hz", freq)
	}
	if math.Abs(freq-440) < 20 {
		t.Fatalf("octave-up error: got %.2f Hz", freq)
	}
}

// Heavy noise keeps every score under the region threshold, which must
// route through the low-score fallback rather than report silence.
func TestAnalyzeWeakPeriodicityFallback(t *testing.T) {
	const (
		sampleRate = 44100
		n          = 2048
	)
	rng := rand.New(rand.NewSource(1))
	samples := make([]float32, n)
	for i := range samples {
		s := 0.5*math.Sin(2*math.Pi*200*float64(i)/sampleRate) + 0.45*(2*rng.Float64()-1)
		samples[i] = float32(s)
	}

	a := NewAnalyzer(AnalyzerConfig{})
	est, err := a.Analyze(audio.Frame{Samples: samples, SampleRate: sampleRate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	freq, ok := est.Frequency()
	if !ok {
		t.Fatalf("expected the fallback path to report a detection")
	}
	if freq <= 0 {
		t.Fatalf("expected a positive frequency, got %.2f", freq)
	}
}

func TestAnalyzeMalformedFrames(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{})

	cases := map[string]audio.Frame{
		"empty":      {Samples: nil, SampleRate: 44100},
		"odd length": {Samples: make([]float32, 3), SampleRate: 44100},
		"zero rate":  {Samples: make([]float32, 4), SampleRate: 0},
		"nan sample": {Samples: []float32{0, float32(math.NaN()), 0, 0}, SampleRate: 44100},
		"inf sample": {Samples: []float32{0, float32(math.Inf(1)), 0, 0}, SampleRate: 44100},
	}
	for name, frame := range cases {
		if _, err := a.Analyze(frame); !errors.Is(err, ErrInvalidFrame) {
			t.Fatalf("%s: expected ErrInvalidFrame, got %v", name, err)
		}
	}
}

func TestLoudness(t *testing.T) {
	db, err := Loudness(audio.Frame{Samples: make([]float32, 1024), SampleRate: 44100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsInf(db, -1) {
		t.Fatalf("expected -Inf for silence, got %.2f", db)
	}

	// Sine at amplitude 0.5 has RMS 0.5/sqrt(2), about -9.03 dB.
	db, err = Loudness(sineFrame(440, 0.5, 4096, 44100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(db-(-9.03)) > 0.5 {
		t.Fatalf("expected about -9.0 dB, got %.2f", db)
	}

	if _, err := Loudness(audio.Frame{Samples: make([]float32, 3), SampleRate: 44100}); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for odd frame, got %v", err)
	}
}

// A single analysis step has to fit comfortably inside a ~16 ms display
// frame. The bound here is deliberately loose to stay stable on slow CI
// machines; the benchmark below gives the real number.
func TestAnalyzeWithinFrameBudget(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{})
	frame := sineFrame(220, 0.5, 2048, 44100)

	const rounds = 50
	start := time.Now()
	for i := 0; i < rounds; i++ {
		if _, err := a.Analyze(frame); err != nil {
			t.Fatal(err)
		}
	}
	if avg := time.Since(start) / rounds; avg > 16*time.Millisecond {
		t.Fatalf("analysis averaged %v per frame", avg)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	a := NewAnalyzer(AnalyzerConfig{})
	frame := sineFrame(220, 0.5, 2048, 44100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.Analyze(frame); err != nil {
			b.Fatal(err)
		}
	}
}
