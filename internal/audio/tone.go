package audio

import (
	"math"
	"sync"
)

// ToneCapturer is a Capturer that synthesizes a pure sine tone instead of
// reading a device. It backs the --tone demo mode and the loop tests, so
// the rest of the pipeline can run without an input device.
type ToneCapturer struct {
	frequency  float64
	amplitude  float64
	bufferSize int
	sampleRate int

	mu          sync.Mutex
	isCapturing bool
	phase       float64
}

// NewToneCapturer creates a tone source at the given frequency.
func NewToneCapturer(frequency float64, bufferSize, sampleRate int) *ToneCapturer {
	return &ToneCapturer{
		frequency:  frequency,
		amplitude:  0.5,
		bufferSize: bufferSize,
		sampleRate: sampleRate,
	}
}

// Start begins tone generation.
func (c *ToneCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isCapturing = true
	c.phase = 0
	return nil
}

// Stop ends tone generation.
func (c *ToneCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCapturing {
		return ErrNotCapturing
	}
	c.isCapturing = false
	return nil
}

// Frame synthesizes the next buffer of the tone, phase-continuous across
// calls.
func (c *ToneCapturer) Frame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCapturing {
		return Frame{}, ErrNotCapturing
	}

	step := 2 * math.Pi * c.frequency / float64(c.sampleRate)
	samples := make([]float32, c.bufferSize)
	for i := range samples {
		samples[i] = float32(c.amplitude * math.Sin(c.phase))
		c.phase += step
	}
	c.phase = math.Mod(c.phase, 2*math.Pi)

	return Frame{Samples: samples, SampleRate: c.sampleRate}, nil
}

// IsCapturing reports whether the tone source is running.
func (c *ToneCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCapturing
}
