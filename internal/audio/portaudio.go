package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// PortAudioCapturer implements audio capture using PortAudio.
type PortAudioCapturer struct {
	isCapturing   bool
	stream        *portaudio.Stream
	bufferSize    int
	sampleRate    int
	channels      int
	amplification float32

	mu      sync.Mutex
	samples []float32
}

// NewPortAudioCapturer creates a capturer reading bufferSize frames per
// buffer from the default input device.
func NewPortAudioCapturer(bufferSize, sampleRate, channels int) (*PortAudioCapturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrap(err, "initialize portaudio")
	}

	return &PortAudioCapturer{
		bufferSize:    bufferSize,
		sampleRate:    sampleRate,
		channels:      channels,
		amplification: 1.0,
	}, nil
}

// Start opens the default input stream and begins capture.
func (c *PortAudioCapturer) Start() error {
	if c.isCapturing {
		return errors.New("audio capture already started")
	}

	var err error
	c.stream, err = portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // no output
		float64(c.sampleRate),
		c.bufferSize/c.channels,
		c.processAudio,
	)
	if err != nil {
		return errors.Wrap(err, "open input stream")
	}

	if err := c.stream.Start(); err != nil {
		c.stream.Close()
		return errors.Wrap(err, "start input stream")
	}

	c.isCapturing = true
	return nil
}

// Stop ends capture, closes the stream and terminates PortAudio.
func (c *PortAudioCapturer) Stop() error {
	if !c.isCapturing {
		return ErrNotCapturing
	}

	if err := c.stream.Stop(); err != nil {
		return errors.Wrap(err, "stop input stream")
	}
	if err := c.stream.Close(); err != nil {
		return errors.Wrap(err, "close input stream")
	}
	if err := portaudio.Terminate(); err != nil {
		return errors.Wrap(err, "terminate portaudio")
	}

	c.isCapturing = false
	return nil
}

// processAudio is the PortAudio callback. Multi-channel input is averaged
// down to mono; amplification is applied per sample.
func (c *PortAudioCapturer) processAudio(in, _ []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channels > 1 {
		mono := make([]float32, len(in)/c.channels)
		for i := range mono {
			sum := float32(0)
			for ch := 0; ch < c.channels; ch++ {
				sum += in[i*c.channels+ch]
			}
			mono[i] = (sum / float32(c.channels)) * c.amplification
		}
		c.samples = mono
		return
	}

	buf := make([]float32, len(in))
	for i, sample := range in {
		buf[i] = sample * c.amplification
	}
	c.samples = buf
}

// Frame returns a copy of the most recent captured buffer.
func (c *PortAudioCapturer) Frame() (Frame, error) {
	if !c.isCapturing {
		return Frame{}, ErrNotCapturing
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	samples := make([]float32, len(c.samples))
	copy(samples, c.samples)

	return Frame{Samples: samples, SampleRate: c.sampleRate}, nil
}

// IsCapturing reports whether the capturer is currently running.
func (c *PortAudioCapturer) IsCapturing() bool {
	return c.isCapturing
}

// SetAmplification sets the input gain factor applied to every sample.
func (c *PortAudioCapturer) SetAmplification(factor float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if factor < 0.1 {
		factor = 0.1
	}
	c.amplification = factor
}
