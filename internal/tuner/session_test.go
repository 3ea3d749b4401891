package tuner

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/lcortes/semitone/internal/audio"
	"github.com/lcortes/semitone/internal/pitch"
)

type readingLog struct {
	mu       sync.Mutex
	readings []pitch.Reading
	idle     int
}

func (l *readingLog) sink(r pitch.Reading, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ok {
		l.readings = append(l.readings, r)
	} else {
		l.idle++
	}
}

func (l *readingLog) snapshot() []pitch.Reading {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]pitch.Reading(nil), l.readings...)
}

func TestSessionEmitsStableReadings(t *testing.T) {
	capturer := audio.NewToneCapturer(440, 4096, 44100)
	session := NewSession(capturer, pitch.NewAnalyzer(pitch.AnalyzerConfig{}), Config{
		TickInterval: 5 * time.Millisecond,
		HistorySize:  5,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var log readingLog
	if err := session.Run(ctx, log.sink); err != nil {
		t.Fatalf("expected clean stop on cancellation, got %v", err)
	}
	if capturer.IsCapturing() {
		t.Fatalf("capturer left running after Run returned")
	}

	readings := log.snapshot()
	if len(readings) == 0 {
		t.Fatalf("expected at least one reading")
	}
	last := readings[len(readings)-1]
	if last.NoteName != "A" || last.Octave != 4 {
		t.Fatalf("expected A4, got %s%d", last.NoteName, last.Octave)
	}
	if rel := math.Abs(last.Frequency-440) / 440; rel > 0.02 {
		t.Fatalf("expected ~440 Hz, got %.2f Hz", last.Frequency)
	}
}

// oddFrameCapturer always hands out a structurally invalid frame.
type oddFrameCapturer struct{ running bool }

func (c *oddFrameCapturer) Start() error { c.running = true; return nil }
func (c *oddFrameCapturer) Stop() error  { c.running = false; return nil }
func (c *oddFrameCapturer) Frame() (audio.Frame, error) {
	return audio.Frame{Samples: make([]float32, 3), SampleRate: 44100}, nil
}
func (c *oddFrameCapturer) IsCapturing() bool { return c.running }

func TestSessionFailsFastOnMalformedFrames(t *testing.T) {
	capturer := &oddFrameCapturer{}
	session := NewSession(capturer, pitch.NewAnalyzer(pitch.AnalyzerConfig{}), Config{
		TickInterval: time.Millisecond,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := session.Run(ctx, func(pitch.Reading, bool) {})
	if !errors.Is(err, pitch.ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
	if capturer.IsCapturing() {
		t.Fatalf("capturer left running after failure")
	}
}

func TestSessionReportsIdleForSilence(t *testing.T) {
	capturer := &silentCapturer{}
	session := NewSession(capturer, pitch.NewAnalyzer(pitch.AnalyzerConfig{}), Config{
		TickInterval: 2 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var log readingLog
	if err := session.Run(ctx, log.sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.readings) != 0 {
		t.Fatalf("silence produced %d readings", len(log.readings))
	}
	if log.idle == 0 {
		t.Fatalf("expected idle updates for silence")
	}
}

type silentCapturer struct{ running bool }

func (c *silentCapturer) Start() error { c.running = true; return nil }
func (c *silentCapturer) Stop() error  { c.running = false; return nil }
func (c *silentCapturer) Frame() (audio.Frame, error) {
	return audio.Frame{Samples: make([]float32, 2048), SampleRate: 44100}, nil
}
func (c *silentCapturer) IsCapturing() bool { return c.running }
