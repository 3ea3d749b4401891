package tuner

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/lcortes/semitone/internal/audio"
	"github.com/lcortes/semitone/internal/pitch"
)

// DefaultTickInterval paces the analysis loop. Each step costs well under
// a millisecond for the usual buffer sizes, so the interval is a pacing
// choice, not a deadline.
const DefaultTickInterval = 30 * time.Millisecond

// Config carries the per-session tunables.
type Config struct {
	// TickInterval between analysis steps; DefaultTickInterval if zero.
	TickInterval time.Duration
	// HistorySize is the smoothing window capacity; pitch.DefaultHistorySize
	// if zero.
	HistorySize int
}

// Sink receives one update per tick. When ok is false no pitch has been
// resolved and only reading.LoudnessDB is meaningful; the display should
// fall back to its idle state.
type Sink func(reading pitch.Reading, ok bool)

// Session owns one complete tuning pipeline: a capturer, a detection
// engine and a tracker. Sessions are independent; run as many as you have
// input devices. A Session must only be run by one goroutine at a time.
type Session struct {
	capturer audio.Capturer
	detector pitch.Detector
	tracker  *pitch.Tracker
	tick     time.Duration
	log      *slog.Logger
}

// NewSession assembles a session around the given capturer and detector.
func NewSession(capturer audio.Capturer, detector pitch.Detector, cfg Config, log *slog.Logger) *Session {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		capturer: capturer,
		detector: detector,
		tracker:  pitch.NewTracker(cfg.HistorySize),
		tick:     tick,
		log:      log,
	}
}

// Run starts the capturer and drives the pull-analyze-emit loop until ctx
// is cancelled or a frame is structurally invalid. Cancellation lands
// between frames, never mid-frame, and returns nil.
func (s *Session) Run(ctx context.Context, sink Sink) error {
	if err := s.capturer.Start(); err != nil {
		return errors.Wrap(err, "start capture")
	}
	defer func() {
		if err := s.capturer.Stop(); err != nil {
			s.log.Warn("stopping capture", "err", err)
		}
	}()

	s.log.Info("session started", "tick", s.tick)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.tracker.Reset()
			s.log.Info("session stopped")
			return nil
		case <-ticker.C:
			if err := s.step(sink); err != nil {
				return err
			}
		}
	}
}

func (s *Session) step(sink Sink) error {
	frame, err := s.capturer.Frame()
	if err != nil {
		return errors.Wrap(err, "pull frame")
	}
	// The device can tick before its first buffer lands.
	if len(frame.Samples) == 0 {
		return nil
	}

	estimate, err := s.detector.Analyze(frame)
	if err != nil {
		return errors.Wrap(err, "analyze frame")
	}
	db, err := pitch.Loudness(frame)
	if err != nil {
		return errors.Wrap(err, "frame loudness")
	}

	smoothed := s.tracker.Update(estimate)
	reading, ok := pitch.NewReading(smoothed, db)
	if !ok {
		reading.LoudnessDB = db
	}
	sink(reading, ok)
	return nil
}
