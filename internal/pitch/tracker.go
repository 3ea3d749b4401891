package pitch

import (
	"math"
	"sort"
)

// DefaultHistorySize is the default smoothing window capacity.
const DefaultHistorySize = 10

// inTuneCents is the half-width of the in-tune band.
const inTuneCents = 3.0

// Direction labels which correction glyph the display should show.
type Direction int

const (
	InTune Direction = iota
	Flat
	Sharp
)

func (d Direction) String() string {
	switch d {
	case Flat:
		return "flat"
	case Sharp:
		return "sharp"
	default:
		return "in tune"
	}
}

// Tracker turns raw per-frame estimates into a stable pitch by keeping a
// bounded history of detections and reporting its median. The median
// (rather than a mean or low-pass filter) drops single-frame octave-jump
// outliers outright, trading roughly one frame of latency for stability.
//
// A Tracker is owned by exactly one session and is not safe for
// concurrent use.
type Tracker struct {
	capacity  int
	history   []float64
	lastValid float64
}

// NewTracker creates a tracker with the given history capacity; zero or
// negative selects DefaultHistorySize.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &Tracker{
		capacity: capacity,
		history:  make([]float64, 0, capacity),
	}
}

// Update folds one estimate into the history and returns the smoothed
// frequency. A NoPitch estimate leaves the history untouched. The result
// is 0 until the first detection ever arrives.
func (t *Tracker) Update(estimate Estimate) float64 {
	if freq, ok := estimate.Frequency(); ok {
		if len(t.history) == t.capacity {
			copy(t.history, t.history[1:])
			t.history = t.history[:len(t.history)-1]
		}
		t.history = append(t.history, freq)
		t.lastValid = freq
	}

	if len(t.history) == 0 {
		return t.lastValid
	}
	return median(t.history)
}

// Reset discards all smoothing state, as if freshly constructed.
func (t *Tracker) Reset() {
	t.history = t.history[:0]
	t.lastValid = 0
}

// median averages the middle pair for even-length input.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Reading is one tuning snapshot derived from the smoothed pitch. It is
// produced once per tick and handed straight to the display.
type Reading struct {
	NoteIndex      int     // MIDI note number of the nearest note
	NoteName       string  // pitch-class symbol
	Octave         int     // scientific octave, A4 = octave 4
	Frequency      float64 // smoothed pitch in Hz
	IdealFrequency float64 // equal-tempered frequency of NoteIndex
	Cents          float64 // signed deviation from IdealFrequency
	LoudnessDB     float64
	Direction      Direction
}

// NewReading derives the note identity and deviation for a smoothed
// frequency; ok is false when freq resolves to 0, meaning nothing has
// been detected yet.
func NewReading(freq, loudnessDB float64) (Reading, bool) {
	if freq <= 0 {
		return Reading{}, false
	}
	note := NoteNumber(freq)
	ideal := IdealFrequency(note)
	cents := CentsOffset(freq, ideal)
	return Reading{
		NoteIndex:      note,
		NoteName:       NoteName(note),
		Octave:         Octave(note),
		Frequency:      freq,
		IdealFrequency: ideal,
		Cents:          cents,
		LoudnessDB:     loudnessDB,
		Direction:      directionFor(cents),
	}, true
}

// directionFor maps a cents offset onto a correction glyph. Positive
// cents (measured pitch above the ideal) drive the flat glyph and
// negative cents the sharp one; this mirrors the shipped display
// convention and is deliberately kept as-is (see DESIGN.md).
func directionFor(cents float64) Direction {
	switch {
	case math.Abs(cents) <= inTuneCents:
		return InTune
	case cents > 0:
		return Flat
	default:
		return Sharp
	}
}
