package pitch

import "math"

// PitchClasses are the twelve chromatic pitch-class symbols in order.
var PitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Equal-tempered scale anchored at A4 = 440 Hz, MIDI note 69.
const (
	referenceFrequency = 440.0
	referenceNote      = 69
)

// NoteNumber returns the MIDI note number of the equal-tempered note
// nearest to freq.
func NoteNumber(freq float64) int {
	return int(math.Round(12*math.Log2(freq/referenceFrequency))) + referenceNote
}

// IdealFrequency returns the equal-tempered frequency of a note number.
func IdealFrequency(note int) float64 {
	return referenceFrequency * math.Pow(2, float64(note-referenceNote)/12)
}

// CentsOffset returns the signed distance from ideal to freq in cents.
func CentsOffset(freq, ideal float64) float64 {
	return 1200 * math.Log2(freq/ideal)
}

// NoteName returns the pitch-class symbol of a note number.
func NoteName(note int) string {
	idx := note % 12
	if idx < 0 {
		idx += 12
	}
	return PitchClasses[idx]
}

// Octave returns the octave of a note number; A4 (69) is octave 4.
func Octave(note int) int {
	return int(math.Floor(float64(note)/12)) - 1
}
