// Package music provides pure conversions between frequencies, MIDI note
// numbers, note names and cents deviations. All functions are stateless and
// safe to call concurrently.
package music

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MIDI note numbers run 0..127. A4 (440 Hz) is note 69.
	MinNote = 0
	MaxNote = 127

	// Scientific-pitch octaves addressable within the MIDI range. Octave
	// -1 starts at note 0; octave 9 is partial, ending at G9 (127).
	MinOctave = -1
	MaxOctave = 9

	// NoNote marks an absent or invalid note in pipelines that carry
	// detections as plain ints.
	NoNote = -1

	refNote = 69
	refFreq = 440.0
)

// All note names in chromatic order
var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ErrBadNote is returned by ParseNote for names that do not denote a
// playable note.
var ErrBadNote = errors.New("malformed note name")

// Valid reports whether note is a playable MIDI note number.
func Valid(note int) bool {
	return note >= MinNote && note <= MaxNote
}

// NoteFromFrequency converts a frequency in Hz to the nearest MIDI note
// number. Returns NoNote for non-positive frequencies.
func NoteFromFrequency(freq float64) int {
	if freq <= 0 {
		return NoNote
	}
	note := int(math.Round(refNote + 12*math.Log2(freq/refFreq)))
	if !Valid(note) {
		return NoNote
	}
	return note
}

// Frequency returns the equal-temperament frequency in Hz of a MIDI note.
func Frequency(note int) float64 {
	return refFreq * math.Pow(2, float64(note-refNote)/12)
}

// Name returns the scientific pitch name of a MIDI note, e.g. 69 -> "A4",
// 61 -> "C#4". Returns "" outside the playable range.
func Name(note int) string {
	if !Valid(note) {
		return ""
	}
	octave := note/12 - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}

// Cents returns the deviation of freq from the frequency of the reference
// note, in hundredths of a semitone. Positive means sharp. The second
// return is false when the deviation is not computable (non-positive
// frequency or reference outside the playable range).
func Cents(freq float64, note int) (float64, bool) {
	if freq <= 0 || !Valid(note) {
		return 0, false
	}
	return 1200 * math.Log2(freq/Frequency(note)), true
}

// ParseNote converts a scientific pitch name back to a MIDI note number.
// Accepts the same names Name produces ("C4", "A#2", "G9").
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return NoNote, fmt.Errorf("%w: %q", ErrBadNote, s)
	}

	name := s[:1]
	rest := s[1:]
	if strings.HasPrefix(rest, "#") {
		name += "#"
		rest = rest[1:]
	}

	idx := -1
	for i, n := range noteNames {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NoNote, fmt.Errorf("%w: %q", ErrBadNote, s)
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return NoNote, fmt.Errorf("%w: %q", ErrBadNote, s)
	}

	note := (octave+1)*12 + idx
	if !Valid(note) {
		return NoNote, fmt.Errorf("%w: %q out of range", ErrBadNote, s)
	}
	return note, nil
}

// OctaveRange translates an inclusive span of scientific-pitch octaves into
// the MIDI note bounds used for target selection. Octave 4 covers C4..B4
// (notes 60-71). Bounds are clamped to the playable range.
func OctaveRange(start, end int) (lo, hi int, err error) {
	if start > end {
		return 0, 0, fmt.Errorf("octave range %d..%d is inverted", start, end)
	}
	lo = (start + 1) * 12
	hi = (end+1)*12 + 11
	if hi < MinNote || lo > MaxNote {
		return 0, 0, fmt.Errorf("octave range %d..%d has no playable notes", start, end)
	}
	if lo < MinNote {
		lo = MinNote
	}
	if hi > MaxNote {
		hi = MaxNote
	}
	return lo, hi, nil
}
