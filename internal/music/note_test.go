package music

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoteFromFrequency(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(69, NoteFromFrequency(440.0))
	assert.Equal(60, NoteFromFrequency(261.63))
	assert.Equal(57, NoteFromFrequency(220.0))
	assert.Equal(81, NoteFromFrequency(880.0))

	// Slight detunes still land on the nearest semitone.
	assert.Equal(69, NoteFromFrequency(445.0))
	assert.Equal(69, NoteFromFrequency(432.0))

	// Non-positive frequencies have no note.
	assert.Equal(NoNote, NoteFromFrequency(0))
	assert.Equal(NoNote, NoteFromFrequency(-120.5))
}

func TestFrequency(t *testing.T) {
	assert := assert.New(t)

	assert.InDelta(440.0, Frequency(69), 1e-9)
	assert.InDelta(261.6256, Frequency(60), 1e-3)
	assert.InDelta(880.0, Frequency(81), 1e-9)
	assert.InDelta(27.5, Frequency(21), 1e-9)
}

func TestRoundTrip(t *testing.T) {
	// Every playable note maps back to itself through its own frequency,
	// including when detuned by just under half a semitone.
	for note := MinNote; note <= MaxNote; note++ {
		f := Frequency(note)
		if got := NoteFromFrequency(f); got != note {
			t.Fatalf("note %d: round trip gave %d", note, got)
		}
		sharp := f * math.Pow(2, 0.49/12)
		flat := f * math.Pow(2, -0.49/12)
		if got := NoteFromFrequency(sharp); got != note {
			t.Fatalf("note %d: +49 cents gave %d", note, got)
		}
		if got := NoteFromFrequency(flat); got != note {
			t.Fatalf("note %d: -49 cents gave %d", note, got)
		}
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		note int
		want string
	}{
		{69, "A4"},
		{60, "C4"},
		{61, "C#4"},
		{0, "C-1"},
		{127, "G9"},
		{21, "A0"},
		{-1, ""},
		{128, ""},
	}
	for _, tt := range tests {
		if got := Name(tt.note); got != tt.want {
			t.Errorf("Name(%d) = %q, want %q", tt.note, got, tt.want)
		}
	}
}

func TestCents(t *testing.T) {
	assert := assert.New(t)

	c, ok := Cents(440.0, 69)
	assert.True(ok)
	assert.InDelta(0, c, 1e-9)

	// One semitone up is +100 cents.
	c, ok = Cents(Frequency(70), 69)
	assert.True(ok)
	assert.InDelta(100, c, 1e-6)

	c, ok = Cents(Frequency(68), 69)
	assert.True(ok)
	assert.InDelta(-100, c, 1e-6)

	_, ok = Cents(0, 69)
	assert.False(ok)
	_, ok = Cents(-440, 69)
	assert.False(ok)
	_, ok = Cents(440, NoNote)
	assert.False(ok)
	_, ok = Cents(440, 300)
	assert.False(ok)
}

func TestParseNote(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		in   string
		want int
	}{
		{"A4", 69},
		{"C4", 60},
		{"C#4", 61},
		{"C-1", 0},
		{"G9", 127},
		{" A4 ", 69},
	}
	for _, tt := range tests {
		got, err := ParseNote(tt.in)
		assert.NoError(err, tt.in)
		assert.Equal(tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "A", "H#9", "C##4", "Bb4", "A99", "4A", "C#"} {
		_, err := ParseNote(bad)
		assert.ErrorIs(err, ErrBadNote, bad)
	}
}

func TestParseNoteRoundTrip(t *testing.T) {
	for note := MinNote; note <= MaxNote; note++ {
		got, err := ParseNote(Name(note))
		if err != nil {
			t.Fatalf("note %d (%s): %v", note, Name(note), err)
		}
		if got != note {
			t.Fatalf("note %d (%s): parsed back as %d", note, Name(note), got)
		}
	}
}

func TestOctaveRange(t *testing.T) {
	assert := assert.New(t)

	lo, hi, err := OctaveRange(4, 4)
	assert.NoError(err)
	assert.Equal(60, lo)
	assert.Equal(71, hi)

	lo, hi, err = OctaveRange(3, 5)
	assert.NoError(err)
	assert.Equal(48, lo)
	assert.Equal(83, hi)

	// The top octave is truncated by the end of the MIDI range.
	lo, hi, err = OctaveRange(9, 9)
	assert.NoError(err)
	assert.Equal(120, lo)
	assert.Equal(127, hi)

	lo, hi, err = OctaveRange(-1, -1)
	assert.NoError(err)
	assert.Equal(0, lo)
	assert.Equal(11, hi)

	_, _, err = OctaveRange(5, 3)
	assert.Error(err)
	_, _, err = OctaveRange(10, 12)
	assert.Error(err)
}
