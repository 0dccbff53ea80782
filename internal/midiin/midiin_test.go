package midiin

import (
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func frequency(t *testing.T, s *Source) float64 {
	t.Helper()
	freq, err := s.Frequency()
	if err != nil {
		t.Fatalf("Frequency: %v", err)
	}
	return freq
}

func TestMostRecentHeldKeyWins(t *testing.T) {
	src := New("", nil)

	src.receive(midi.NoteOn(0, 60, 100), 0) // C4
	src.receive(midi.NoteOn(0, 64, 100), 0) // E4

	if got := frequency(t, src); math.Abs(got-329.63) > 0.01 {
		t.Errorf("Frequency = %v, want E4 ~329.63", got)
	}

	src.receive(midi.NoteOff(0, 64), 0)
	if got := frequency(t, src); math.Abs(got-261.63) > 0.01 {
		t.Errorf("Frequency after release = %v, want C4 ~261.63", got)
	}

	src.receive(midi.NoteOff(0, 60), 0)
	if got := frequency(t, src); got != 0 {
		t.Errorf("Frequency with nothing held = %v, want 0", got)
	}
}

func TestRepressedKeyMovesToTop(t *testing.T) {
	src := New("", nil)

	src.receive(midi.NoteOn(0, 60, 100), 0)
	src.receive(midi.NoteOn(0, 64, 100), 0)
	src.receive(midi.NoteOn(0, 60, 100), 0)

	if got := frequency(t, src); math.Abs(got-261.63) > 0.01 {
		t.Errorf("Frequency = %v, want the re-pressed C4", got)
	}

	src.receive(midi.NoteOff(0, 60), 0)
	if got := frequency(t, src); math.Abs(got-329.63) > 0.01 {
		t.Errorf("Frequency = %v, want E4 still held underneath", got)
	}
}

func TestVelocityDrivesLevel(t *testing.T) {
	src := New("", nil)

	if got := src.Level(); got != -100 {
		t.Errorf("idle Level = %v, want -100", got)
	}

	src.receive(midi.NoteOn(0, 60, 127), 0)
	if got := src.Level(); math.Abs(got-0) > 0.01 {
		t.Errorf("full velocity Level = %v, want ~0 dBFS", got)
	}

	src.receive(midi.NoteOn(0, 62, 64), 0)
	if got := src.Level(); got >= -10 || got <= -30 {
		t.Errorf("half velocity Level = %v, want around -20 dBFS", got)
	}
}

func TestReleaseOfUnheldKeyIsIgnored(t *testing.T) {
	src := New("", nil)

	src.receive(midi.NoteOff(0, 60), 0)
	src.receive(midi.NoteOn(0, 64, 80), 0)
	src.receive(midi.NoteOff(0, 72), 0)

	if got := frequency(t, src); math.Abs(got-329.63) > 0.01 {
		t.Errorf("Frequency = %v, want E4 unaffected by stray releases", got)
	}
}
