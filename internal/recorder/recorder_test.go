package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/0xlemi/eartrain/internal/trainer"
)

func readLog(t *testing.T, path string) *smf.SMF {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	song, err := smf.ReadFrom(f)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return song
}

func TestRecorderWritesPassedTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "practice.mid")
	rec := New(path)
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	rec.Observe(trainer.Snapshot{TargetNote: 60, Status: trainer.StatusListening}, base)
	rec.Observe(trainer.Snapshot{TargetNote: 60, IsLocked: true, Status: trainer.StatusCorrect}, base.Add(2*time.Second))
	// A held lock is one pass, not two.
	rec.Observe(trainer.Snapshot{TargetNote: 60, IsLocked: true}, base.Add(2100*time.Millisecond))
	rec.Observe(trainer.Snapshot{TargetNote: 64}, base.Add(3*time.Second))
	rec.Observe(trainer.Snapshot{TargetNote: 64, IsLocked: true}, base.Add(5*time.Second))

	if rec.Len() != 2 {
		t.Fatalf("Len = %d, want 2", rec.Len())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	song := readLog(t, path)
	if len(song.Tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(song.Tracks))
	}

	var keys []uint8
	var deltas []uint32
	for _, ev := range song.Tracks[0] {
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			keys = append(keys, key)
			deltas = append(deltas, ev.Delta)
		}
	}

	if len(keys) != 2 || keys[0] != 60 || keys[1] != 64 {
		t.Fatalf("note starts = %v, want [60 64]", keys)
	}
	// 2s at 120 BPM and 480 ticks per quarter is 1920 ticks; the second
	// note starts 2.6s after the first one ended.
	if deltas[0] != 1920 {
		t.Errorf("first delta = %d, want 1920", deltas[0])
	}
	if deltas[1] != 2496 {
		t.Errorf("second delta = %d, want 2496", deltas[1])
	}
}

func TestRecorderEmptyLogStillWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mid")
	rec := New(path)

	rec.Observe(trainer.Snapshot{TargetNote: 60}, time.Now())
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	song := readLog(t, path)
	for _, ev := range song.Tracks[0] {
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			t.Fatalf("unexpected note start %d in an empty log", key)
		}
	}
}
