// Package recorder writes a practice log as a standard MIDI file. Every
// target the player locks becomes one note, placed at the moment it was
// passed, so a session can be replayed in any sequencer.
package recorder

import (
	"fmt"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/0xlemi/eartrain/internal/trainer"
)

const (
	resolution = 480                    // ticks per quarter note
	tempoBPM   = 120                    // fixed grid: one quarter note is 500ms
	noteLength = 400 * time.Millisecond // audible length of each logged note
)

type event struct {
	note int
	at   time.Duration // offset from the first observation
}

// Recorder accumulates passed targets and writes them out as a single
// SMF track on Close.
type Recorder struct {
	path string

	mu        sync.Mutex
	started   time.Time
	events    []event
	wasLocked bool
}

// New builds a recorder that will write to path on Close.
func New(path string) *Recorder {
	return &Recorder{path: path}
}

// Observe feeds one state snapshot. The first call starts the log's clock;
// each lock edge (unlocked to locked) appends the passed target.
func (r *Recorder) Observe(snap trainer.Snapshot, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started.IsZero() {
		r.started = now
	}
	if snap.IsLocked && !r.wasLocked {
		r.events = append(r.events, event{note: snap.TargetNote, at: now.Sub(r.started)})
	}
	r.wasLocked = snap.IsLocked
}

// Len reports how many passed targets the log holds.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Close assembles the track and writes the file. A log with no passed
// targets still produces a valid, empty file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	events := make([]event, len(r.events))
	copy(events, r.events)
	r.mu.Unlock()

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("eartrain practice"))
	tr.Add(0, smf.MetaTempo(tempoBPM))

	cursor := time.Duration(0)
	for _, ev := range events {
		gap := ev.at - cursor
		if gap < 0 {
			gap = 0
		}
		tr.Add(durTicks(gap), midi.NoteOn(0, uint8(ev.note), 96))
		tr.Add(durTicks(noteLength), midi.NoteOff(0, uint8(ev.note)))
		cursor = ev.at + noteLength
	}
	tr.Close(0)

	out := smf.New()
	out.TimeFormat = smf.MetricTicks(resolution)
	out.Add(tr)

	if err := out.WriteFile(r.path); err != nil {
		return fmt.Errorf("write practice log: %w", err)
	}
	return nil
}

// durTicks converts wall time to MIDI ticks on the fixed tempo grid.
func durTicks(d time.Duration) uint32 {
	return uint32(d.Milliseconds() * resolution / 500)
}
