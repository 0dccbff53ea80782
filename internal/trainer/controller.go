package trainer

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/0xlemi/eartrain/internal/music"
	"github.com/0xlemi/eartrain/internal/vote"
)

// Controller turns the per-frame frequency stream into pass/fail judgments
// against the current practice target. It owns the stability voter, the
// hold-to-lock run and the pending rotation deadline; nothing here is
// shared, and nothing blocks.
//
// A Controller is not safe for concurrent use. Session serializes every
// mutation behind its mutex; the external triggers (SetTarget, octave
// changes, activation) assume the same discipline.
type Controller struct {
	cfg   Config
	voter *vote.Voter

	lo, hi int // target selection bounds, MIDI
	target int
	active bool

	lockStart time.Time // zero while no matching run is open
	progress  float64
	locked    bool
	rotateAt  time.Time // zero while no rotation is pending

	detectedName string
	direction    Direction
	cents        *float64
	status       Status

	// randInt is swappable so tests can pin target selection.
	randInt func(n int) int
}

// NewController validates the configuration and prepares a controller with
// a randomly drawn first target. The controller starts inactive (status
// idle) until Activate is called.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("trainer config: %w", err)
	}
	lo, hi, err := music.OctaveRange(cfg.OctaveStart, cfg.OctaveEnd)
	if err != nil {
		return nil, fmt.Errorf("trainer config: %w", err)
	}
	c := &Controller{
		cfg:       cfg,
		voter:     vote.New(cfg.WindowCapacity, cfg.VoteThreshold),
		lo:        lo,
		hi:        hi,
		direction: DirectionNeutral,
		status:    StatusIdle,
		randInt:   rand.Intn,
	}
	c.target = c.randomTarget()
	return c, nil
}

// Step runs the per-frame algorithm: map the frequency, vote, update the
// lock run and fire a due rotation. freq <= 0 means no pitch was detected
// this frame. The returned Snapshot is a fresh value the caller may hand
// out freely.
func (c *Controller) Step(freq float64, now time.Time) Snapshot {
	if !c.active {
		return c.snapshot()
	}

	// A pending rotation owns the status until its deadline: without this
	// the frames between "correct" and the next target would flicker
	// through try-again states.
	if !c.rotateAt.IsZero() {
		if now.Before(c.rotateAt) {
			return c.snapshot()
		}
		c.rotate()
	}

	if freq <= 0 {
		c.voter.Add(music.NoNote)
		c.clearLockRun()
		c.clearDetected()
		c.status = StatusNoPitch
		return c.snapshot()
	}

	note := music.NoteFromFrequency(freq)
	c.detectedName = music.Name(note)

	// Tuning accuracy is judged against the target's own frequency, not
	// the nearest chromatic pitch: singing a clean B when asked for a C
	// must read as a miss, not as "in tune".
	if cents, ok := music.Cents(freq, c.target); ok {
		v := cents
		c.cents = &v
		switch {
		case math.Abs(cents) <= c.cfg.PerfectCents:
			c.direction = DirectionPerfect
		case cents < 0:
			c.direction = DirectionFlat
		default:
			c.direction = DirectionSharp
		}
	} else {
		c.cents = nil
		c.direction = DirectionNeutral
	}

	stable, ok := c.voter.Add(note)
	if !ok {
		c.clearLockRun()
		c.status = StatusListening
		return c.snapshot()
	}

	if stable != c.target || c.direction != DirectionPerfect {
		c.clearLockRun()
		c.status = StatusTryAgain
		return c.snapshot()
	}

	if c.lockStart.IsZero() {
		c.lockStart = now
	}
	c.progress = min(float64(now.Sub(c.lockStart))/float64(c.cfg.HoldDuration()), 1)
	if c.progress >= 1 && !c.locked {
		c.locked = true
		c.status = StatusCorrect
		c.rotateAt = now.Add(c.cfg.RotateDelay())
	} else {
		c.status = StatusListening
	}
	return c.snapshot()
}

// SetTarget replaces the practice target on a user's request. Any pending
// rotation is cancelled first so a stale deadline can never overwrite the
// new target, then every transient judgment is cleared.
func (c *Controller) SetTarget(note int) (Snapshot, error) {
	if !music.Valid(note) {
		return c.snapshot(), fmt.Errorf("target note %d outside MIDI range", note)
	}
	c.rotateAt = time.Time{}
	c.target = note
	c.resetTransient()
	return c.snapshot(), nil
}

// NewTarget draws a random target within the octave range, with the same
// reset semantics as SetTarget. Consecutive repeats are possible; the draw
// is independent of history.
func (c *Controller) NewTarget() Snapshot {
	c.rotateAt = time.Time{}
	c.target = c.randomTarget()
	c.resetTransient()
	return c.snapshot()
}

// SetOctaves moves the target selection span and draws a fresh target
// from it.
func (c *Controller) SetOctaves(start, end int) (Snapshot, error) {
	lo, hi, err := music.OctaveRange(start, end)
	if err != nil {
		return c.snapshot(), err
	}
	c.cfg.OctaveStart, c.cfg.OctaveEnd = start, end
	c.lo, c.hi = lo, hi
	return c.NewTarget(), nil
}

// Activate marks capture as running and clears all transient state so the
// session starts from a clean slate.
func (c *Controller) Activate() Snapshot {
	c.active = true
	c.rotateAt = time.Time{}
	c.resetTransient()
	return c.snapshot()
}

// Deactivate returns the controller to its idle baseline. Safe to call any
// number of times.
func (c *Controller) Deactivate() Snapshot {
	c.active = false
	c.rotateAt = time.Time{}
	c.resetTransient()
	return c.snapshot()
}

// Snapshot returns the current state without advancing it.
func (c *Controller) Snapshot() Snapshot {
	return c.snapshot()
}

func (c *Controller) randomTarget() int {
	return c.lo + c.randInt(c.hi-c.lo+1)
}

// rotate installs the next random target after a passed one. The voter
// restarts empty so the old note's votes cannot carry a verdict across
// targets.
func (c *Controller) rotate() {
	c.target = c.randomTarget()
	c.rotateAt = time.Time{}
	c.resetTransient()
}

func (c *Controller) resetTransient() {
	c.locked = false
	c.clearLockRun()
	c.clearDetected()
	c.voter.Reset()
	if c.active {
		c.status = StatusListening
	} else {
		c.status = StatusIdle
	}
}

func (c *Controller) clearLockRun() {
	c.lockStart = time.Time{}
	c.progress = 0
}

func (c *Controller) clearDetected() {
	c.detectedName = ""
	c.direction = DirectionNeutral
	c.cents = nil
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Status:           c.status,
		TargetNote:       c.target,
		TargetName:       music.Name(c.target),
		DetectedNoteName: c.detectedName,
		RingDirection:    c.direction,
		LockProgress:     c.progress,
		IsLocked:         c.locked,
	}
	if c.cents != nil {
		v := *c.cents
		s.CentsOffset = &v
	}
	return s
}
