package trainer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionRunning is returned by Start when the session is already live.
var ErrSessionRunning = errors.New("session already running")

// How many frames pass between level updates to the meter subscribers.
const levelEveryFrames = 4

// Session owns one practice run end to end: the input source, the
// controller, the statistics and the frame loop goroutine. External
// triggers may arrive from any goroutine; every controller mutation is
// serialized behind one mutex so the per-frame algorithm always sees a
// consistent world.
type Session struct {
	id     string
	cfg    Config
	source FrequencySource
	log    *slog.Logger

	mu     sync.Mutex
	ctrl   *Controller
	stats  *Stats
	snapFn []func(Snapshot)
	lvlFn  []func(float64)

	running bool
	done    chan struct{}
	stopped chan struct{}

	frames      int
	lastTarget  int
	lastLocked  bool
	targetSince time.Time
}

// NewSession wires a session from a validated config and an input source.
// A nil logger falls back to slog.Default.
func NewSession(cfg Config, source FrequencySource, log *slog.Logger) (*Session, error) {
	ctrl, err := NewController(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		id:     uuid.New().String(),
		cfg:    cfg,
		source: source,
		log:    log.With("component", "session"),
		ctrl:   ctrl,
		stats:  NewStats(),
	}, nil
}

// ID returns the session's identifier, stable for its whole life.
func (s *Session) ID() string {
	return s.id
}

// Subscribe registers fn to receive every published snapshot. Subscribers
// are invoked outside the session lock, in registration order, from the
// frame-loop goroutine (or from whichever goroutine fired an external
// trigger); fn must not block for long.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapFn = append(s.snapFn, fn)
}

// OnLevel registers fn to receive periodic input-level readings in dBFS.
func (s *Session) OnLevel(fn func(float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lvlFn = append(s.lvlFn, fn)
}

// Start acquires the input source and launches the frame loop. A source
// failure here is surfaced as an error and leaves the session idle with
// nothing half-open. Start never runs subscribers itself: the frame loop
// publishes the activation snapshot, so a subscriber may block on
// machinery its caller only starts after Start returns.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSessionRunning
	}
	if err := s.source.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("acquire input source: %w", err)
	}

	now := time.Now()
	snap := s.ctrl.Activate()
	s.stats.Reset()
	s.stats.RecordTarget()
	s.lastTarget = snap.TargetNote
	s.lastLocked = false
	s.targetSince = now
	s.frames = 0

	s.running = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	octaves := fmt.Sprintf("%d:%d", s.cfg.OctaveStart, s.cfg.OctaveEnd)
	s.mu.Unlock()

	go s.run(snap)

	s.log.Info("session started", "id", s.id, "target", snap.TargetName, "octaves", octaves)
	return nil
}

// Stop halts the frame loop, cancels any pending rotation, releases the
// input source and logs the session summary. Idempotent: extra calls are
// no-ops.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	snap := s.ctrl.Deactivate()
	subs := s.snapFn
	stopped := s.stopped
	s.mu.Unlock()

	<-stopped
	if err := s.source.Stop(); err != nil {
		s.log.Warn("releasing input source", "err", err)
	}
	for _, fn := range subs {
		fn(snap)
	}

	sum := s.Summary()
	s.log.Info("session finished",
		"id", s.id,
		"targets", sum.Targets,
		"passed", sum.Passed,
		"meanLockSecs", fmt.Sprintf("%.2f", sum.MeanLockSecs),
		"meanAbsCents", fmt.Sprintf("%.1f", sum.MeanAbsCents))
}

// run is the frame loop. The activation snapshot goes out first, then one
// tick, one controller step, one snapshot.
func (s *Session) run(first Snapshot) {
	defer close(s.stopped)

	s.publish(first)

	ticker := time.NewTicker(s.cfg.FramePeriod())
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.step(now)
		}
	}
}

func (s *Session) publish(snap Snapshot) {
	s.mu.Lock()
	subs := s.snapFn
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Session) step(now time.Time) {
	freq, err := s.source.Frequency()
	if err != nil {
		// Device hiccups degrade to a silent frame rather than killing
		// the loop.
		s.log.Debug("frequency read failed", "err", err)
		freq = 0
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	snap := s.ctrl.Step(freq, now)
	s.observe(snap, now)
	s.frames++
	publishLevel := s.frames%levelEveryFrames == 0
	snapSubs := s.snapFn
	lvlSubs := s.lvlFn
	s.mu.Unlock()

	for _, fn := range snapSubs {
		fn(snap)
	}
	if publishLevel {
		level := s.source.Level()
		for _, fn := range lvlSubs {
			fn(level)
		}
	}
}

// observe derives session bookkeeping from snapshot edges: new targets and
// completed locks. Caller holds the mutex.
func (s *Session) observe(snap Snapshot, now time.Time) {
	if snap.TargetNote != s.lastTarget {
		s.stats.RecordTarget()
		s.targetSince = now
		s.lastTarget = snap.TargetNote
	}
	if snap.IsLocked && !s.lastLocked {
		held := now.Sub(s.targetSince)
		s.stats.RecordLock(held)
		s.log.Info("target passed", "note", snap.TargetName, "after", held.Round(time.Millisecond))
	}
	s.lastLocked = snap.IsLocked
	if snap.RingDirection == DirectionPerfect && snap.CentsOffset != nil {
		s.stats.RecordCents(*snap.CentsOffset)
	}
}

// SetTarget is the user-driven target change: cancels any pending
// rotation and resets all transient detection state.
func (s *Session) SetTarget(note int) error {
	s.mu.Lock()
	snap, err := s.ctrl.SetTarget(note)
	if err == nil {
		s.observe(snap, time.Now())
	}
	subs := s.snapFn
	s.mu.Unlock()

	if err != nil {
		return err
	}
	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

// NewTarget draws a fresh random target on a user's request.
func (s *Session) NewTarget() {
	s.mu.Lock()
	snap := s.ctrl.NewTarget()
	s.observe(snap, time.Now())
	subs := s.snapFn
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// SetOctaves moves the practice range and draws a target from it.
func (s *Session) SetOctaves(start, end int) error {
	s.mu.Lock()
	snap, err := s.ctrl.SetOctaves(start, end)
	if err == nil {
		s.cfg.OctaveStart, s.cfg.OctaveEnd = start, end
		s.observe(snap, time.Now())
	}
	subs := s.snapFn
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.log.Info("octave range changed", "octaves", fmt.Sprintf("%d:%d", start, end))
	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

// ResetStats discards the collected statistics mid-session.
func (s *Session) ResetStats() {
	s.mu.Lock()
	s.stats.Reset()
	s.stats.RecordTarget()
	s.mu.Unlock()
	s.log.Info("statistics reset")
}

// Snapshot returns the current state without advancing the frame loop.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Snapshot()
}

// Summary digests the statistics collected so far.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.Summary()
}
