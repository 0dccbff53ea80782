package pitch

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/0xlemi/eartrain/internal/audio"
)

// minFrameSamples is the smallest frame worth analyzing. Shorter frames
// show up right after capture starts, before the device has filled the
// ring; they carry too little signal for a stable estimate.
const minFrameSamples = 512

// Source pairs an audio capturer with a Detector to produce one frequency
// reading per poll. It reports silence and too-quiet frames as the absence
// of a frequency; only device trouble surfaces as an error.
type Source struct {
	capturer audio.Capturer
	det      *Detector
	log      *slog.Logger

	mu sync.Mutex
	db float64
}

// NewSource wires a capturer and a detector together. The logger may be
// nil, in which case the process default is used.
func NewSource(capturer audio.Capturer, det *Detector, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		capturer: capturer,
		det:      det,
		log:      log.With("component", "pitch"),
		db:       -100,
	}
}

// Start begins audio capture.
func (s *Source) Start() error {
	return s.capturer.Start()
}

// Stop ends audio capture. Stopping an already-stopped source is a no-op.
func (s *Source) Stop() error {
	if err := s.capturer.Stop(); err != nil && !errors.Is(err, audio.ErrNotStarted) {
		return err
	}
	return nil
}

// Frequency polls the capturer for the latest frame and runs detection on
// it. It returns 0 with a nil error when the frame holds no usable pitch.
func (s *Source) Frequency() (float64, error) {
	buf, err := s.capturer.GetBuffer()
	if err != nil {
		return 0, err
	}
	if buf == nil || len(buf.Samples) < minFrameSamples {
		return 0, nil
	}

	_, db := Level(buf.Samples)
	s.mu.Lock()
	s.db = float64(db)
	s.mu.Unlock()

	// Devices are free to ignore the rate we asked for. Analysis against
	// the wrong rate shifts every frequency, so rebind before detecting.
	if buf.SampleRate > 0 && buf.SampleRate != s.det.SampleRate() {
		s.log.Info("sample rate changed, rebinding detector",
			"configured", s.det.SampleRate(),
			"actual", buf.SampleRate)
		s.det.Reinit(buf.SampleRate)
	}

	freq, err := s.det.Detect(buf.Samples)
	if err != nil {
		if errors.Is(err, ErrEmptyBuffer) || errors.Is(err, ErrVolumeThreshold) {
			return 0, nil // routine silence, not device trouble
		}
		return 0, err
	}
	return freq, nil
}

// Level returns the most recent input level in dBFS.
func (s *Source) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}
