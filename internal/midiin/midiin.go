// Package midiin turns a MIDI keyboard into a frequency source, so the
// trainer can be driven without a microphone.
package midiin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters the rtmidi driver

	"github.com/0xlemi/eartrain/internal/music"
)

// ErrAlreadyStarted is returned by Start on a running source.
var ErrAlreadyStarted = errors.New("midi input already started")

// Source reports the most recently pressed, still-held key as a frequency.
// The MIDI driver itself is process-global; callers shut it down with
// midi.CloseDriver once they are done with MIDI entirely.
type Source struct {
	portName string
	log      *slog.Logger

	mu      sync.Mutex
	held    []uint8 // pressed keys, oldest first
	lastVel uint8
	cancel  func()
}

// New builds a source for the named input port. An empty name selects the
// first port available at Start time. The logger may be nil.
func New(portName string, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		portName: portName,
		log:      log.With("component", "midiin"),
	}
}

// Start opens the input port and begins listening for key events.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	var (
		in  drivers.In
		err error
	)
	if s.portName == "" {
		in, err = midi.InPort(0)
	} else {
		in, err = midi.FindInPort(s.portName)
	}
	if err != nil {
		return fmt.Errorf("open midi input: %w", err)
	}

	cancel, err := midi.ListenTo(in, s.receive)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", in.String(), err)
	}
	s.cancel = cancel
	s.log.Info("midi input started", "port", in.String())
	return nil
}

// Stop ends listening. Stopping a stopped source is a no-op.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.cancel = nil
	s.held = nil
	return nil
}

// Frequency returns the equal-temperament frequency of the current key,
// or 0 when no key is held.
func (s *Source) Frequency() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.held) == 0 {
		return 0, nil
	}
	return music.Frequency(int(s.held[len(s.held)-1])), nil
}

// Level maps the latest key velocity onto a rough dBFS scale so level
// meters read the same for keyboard and microphone input.
func (s *Source) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.held) == 0 {
		return -100
	}
	return -40 + 40*float64(s.lastVel)/127
}

func (s *Source) receive(msg midi.Message, _ int32) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		s.mu.Lock()
		s.press(key, vel)
		s.mu.Unlock()
	case msg.GetNoteEnd(&ch, &key):
		s.mu.Lock()
		s.release(key)
		s.mu.Unlock()
	}
}

// press records a key-down. A re-pressed key moves to the top of the held
// order.
func (s *Source) press(key, vel uint8) {
	s.release(key)
	s.held = append(s.held, key)
	s.lastVel = vel
}

func (s *Source) release(key uint8) {
	for i, held := range s.held {
		if held == key {
			s.held = append(s.held[:i], s.held[i+1:]...)
			return
		}
	}
}

// ListPorts names every MIDI input the driver can see.
func ListPorts() []string {
	ports := midi.GetInPorts()
	names := make([]string, 0, len(ports))
	for _, port := range ports {
		names = append(names, port.String())
	}
	return names
}
