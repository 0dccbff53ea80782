// Package audio captures microphone input through PortAudio and hands it
// out as sample frames tagged with the rate the device actually runs at.
package audio

import "errors"

// Errors
var (
	ErrAlreadyStarted = errors.New("audio capture already started")
	ErrNotStarted     = errors.New("audio capture not started")
)

// AudioBuffer represents a buffer of audio samples. SampleRate is the rate
// the device delivered them at, which is not always the rate requested.
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
}

// Capturer defines the interface for audio capture
type Capturer interface {
	// Start begins audio capture
	Start() error

	// Stop ends audio capture. Stopping a capturer that is not running
	// returns ErrNotStarted.
	Stop() error

	// GetBuffer returns a copy of the most recent audio frame
	GetBuffer() (*AudioBuffer, error)

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool
}

// mixMono folds an interleaved frame down to one channel and applies the
// gain factor. dst must hold len(in)/channels samples.
func mixMono(dst, in []float32, channels int, gain float32) {
	if channels <= 1 {
		for i, sample := range in {
			dst[i] = sample * gain
		}
		return
	}
	for i := range dst {
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += in[i*channels+ch]
		}
		dst[i] = (sum / float32(channels)) * gain
	}
}
