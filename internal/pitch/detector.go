// Package pitch estimates fundamental frequencies from raw audio frames.
// It implements the analyzer half of the trainer's frequency contract: a
// detector is built for one sample rate, takes a fixed-size frame per call
// and answers synchronously with a frequency in Hz or nothing.
package pitch

import (
	"errors"
	"fmt"
	"math"
)

// Errors
var (
	ErrEmptyBuffer     = errors.New("empty audio buffer")
	ErrVolumeThreshold = errors.New("volume below threshold")
)

// Config controls the FFT analysis.
type Config struct {
	BufferSize int `json:"bufferSize"`
	HopSize    int `json:"hopSize"`
	SampleRate int `json:"sampleRate"`

	MinFrequency float64 `json:"minFrequency"` // lowest detectable pitch (Hz)
	MaxFrequency float64 `json:"maxFrequency"` // highest detectable pitch (Hz)

	NoiseFloor      float64 `json:"noiseFloor"`      // minimum spectral magnitude worth analyzing
	PeakThreshold   float64 `json:"peakThreshold"`   // minimum peak height as fraction of the strongest
	VolumeThreshold float64 `json:"volumeThreshold"` // minimum RMS amplitude for detection
	SilenceDB       float64 `json:"silenceDb"`       // frames quieter than this are silence
}

// DefaultConfig returns detection settings tuned for voice and guitar.
func DefaultConfig(bufferSize, hopSize, sampleRate int) Config {
	return Config{
		BufferSize:      bufferSize,
		HopSize:         hopSize,
		SampleRate:      sampleRate,
		MinFrequency:    80.0,   // E2 on guitar is ~82 Hz
		MaxFrequency:    1200.0, // comfortably above soprano range
		NoiseFloor:      0.01,
		PeakThreshold:   0.2,
		VolumeThreshold: 0.005,
		SilenceDB:       -50.0,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size %d, must be positive", c.BufferSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.BufferSize {
		return fmt.Errorf("hop size %d outside 1..%d", c.HopSize, c.BufferSize)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate %d, must be positive", c.SampleRate)
	}
	if c.MinFrequency <= 0 || c.MinFrequency >= c.MaxFrequency {
		return fmt.Errorf("frequency range %.0f..%.0f Hz is empty", c.MinFrequency, c.MaxFrequency)
	}
	return nil
}

// Level computes the RMS amplitude and approximate dBFS level of a frame.
func Level(samples []float32) (rms, db float32) {
	if len(samples) == 0 {
		return 0, -100
	}

	sumSquares := float32(0)
	for _, sample := range samples {
		sumSquares += sample * sample
	}
	rms = float32(math.Sqrt(float64(sumSquares / float32(len(samples)))))

	// Protect against log(0) on digital silence.
	if rms > 0.0000001 {
		db = 20 * float32(math.Log10(float64(rms)))
	} else {
		db = -100
	}
	return rms, db
}
