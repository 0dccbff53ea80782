package pitch

import (
	"errors"
	"math"
	"testing"
)

const testRate = 44100

func testDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultConfig(2048, 512, testRate))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

// sine synthesizes n samples of a pure tone.
func sine(freq, amp float64, rate, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return samples
}

// addSine mixes a second tone into an existing frame.
func addSine(samples []float32, freq, amp float64, rate int) {
	for i := range samples {
		samples[i] += float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
}

func TestDetectPureTones(t *testing.T) {
	d := testDetector(t)

	for _, freq := range []float64{110, 220, 440, 523.25, 880} {
		got, err := d.Detect(sine(freq, 0.5, testRate, 2048))
		if err != nil {
			t.Errorf("Detect(%v Hz): %v", freq, err)
			continue
		}
		if math.Abs(got-freq) > 5 {
			t.Errorf("Detect(%v Hz) = %v, want within 5 Hz", freq, got)
		}
	}
}

func TestDetectPrefersFundamentalOverStrongerHarmonic(t *testing.T) {
	d := testDetector(t)

	// Second harmonic louder than the fundamental, as plucked strings
	// often are.
	frame := sine(220, 0.3, testRate, 2048)
	addSine(frame, 440, 0.5, testRate)

	got, err := d.Detect(frame)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if math.Abs(got-220) > 5 {
		t.Errorf("Detect = %v Hz, want the 220 Hz fundamental", got)
	}
}

func TestDetectEmptyFrame(t *testing.T) {
	d := testDetector(t)

	if _, err := d.Detect(nil); !errors.Is(err, ErrEmptyBuffer) {
		t.Errorf("Detect(nil) err = %v, want ErrEmptyBuffer", err)
	}
}

func TestDetectSilence(t *testing.T) {
	d := testDetector(t)

	if _, err := d.Detect(make([]float32, 2048)); !errors.Is(err, ErrVolumeThreshold) {
		t.Errorf("Detect(silence) err = %v, want ErrVolumeThreshold", err)
	}
}

func TestDetectTooQuiet(t *testing.T) {
	d := testDetector(t)

	// Well under the RMS gate.
	if _, err := d.Detect(sine(440, 0.001, testRate, 2048)); !errors.Is(err, ErrVolumeThreshold) {
		t.Errorf("Detect(quiet tone) err = %v, want ErrVolumeThreshold", err)
	}
}

func TestReinitChangesAnalysisRate(t *testing.T) {
	d := testDetector(t)

	// The same waveform period reads as a different frequency once the
	// detector knows the true rate.
	frame := sine(440, 0.5, 48000, 2048)

	d.Reinit(48000)
	got, err := d.Detect(frame)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if math.Abs(got-440) > 5 {
		t.Errorf("Detect after Reinit = %v Hz, want ~440", got)
	}
	if d.SampleRate() != 48000 {
		t.Errorf("SampleRate = %d, want 48000", d.SampleRate())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }},
		{"zero hop", func(c *Config) { c.HopSize = 0 }},
		{"hop beyond buffer", func(c *Config) { c.HopSize = c.BufferSize + 1 }},
		{"zero rate", func(c *Config) { c.SampleRate = 0 }},
		{"inverted range", func(c *Config) { c.MinFrequency = 2000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(2048, 512, testRate)
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("New accepted an unusable config")
			}
		})
	}
}
