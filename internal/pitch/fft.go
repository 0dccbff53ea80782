package pitch

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Detector finds the fundamental frequency of an audio frame with an FFT
// peak search. A detector caches its analysis window between calls, so it
// is not safe for concurrent use.
type Detector struct {
	cfg   Config
	win   []float64 // Hann coefficients, rebuilt when the frame length changes
	frame []float64 // windowed copy of the input, reused across calls
}

// New builds a detector for the given configuration.
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

// SampleRate returns the rate the detector currently assumes.
func (d *Detector) SampleRate() int {
	return d.cfg.SampleRate
}

// Config returns the active configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Reinit rebinds the detector to a new sample rate. Capture devices do not
// always honor the requested rate, so callers must re-init when the rate
// reported alongside the audio differs from the configured one.
func (d *Detector) Reinit(sampleRate int) {
	d.cfg.SampleRate = sampleRate
}

// Detect estimates the fundamental frequency of one frame of samples.
// It returns ErrEmptyBuffer for an empty frame and ErrVolumeThreshold when
// the frame is too quiet or carries no usable peak inside the detectable
// range. A frame that fails detection has no frequency, not a default one.
func (d *Detector) Detect(samples []float32) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyBuffer
	}

	// Skip everything if the level is too low (likely silence).
	// Use both the RMS threshold and the dB threshold.
	rms, db := Level(samples)
	if float64(rms) < d.cfg.VolumeThreshold || float64(db) < d.cfg.SilenceDB {
		return 0, ErrVolumeThreshold
	}

	// A passable RMS with no real peak is diffuse noise, not a note.
	peakAmp := 0.0
	for _, sample := range samples {
		if abs := math.Abs(float64(sample)); abs > peakAmp {
			peakAmp = abs
		}
	}
	if peakAmp < d.cfg.VolumeThreshold*2 {
		return 0, ErrVolumeThreshold
	}

	if len(d.win) != len(samples) {
		d.win = window.Hann(len(samples))
		d.frame = make([]float64, len(samples))
	}
	for i, sample := range samples {
		d.frame[i] = float64(sample) * d.win[i]
	}

	spectrum := fft.FFTReal(d.frame)

	freq := d.fundamental(spectrum)
	if freq < d.cfg.MinFrequency || freq > d.cfg.MaxFrequency {
		return 0, ErrVolumeThreshold
	}
	return freq, nil
}

// peak is a local maximum in the magnitude spectrum.
type peak struct {
	bin       int
	magnitude float64
	frequency float64
}

// fundamental picks the pitch out of the spectrum. It collects every
// prominent peak in the detectable band, sharpens each with quadratic
// interpolation, and corrects the common failure mode where the second
// harmonic outweighs the fundamental. Returns 0 when no peak qualifies.
func (d *Detector) fundamental(spectrum []complex128) float64 {
	// Only the first half of the spectrum is meaningful (Nyquist).
	half := spectrum[:len(spectrum)/2]
	binHz := float64(d.cfg.SampleRate) / float64(len(spectrum))

	minBin := int(d.cfg.MinFrequency / binHz)
	if minBin < 1 {
		minBin = 1 // skip the DC component
	}
	maxBin := int(d.cfg.MaxFrequency / binHz)
	if maxBin >= len(half)-1 {
		maxBin = len(half) - 2
	}
	if maxBin <= minBin {
		return 0
	}

	maxMag := 0.0
	for i := minBin; i <= maxBin; i++ {
		if mag := cmplx.Abs(half[i]); mag > maxMag {
			maxMag = mag
		}
	}
	if maxMag < d.cfg.NoiseFloor {
		return 0
	}

	var peaks []peak
	for i := minBin + 1; i < maxBin; i++ {
		mag := cmplx.Abs(half[i])
		prev := cmplx.Abs(half[i-1])
		next := cmplx.Abs(half[i+1])
		if mag <= prev || mag <= next || mag < maxMag*d.cfg.PeakThreshold {
			continue
		}

		// Quadratic interpolation between neighboring bins recovers
		// frequencies well below the raw bin resolution:
		// delta = 0.5 * (R[k-1] - R[k+1]) / (R[k-1] - 2*R[k] + R[k+1])
		freq := float64(i) * binHz
		if denom := prev - 2*mag + next; denom != 0 {
			delta := 0.5 * (prev - next) / denom
			freq = (float64(i) + delta) * binHz
		}

		peaks = append(peaks, peak{bin: i, magnitude: mag, frequency: freq})
	}
	if len(peaks) == 0 {
		return 0
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].magnitude > peaks[j].magnitude
	})

	// Voices and strings often put more energy on the octave above the
	// fundamental. When a reasonably strong peak sits near half the
	// winner's frequency, the winner is that peak's second harmonic:
	// prefer the lower peak.
	best := peaks[0]
	for _, p := range peaks[1:] {
		if p.magnitude < best.magnitude*0.3 {
			continue
		}
		if math.Abs(p.frequency*2-best.frequency) <= 2*binHz {
			best = p
			break
		}
	}
	return best.frequency
}
