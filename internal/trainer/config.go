package trainer

import (
	"fmt"
	"time"

	"github.com/0xlemi/eartrain/internal/vote"
)

// Config holds the tunable parameters of a practice session. Durations are
// carried in milliseconds so the struct stays flat for flags and JSON.
type Config struct {
	// Practice targets are drawn from this inclusive octave span
	// (scientific pitch: octave 4 is C4..B4).
	OctaveStart int `json:"octaveStart"`
	OctaveEnd   int `json:"octaveEnd"`

	// Detection window of the stability vote.
	WindowCapacity int     `json:"windowCapacity"`
	VoteThreshold  float64 `json:"voteThreshold"`

	// A matching pitch must hold this long before the target counts as
	// passed.
	HoldMs int `json:"holdMs"`

	// Maximum deviation from the target, in cents, still judged on pitch.
	PerfectCents float64 `json:"perfectCents"`

	// How long the success state stays on screen before the next target
	// is drawn.
	RotateMs int `json:"rotateMs"`

	// Cadence of the analysis loop.
	FrameMs int `json:"frameMs"`
}

// DefaultConfig returns the standard trainer settings.
func DefaultConfig() Config {
	return Config{
		OctaveStart:    3,
		OctaveEnd:      4,
		WindowCapacity: vote.DefaultCapacity,
		VoteThreshold:  vote.DefaultThreshold,
		HoldMs:         1200,
		PerfectCents:   10,
		RotateMs:       1500,
		FrameMs:        50,
	}
}

// Validate reports the first configuration problem found, before any device
// is touched.
func (c Config) Validate() error {
	if c.WindowCapacity < 1 {
		return fmt.Errorf("window capacity %d, need at least 1", c.WindowCapacity)
	}
	if c.VoteThreshold <= 0 || c.VoteThreshold > 1 {
		return fmt.Errorf("vote threshold %v outside (0,1]", c.VoteThreshold)
	}
	if c.HoldMs <= 0 {
		return fmt.Errorf("hold duration %dms, must be positive", c.HoldMs)
	}
	if c.PerfectCents <= 0 {
		return fmt.Errorf("perfect-cents threshold %v, must be positive", c.PerfectCents)
	}
	if c.RotateMs < 0 {
		return fmt.Errorf("rotation delay %dms, must not be negative", c.RotateMs)
	}
	if c.FrameMs <= 0 {
		return fmt.Errorf("frame period %dms, must be positive", c.FrameMs)
	}
	return nil
}

// HoldDuration returns the hold requirement as a time.Duration.
func (c Config) HoldDuration() time.Duration {
	return time.Duration(c.HoldMs) * time.Millisecond
}

// RotateDelay returns the post-success delay as a time.Duration.
func (c Config) RotateDelay() time.Duration {
	return time.Duration(c.RotateMs) * time.Millisecond
}

// FramePeriod returns the analysis cadence as a time.Duration.
func (c Config) FramePeriod() time.Duration {
	return time.Duration(c.FrameMs) * time.Millisecond
}
