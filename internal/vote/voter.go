// Package vote debounces a stream of noisy per-frame note detections into a
// stable note signal using a sliding-window majority vote.
package vote

// Defaults for the detection window.
const (
	DefaultCapacity  = 10
	DefaultThreshold = 0.7
)

// Voter accumulates detections in a fixed-capacity FIFO window and reports
// a note as stable once it holds a sufficient majority of the valid votes.
// Per-frame pitch estimates are noisy (octave errors, onset transients,
// vibrato); requiring sustained agreement over a short trailing window
// filters transient misreads while keeping latency at roughly
// capacity x frame period.
//
// A Voter is owned by a single controller and is not safe for concurrent
// use.
type Voter struct {
	window    []int
	capacity  int
	threshold float64
}

// New returns a Voter with the given window capacity and agreement
// threshold. Capacity is clamped to at least 1; thresholds outside (0,1]
// fall back to the default.
func New(capacity int, threshold float64) *Voter {
	if capacity < 1 {
		capacity = 1
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Voter{
		window:    make([]int, 0, capacity),
		capacity:  capacity,
		threshold: threshold,
	}
}

// Add records one detection and reports the stable note, if any. Negative
// values record a frame with no detection; they occupy a window slot and
// dilute the majority without ever winning it.
//
// No verdict is produced until the window has filled since the last reset:
// a part-filled window would let the first frames after a reset masquerade
// as a stable note.
func (v *Voter) Add(note int) (stable int, ok bool) {
	v.window = append(v.window, note)
	if len(v.window) > v.capacity {
		v.window = v.window[1:]
	}
	if len(v.window) < v.capacity {
		return 0, false
	}

	// Tally in window order. Strict > means the first note to reach the
	// winning count keeps it: a tie between two notes resolves to
	// whichever completed its count earlier in the window.
	counts := make(map[int]int, len(v.window))
	best, bestCount, valid := 0, 0, 0
	for _, n := range v.window {
		if n < 0 {
			continue
		}
		valid++
		counts[n]++
		if counts[n] > bestCount {
			best, bestCount = n, counts[n]
		}
	}
	if valid == 0 {
		return 0, false
	}
	if float64(bestCount)/float64(valid) < v.threshold {
		return 0, false
	}
	return best, true
}

// Reset clears the window. Call it whenever detection should restart from
// a clean slate: capture start, target change, octave change.
func (v *Voter) Reset() {
	v.window = v.window[:0]
}

// Size returns the number of votes currently held.
func (v *Voter) Size() int {
	return len(v.window)
}
