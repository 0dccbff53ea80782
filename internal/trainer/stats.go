package trainer

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Stats accumulates practice results over one session: how many targets
// were shown, how long each pass took, and how far off pitch the singer
// sat while holding a note. Not safe for concurrent use on its own;
// Session guards it with the same mutex as the controller.
type Stats struct {
	targets   int
	lockSecs  []float64
	absCents  []float64
	startedAt time.Time
}

// NewStats returns an empty accumulator.
func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

// RecordTarget counts a newly shown practice target.
func (s *Stats) RecordTarget() {
	s.targets++
}

// RecordLock stores the time from target assignment to lock completion.
func (s *Stats) RecordLock(d time.Duration) {
	s.lockSecs = append(s.lockSecs, d.Seconds())
}

// RecordCents stores one on-pitch deviation sample (absolute value).
func (s *Stats) RecordCents(cents float64) {
	if cents < 0 {
		cents = -cents
	}
	s.absCents = append(s.absCents, cents)
}

// Reset discards everything recorded so far.
func (s *Stats) Reset() {
	s.targets = 0
	s.lockSecs = s.lockSecs[:0]
	s.absCents = s.absCents[:0]
	s.startedAt = time.Now()
}

// Summary is a point-in-time digest of the session, shaped for the JSON
// API and the closing log line.
type Summary struct {
	Targets        int     `json:"targets"`
	Passed         int     `json:"passed"`
	MeanLockSecs   float64 `json:"meanLockSecs"`
	MedianLockSecs float64 `json:"medianLockSecs"`
	StddevLockSecs float64 `json:"stddevLockSecs"`
	MeanAbsCents   float64 `json:"meanAbsCents"`
	ElapsedSecs    float64 `json:"elapsedSecs"`
}

// Summary digests the recorded attempts. Quantile wants sorted input, so
// the lock times are copied and ordered first.
func (s *Stats) Summary() Summary {
	sum := Summary{
		Targets:     s.targets,
		Passed:      len(s.lockSecs),
		ElapsedSecs: time.Since(s.startedAt).Seconds(),
	}
	if len(s.lockSecs) > 0 {
		sorted := make([]float64, len(s.lockSecs))
		copy(sorted, s.lockSecs)
		sort.Float64s(sorted)

		sum.MeanLockSecs = stat.Mean(sorted, nil)
		sum.MedianLockSecs = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		if len(sorted) > 1 {
			sum.StddevLockSecs = stat.StdDev(sorted, nil)
		}
	}
	if len(s.absCents) > 0 {
		sum.MeanAbsCents = stat.Mean(s.absCents, nil)
	}
	return sum
}
