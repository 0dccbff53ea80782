package trainer

// Status describes what the session is doing with the current frame.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusListening Status = "listening"
	StatusNoPitch   Status = "no-pitch"
	StatusCorrect   Status = "correct"
	StatusTryAgain  Status = "try-again"
)

// Direction places the detected pitch relative to the target.
type Direction string

const (
	DirectionNeutral Direction = "neutral"
	DirectionFlat    Direction = "flat"
	DirectionSharp   Direction = "sharp"
	DirectionPerfect Direction = "perfect"
)

// Snapshot is the read-only state handed to UI collaborators once per
// frame. Consumers must treat it as immutable; a fresh value is built for
// every tick.
type Snapshot struct {
	Status           Status    `json:"status"`
	TargetNote       int       `json:"targetNote"`
	TargetName       string    `json:"targetName"`
	DetectedNoteName string    `json:"detectedNoteName"`
	RingDirection    Direction `json:"ringDirection"`
	LockProgress     float64   `json:"lockProgress"`
	IsLocked         bool      `json:"isLocked"`
	// CentsOffset is nil while no pitch is detected.
	CentsOffset *float64 `json:"centsOffset"`
}
