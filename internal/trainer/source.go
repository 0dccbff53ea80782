package trainer

// FrequencySource feeds the session one fundamental-frequency estimate per
// frame. The microphone pipeline and the MIDI input mode both satisfy it,
// so the session never needs to know which one it is running on.
type FrequencySource interface {
	// Start acquires the underlying device. Failing here is fatal for
	// the session.
	Start() error

	// Stop releases the device. Implementations must tolerate a second
	// call.
	Stop() error

	// Frequency returns the current estimate in Hz, or 0 when no
	// periodic pitch is present this frame. Errors are reserved for
	// device trouble, not for routine silence.
	Frequency() (float64, error)

	// Level returns the current input level in dBFS, for metering only.
	Level() float64
}
