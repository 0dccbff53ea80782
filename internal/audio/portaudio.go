package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapturer implements audio capture using PortAudio
type PortAudioCapturer struct {
	stream        *portaudio.Stream
	bufferSize    int
	sampleRate    int
	channels      int
	amplification float32

	stateMu     sync.Mutex
	isCapturing bool

	bufferMutex sync.Mutex
	buffer      *AudioBuffer
}

// NewPortAudioCapturer creates a new audio capturer using PortAudio
func NewPortAudioCapturer(bufferSize, sampleRate, channels int) (*PortAudioCapturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	return &PortAudioCapturer{
		buffer: &AudioBuffer{
			Samples:    make([]float32, 0, bufferSize),
			SampleRate: sampleRate,
		},
		bufferSize:    bufferSize,
		sampleRate:    sampleRate,
		channels:      channels,
		amplification: 5.0, // quiet laptop microphones need the help
	}, nil
}

// Start begins audio capture
func (c *PortAudioCapturer) Start() error {
	if c.IsCapturing() {
		return ErrAlreadyStarted
	}

	// Open default input stream
	var err error
	c.stream, err = portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // output channels (we don't need output)
		float64(c.sampleRate),
		c.bufferSize/c.channels, // frames per buffer
		c.processAudio,          // callback function
	)
	if err != nil {
		return err
	}

	if err := c.stream.Start(); err != nil {
		c.stream.Close()
		return err
	}

	// The device is free to pick a different rate than requested; every
	// frame must carry the rate it was actually sampled at.
	if info := c.stream.Info(); info != nil && info.SampleRate > 0 {
		c.bufferMutex.Lock()
		c.buffer.SampleRate = int(info.SampleRate)
		c.bufferMutex.Unlock()
	}

	c.setCapturing(true)
	return nil
}

// Stop ends audio capture and releases PortAudio.
func (c *PortAudioCapturer) Stop() error {
	if !c.IsCapturing() {
		return ErrNotStarted
	}

	// stream.Stop waits for the callback to drain, so no locks may be
	// held here.
	if err := c.stream.Stop(); err != nil {
		return err
	}
	if err := c.stream.Close(); err != nil {
		return err
	}
	if err := portaudio.Terminate(); err != nil {
		return err
	}

	c.setCapturing(false)
	return nil
}

// processAudio is the callback function for audio processing
func (c *PortAudioCapturer) processAudio(in, _ []float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	mono := make([]float32, len(in)/max(c.channels, 1))
	mixMono(mono, in, c.channels, c.amplification)
	c.buffer.Samples = mono
}

// GetBuffer returns the current audio buffer
func (c *PortAudioCapturer) GetBuffer() (*AudioBuffer, error) {
	if !c.IsCapturing() {
		return nil, ErrNotStarted
	}

	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	// Return a copy so callers never race the audio callback.
	bufferCopy := &AudioBuffer{
		Samples:    make([]float32, len(c.buffer.Samples)),
		SampleRate: c.buffer.SampleRate,
	}
	copy(bufferCopy.Samples, c.buffer.Samples)

	return bufferCopy, nil
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.isCapturing
}

func (c *PortAudioCapturer) setCapturing(v bool) {
	c.stateMu.Lock()
	c.isCapturing = v
	c.stateMu.Unlock()
}

// SetAmplification sets the audio amplification factor
func (c *PortAudioCapturer) SetAmplification(factor float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	if factor < 0.1 {
		factor = 0.1
	}
	c.amplification = factor
}
