package audio

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

const (
	// DefaultSampleRate ...
	DefaultSampleRate = 44100
	// DefaultFramesPerBuffer ...
	DefaultFramesPerBuffer = 1024
	channelNum             = 2
	bitDepthInBytes        = 2
	bytesPerFrame          = bitDepthInBytes * channelNum
	baseFreq               = 440.0
	minFreq                = 1.0
)

// ErrInvalidConfig is wrapped by every configuration error reported at voice creation.
var ErrInvalidConfig = errors.New("invalid voice configuration")

// ----- Host Boundary ----- //

// TimeInfo is what a host tells the callback about the buffer it is about to play.
type TimeInfo struct {
	CurrentTime         time.Duration
	OutputBufferDacTime time.Duration
}

// Callback is invoked by a host once per buffer with len(out)/channelNum interleaved frames.
// Implementations must not block, allocate, or do I/O. The host keeps calling until
// it is stopped from outside.
type Callback interface {
	Process(out []float32, info TimeInfo)
}

// Clock reports the host's stream time.
type Clock func() time.Duration

// ----- Utility ----- //

func noteToFreq(note int) float64 {
	return baseFreq * math.Pow(2, float64(note-69)/12)
}

func toRawMessage(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(bytes)
}

func validateFrequency(name string, freq float64, sampleRate float64) error {
	if math.IsNaN(freq) || freq < minFreq || freq >= sampleRate/2 {
		return &frequencyError{name: name, freq: freq, nyquist: sampleRate / 2}
	}
	return nil
}

// writeBuffer converts interleaved float frames to little-endian signed 16 bit.
func writeBuffer(in []float32, buf []byte) {
	const max = 32767
	for i, value := range in {
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		b := int16(value * max)
		buf[2*i] = byte(b)
		buf[2*i+1] = byte(b >> 8)
	}
}
