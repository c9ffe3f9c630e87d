package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/gordonklaus/portaudio"
)

// ----- PortAudio Host ----- //

// InitPortAudio initializes the library. Call the returned function when done.
func InitPortAudio() (func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("error initializing portaudio: %w", err)
	}
	return func() {
		portaudio.Terminate()
	}, nil
}

// ListDevices prints every device with its index and host API.
func ListDevices(w io.Writer) error {
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("error listing devices: %w", err)
	}
	for i, d := range devices {
		hostAPI := ""
		if d.HostApi != nil {
			hostAPI = d.HostApi.Name
		}
		if _, err := fmt.Fprintf(w, "Device number %d: %s (Host API: %s, outputs: %d)\n", i, d.Name, hostAPI, d.MaxOutputChannels); err != nil {
			return err
		}
	}
	return nil
}

// PortAudioHost runs a Callback inside a PortAudio stream callback.
type PortAudioHost struct {
	stream *portaudio.Stream
	cb     Callback
}

// NewPortAudioHost opens a stereo float32 stream on device, or on the default output
// device when device is negative.
func NewPortAudioHost(cb Callback, device int, sampleRate float64, framesPerBuffer int) (*PortAudioHost, error) {
	var out *portaudio.DeviceInfo
	if device < 0 {
		d, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("error getting default output device: %w", err)
		}
		out = d
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("error listing devices: %w", err)
		}
		if device >= len(devices) {
			return nil, fmt.Errorf("device number %d out of range (%d devices)", device, len(devices))
		}
		out = devices[device]
	}
	if out.MaxOutputChannels < channelNum {
		return nil, fmt.Errorf("device %q has %d output channels, need %d", out.Name, out.MaxOutputChannels, channelNum)
	}
	params := portaudio.LowLatencyParameters(nil, out)
	params.Output.Channels = channelNum
	params.SampleRate = sampleRate
	params.FramesPerBuffer = framesPerBuffer
	h := &PortAudioHost{cb: cb}
	stream, err := portaudio.OpenStream(params, h.process)
	if err != nil {
		return nil, fmt.Errorf("error opening stream: %w", err)
	}
	h.stream = stream
	return h, nil
}

func (h *PortAudioHost) process(out []float32, timeInfo portaudio.StreamCallbackTimeInfo) {
	h.cb.Process(out, TimeInfo{
		CurrentTime:         timeInfo.CurrentTime,
		OutputBufferDacTime: timeInfo.OutputBufferDacTime,
	})
}

// Clock is the stream time.
func (h *PortAudioHost) Clock() Clock {
	return func() time.Duration {
		return h.stream.Time()
	}
}

// Start ...
func (h *PortAudioHost) Start() error {
	if err := h.stream.Start(); err != nil {
		return fmt.Errorf("error starting stream: %w", err)
	}
	return nil
}

// Stop ...
func (h *PortAudioHost) Stop() error {
	if err := h.stream.Stop(); err != nil {
		return fmt.Errorf("error stopping stream: %w", err)
	}
	return nil
}

// Close ...
func (h *PortAudioHost) Close() error {
	return h.stream.Close()
}
