package audio

import (
	"context"
	"log"
	"time"
)

// ----- Host ----- //

// Host drives a Callback in real time until it is stopped.
type Host interface {
	Start() error
	Stop() error
	Close() error
	Clock() Clock
}

// Play starts h, waits for d or for ctx to be cancelled, and stops h. The callback never
// stops a stream itself; this is the only way playback ends.
func Play(ctx context.Context, h Host, d time.Duration) error {
	if err := h.Start(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		log.Println("Play() interrupted")
	case <-timer.C:
	}
	return h.Stop()
}

// ----- Offline Host ----- //

// OfflineHost calls the callback back to back on a simulated clock. Each buffer is
// reported as invoked when the previous one would have started playing, with its DAC
// time one buffer later.
type OfflineHost struct {
	cb         Callback
	sampleRate float64
	buf        []float32
	now        time.Duration
	cost       time.Duration
}

// NewOfflineHost ...
func NewOfflineHost(cb Callback, sampleRate float64, framesPerBuffer int) *OfflineHost {
	return &OfflineHost{
		cb:         cb,
		sampleRate: sampleRate,
		buf:        make([]float32, framesPerBuffer*channelNum),
	}
}

// SetProcessingCost sets how long each simulated callback takes to complete.
func (h *OfflineHost) SetProcessingCost(cost time.Duration) {
	h.cost = cost
}

func (h *OfflineHost) bufferPeriod() time.Duration {
	frames := len(h.buf) / channelNum
	return time.Duration(float64(frames) / h.sampleRate * float64(time.Second))
}

// Clock reports the simulated completion time of the buffer in progress.
func (h *OfflineHost) Clock() Clock {
	return func() time.Duration {
		return h.now + h.cost
	}
}

// Buffer returns the most recently rendered buffer.
func (h *OfflineHost) Buffer() []float32 {
	return h.buf
}

// Run invokes the callback n times and passes each rendered buffer to sink, if any.
func (h *OfflineHost) Run(n int, sink func([]float32)) {
	period := h.bufferPeriod()
	for i := 0; i < n; i++ {
		h.cb.Process(h.buf, TimeInfo{
			CurrentTime:         h.now,
			OutputBufferDacTime: h.now + period,
		})
		if sink != nil {
			sink(h.buf)
		}
		h.now += period
	}
}

// BuffersFor is the number of whole buffers that cover d.
func (h *OfflineHost) BuffersFor(d time.Duration) int {
	period := h.bufferPeriod()
	return int((d + period - 1) / period)
}
