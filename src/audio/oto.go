package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/hajimehoshi/oto"
)

// ----- Oto Host ----- //

// OtoHost pulls buffers from a Callback as an io.Reader that an oto player drains.
type OtoHost struct {
	ctx        context.Context
	cancel     context.CancelFunc
	otoContext *oto.Context
	cb         Callback
	frames     []float32
	latency    time.Duration
	start      time.Time
	done       chan error
}

var _ io.Reader = (*OtoHost)(nil)

// NewOtoHost ...
func NewOtoHost(cb Callback, sampleRate int, framesPerBuffer int) (*OtoHost, error) {
	bufferSizeInBytes := framesPerBuffer * bytesPerFrame
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, fmt.Errorf("error opening oto context: %w", err)
	}
	return &OtoHost{
		ctx:        context.Background(),
		otoContext: otoContext,
		cb:         cb,
		frames:     make([]float32, framesPerBuffer*channelNum),
		latency:    time.Duration(float64(framesPerBuffer) / float64(sampleRate) * float64(time.Second)),
	}, nil
}

// Clock is the wall time since Start.
func (h *OtoHost) Clock() Clock {
	return func() time.Duration {
		return time.Since(h.start)
	}
}

func (h *OtoHost) Read(buf []byte) (int, error) {
	select {
	case <-h.ctx.Done():
		return 0, io.EOF
	default:
	}
	n := 0
	for n+bytesPerFrame <= len(buf) {
		chunk := h.frames
		if remaining := (len(buf) - n) / bytesPerFrame * channelNum; remaining < len(chunk) {
			chunk = chunk[:remaining]
		}
		now := time.Since(h.start)
		h.cb.Process(chunk, TimeInfo{CurrentTime: now, OutputBufferDacTime: now + h.latency})
		writeBuffer(chunk, buf[n:n+len(chunk)*bitDepthInBytes])
		n += len(chunk) * bitDepthInBytes
	}
	return n, nil
}

// Run blocks until ctx is cancelled, feeding the player from Read.
func (h *OtoHost) Run(ctx context.Context) error {
	p := h.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	h.ctx = ctx
	h.start = time.Now()
	if _, err := io.CopyBuffer(p, h, make([]byte, len(h.frames)*bitDepthInBytes)); err != nil {
		return err
	}
	return nil
}

// Start runs the player in the background until Stop.
func (h *OtoHost) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() {
		h.done <- h.Run(ctx)
	}()
	return nil
}

// Stop returns once Read will no longer be called.
func (h *OtoHost) Stop() error {
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	h.cancel = nil
	return <-h.done
}

// Close ...
func (h *OtoHost) Close() error {
	if err := h.Stop(); err != nil {
		log.Printf("error while stopping oto host: %v", err)
	}
	return h.otoContext.Close()
}
