package audio

import (
	"fmt"
	"math"
	"time"
)

// DivergenceThreshold is the discrepancy in radians that latches the instrumentation.
const DivergenceThreshold = 1.0

// ----- Timing Record ----- //

// TimingRecord is what one callback invocation saw of the host clock.
type TimingRecord struct {
	Invoked time.Duration // host time when the callback was entered
	DAC     time.Duration // estimated time the first frame reaches the DAC
	Done    time.Duration // host time when the callback returned
}

// Slack is how early the buffer was finished relative to its DAC time.
// A negative slack is a missed deadline.
func (r TimingRecord) Slack() time.Duration {
	return r.DAC - r.Done
}

// ----- Instrumentation ----- //

const (
	stateArmed = iota
	stateLatched
)

// Instrumentation records per-buffer timing and per-sample phase discrepancy into
// arenas allocated up front. Nothing is allocated while a host is running; records
// that do not fit are counted as dropped.
//
// It is owned by the Probe that writes it. Reading it while the host is still
// running is not supported; stop the stream first.
type Instrumentation struct {
	timings        []TimingRecord
	discrepancies  []float64
	timingLen      int
	discLen        int
	droppedTimings int
	droppedSamples int
	buffers        int
	state          int
	firstDivergent int
	clock          Clock
}

// NewInstrumentation preallocates room for maxBuffers buffers of framesPerBuffer frames.
func NewInstrumentation(maxBuffers int, framesPerBuffer int) *Instrumentation {
	return &Instrumentation{
		timings:        make([]TimingRecord, maxBuffers),
		discrepancies:  make([]float64, maxBuffers*framesPerBuffer),
		state:          stateArmed,
		firstDivergent: -1,
	}
}

// SetClock sets the source of completion times. Without one the completion time is
// the invocation time reported by the host.
func (in *Instrumentation) SetClock(clock Clock) {
	in.clock = clock
}

func (in *Instrumentation) beginBuffer(info TimeInfo) {
	in.buffers++
	if in.timingLen >= len(in.timings) {
		in.droppedTimings++
		return
	}
	in.timings[in.timingLen] = TimingRecord{
		Invoked: info.CurrentTime,
		DAC:     info.OutputBufferDacTime,
	}
}

func (in *Instrumentation) endBuffer(info TimeInfo) {
	if in.timingLen >= len(in.timings) {
		return
	}
	done := info.CurrentTime
	if in.clock != nil {
		done = in.clock()
	}
	in.timings[in.timingLen].Done = done
	in.timingLen++
}

func (in *Instrumentation) recordDiscrepancy(d float64) {
	if in.discLen < len(in.discrepancies) {
		in.discrepancies[in.discLen] = d
		in.discLen++
	} else {
		in.droppedSamples++
	}
	if in.state == stateArmed && math.Abs(d) > DivergenceThreshold {
		in.state = stateLatched
		in.firstDivergent = in.buffers - 1
	}
}

// Buffers is the number of callback invocations observed.
func (in *Instrumentation) Buffers() int {
	return in.buffers
}

// Timings ...
func (in *Instrumentation) Timings() []TimingRecord {
	return in.timings[:in.timingLen]
}

// Discrepancies returns one value per generated sample: unwrapped minus ideal phase.
func (in *Instrumentation) Discrepancies() []float64 {
	return in.discrepancies[:in.discLen]
}

// Dropped reports how many timing records and discrepancy samples did not fit.
func (in *Instrumentation) Dropped() (timings int, samples int) {
	return in.droppedTimings, in.droppedSamples
}

// Latched ...
func (in *Instrumentation) Latched() bool {
	return in.state == stateLatched
}

// FirstDivergentBuffer returns the 0-based index of the first buffer whose discrepancy
// exceeded DivergenceThreshold. Once set it never changes.
func (in *Instrumentation) FirstDivergentBuffer() (int, bool) {
	return in.firstDivergent, in.state == stateLatched
}

// ----- Probe ----- //

// ProbeConfig describes a diagnostic run: a sine swept linearly from StartFreq to StopFreq
// over Duration seconds, one frequency step per buffer.
type ProbeConfig struct {
	StartFreq       float64
	StopFreq        float64
	Duration        float64 // seconds
	SampleRate      float64
	FramesPerBuffer int
	// Headroom multiplies the expected number of buffers when sizing the arenas,
	// because a controller waiting on a timer rarely stops the host exactly on time.
	Headroom float64
	// OutputWrapped plays the wrapped oscillator instead of the unwrapped reference.
	OutputWrapped bool
}

// Iterations is the number of whole buffers that fit in Duration.
func (c *ProbeConfig) Iterations() int {
	return int(c.Duration / (float64(c.FramesPerBuffer) / c.SampleRate))
}

// Validate ...
func (c *ProbeConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidConfig, c.SampleRate)
	}
	if c.FramesPerBuffer <= 0 {
		return fmt.Errorf("%w: frames per buffer must be positive, got %d", ErrInvalidConfig, c.FramesPerBuffer)
	}
	if math.IsNaN(c.Duration) || c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidConfig, c.Duration)
	}
	if err := validateFrequency("start", c.StartFreq, c.SampleRate); err != nil {
		return err
	}
	if err := validateFrequency("stop", c.StopFreq, c.SampleRate); err != nil {
		return err
	}
	if c.Iterations() == 0 {
		return fmt.Errorf("%w: duration %vs is shorter than one buffer", ErrInvalidConfig, c.Duration)
	}
	return nil
}

// Probe is the diagnostic voice. It runs the wrapped oscillator and an unwrapped
// single precision reference side by side, and compares the reference with the phase
// obtained by direct multiplication.
type Probe struct {
	inst          *Instrumentation
	wrapped       PhaseAccumulator
	unwrapped     UnwrappedAccumulator
	sampleRate    float64
	freq          float64
	freqStep      float64
	stopFreq      float64
	sweepBuffers  int // buffers until freq settles on stopFreq
	rendered      int
	anchor        float64 // ideal phase at the last frequency change
	sinceAnchor   int64
	outputWrapped bool
}

// NewProbe validates c and preallocates its instrumentation.
func NewProbe(c ProbeConfig) (*Probe, error) {
	if c.Headroom < 1 {
		c.Headroom = 1
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	iterations := c.Iterations()
	maxBuffers := int(math.Ceil(float64(iterations) * c.Headroom))
	return &Probe{
		inst:          NewInstrumentation(maxBuffers, c.FramesPerBuffer),
		sampleRate:    c.SampleRate,
		freq:          c.StartFreq,
		freqStep:      (c.StopFreq - c.StartFreq) / float64(iterations),
		stopFreq:      c.StopFreq,
		sweepBuffers:  iterations,
		outputWrapped: c.OutputWrapped,
	}, nil
}

// Instrumentation ...
func (p *Probe) Instrumentation() *Instrumentation {
	return p.inst
}

// Frequency is the frequency the next buffer will be rendered at. It stays at StopFreq
// once the sweep is over, however long the host keeps calling.
func (p *Probe) Frequency() float64 {
	return p.freq
}

// Process implements Callback.
func (p *Probe) Process(out []float32, info TimeInfo) {
	if len(out)%channelNum != 0 {
		panic(fmt.Sprintf("buffer length %d is not a multiple of %d channels", len(out), channelNum))
	}
	p.inst.beginBuffer(info)
	step := PhaseStep(p.freq, p.sampleRate)
	p.wrapped.SetStep(step)
	p.unwrapped.step = step
	for i := 0; i < len(out); i += channelNum {
		ideal := p.anchor + float64(p.sinceAnchor)*step
		p.inst.recordDiscrepancy(float64(p.unwrapped.phase) - ideal)
		value := p.wrapped.Sine()
		if !p.outputWrapped {
			value = math.Sin(float64(p.unwrapped.phase))
		}
		out[i] = float32(value)
		out[i+1] = float32(value)
		p.unwrapped.Advance()
		p.sinceAnchor++
	}
	p.rendered++
	if p.freqStep != 0 && p.rendered <= p.sweepBuffers {
		p.anchor += float64(p.sinceAnchor) * step
		p.sinceAnchor = 0
		if p.rendered == p.sweepBuffers {
			p.freq = p.stopFreq
		} else {
			p.freq += p.freqStep
		}
	}
	p.inst.endBuffer(info)
}
