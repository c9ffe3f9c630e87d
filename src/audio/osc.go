package audio

import "math"

const twoPi = 2.0 * math.Pi

// PhaseStep is the per-sample phase increment of a sine at freq.
func PhaseStep(freq float64, sampleRate float64) float64 {
	return twoPi * freq / sampleRate
}

// ----- Phase Accumulator ----- //

// PhaseAccumulator keeps its phase within [0, 2π).
type PhaseAccumulator struct {
	phase float64
	step  float64
}

// NewPhaseAccumulator ...
func NewPhaseAccumulator(freq float64, sampleRate float64) *PhaseAccumulator {
	return &PhaseAccumulator{step: PhaseStep(freq, sampleRate)}
}

// Phase ...
func (p *PhaseAccumulator) Phase() float64 {
	return p.phase
}

// SetStep changes the increment used from the next advance on.
func (p *PhaseAccumulator) SetStep(step float64) {
	p.step = step
}

// Sine returns sin(phase) and then advances.
func (p *PhaseAccumulator) Sine() float64 {
	value := math.Sin(p.phase)
	p.advance()
	return value
}

// a single subtraction is enough while step < 2π
func (p *PhaseAccumulator) advance() {
	p.phase += p.step
	if p.phase >= twoPi {
		p.phase -= twoPi
	}
}

// advanceAny wraps in both directions and for any step size.
func (p *PhaseAccumulator) advanceAny() {
	p.phase += p.step
	for p.phase >= twoPi {
		p.phase -= twoPi
	}
	for p.phase < 0 {
		p.phase += twoPi
	}
}

func (p *PhaseAccumulator) reset() {
	p.phase = 0
}

// ----- Unwrapped Accumulator ----- //

// UnwrappedAccumulator never re-ranges its phase. It is kept in single precision,
// so its rounding error grows with the phase and becomes visible after a few seconds.
// The step stays in double precision; only the running sum is rounded.
type UnwrappedAccumulator struct {
	phase float32
	step  float64
}

// Phase ...
func (u *UnwrappedAccumulator) Phase() float32 {
	return u.phase
}

// Advance ...
func (u *UnwrappedAccumulator) Advance() {
	u.phase = float32(float64(u.phase) + u.step)
}

// ----- Oscillator State ----- //

// OscillatorState is a snapshot of one voice.
type OscillatorState struct {
	Phase       float64 // radians
	Frequency   float64 // Hz
	TimeElapsed float64 // seconds
}
