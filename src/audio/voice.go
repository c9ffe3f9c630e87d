package audio

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

type frequencyError struct {
	name    string
	freq    float64
	nyquist float64
}

func (e *frequencyError) Error() string {
	return fmt.Sprintf("%v: %s frequency %v Hz is outside (%v, %v) Hz", ErrInvalidConfig, e.name, e.freq, minFreq, e.nyquist)
}

func (e *frequencyError) Unwrap() error {
	return ErrInvalidConfig
}

// ----- Voice Config ----- //

// VoiceConfig is everything a controller supplies once at voice creation.
// FM is nil for a plain sine voice; in FM mode FM.Carrier is the oscillator frequency.
type VoiceConfig struct {
	Frequency float64
	Envelope  EnvelopeSpec
	FM        *FMParams
}

// Validate ...
func (c *VoiceConfig) Validate(sampleRate float64) error {
	if err := c.Envelope.Validate(); err != nil {
		return err
	}
	if c.FM != nil {
		return c.FM.Validate(sampleRate)
	}
	return validateFrequency("oscillator", c.Frequency, sampleRate)
}

// Set applies one "section.key=value" style override, e.g. ("envelope", "attack", "0.1").
func (c *VoiceConfig) Set(section string, key string, value string) error {
	switch section {
	case "envelope", "adsr":
		return c.Envelope.set(key, value)
	case "fm":
		if c.FM == nil {
			c.FM = &FMParams{Carrier: c.Frequency}
		}
		return c.FM.set(key, value)
	case "osc":
		if key != "frequency" {
			return fmt.Errorf("%w: unknown osc key %q", ErrInvalidConfig, key)
		}
		return parseFloatInto(&c.Frequency, key, value)
	}
	return fmt.Errorf("%w: unknown section %q", ErrInvalidConfig, section)
}

// ----- Voice ----- //

// Voice renders one monophonic note into interleaved stereo buffers.
// All of its state is owned by whoever created it and is only touched from Process
// while a host is running.
type Voice struct {
	envelope   EnvelopeSpec
	fm         *fmOsc
	acc        PhaseAccumulator
	freq       float64
	sampleRate float64
	pos        int64 // samples since the voice started
	pending    atomic.Int64
}

const noPendingNote = -1

// NewVoice validates cfg and returns a voice ready to render from t=0.
func NewVoice(cfg VoiceConfig, sampleRate float64) (*Voice, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidConfig, sampleRate)
	}
	if err := cfg.Validate(sampleRate); err != nil {
		return nil, err
	}
	v := &Voice{
		envelope:   cfg.Envelope,
		freq:       cfg.Frequency,
		sampleRate: sampleRate,
	}
	v.pending.Store(noPendingNote)
	if cfg.FM != nil {
		v.fm = &fmOsc{params: *cfg.FM, sampleRate: sampleRate, freq: cfg.FM.Carrier}
		v.freq = cfg.FM.Carrier
	}
	v.acc.SetStep(PhaseStep(v.freq, sampleRate))
	return v, nil
}

// Duration is how long the voice is audible, in seconds.
func (v *Voice) Duration() float64 {
	return v.envelope.Duration()
}

// Done reports whether the envelope has run out. Rendering continues with silence.
func (v *Voice) Done() bool {
	return v.elapsed() > v.envelope.Duration()
}

// State ...
func (v *Voice) State() OscillatorState {
	s := OscillatorState{
		Phase:       v.acc.phase,
		Frequency:   v.freq,
		TimeElapsed: v.elapsed(),
	}
	if v.fm != nil {
		s.Phase = v.fm.acc.phase
		s.Frequency = v.fm.freq
	}
	return s
}

func (v *Voice) elapsed() float64 {
	return float64(v.pos) / v.sampleRate
}

// Retrigger restarts the voice at freq from the next buffer on. It is safe to call
// while a host is running: the request is handed over through an atomic slot.
func (v *Voice) Retrigger(freq float64) error {
	if err := validateFrequency("oscillator", freq, v.sampleRate); err != nil {
		return err
	}
	v.pending.Store(int64(math.Float64bits(freq)))
	return nil
}

func (v *Voice) applyPending() {
	bits := v.pending.Swap(noPendingNote)
	if bits == noPendingNote {
		return
	}
	freq := math.Float64frombits(uint64(bits))
	v.pos = 0
	v.freq = freq
	v.acc.reset()
	v.acc.SetStep(PhaseStep(freq, v.sampleRate))
	if v.fm != nil {
		v.fm.params.Carrier = freq
		v.fm.freq = freq
		v.fm.acc.reset()
	}
}

// Process implements Callback.
func (v *Voice) Process(out []float32, _ TimeInfo) {
	v.Render(out)
}

// Render fills out with len(out)/2 stereo frames and advances the voice by as many samples.
func (v *Voice) Render(out []float32) {
	if len(out)%channelNum != 0 {
		panic(fmt.Sprintf("buffer length %d is not a multiple of %d channels", len(out), channelNum))
	}
	v.applyPending()
	for i := 0; i < len(out); i += channelNum {
		t := v.elapsed()
		env := v.envelope.At(t)
		var value float64
		if v.fm != nil {
			value = env * v.fm.step(t, env)
		} else {
			value = env * v.acc.Sine()
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			panic("found NaN")
		}
		out[i] = float32(value)
		out[i+1] = float32(value)
		v.pos++
	}
}

func parseFloatInto(dst *float64, key string, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	*dst = v
	return nil
}
