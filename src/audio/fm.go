package audio

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ----- FM Params ----- //

// FMParams ...
type FMParams struct {
	Carrier   float64 // Hz
	Modulator float64 // Hz
	Index     float64
}

type fmJSON struct {
	Carrier   float64 `json:"carrier"`
	Modulator float64 `json:"modulator"`
	Index     float64 `json:"index"`
}

// Validate ...
func (p *FMParams) Validate(sampleRate float64) error {
	if err := validateFrequency("carrier", p.Carrier, sampleRate); err != nil {
		return err
	}
	if err := validateFrequency("modulator", p.Modulator, sampleRate); err != nil {
		return err
	}
	if math.IsNaN(p.Index) || math.IsInf(p.Index, 0) || p.Index < 0 {
		return fmt.Errorf("%w: modulation index must be a non-negative number, got %v", ErrInvalidConfig, p.Index)
	}
	return nil
}

// InstantaneousFrequency is the carrier deviated by the modulator, scaled by the envelope.
func (p *FMParams) InstantaneousFrequency(t float64, env float64) float64 {
	return p.Carrier + p.Index*env*p.Modulator*math.Sin(twoPi*p.Modulator*t)
}

func (p *FMParams) set(key string, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	switch key {
	case "carrier":
		p.Carrier = v
	case "modulator":
		p.Modulator = v
	case "index":
		p.Index = v
	default:
		return fmt.Errorf("%w: unknown fm key %q", ErrInvalidConfig, key)
	}
	return nil
}

func (p *FMParams) applyJSON(data json.RawMessage) error {
	var j fmJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to apply JSON to fm: %w", err)
	}
	p.Carrier = j.Carrier
	p.Modulator = j.Modulator
	p.Index = j.Index
	return nil
}

func (p *FMParams) toJSON() json.RawMessage {
	return toRawMessage(&fmJSON{
		Carrier:   p.Carrier,
		Modulator: p.Modulator,
		Index:     p.Index,
	})
}

// ----- FM OSC ----- //

// fmOsc integrates a continuously varying frequency one sample at a time.
type fmOsc struct {
	params     FMParams
	acc        PhaseAccumulator
	sampleRate float64
	freq       float64
}

func (o *fmOsc) step(t float64, env float64) float64 {
	value := math.Sin(o.acc.phase)
	o.freq = o.params.InstantaneousFrequency(t, env)
	o.acc.SetStep(PhaseStep(o.freq, o.sampleRate))
	o.acc.advanceAny()
	return value
}
