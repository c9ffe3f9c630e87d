package audio

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ----- Envelope Spec ----- //

/*
  1 +    x
    |   / \
    |  /   \
  s + /     x------x
    |/              \
  0 +----+---+------+---+----
    |a   |d  |s     |r  |
*/

// EnvelopeSpec describes a five-parameter ADSR envelope. Durations are in seconds.
type EnvelopeSpec struct {
	Attack       float64
	Decay        float64
	Sustain      float64
	SustainLevel float64 // 0-1
	Release      float64
}

type envelopeSpecJSON struct {
	Attack       float64 `json:"attack"`
	Decay        float64 `json:"decay"`
	Sustain      float64 `json:"sustain"`
	SustainLevel float64 `json:"sustainLevel"`
	Release      float64 `json:"release"`
}

// ChowningEnvelope splits duration the way the brass example of Chowning's FM paper does.
func ChowningEnvelope(duration float64) *EnvelopeSpec {
	sixth := duration / 6
	return &EnvelopeSpec{
		Attack:       sixth,
		Decay:        sixth,
		Sustain:      duration / 2,
		SustainLevel: 0.5,
		Release:      sixth,
	}
}

// Duration ...
func (e *EnvelopeSpec) Duration() float64 {
	return e.Attack + e.Decay + e.Sustain + e.Release
}

// Validate ...
func (e *EnvelopeSpec) Validate() error {
	for _, d := range []struct {
		name  string
		value float64
	}{
		{"attack", e.Attack},
		{"decay", e.Decay},
		{"sustain", e.Sustain},
		{"release", e.Release},
	} {
		if math.IsNaN(d.value) || math.IsInf(d.value, 0) || d.value < 0 {
			return fmt.Errorf("%w: %s time must be a non-negative number of seconds, got %v", ErrInvalidConfig, d.name, d.value)
		}
	}
	if math.IsNaN(e.SustainLevel) || e.SustainLevel < 0 || e.SustainLevel > 1 {
		return fmt.Errorf("%w: sustain level must be within [0,1], got %v", ErrInvalidConfig, e.SustainLevel)
	}
	if e.Duration() <= 0 {
		return fmt.Errorf("%w: envelope has zero total duration", ErrInvalidConfig)
	}
	return nil
}

// At evaluates the envelope at t seconds after the voice started.
//
// Boundaries use <= so a zero-length phase is never entered. A zero-length
// attack is treated as already at the top of its ramp.
func (e *EnvelopeSpec) At(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t <= e.Attack {
		if e.Attack == 0 {
			return 1
		}
		return t / e.Attack
	}
	t -= e.Attack
	if t <= e.Decay {
		return 1 - t*(1-e.SustainLevel)/e.Decay
	}
	t -= e.Decay
	if t <= e.Sustain {
		return e.SustainLevel
	}
	t -= e.Sustain
	if t <= e.Release {
		return e.SustainLevel - t*e.SustainLevel/e.Release
	}
	return 0
}

// Amplitude ...
func Amplitude(t float64, e *EnvelopeSpec) float64 {
	return e.At(t)
}

func (e *EnvelopeSpec) set(key string, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	switch key {
	case "attack":
		e.Attack = v
	case "decay":
		e.Decay = v
	case "sustain":
		e.Sustain = v
	case "sustainLevel", "sustain_level":
		e.SustainLevel = v
	case "release":
		e.Release = v
	default:
		return fmt.Errorf("%w: unknown envelope key %q", ErrInvalidConfig, key)
	}
	return nil
}

func (e *EnvelopeSpec) applyJSON(data json.RawMessage) error {
	var j envelopeSpecJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to apply JSON to envelope: %w", err)
	}
	e.Attack = j.Attack
	e.Decay = j.Decay
	e.Sustain = j.Sustain
	e.SustainLevel = j.SustainLevel
	e.Release = j.Release
	return nil
}

func (e *EnvelopeSpec) toJSON() json.RawMessage {
	return toRawMessage(&envelopeSpecJSON{
		Attack:       e.Attack,
		Decay:        e.Decay,
		Sustain:      e.Sustain,
		SustainLevel: e.SustainLevel,
		Release:      e.Release,
	})
}

// ----- Envelope Graph ----- //

// WriteEnvelopeGraph writes points rows of "t level" covering the whole envelope.
func WriteEnvelopeGraph(w io.Writer, e *EnvelopeSpec, points int) error {
	if points <= 0 {
		return fmt.Errorf("%w: number of points must be positive, got %d", ErrInvalidConfig, points)
	}
	step := e.Duration() / float64(points)
	for i := 0; i < points; i++ {
		t := float64(i) * step
		if _, err := fmt.Fprintf(w, "%15.8f %10.8f\n", t, e.At(t)); err != nil {
			return err
		}
	}
	return nil
}
