package audio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"
)

func scenarioEnvelope() *EnvelopeSpec {
	return &EnvelopeSpec{Attack: 0.1, Decay: 0.1, Sustain: 0.2, SustainLevel: 0.5, Release: 0.1}
}

func TestEnvelopeScenario(t *testing.T) {
	e := scenarioEnvelope()
	expectNearlyEqual(t, Amplitude(0.05, e), 0.5)
	expectNearlyEqual(t, Amplitude(0.15, e), 0.75)
	expectNearlyEqual(t, Amplitude(0.25, e), 0.5)
	expectNearlyEqual(t, Amplitude(0.55, e), 0.0)
}

func TestEnvelopeBeforeStart(t *testing.T) {
	expectEqual(t, Amplitude(-0.05, scenarioEnvelope()), 0.0)
	expectEqual(t, Amplitude(-1e-9, &EnvelopeSpec{Sustain: 1, SustainLevel: 1}), 0.0)
}

func TestEnvelopeAttackRamp(t *testing.T) {
	e := scenarioEnvelope()
	for i := 0; i <= 100; i++ {
		at := e.Attack * float64(i) / 100
		expectWithin(t, e.At(at), at/e.Attack, 1e-12)
	}
	expectEqual(t, e.At(e.Attack), 1.0)
}

func TestEnvelopeContinuity(t *testing.T) {
	specs := []*EnvelopeSpec{
		scenarioEnvelope(),
		{Attack: 0.01, Decay: 0.3, Sustain: 1, SustainLevel: 0.9, Release: 2},
		{Attack: 1.5, Decay: 0.02, Sustain: 0.01, SustainLevel: 0.1, Release: 0.05},
		{Attack: 0.2, Decay: 0.2, Sustain: 0.2, SustainLevel: 1, Release: 0.2},
		{Attack: 0.2, Decay: 0.2, Sustain: 0.2, SustainLevel: 0, Release: 0.2},
	}
	const eps = 1e-9
	for _, e := range specs {
		boundaries := []float64{
			e.Attack,
			e.Attack + e.Decay,
			e.Attack + e.Decay + e.Sustain,
		}
		for _, b := range boundaries {
			before, after := e.At(b-eps), e.At(b+eps)
			if math.Abs(before-after) > 1e-6 {
				t.Errorf("%+v: discontinuity at %v: %v -> %v", *e, b, before, after)
			}
		}
		end := e.Duration()
		if v := e.At(end - eps); v > 1e-6 {
			t.Errorf("%+v: expected release to reach 0, got %v", *e, v)
		}
	}
}

func TestEnvelopeZeroAfterDuration(t *testing.T) {
	e := scenarioEnvelope()
	for _, at := range []float64{0.5000001, 0.6, 1, 10, 1e6} {
		expectEqual(t, e.At(at), 0.0)
	}
}

func TestEnvelopeWithinUnitRange(t *testing.T) {
	e := &EnvelopeSpec{Attack: 0.03, Decay: 0.07, Sustain: 0.11, SustainLevel: 0.33, Release: 0.13}
	for i := 0; i < 10000; i++ {
		v := e.At(float64(i) * 0.5 / 10000)
		if v < 0 || v > 1 {
			t.Fatalf("amplitude %v out of [0,1]", v)
		}
	}
}

func TestEnvelopeZeroLengthPhases(t *testing.T) {
	e := &EnvelopeSpec{Attack: 0, Decay: 0, Sustain: 0.1, SustainLevel: 0.4, Release: 0}
	expectEqual(t, e.At(0), 1.0)
	expectEqual(t, e.At(0.05), 0.4)
	expectEqual(t, e.At(0.1), 0.4)
	expectEqual(t, e.At(0.1000001), 0.0)

	noDecay := &EnvelopeSpec{Attack: 0.1, Decay: 0, Sustain: 0.1, SustainLevel: 0.7, Release: 0.1}
	expectEqual(t, noDecay.At(0.1), 1.0)
	expectNearlyEqual(t, noDecay.At(0.1001), 0.7)
	for i := 0; i <= 1000; i++ {
		if v := noDecay.At(float64(i) * 0.0003); math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("got %v", v)
		}
	}
}

func TestEnvelopeValidate(t *testing.T) {
	expectNoError(t, scenarioEnvelope().Validate())
	invalid := []EnvelopeSpec{
		{Attack: -0.1, Decay: 0.1, Sustain: 0.1, SustainLevel: 0.5, Release: 0.1},
		{Attack: 0.1, Decay: math.NaN(), Sustain: 0.1, SustainLevel: 0.5, Release: 0.1},
		{Attack: 0.1, Decay: 0.1, Sustain: math.Inf(1), SustainLevel: 0.5, Release: 0.1},
		{Attack: 0.1, Decay: 0.1, Sustain: 0.1, SustainLevel: 1.5, Release: 0.1},
		{Attack: 0.1, Decay: 0.1, Sustain: 0.1, SustainLevel: -0.1, Release: 0.1},
		{},
	}
	for _, e := range invalid {
		if err := e.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%+v: expected ErrInvalidConfig, but got: %v", e, err)
		}
	}
}

func TestChowningEnvelope(t *testing.T) {
	e := ChowningEnvelope(0.6)
	expectNearlyEqual(t, e.Attack, 0.1)
	expectNearlyEqual(t, e.Decay, 0.1)
	expectNearlyEqual(t, e.Sustain, 0.3)
	expectNearlyEqual(t, e.Release, 0.1)
	expectEqual(t, e.SustainLevel, 0.5)
	expectNearlyEqual(t, e.Duration(), 0.6)
}

func TestEnvelopeSet(t *testing.T) {
	var e EnvelopeSpec
	expectNoError(t, e.set("attack", "0.25"))
	expectNoError(t, e.set("sustain_level", "0.5"))
	expectEqual(t, e.Attack, 0.25)
	expectEqual(t, e.SustainLevel, 0.5)
	if err := e.set("attack", "fast"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, but got: %v", err)
	}
	if err := e.set("hold", "1"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, but got: %v", err)
	}
}

func TestWriteEnvelopeGraph(t *testing.T) {
	var buf bytes.Buffer
	expectNoError(t, WriteEnvelopeGraph(&buf, scenarioEnvelope(), 1000))
	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var at, level float64
		if _, err := fmt.Sscanf(scanner.Text(), "%f %f", &at, &level); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		expectWithin(t, level, scenarioEnvelope().At(at), 1e-7)
		lines++
	}
	expectEqual(t, lines, 1000)
	if err := WriteEnvelopeGraph(&buf, scenarioEnvelope(), 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, but got: %v", err)
	}
}
