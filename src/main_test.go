package main

import (
	"errors"
	"testing"

	"github.com/jinjor/adsr-engine/src/audio"
)

func TestADSRConfigDropsFMPreset(t *testing.T) {
	dir := t.TempDir()
	brass := audio.VoiceConfig{
		Envelope: *audio.ChowningEnvelope(0.6),
		FM:       &audio.FMParams{Carrier: 500, Modulator: 500, Index: 5},
	}
	if err := audio.SavePreset(dir, "brass", &brass); err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	o := options{presetDir: dir, preset: "brass"}
	cfg, err := o.adsrConfig(nil)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if cfg.FM != nil {
		t.Errorf("expected a plain voice, but got FM %+v", *cfg.FM)
	}
	if cfg.Frequency != 500 {
		t.Errorf("expected 500, but got: %v", cfg.Frequency)
	}
	if cfg.Envelope != brass.Envelope {
		t.Errorf("expected %+v, but got: %+v", brass.Envelope, cfg.Envelope)
	}
	if _, err := audio.NewVoice(cfg, audio.DefaultSampleRate); err != nil {
		t.Errorf("expected no error, but got: %v", err)
	}
}

func TestADSRConfigFromArgs(t *testing.T) {
	o := options{}
	cfg, err := o.adsrConfig([]string{"440", "0.1", "0.1", "0.2", "0.5", "0.1"})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if cfg.Frequency != 440 || cfg.Envelope.SustainLevel != 0.5 || cfg.FM != nil {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if _, err := o.adsrConfig([]string{"440"}); !errors.Is(err, audio.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, but got: %v", err)
	}
}
