package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jinjor/adsr-engine/src/audio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const usage = `usage: adsr-engine <command> [flags] [args]

commands:
  adsr    frequency attack decay sustain sustain_level release
  fm      duration frequency mod_frequency mod_index
  sweep   [duration start_freq stop_freq]
  graph   attack decay sustain sustain_level release
  midi    play one voice retriggered by MIDI note-on
  devices list output devices
`

type options struct {
	backend    string
	device     int
	choose     bool
	sampleRate int
	frames     int
	presetDir  string
	preset     string
	sets       setFlags
}

type setFlags []string

func (s *setFlags) String() string {
	return strings.Join(*s, ",")
}

func (s *setFlags) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.backend, "backend", "portaudio", "audio backend: portaudio, oto or offline")
	fs.IntVar(&o.device, "device", -1, "portaudio output device number (-1: default)")
	fs.BoolVar(&o.choose, "choose", false, "list devices and ask for one when stdin is a terminal")
	fs.IntVar(&o.sampleRate, "rate", audio.DefaultSampleRate, "sample rate in Hz")
	fs.IntVar(&o.frames, "frames", audio.DefaultFramesPerBuffer, "frames per buffer")
	fs.StringVar(&o.presetDir, "presets", "presets", "preset directory")
	fs.StringVar(&o.preset, "preset", "", "load voice parameters from a preset")
	fs.Var(&o.sets, "set", "override a parameter, e.g. -set envelope.attack=0.2 (repeatable)")
}

func main() {
	log.SetFlags(log.Lshortfile)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case sig := <-signalCh:
			log.Printf("Caught signal %s: shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "adsr":
		err = runADSR(ctx, args)
	case "fm":
		err = runFM(ctx, args)
	case "sweep":
		err = runSweep(ctx, args)
	case "graph":
		err = runGraph(args)
	case "midi":
		err = runMidi(ctx, args)
	case "devices":
		err = runDevices()
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, audio.ErrInvalidConfig) {
			log.Printf("configuration error: %v\n", err)
			os.Exit(2)
		}
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

func parseFloats(args []string, names ...string) ([]float64, error) {
	if len(args) != len(names) {
		return nil, fmt.Errorf("%w: expected %d arguments (%s), got %d", audio.ErrInvalidConfig, len(names), strings.Join(names, " "), len(args))
	}
	values := make([]float64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", audio.ErrInvalidConfig, names[i], err)
		}
		values[i] = v
	}
	return values, nil
}

// voiceConfig starts from the preset, if any, then positional args, then -set overrides.
func (o *options) voiceConfig(fromArgs func(*audio.VoiceConfig)) (audio.VoiceConfig, error) {
	var cfg audio.VoiceConfig
	if o.preset != "" {
		var err error
		cfg, err = audio.LoadPreset(o.presetDir, o.preset)
		if err != nil {
			return cfg, err
		}
	}
	if fromArgs != nil {
		fromArgs(&cfg)
	}
	for _, s := range o.sets {
		kv := strings.SplitN(s, "=", 2)
		path := strings.SplitN(kv[0], ".", 2)
		if len(kv) != 2 || len(path) != 2 {
			return cfg, fmt.Errorf("%w: -set expects section.key=value, got %q", audio.ErrInvalidConfig, s)
		}
		if err := cfg.Set(path[0], path[1], kv[1]); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func runADSR(ctx context.Context, args []string) error {
	var o options
	fs := flag.NewFlagSet("adsr", flag.ExitOnError)
	o.register(fs)
	fs.Parse(args)
	cfg, err := o.adsrConfig(fs.Args())
	if err != nil {
		return err
	}
	return playVoice(ctx, &o, cfg, false)
}

// adsrConfig always yields a plain sine voice. An FM preset keeps its envelope and
// plays at its carrier frequency.
func (o *options) adsrConfig(args []string) (audio.VoiceConfig, error) {
	var fromArgs func(*audio.VoiceConfig)
	if len(args) > 0 || o.preset == "" {
		v, err := parseFloats(args, "frequency", "attack", "decay", "sustain", "sustain_level", "release")
		if err != nil {
			return audio.VoiceConfig{}, err
		}
		fromArgs = func(c *audio.VoiceConfig) {
			c.Frequency = v[0]
			c.Envelope = audio.EnvelopeSpec{Attack: v[1], Decay: v[2], Sustain: v[3], SustainLevel: v[4], Release: v[5]}
			c.FM = nil
		}
	}
	cfg, err := o.voiceConfig(fromArgs)
	if err != nil {
		return cfg, err
	}
	if cfg.FM != nil {
		if cfg.Frequency == 0 {
			cfg.Frequency = cfg.FM.Carrier
		}
		cfg.FM = nil
	}
	return cfg, nil
}

func runFM(ctx context.Context, args []string) error {
	var o options
	fs := flag.NewFlagSet("fm", flag.ExitOnError)
	o.register(fs)
	spectrum := fs.Bool("spectrum", false, "print the strongest partials of the rendered tone")
	fs.Parse(args)
	var fromArgs func(*audio.VoiceConfig)
	if fs.NArg() > 0 || o.preset == "" {
		v, err := parseFloats(fs.Args(), "duration", "frequency", "mod_frequency", "mod_index")
		if err != nil {
			return err
		}
		fromArgs = func(c *audio.VoiceConfig) {
			c.Frequency = v[1]
			c.Envelope = *audio.ChowningEnvelope(v[0])
			c.FM = &audio.FMParams{Carrier: v[1], Modulator: v[2], Index: v[3]}
		}
	}
	cfg, err := o.voiceConfig(fromArgs)
	if err != nil {
		return err
	}
	if cfg.FM == nil {
		return fmt.Errorf("%w: fm needs modulator parameters", audio.ErrInvalidConfig)
	}
	return playVoice(ctx, &o, cfg, *spectrum)
}

func playVoice(ctx context.Context, o *options, cfg audio.VoiceConfig, spectrum bool) error {
	rate := float64(o.sampleRate)
	voice, err := audio.NewVoice(cfg, rate)
	if err != nil {
		return err
	}
	duration := time.Duration(voice.Duration() * float64(time.Second))
	log.Printf("playing %.1f Hz for %v\n", cfg.Frequency, duration)
	if o.backend == "offline" {
		host := audio.NewOfflineHost(voice, rate, o.frames)
		host.Run(host.BuffersFor(duration), nil)
	} else {
		closeHost, host, err := openHost(o, voice)
		if err != nil {
			return err
		}
		defer closeHost()
		if err := audio.Play(ctx, host, duration); err != nil {
			return err
		}
	}
	if spectrum {
		return printSpectrum(cfg, rate, o.frames)
	}
	fmt.Println("Test finished.")
	return nil
}

func printSpectrum(cfg audio.VoiceConfig, rate float64, frames int) error {
	// render a fresh voice through its sustain so the partials are steady
	voice, err := audio.NewVoice(cfg, rate)
	if err != nil {
		return err
	}
	s, err := audio.NewSpectrum(8192)
	if err != nil {
		return err
	}
	skip := int((cfg.Envelope.Attack + cfg.Envelope.Decay) * rate)
	samples := audio.RenderMono(voice, skip+s.Size(), frames)
	mag := make([]float64, s.Size()/2)
	if err := s.Magnitudes(samples[skip:], mag); err != nil {
		return err
	}
	for _, p := range audio.PeakBins(mag, 10, 0.001) {
		fmt.Printf("%10.1f Hz %8.4f\n", s.BinFrequency(p.Bin, rate), p.Magnitude)
	}
	return nil
}

func runSweep(ctx context.Context, args []string) error {
	var o options
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	o.register(fs)
	diagPath := fs.String("diag", "diag.txt", "file to write per-sample phase discrepancies to")
	timing := fs.Bool("timing", true, "print per-buffer timing")
	wrapped := fs.Bool("wrapped", false, "play the wrapped oscillator instead of the unwrapped reference")
	fs.Parse(args)
	c := audio.ProbeConfig{
		StartFreq:       1000,
		StopFreq:        1000,
		Duration:        10,
		SampleRate:      float64(o.sampleRate),
		FramesPerBuffer: o.frames,
		Headroom:        2,
		OutputWrapped:   *wrapped,
	}
	if fs.NArg() > 0 {
		v, err := parseFloats(fs.Args(), "duration", "start_freq", "stop_freq")
		if err != nil {
			return err
		}
		c.Duration, c.StartFreq, c.StopFreq = v[0], v[1], v[2]
	}
	probe, err := audio.NewProbe(c)
	if err != nil {
		return err
	}
	fmt.Println("Output frequency swept sine wave.")
	inst := probe.Instrumentation()
	duration := time.Duration(c.Duration * float64(time.Second))
	if o.backend == "offline" {
		host := audio.NewOfflineHost(probe, c.SampleRate, c.FramesPerBuffer)
		inst.SetClock(host.Clock())
		host.Run(c.Iterations(), nil)
	} else {
		closeHost, host, err := openHost(&o, probe)
		if err != nil {
			return err
		}
		defer closeHost()
		inst.SetClock(host.Clock())
		if err := audio.Play(ctx, host, duration); err != nil {
			return err
		}
	}
	fmt.Println("Test finished.")
	if *timing {
		if err := audio.WriteTimingReport(os.Stdout, inst); err != nil {
			return err
		}
	}
	log.Println(inst.Stats())
	f, err := os.Create(*diagPath)
	if err != nil {
		return err
	}
	if err := audio.WriteDiscrepancies(f, inst); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return audio.WriteLatchReport(os.Stdout, inst)
}

func runGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	out := fs.String("o", "diag.txt", "output file")
	points := fs.Int("points", 1000, "number of points")
	fs.Parse(args)
	v, err := parseFloats(fs.Args(), "attack", "decay", "sustain", "sustain_level", "release")
	if err != nil {
		return err
	}
	e := audio.EnvelopeSpec{Attack: v[0], Decay: v[1], Sustain: v[2], SustainLevel: v[3], Release: v[4]}
	if err := e.Validate(); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := audio.WriteEnvelopeGraph(f, &e, *points); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runMidi(ctx context.Context, args []string) error {
	var o options
	fs := flag.NewFlagSet("midi", flag.ExitOnError)
	o.register(fs)
	fs.Parse(args)
	cfg, err := o.voiceConfig(func(c *audio.VoiceConfig) {
		if o.preset == "" {
			c.Frequency = 440
			c.Envelope = audio.EnvelopeSpec{Attack: 0.01, Decay: 0.1, Sustain: 0.3, SustainLevel: 0.6, Release: 0.3}
		}
	})
	if err != nil {
		return err
	}
	voice, err := audio.NewVoice(cfg, float64(o.sampleRate))
	if err != nil {
		return err
	}
	closeHost, host, err := openHost(&o, voice)
	if err != nil {
		return err
	}
	defer closeHost()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// no fixed duration: play until interrupted
		return audio.Play(ctx, host, time.Duration(1<<62))
	})
	g.Go(func() error {
		for msg := range audio.ListenToMidiIn(ctx) {
			freq, ok := audio.NoteOnFrequency(msg)
			if !ok {
				continue
			}
			if err := voice.Retrigger(freq); err != nil {
				log.Printf("ignored note: %v\n", err)
			}
		}
		log.Println("MIDI listener ended.")
		return nil
	})
	return g.Wait()
}

func runDevices() error {
	terminate, err := audio.InitPortAudio()
	if err != nil {
		return err
	}
	defer terminate()
	return audio.ListDevices(os.Stdout)
}

func openHost(o *options, cb audio.Callback) (func(), audio.Host, error) {
	switch o.backend {
	case "oto":
		h, err := audio.NewOtoHost(cb, o.sampleRate, o.frames)
		if err != nil {
			return nil, nil, err
		}
		return func() {
			if err := h.Close(); err != nil {
				log.Printf("error while closing oto: %v", err)
			}
		}, h, nil
	case "portaudio":
		terminate, err := audio.InitPortAudio()
		if err != nil {
			return nil, nil, err
		}
		device := o.device
		if o.choose {
			device, err = chooseDevice(device)
			if err != nil {
				terminate()
				return nil, nil, err
			}
		}
		h, err := audio.NewPortAudioHost(cb, device, float64(o.sampleRate), o.frames)
		if err != nil {
			terminate()
			return nil, nil, err
		}
		return func() {
			if err := h.Close(); err != nil {
				log.Printf("error while closing stream: %v", err)
			}
			terminate()
		}, h, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown backend %q", audio.ErrInvalidConfig, o.backend)
}

func chooseDevice(fallback int) (int, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fallback, nil
	}
	if err := audio.ListDevices(os.Stdout); err != nil {
		return fallback, err
	}
	fmt.Printf("Please choose your device number (default: %d)\n", fallback)
	var device int
	if _, err := fmt.Fscan(os.Stdin, &device); err != nil {
		return fallback, nil
	}
	return device, nil
}
