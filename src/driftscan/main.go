package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jinjor/adsr-engine/src/audio"
	"golang.org/x/sync/errgroup"
)

func main() {
	duration := flag.Float64("duration", 10, "seconds to simulate per frequency")
	rate := flag.Int("rate", audio.DefaultSampleRate, "sample rate in Hz")
	frames := flag.Int("frames", audio.DefaultFramesPerBuffer, "frames per buffer")
	freqs := flag.String("freqs", "110,220,440,1000,4000", "comma separated frequencies in Hz")
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		log.Fatal("output dir is not passed")
	}
	log.SetFlags(log.Lshortfile)

	var list []float64
	for _, s := range strings.Split(*freqs, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			log.Fatalf("error: bad frequency %q: %v\n", s, err)
		}
		list = append(list, f)
	}

	results := make([]string, len(list))
	g, _ := errgroup.WithContext(context.Background())
	for i, freq := range list {
		i, freq := i, freq
		g.Go(func() error {
			c := audio.ProbeConfig{
				StartFreq:       freq,
				StopFreq:        freq,
				Duration:        *duration,
				SampleRate:      float64(*rate),
				FramesPerBuffer: *frames,
			}
			summary, err := scan(c, filepath.Join(dir, fmt.Sprintf("diag_%g.txt", freq)))
			if err != nil {
				return fmt.Errorf("%g Hz: %w", freq, err)
			}
			results[i] = summary
			log.Printf("scanned %g Hz\n", freq)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	for _, r := range results {
		fmt.Println(r)
	}
}

func scan(c audio.ProbeConfig, path string) (string, error) {
	probe, err := audio.NewProbe(c)
	if err != nil {
		return "", err
	}
	host := audio.NewOfflineHost(probe, c.SampleRate, c.FramesPerBuffer)
	inst := probe.Instrumentation()
	inst.SetClock(host.Clock())
	host.Run(c.Iterations(), nil)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := audio.WriteDiscrepancies(f, inst); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if index, ok := inst.FirstDivergentBuffer(); ok {
		at := float64(index*c.FramesPerBuffer) / c.SampleRate
		return fmt.Sprintf("%10.1f Hz: diverged at buffer %d (%.2fs)", c.StartFreq, index, at), nil
	}
	return fmt.Sprintf("%10.1f Hz: no divergence in %d buffers", c.StartFreq, inst.Buffers()), nil
}
