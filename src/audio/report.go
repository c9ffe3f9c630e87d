package audio

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// ----- Reports ----- //

// WriteDiscrepancies writes one "%10.5f" row per recorded sample.
func WriteDiscrepancies(w io.Writer, in *Instrumentation) error {
	bw := bufio.NewWriter(w)
	for _, d := range in.Discrepancies() {
		if _, err := fmt.Fprintf(bw, "%10.5f\n", d); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteTimingReport writes one line per buffer with its invoke, DAC and completion times
// in seconds, and the slack between DAC and completion.
func WriteTimingReport(w io.Writer, in *Instrumentation) error {
	bw := bufio.NewWriter(w)
	for i, r := range in.Timings() {
		_, err := fmt.Fprintf(bw, "Iteration %d:\t Invoke: %11.4f\t DAC: %11.4f\t Done: %11.4f\t Slack: %7.4f\n",
			i, r.Invoked.Seconds(), r.DAC.Seconds(), r.Done.Seconds(), r.Slack().Seconds())
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteLatchReport ...
func WriteLatchReport(w io.Writer, in *Instrumentation) error {
	var err error
	if index, ok := in.FirstDivergentBuffer(); ok {
		_, err = fmt.Fprintf(w, "Discrepancy detected at iteration number %d\n", index)
	} else {
		_, err = fmt.Fprintf(w, "No discrepancy above %.1f rad in %d iterations\n", DivergenceThreshold, in.Buffers())
	}
	if err != nil {
		return err
	}
	if timings, samples := in.Dropped(); timings > 0 || samples > 0 {
		_, err = fmt.Fprintf(w, "Dropped %d timing records and %d samples (arena full)\n", timings, samples)
	}
	return err
}

// ----- Timing Stats ----- //

// TimingStats summarizes slack over a run.
type TimingStats struct {
	Count      int
	MinSlack   time.Duration
	MaxSlack   time.Duration
	MeanSlack  time.Duration
	MaxLatency time.Duration // longest Done - Invoked
	Missed     int           // buffers completed after their DAC time
}

// Stats ...
func (in *Instrumentation) Stats() TimingStats {
	timings := in.Timings()
	s := TimingStats{Count: len(timings)}
	if len(timings) == 0 {
		return s
	}
	var total time.Duration
	for i, r := range timings {
		slack := r.Slack()
		if i == 0 || slack < s.MinSlack {
			s.MinSlack = slack
		}
		if i == 0 || slack > s.MaxSlack {
			s.MaxSlack = slack
		}
		if latency := r.Done - r.Invoked; latency > s.MaxLatency {
			s.MaxLatency = latency
		}
		if slack < 0 {
			s.Missed++
		}
		total += slack
	}
	s.MeanSlack = total / time.Duration(len(timings))
	return s
}

func (s TimingStats) String() string {
	return fmt.Sprintf("buffers=%d slack[min=%v mean=%v max=%v] maxLatency=%v missed=%d",
		s.Count, s.MinSlack, s.MeanSlack, s.MaxSlack, s.MaxLatency, s.Missed)
}
