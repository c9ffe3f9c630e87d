package audio

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// ----- Spectrum ----- //

// Spectrum computes windowed magnitude spectra of a fixed power-of-two size.
// Tables and scratch space are built once by NewSpectrum.
type Spectrum struct {
	size       int
	bitReverse []int
	twiddle    []complex128
	window     []float64
	scratch    []complex128
}

// NewSpectrum ...
func NewSpectrum(size int) (*Spectrum, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("spectrum size must be a power of two, got %d", size)
	}
	s := &Spectrum{
		size:       size,
		bitReverse: make([]int, size),
		twiddle:    make([]complex128, size/2),
		window:     make([]float64, size),
		scratch:    make([]complex128, size),
	}
	for i := 0; i < size; i++ {
		s.bitReverse[i] = bitReverse(i, size)
		s.window[i] = 0.5 - 0.5*math.Cos(twoPi*float64(i)/float64(size))
	}
	for i := range s.twiddle {
		s.twiddle[i] = cmplx.Exp(complex(0, -twoPi*float64(i)/float64(size)))
	}
	return s, nil
}

func bitReverse(k, n int) int {
	m := 0
	for ; n > 1; n = n >> 1 {
		m = m<<1 + k&1
		k = k >> 1
	}
	return m
}

// Size ...
func (s *Spectrum) Size() int {
	return s.size
}

func (s *Spectrum) transform(x []complex128) {
	n := len(x)
	for i := 0; i < n; i++ {
		if rev := s.bitReverse[i]; i < rev {
			x[i], x[rev] = x[rev], x[i]
		}
	}
	for half := 1; half < n; half <<= 1 {
		stride := n / (half << 1)
		for start := 0; start < n; start += half << 1 {
			for k := 0; k < half; k++ {
				w := s.twiddle[k*stride]
				a := x[start+k]
				b := x[start+k+half] * w
				x[start+k] = a + b
				x[start+k+half] = a - b
			}
		}
	}
}

// Magnitudes writes size/2 normalized bin magnitudes of the Hann-windowed input into dst.
// in must hold exactly Size samples; dst must hold at least Size/2.
func (s *Spectrum) Magnitudes(in []float64, dst []float64) error {
	if len(in) != s.size {
		return fmt.Errorf("spectrum input length should be %d, got %d", s.size, len(in))
	}
	if len(dst) < s.size/2 {
		return fmt.Errorf("spectrum output length should be at least %d, got %d", s.size/2, len(dst))
	}
	for i, v := range in {
		s.scratch[i] = complex(v*s.window[i], 0)
	}
	s.transform(s.scratch)
	for i := 0; i < s.size/2; i++ {
		dst[i] = cmplx.Abs(s.scratch[i]) * 4 / float64(s.size)
	}
	return nil
}

// BinFrequency ...
func (s *Spectrum) BinFrequency(bin int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(s.size)
}

// Peak is a local maximum of a magnitude spectrum.
type Peak struct {
	Bin       int
	Magnitude float64
}

// PeakBins returns up to n local maxima above floor, strongest first.
func PeakBins(mag []float64, n int, floor float64) []Peak {
	var peaks []Peak
	for i := 1; i+1 < len(mag); i++ {
		if mag[i] > floor && mag[i] >= mag[i-1] && mag[i] > mag[i+1] {
			peaks = append(peaks, Peak{Bin: i, Magnitude: mag[i]})
		}
	}
	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})
	if len(peaks) > n {
		peaks = peaks[:n]
	}
	return peaks
}

// RenderMono renders frames mono samples from c by calling it with buffers of
// framesPerBuffer stereo frames and keeping the left channel.
func RenderMono(c Callback, frames int, framesPerBuffer int) []float64 {
	out := make([]float64, 0, frames)
	buf := make([]float32, framesPerBuffer*channelNum)
	for len(out) < frames {
		c.Process(buf, TimeInfo{})
		for i := 0; i < len(buf) && len(out) < frames; i += channelNum {
			out = append(out, float64(buf[i]))
		}
	}
	return out
}
