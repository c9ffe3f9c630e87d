package audio

import (
	"math"
	"testing"
)

func TestBitreverse(t *testing.T) {
	expectEqual(t, bitReverse(0, 8), 0)
	expectEqual(t, bitReverse(1, 8), 4)
	expectEqual(t, bitReverse(2, 8), 2)
	expectEqual(t, bitReverse(3, 8), 6)
	expectEqual(t, bitReverse(4, 8), 1)
	expectEqual(t, bitReverse(5, 8), 5)
	expectEqual(t, bitReverse(6, 8), 3)
	expectEqual(t, bitReverse(7, 8), 7)
}

func TestTransform(t *testing.T) {
	s, err := NewSpectrum(8)
	expectNoError(t, err)
	in := []float64{0, 0.25, 0.5, 0.75, 1, 0.75, 0.5, 0.25}
	x := make([]complex128, len(in))
	for i, v := range in {
		x[i] = complex(v, 0)
	}
	s.transform(x)
	expectNearlyEqual(t, real(x[0]), 4)
	expectNearlyEqual(t, real(x[1]), -(1 + math.Sqrt(2)/2))
	expectNearlyEqual(t, real(x[2]), 0)
	expectNearlyEqual(t, real(x[3]), -(1 - math.Sqrt(2)/2))
	expectNearlyEqual(t, real(x[4]), 0)
	expectNearlyEqual(t, real(x[5]), -(1 - math.Sqrt(2)/2))
	expectNearlyEqual(t, real(x[6]), 0)
	expectNearlyEqual(t, real(x[7]), -(1 + math.Sqrt(2)/2))
	for i := range x {
		expectNearlyEqual(t, imag(x[i]), 0)
	}
}

func TestSpectrumPureSine(t *testing.T) {
	const size = 4096
	s, err := NewSpectrum(size)
	expectNoError(t, err)
	// exactly on bin 100
	freq := s.BinFrequency(100, 44100)
	in := make([]float64, size)
	for i := range in {
		in[i] = 0.8 * math.Sin(twoPi*freq*float64(i)/44100)
	}
	mag := make([]float64, size/2)
	expectNoError(t, s.Magnitudes(in, mag))
	peaks := PeakBins(mag, 3, 0.01)
	expectEqual(t, len(peaks), 1)
	expectEqual(t, peaks[0].Bin, 100)
	expectWithin(t, peaks[0].Magnitude, 0.8, 1e-3)
}

func TestNewSpectrumRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, 1, 3, 100, 1000} {
		if _, err := NewSpectrum(size); err == nil {
			t.Errorf("expected an error for size %d", size)
		}
	}
}

func TestMagnitudesRejectsBadLength(t *testing.T) {
	s, err := NewSpectrum(16)
	expectNoError(t, err)
	if err := s.Magnitudes(make([]float64, 15), make([]float64, 8)); err == nil {
		t.Error("expected an error for short input")
	}
	if err := s.Magnitudes(make([]float64, 16), make([]float64, 7)); err == nil {
		t.Error("expected an error for short output")
	}
}

func TestPeakBins(t *testing.T) {
	mag := []float64{0, 0.5, 0.1, 0.2, 0.9, 0.3, 0.001, 0.002, 0}
	peaks := PeakBins(mag, 2, 0.01)
	expectEqual(t, len(peaks), 2)
	expectEqual(t, peaks[0], Peak{Bin: 4, Magnitude: 0.9})
	expectEqual(t, peaks[1], Peak{Bin: 1, Magnitude: 0.5})
}
