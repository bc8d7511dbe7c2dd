package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var (
	// ErrTooShort is returned for series too short to analyze.
	ErrTooShort = errors.New("analysis: series too short")

	// ErrNonUniform is returned when samples are not evenly spaced.
	ErrNonUniform = errors.New("analysis: samples are not evenly spaced")

	// ErrNoPeriod is returned when no oscillation is found.
	ErrNoPeriod = errors.New("analysis: no periodic component")
)

// PowerSpectrum returns the magnitudes of the non-negative frequency bins
// of data after removing the mean and applying a Hann window.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	windowed := make([]float64, n)
	for i, v := range data {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
	}
	spectrum := fft.FFTReal(windowed)

	ps := make([]float64, n/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// sampleStep returns the spacing of uniformly sampled times.
func sampleStep(times []float64) (float64, error) {
	if len(times) < 8 {
		return 0, fmt.Errorf("%w: %d samples", ErrTooShort, len(times))
	}
	dt := (times[len(times)-1] - times[0]) / float64(len(times)-1)
	for i := 1; i < len(times); i++ {
		if math.Abs(times[i]-times[i-1]-dt) > 1e-6*dt {
			return 0, fmt.Errorf("%w: step %d is %g, mean %g", ErrNonUniform, i, times[i]-times[i-1], dt)
		}
	}
	return dt, nil
}

// DominantPeriod estimates the period of the strongest oscillation in a
// uniformly sampled series. The peak bin is refined by parabolic
// interpolation of the neighboring magnitudes. The series should span a
// few periods.
func DominantPeriod(times, values []float64) (float64, error) {
	dt, err := sampleStep(times)
	if err != nil {
		return 0, err
	}
	ps := PowerSpectrum(values)
	peak := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	if peak == 0 || ps[peak] == 0 {
		return 0, ErrNoPeriod
	}

	bin := float64(peak)
	if peak+1 < len(ps) {
		a, b, c := ps[peak-1], ps[peak], ps[peak+1]
		if den := a - 2*b + c; den != 0 {
			bin += 0.5 * (a - c) / den
		}
	}
	return float64(len(values)) * dt / bin, nil
}
