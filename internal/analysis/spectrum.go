package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrTooFewSamples = errors.New("analysis: need at least 4 samples")

// Spectrum returns the one-sided amplitude spectrum of samples taken every
// dt. The mean is removed first so bin 0 only holds drift.
func Spectrum(samples []float64, dt float64) (freqs, power []float64, err error) {
	n := len(samples)
	if n < 4 {
		return nil, nil, ErrTooFewSamples
	}

	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(n)

	centred := make([]float64, n)
	for i, s := range samples {
		centred[i] = s - mean
	}

	coeffs := fft.FFTReal(centred)
	half := n / 2
	freqs = make([]float64, half)
	power = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) / (float64(n) * dt)
		power[k] = cmplx.Abs(coeffs[k])
	}
	return freqs, power, nil
}

// DominantFrequency returns the frequency of the strongest non-zero bin,
// refined by fitting a parabola through it and its neighbours.
func DominantFrequency(samples []float64, dt float64) (float64, error) {
	freqs, power, err := Spectrum(samples, dt)
	if err != nil {
		return 0, err
	}

	peak := 1
	for k := 2; k < len(power); k++ {
		if power[k] > power[peak] {
			peak = k
		}
	}

	offset := 0.0
	if peak+1 < len(power) {
		a, b, c := power[peak-1], power[peak], power[peak+1]
		if d := a - 2*b + c; d != 0 {
			offset = 0.5 * (a - c) / d
		}
	}
	if math.IsNaN(offset) || math.Abs(offset) > 1 {
		offset = 0
	}

	df := freqs[1]
	return freqs[peak] + offset*df, nil
}
