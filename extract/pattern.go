package extract

import (
	"math"
	"sort"

	"github.com/perceptlab/cortex/perception"
)

// #region pattern

// patternAnalysis holds level 1 output: repetition and rhythm measured by
// mean-removed autocorrelation at multiple lags.
type patternAnalysis struct {
	maxAutocorrelation  float64
	maxLag              int
	periodicityDetected bool
	significance        float64
}

func analyzePattern(values []float64, carrier carrierAnalysis) (patternAnalysis, error) {
	n := len(values)
	if n < 4 {
		return patternAnalysis{}, &InstabilityError{Level: perception.StatePattern, Detail: "buffer too short for autocorrelation"}
	}

	// A constant buffer is perfectly self-similar at every lag.
	if carrier.stdDev == 0 {
		return patternAnalysis{maxAutocorrelation: 1.0}, nil
	}

	autocorr := autocorrelation(values, carrier.mean)

	// Skip lag 0 (always 1) and the first few lags, which run high for any
	// smooth signal.
	minLag := n / 20
	if minLag < 1 {
		minLag = 1
	}
	maxLag := n / 2

	maxVal := 0.0
	maxIdx := 0
	for lag := minLag; lag <= maxLag && lag < len(autocorr); lag++ {
		abs := math.Abs(autocorr[lag])
		if abs > maxVal {
			maxVal = abs
			maxIdx = lag
		}
	}

	floor := noiseFloor(autocorr)
	significance := 0.0
	if floor > 0 {
		significance = maxVal / floor
	}

	// Significant when the peak clears the noise floor by 3x, or the signal
	// is so cleanly periodic the absolute coefficient speaks for itself.
	detected := (significance > 3.0 || maxVal > 0.9) && maxIdx > 0

	if math.IsNaN(maxVal) || math.IsInf(maxVal, 0) || math.IsNaN(significance) || math.IsInf(significance, 0) {
		return patternAnalysis{}, &InstabilityError{Level: perception.StatePattern, Detail: "autocorrelation produced non-finite value"}
	}

	return patternAnalysis{
		maxAutocorrelation:  maxVal,
		maxLag:              maxIdx,
		periodicityDetected: detected,
		significance:        significance,
	}, nil
}

// autocorrelation computes the normalized mean-removed autocorrelation
// R(lag) for lags 0..n/2. Direct evaluation keeps the computation exactly
// reproducible across platforms.
func autocorrelation(values []float64, mean float64) []float64 {
	n := len(values)
	centered := make([]float64, n)
	var energy float64
	for i, v := range values {
		c := v - mean
		centered[i] = c
		energy += c * c
	}

	maxLag := n / 2
	out := make([]float64, maxLag+1)
	if energy == 0 {
		return out
	}
	for lag := 0; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += centered[i] * centered[i+lag]
		}
		r := sum / energy
		if r > 1 {
			r = 1
		}
		if r < -1 {
			r = -1
		}
		out[lag] = r
	}
	return out
}

// noiseFloor estimates the background correlation level as the median of
// magnitudes over the informative lag range.
func noiseFloor(autocorr []float64) float64 {
	if len(autocorr) < 10 {
		return 0.1
	}
	lo := len(autocorr) / 10
	hi := lo + len(autocorr)/2
	if hi > len(autocorr) {
		hi = len(autocorr)
	}
	magnitudes := make([]float64, 0, hi-lo)
	for _, v := range autocorr[lo:hi] {
		magnitudes = append(magnitudes, math.Abs(v))
	}
	if len(magnitudes) == 0 {
		return 0.1
	}
	sort.Float64s(magnitudes)
	return magnitudes[len(magnitudes)/2]
}

// #endregion pattern
