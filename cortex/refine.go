package cortex

import (
	"math"

	"github.com/perceptlab/cortex/signals"
)

// #region refinement

// refine derives the next pass's working buffer from the current one using
// only the current buffer and the signals just extracted from it. The step
// is fully deterministic: no clock, no randomness, no external state.
//
// When a period was detected the buffer is folded to one phase-averaged
// period, concentrating the repeating content. Folding requires near-unit
// autocorrelation: a peak that merely clears the noise floor is not a
// stable enough period to collapse the buffer onto. Otherwise the windowed
// local mean is subtracted, leaving the residual for the next pass.
func refine(buffer []float64, sig signals.SensorySignals) []float64 {
	n := len(buffer)
	lag := sig.MaxAutocorrelationLag
	if sig.PeriodicityDetected && sig.MaxAutocorrelation > 0.9 && lag >= 2 && lag <= n/2 {
		return foldPeriod(buffer, lag)
	}
	window := lag
	if window < 2 {
		window = 8
	}
	if window > 32 {
		window = 32
	}
	return subtractLocalMean(buffer, window)
}

// foldPeriod phase-averages the buffer into a single period of length lag.
func foldPeriod(buffer []float64, lag int) []float64 {
	folded := make([]float64, lag)
	counts := make([]int, lag)
	for i, v := range buffer {
		p := i % lag
		folded[p] += v
		counts[p]++
	}
	for p := range folded {
		if counts[p] > 0 {
			folded[p] /= float64(counts[p])
		}
	}
	return folded
}

// subtractLocalMean removes the centered moving average, keeping only the
// deviation of each sample from its neighborhood.
func subtractLocalMean(buffer []float64, window int) []float64 {
	n := len(buffer)
	out := make([]float64, n)
	half := window / 2
	for i := range buffer {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= n {
			hi = n - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += buffer[j]
		}
		out[i] = buffer[i] - sum/float64(hi-lo+1)
	}
	return out
}

// buffersBitEqual reports bit-exact equality, the fixpoint criterion.
func buffersBitEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// #endregion refinement
