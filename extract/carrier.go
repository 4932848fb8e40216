package extract

import (
	"math"

	"github.com/perceptlab/cortex/perception"
)

// #region carrier

// carrierAnalysis holds level 0 output: basic statistical properties of the
// raw buffer. Shannon entropy is normalized against 256 histogram bins so
// byte-like and continuous inputs land on the same 0-1 scale.
type carrierAnalysis struct {
	entropy          float64
	sampleCount      int
	uniqueValues     int
	min              float64
	max              float64
	mean             float64
	stdDev           float64
	zeroCrossingRate float64
}

const carrierBins = 256

func analyzeCarrier(values []float64) (carrierAnalysis, error) {
	n := len(values)
	if n == 0 {
		return carrierAnalysis{}, &InstabilityError{Level: perception.StateCarrier, Detail: "empty buffer"}
	}

	min := math.Inf(1)
	max := math.Inf(-1)
	var sum float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return carrierAnalysis{}, &InstabilityError{Level: perception.StateCarrier, Detail: "non-finite sample"}
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)
	stdDev := math.Sqrt(variance)

	// Crossings of the mean line, normalized to transitions.
	crossings := 0
	for i := 1; i < n; i++ {
		if (values[i-1]-mean)*(values[i]-mean) < 0 {
			crossings++
		}
	}
	zcr := 0.0
	if n > 1 {
		zcr = float64(crossings) / float64(n-1)
	}

	entropy, unique := histogramEntropy(values, min, max, carrierBins)
	// Normalize by the maximum achievable entropy for the bin count.
	maxEntropy := math.Log2(carrierBins)
	normalized := entropy / maxEntropy
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	return carrierAnalysis{
		entropy:          normalized,
		sampleCount:      n,
		uniqueValues:     unique,
		min:              min,
		max:              max,
		mean:             mean,
		stdDev:           stdDev,
		zeroCrossingRate: zcr,
	}, nil
}

// histogramEntropy bins values over [min, max] and returns the raw Shannon
// entropy plus the number of occupied bins. A constant buffer has zero
// entropy and a single occupied bin.
func histogramEntropy(values []float64, min, max float64, bins int) (float64, int) {
	if max-min < math.SmallestNonzeroFloat64 || len(values) == 0 {
		return 0, 1
	}

	binWidth := (max - min) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		bin := int(math.Floor((v - min) / binWidth))
		if bin > bins-1 {
			bin = bins - 1
		}
		counts[bin]++
	}

	// Accumulate in ascending bin order; float addition is order-sensitive
	// and the result must be bit-stable across calls.
	n := float64(len(values))
	var entropy float64
	occupied := 0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		occupied++
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy, occupied
}

// #endregion carrier
