package signals

import "math"

// #region sensory-signals

// SensorySignals is the complete feature set computed for one extraction pass.
// All float fields are finite in a valid pass; the extractor rejects any
// computation that would produce NaN or Inf before a value reaches this struct.
type SensorySignals struct {
	// Carrier level (0)
	Entropy          float64 // normalized Shannon entropy, 0-1
	SampleCount      int
	UniqueValues     int
	Min              float64
	Max              float64
	Mean             float64
	StdDev           float64
	ZeroCrossingRate float64

	// Pattern level (1)
	MaxAutocorrelation      float64 // excluding lag 0
	MaxAutocorrelationLag   int
	PeriodicityDetected     bool
	PeriodicitySignificance float64 // peak over noise floor

	// Structure level (2)
	LocalGlobalEntropyRatio float64 // < 1 means local structure exists
	Compressibility         float64 // run-length proxy, 0-1
	VarianceRatio           float64 // heteroscedasticity measure, 0-1
	StationarityPassed      bool

	// Statistical tests
	RandomnessPassed bool    // Wald-Wolfowitz runs test
	RandomnessPValue float64

	// Proto-agency level (2.5); zero unless enabled and evaluated
	IntentionalityScore float64 // conditions met / 3
}

// #endregion sensory-signals

// #region feature-vector

// FeatureVector returns the float features used for convergence distance.
// Boolean signals are folded in as 0/1 so a flip registers as movement.
func (s SensorySignals) FeatureVector() []float64 {
	periodicity := 0.0
	if s.PeriodicityDetected {
		periodicity = 1.0
	}
	return []float64{
		s.Entropy,
		s.Mean,
		s.StdDev,
		s.ZeroCrossingRate,
		s.MaxAutocorrelation,
		periodicity,
		s.PeriodicitySignificance,
		s.LocalGlobalEntropyRatio,
		s.Compressibility,
		s.VarianceRatio,
		s.IntentionalityScore,
	}
}

// Distance computes the L2 distance between two feature vectors.
func Distance(a, b SensorySignals) float64 {
	va := a.FeatureVector()
	vb := b.FeatureVector()
	var sum float64
	for i := range va {
		d := va[i] - vb[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// #endregion feature-vector

// #region validation

// Finite reports whether every float field holds a finite value.
func (s SensorySignals) Finite() bool {
	for _, v := range s.FeatureVector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	// Fields outside the convergence vector still count.
	for _, v := range []float64{s.Min, s.Max, s.RandomnessPValue} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// BitEqual reports exact equality on the underlying float representation,
// not approximate equality. Used by the replay verifier.
func BitEqual(a, b SensorySignals) bool {
	if a.SampleCount != b.SampleCount ||
		a.UniqueValues != b.UniqueValues ||
		a.MaxAutocorrelationLag != b.MaxAutocorrelationLag ||
		a.PeriodicityDetected != b.PeriodicityDetected ||
		a.StationarityPassed != b.StationarityPassed ||
		a.RandomnessPassed != b.RandomnessPassed {
		return false
	}
	fa := append(a.FeatureVector(), a.Min, a.Max, a.RandomnessPValue)
	fb := append(b.FeatureVector(), b.Min, b.Max, b.RandomnessPValue)
	for i := range fa {
		if math.Float64bits(fa[i]) != math.Float64bits(fb[i]) {
			return false
		}
	}
	return true
}

// #endregion validation
