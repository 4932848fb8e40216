package extract

import (
	"math"
	"sort"

	"github.com/perceptlab/cortex/perception"
)

// #region proto-agency

// evaluateProtoAgency checks the level 2.5 trigger conditions over
// structure-level outputs. The thresholds come from the random-signal
// baselines: random autocorrelation stays under 0.2, so 0.3 clears it;
// an entropy ratio under 0.9 means at least a 10% local-entropy reduction.
func evaluateProtoAgency(
	maxAutocorrelation float64,
	randomnessPassed bool,
	entropyRatio float64,
	significance float64,
) perception.ProtoAgencyTrigger {
	return perception.ProtoAgencyTrigger{
		PredictabilityExceedsRandom: maxAutocorrelation > 0.3 || significance > 2.0,
		NonRandomnessConfirmed:      !randomnessPassed,
		TemporalCoherenceDetected:   entropyRatio < 0.9,
	}
}

// #endregion proto-agency

// #region runs-test

// runsTest is the Wald-Wolfowitz test for randomness over the median split.
// Returns (passed, pValue): passed means randomness cannot be rejected at
// the 5% level. Short buffers are assumed random.
func runsTest(values []float64) (bool, float64) {
	n := len(values)
	if n < 20 {
		return true, 1.0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	median := sorted[n/2]

	binary := make([]bool, n)
	for i, v := range values {
		binary[i] = v > median
	}

	runs := 1
	for i := 1; i < n; i++ {
		if binary[i] != binary[i-1] {
			runs++
		}
	}

	var n1, n2 float64
	for _, b := range binary {
		if b {
			n1++
		} else {
			n2++
		}
	}
	total := n1 + n2
	if n1 < 1 || n2 < 1 {
		return true, 1.0
	}

	expected := (2*n1*n2)/total + 1
	variance := (2 * n1 * n2 * (2*n1*n2 - total)) / (total * total * (total - 1))
	if variance <= 0 {
		return true, 1.0
	}

	z := (float64(runs) - expected) / math.Sqrt(variance)
	pValue := 2 * (1 - normalCDF(math.Abs(z)))

	return pValue > 0.05, pValue
}

func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// #endregion runs-test
