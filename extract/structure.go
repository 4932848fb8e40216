package extract

import (
	"math"

	"github.com/perceptlab/cortex/perception"
)

// #region structure

// structureAnalysis holds level 2 output: organization measured by comparing
// local windows against the whole buffer.
type structureAnalysis struct {
	entropyRatio       float64 // local / global entropy
	compressibility    float64
	varianceRatio      float64
	stationarityPassed bool
}

const (
	structureWindow = 16
	structureBins   = 64
	quantizeLevels  = 16
)

func analyzeStructure(values []float64) (structureAnalysis, error) {
	n := len(values)

	// The local-entropy pass downsamples the buffer into complete windows.
	// A buffer too short for a single window cannot be analyzed at this level.
	numWindows := n / structureWindow
	if numWindows == 0 {
		return structureAnalysis{}, &InstabilityError{Level: perception.StateStructure, Detail: "zero local-entropy windows"}
	}

	globalEntropy := rawEntropy(values)

	var localSum float64
	for i := 0; i < numWindows; i++ {
		lo := i * structureWindow
		localSum += rawEntropy(values[lo : lo+structureWindow])
	}
	localEntropy := localSum / float64(numWindows)

	// A flat buffer has zero entropy everywhere; the ratio degenerates to a
	// homogeneous 1.0 rather than dividing by zero.
	entropyRatio := 1.0
	if globalEntropy > 0 {
		entropyRatio = localEntropy / globalEntropy
	}

	analysis := structureAnalysis{
		entropyRatio:       entropyRatio,
		compressibility:    compressibility(values),
		varianceRatio:      varianceRatio(values),
		stationarityPassed: stationary(values),
	}

	for _, v := range []float64{analysis.entropyRatio, analysis.compressibility, analysis.varianceRatio} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return structureAnalysis{}, &InstabilityError{Level: perception.StateStructure, Detail: "non-finite structure measure"}
		}
	}
	return analysis, nil
}

// rawEntropy returns unnormalized Shannon entropy over 64 bins.
func rawEntropy(values []float64) float64 {
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	entropy, _ := histogramEntropy(values, min, max, structureBins)
	return entropy
}

// compressibility is a run-length proxy for Kolmogorov complexity over a
// 16-level quantization: 1 means a single run, 0 means every sample starts
// a new run.
func compressibility(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	min := math.Inf(1)
	max := math.Inf(-1)
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max-min < math.SmallestNonzeroFloat64 {
		return 1.0 // constant buffer compresses to one run
	}

	scale := float64(quantizeLevels-1) / (max - min)
	runs := 1
	prev := int(math.Round((values[0] - min) * scale))
	for _, v := range values[1:] {
		q := int(math.Round((v - min) * scale))
		if q != prev {
			runs++
			prev = q
		}
	}

	c := 1.0 - float64(runs)/float64(n)
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// varianceRatio measures heteroscedasticity: the spread of per-window
// variances relative to the global variance, squashed into [0, 1].
func varianceRatio(values []float64) float64 {
	n := len(values)
	if n < structureWindow*2 {
		return 1.0
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	var globalVar float64
	for _, v := range values {
		d := v - mean
		globalVar += d * d
	}
	globalVar /= float64(n)
	if globalVar < math.SmallestNonzeroFloat64 {
		return 1.0
	}

	numWindows := n / structureWindow
	localVars := make([]float64, 0, numWindows)
	for i := 0; i < numWindows; i++ {
		window := values[i*structureWindow : (i+1)*structureWindow]
		var localMean float64
		for _, v := range window {
			localMean += v
		}
		localMean /= float64(len(window))
		var localVar float64
		for _, v := range window {
			d := v - localMean
			localVar += d * d
		}
		localVars = append(localVars, localVar/float64(len(window)))
	}

	var varMean float64
	for _, v := range localVars {
		varMean += v
	}
	varMean /= float64(len(localVars))
	var varOfVars float64
	for _, v := range localVars {
		d := v - varMean
		varOfVars += d * d
	}
	varOfVars /= float64(len(localVars))

	ratio := math.Sqrt(varOfVars) / globalVar
	if ratio > 10 {
		ratio = 10
	}
	if ratio < 0 {
		ratio = 0
	}
	return ratio / 10
}

// stationary compares mean and variance across the two halves of the buffer.
func stationary(values []float64) bool {
	n := len(values)
	if n < 20 {
		return true
	}

	mid := n / 2
	mean1, var1 := meanVariance(values[:mid])
	mean2, var2 := meanVariance(values[mid:])

	globalMean := (mean1 + mean2) / 2
	globalVar := (var1 + var2) / 2

	meanDiff := math.Abs(mean1 - mean2)
	if math.Abs(globalMean) > math.SmallestNonzeroFloat64 {
		meanDiff /= math.Abs(globalMean)
	}
	varDiff := math.Abs(var1 - var2)
	if globalVar > math.SmallestNonzeroFloat64 {
		varDiff /= globalVar
	}

	return meanDiff < 0.5 && varDiff < 1.0
}

func meanVariance(values []float64) (float64, float64) {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, variance / float64(len(values))
}

// #endregion structure
