package extract

import (
	"fmt"
	"math"

	"github.com/perceptlab/cortex/perception"
	"github.com/perceptlab/cortex/signals"
)

// #region instability

// InstabilityError reports a computation that would have produced a
// non-finite value. The offending pass is aborted; NaN/Inf never escapes.
type InstabilityError struct {
	Level  perception.State
	Detail string
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("numeric instability at %s level: %s", e.Level, e.Detail)
}

// #endregion instability

// #region options

// Options controls optional stages of extraction.
type Options struct {
	// EnableProtoAgency computes the level 2.5 trigger condition. When false
	// the intentionality score is zero and the trigger never fires.
	EnableProtoAgency bool
}

// #endregion options

// #region extractor

// Extractor computes layered features from a working buffer. It is stateless:
// identical buffer and options always yield bit-identical output.
type Extractor struct{}

// NewExtractor creates an extractor. Instances are interchangeable.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Result bundles one pass's signals with the perceptual state reached.
type Result struct {
	Signals signals.SensorySignals
	State   perception.State
	Trigger perception.ProtoAgencyTrigger
}

// Extract runs the levels in strict order: carrier → pattern → structure →
// proto-agency. Each level depends on the prior. A non-finite intermediate
// aborts with *InstabilityError tagged with the offending level.
func (e *Extractor) Extract(buffer []float64, opts Options) (Result, error) {
	carrier, err := analyzeCarrier(buffer)
	if err != nil {
		return Result{}, err
	}

	pattern, err := analyzePattern(buffer, carrier)
	if err != nil {
		return Result{}, err
	}

	structure, err := analyzeStructure(buffer)
	if err != nil {
		return Result{}, err
	}

	randomnessPassed, pValue := runsTest(buffer)
	if math.IsNaN(pValue) || math.IsInf(pValue, 0) {
		return Result{}, &InstabilityError{Level: perception.StateStructure, Detail: "runs test p-value non-finite"}
	}

	sig := signals.SensorySignals{
		Entropy:          carrier.entropy,
		SampleCount:      carrier.sampleCount,
		UniqueValues:     carrier.uniqueValues,
		Min:              carrier.min,
		Max:              carrier.max,
		Mean:             carrier.mean,
		StdDev:           carrier.stdDev,
		ZeroCrossingRate: carrier.zeroCrossingRate,

		MaxAutocorrelation:      pattern.maxAutocorrelation,
		MaxAutocorrelationLag:   pattern.maxLag,
		PeriodicityDetected:     pattern.periodicityDetected,
		PeriodicitySignificance: pattern.significance,

		LocalGlobalEntropyRatio: structure.entropyRatio,
		Compressibility:         structure.compressibility,
		VarianceRatio:           structure.varianceRatio,
		StationarityPassed:      structure.stationarityPassed,

		RandomnessPassed: randomnessPassed,
		RandomnessPValue: pValue,
	}

	state := perception.StateStructure
	var trigger perception.ProtoAgencyTrigger
	if opts.EnableProtoAgency {
		trigger = evaluateProtoAgency(
			pattern.maxAutocorrelation,
			randomnessPassed,
			structure.entropyRatio,
			pattern.significance,
		)
		sig.IntentionalityScore = trigger.Score()
		if trigger.Fired() {
			state = perception.StateProtoAgency
		}
	}

	if !sig.Finite() {
		return Result{}, &InstabilityError{Level: state, Detail: "assembled signals contain non-finite value"}
	}

	return Result{Signals: sig, State: state, Trigger: trigger}, nil
}

// #endregion extractor
