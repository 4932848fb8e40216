package extract

import (
	"errors"
	"math"
	"testing"

	"github.com/perceptlab/cortex/perception"
)

// #region helpers

// pseudoNoise produces a deterministic noise-like buffer via xorshift64*.
func pseudoNoise(n int, seed uint64) []float64 {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	out := make([]float64, n)
	x := seed
	for i := range out {
		x ^= x >> 12
		x ^= x << 25
		x ^= x >> 27
		out[i] = float64(x*0x2545F4914F6CDD1D>>11) / float64(1<<53)
	}
	return out
}

func sineWave(n, period int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * float64(i) / float64(period))
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// #endregion helpers

// #region carrier-tests

func TestAnalyzeCarrier_Constant(t *testing.T) {
	c, err := analyzeCarrier(constant(64, 42))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if c.entropy != 0 {
		t.Errorf("constant buffer should have zero entropy, got %f", c.entropy)
	}
	if c.uniqueValues != 1 {
		t.Errorf("constant buffer should occupy one bin, got %d", c.uniqueValues)
	}
	if c.stdDev != 0 {
		t.Errorf("constant buffer should have zero stddev, got %f", c.stdDev)
	}
	if c.min != 42 || c.max != 42 || c.mean != 42 {
		t.Errorf("min/mean/max should all be 42, got %f/%f/%f", c.min, c.mean, c.max)
	}
}

func TestAnalyzeCarrier_Alternating(t *testing.T) {
	values := make([]float64, 32)
	for i := range values {
		values[i] = float64(i % 2)
	}
	c, err := analyzeCarrier(values)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if c.mean != 0.5 {
		t.Errorf("expected mean 0.5, got %f", c.mean)
	}
	if c.zeroCrossingRate != 1.0 {
		t.Errorf("strict alternation should cross the mean every step, got %f", c.zeroCrossingRate)
	}
	// Two equiprobable bins: 1 bit over the 8-bit ceiling.
	if math.Abs(c.entropy-0.125) > 1e-9 {
		t.Errorf("expected normalized entropy 0.125, got %f", c.entropy)
	}
}

func TestAnalyzeCarrier_Empty(t *testing.T) {
	_, err := analyzeCarrier(nil)
	var inst *InstabilityError
	if !errors.As(err, &inst) || inst.Level != perception.StateCarrier {
		t.Fatalf("expected carrier-level instability, got %v", err)
	}
}

func TestAnalyzeCarrier_NaN(t *testing.T) {
	values := constant(16, 1)
	values[7] = math.NaN()
	_, err := analyzeCarrier(values)
	var inst *InstabilityError
	if !errors.As(err, &inst) || inst.Level != perception.StateCarrier {
		t.Fatalf("expected carrier-level instability for NaN, got %v", err)
	}
}

// #endregion carrier-tests

// #region pattern-tests

func TestAnalyzePattern_Periodic(t *testing.T) {
	values := sineWave(64, 8)
	carrier, err := analyzeCarrier(values)
	if err != nil {
		t.Fatalf("carrier: %v", err)
	}
	p, err := analyzePattern(values, carrier)
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	if !p.periodicityDetected {
		t.Error("a clean periodic signal should be detected")
	}
	if p.maxAutocorrelation < 0.9 {
		t.Errorf("expected near-unit autocorrelation, got %f", p.maxAutocorrelation)
	}
	if p.maxLag%4 != 0 {
		t.Errorf("peak lag should sit on a half-period multiple, got %d", p.maxLag)
	}
}

func TestAnalyzePattern_Constant(t *testing.T) {
	values := constant(64, 7)
	carrier, _ := analyzeCarrier(values)
	p, err := analyzePattern(values, carrier)
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	if p.maxAutocorrelation != 1.0 {
		t.Errorf("constant buffer is perfectly self-similar, got %f", p.maxAutocorrelation)
	}
	if p.periodicityDetected {
		t.Error("constant buffer has no period to detect")
	}
}

func TestAnalyzePattern_Noise(t *testing.T) {
	values := pseudoNoise(512, 1)
	carrier, _ := analyzeCarrier(values)
	p, err := analyzePattern(values, carrier)
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	if p.maxAutocorrelation > 0.5 {
		t.Errorf("noise should stay well below the periodic band, got %f", p.maxAutocorrelation)
	}
}

func TestAnalyzePattern_TooShort(t *testing.T) {
	values := []float64{1, 2, 3}
	carrier, _ := analyzeCarrier(values)
	_, err := analyzePattern(values, carrier)
	var inst *InstabilityError
	if !errors.As(err, &inst) || inst.Level != perception.StatePattern {
		t.Fatalf("expected pattern-level instability, got %v", err)
	}
}

// #endregion pattern-tests

// #region structure-tests

func TestAnalyzeStructure_SubWindowBuffer(t *testing.T) {
	_, err := analyzeStructure(constant(8, 1))
	var inst *InstabilityError
	if !errors.As(err, &inst) || inst.Level != perception.StateStructure {
		t.Fatalf("expected structure-level instability for short buffer, got %v", err)
	}
}

func TestAnalyzeStructure_Constant(t *testing.T) {
	s, err := analyzeStructure(constant(64, 3))
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	if s.entropyRatio != 1.0 {
		t.Errorf("flat buffer should degenerate to ratio 1.0, got %f", s.entropyRatio)
	}
	if s.compressibility != 1.0 {
		t.Errorf("constant buffer compresses to one run, got %f", s.compressibility)
	}
	if !s.stationarityPassed {
		t.Error("constant buffer is trivially stationary")
	}
}

func TestAnalyzeStructure_NonStationary(t *testing.T) {
	// Low variance first half, high variance second half.
	values := make([]float64, 128)
	noise := pseudoNoise(128, 2)
	for i := range values {
		if i < 64 {
			values[i] = noise[i] * 0.01
		} else {
			values[i] = noise[i] * 100
		}
	}
	s, err := analyzeStructure(values)
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	if s.stationarityPassed {
		t.Error("a variance jump across halves should fail stationarity")
	}
}

// #endregion structure-tests

// #region runs-test-tests

func TestRunsTest_ShortBufferPasses(t *testing.T) {
	passed, p := runsTest(constant(10, 1))
	if !passed || p != 1.0 {
		t.Errorf("short buffers are assumed random, got passed=%v p=%f", passed, p)
	}
}

func TestRunsTest_AlternationFails(t *testing.T) {
	// Alternating low/high with a slight drift so the median splits the
	// groups cleanly.
	values := make([]float64, 64)
	for i := range values {
		values[i] = float64(i%2)*10 + float64(i)*0.01
	}
	passed, p := runsTest(values)
	if passed {
		t.Errorf("strict alternation has far too many runs to be random (p=%f)", p)
	}
}

func TestRunsTest_BlocksFail(t *testing.T) {
	// Low first half, high second half: essentially two runs.
	values := make([]float64, 64)
	for i := range values {
		values[i] = float64(i) * 0.01
		if i >= 32 {
			values[i] += 10
		}
	}
	passed, p := runsTest(values)
	if passed {
		t.Errorf("two giant runs should reject randomness (p=%f)", p)
	}
}

// #endregion runs-test-tests

// #region proto-agency-tests

func TestEvaluateProtoAgency_Conditions(t *testing.T) {
	trig := evaluateProtoAgency(0.5, false, 0.8, 1.0)
	if !trig.PredictabilityExceedsRandom || !trig.NonRandomnessConfirmed || !trig.TemporalCoherenceDetected {
		t.Errorf("all three conditions should fire: %+v", trig)
	}

	trig = evaluateProtoAgency(0.1, true, 1.0, 1.0)
	if trig.Count() != 0 {
		t.Errorf("no condition should fire for random-looking inputs: %+v", trig)
	}

	// Significance alone can carry the predictability condition.
	trig = evaluateProtoAgency(0.1, true, 1.0, 2.5)
	if !trig.PredictabilityExceedsRandom {
		t.Error("high significance should fire predictability")
	}
}

// #endregion proto-agency-tests

// #region extract-tests

func TestExtract_PeriodicReachesProtoAgency(t *testing.T) {
	e := NewExtractor()
	res, err := e.Extract(sineWave(64, 8), Options{EnableProtoAgency: true})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.State != perception.StateProtoAgency {
		t.Errorf("clean periodicity should cross the trigger, got %s", res.State)
	}
	if res.Signals.IntentionalityScore < 2.0/3.0-1e-9 {
		t.Errorf("expected at least 2/3 score, got %f", res.Signals.IntentionalityScore)
	}
}

func TestExtract_ProtoAgencyDisabled(t *testing.T) {
	e := NewExtractor()
	res, err := e.Extract(sineWave(64, 8), Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.State != perception.StateStructure {
		t.Errorf("disabled trigger must cap the state at structure, got %s", res.State)
	}
	if res.Signals.IntentionalityScore != 0 {
		t.Errorf("disabled trigger must leave the score at zero, got %f", res.Signals.IntentionalityScore)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor()
	buf := pseudoNoise(256, 3)
	first, err := e.Extract(buf, Options{EnableProtoAgency: true})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for i := 0; i < 100; i++ {
		again, err := e.Extract(buf, Options{EnableProtoAgency: true})
		if err != nil {
			t.Fatalf("extract %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestExtract_EntropyBitsStable(t *testing.T) {
	e := NewExtractor()
	buf := pseudoNoise(1024, 7)
	first, err := e.Extract(buf, Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := math.Float64bits(first.Signals.Entropy)
	wantRatio := math.Float64bits(first.Signals.LocalGlobalEntropyRatio)
	for i := 0; i < 200; i++ {
		again, err := e.Extract(buf, Options{})
		if err != nil {
			t.Fatalf("extract %d: %v", i, err)
		}
		if got := math.Float64bits(again.Signals.Entropy); got != want {
			t.Fatalf("run %d: entropy bits differ: %016x vs %016x", i, got, want)
		}
		if got := math.Float64bits(again.Signals.LocalGlobalEntropyRatio); got != wantRatio {
			t.Fatalf("run %d: entropy ratio bits differ: %016x vs %016x", i, got, wantRatio)
		}
	}
}

// #endregion extract-tests
