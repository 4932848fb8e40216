package replay

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/perceptlab/cortex/signals"
)

// #region roundtrip-tests

func sampleFixture() *Fixture {
	return &Fixture{
		Description:       "noise run under a five-pass ceiling",
		InputFingerprint:  "in-fp",
		ConfigFingerprint: "cfg-fp",
		Input: FixtureInput{
			Samples: []float64{0.25, 0.5, 0.75, 1},
			Tags:    map[string]string{"source": "unit"},
		},
		Config: FixtureConfig{
			MaxPasses:          5,
			MinPasses:          2,
			ConvergenceEpsilon: 0.01,
		},
		Budget: FixtureBudget{
			MaxPasses:     10000,
			MaxDurationMS: 30000,
			MaxWorkingSet: 500 * 1024 * 1024,
		},
		Expected: FixtureExpected{
			StopReason: "budget_exhausted",
			FinalState: "structure",
			PassesRun:  5,
		},
		Snapshots: []FixtureSnapshot{
			{PassIndex: 1, State: "structure", Signals: FixtureSignals{Entropy: 0.93, SampleCount: 4}},
			{PassIndex: 2, State: "structure", Signals: FixtureSignals{Entropy: 0.91, SampleCount: 4}},
		},
	}
}

func TestFixture_SaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	want := sampleFixture()

	if err := SaveFixture(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fixture roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("missing fixture should error")
	}
}

func TestSignals_ConversionRoundtrip(t *testing.T) {
	want := signals.SensorySignals{
		Entropy:                 0.7,
		SampleCount:             64,
		UniqueValues:            12,
		Min:                     -1,
		Max:                     1,
		Mean:                    0.01,
		StdDev:                  0.7,
		ZeroCrossingRate:        0.5,
		MaxAutocorrelation:      0.94,
		MaxAutocorrelationLag:   4,
		PeriodicityDetected:     true,
		PeriodicitySignificance: 3.2,
		LocalGlobalEntropyRatio: 0.8,
		Compressibility:         0.3,
		VarianceRatio:           0.05,
		StationarityPassed:      true,
		RandomnessPassed:        false,
		RandomnessPValue:        0.002,
		IntentionalityScore:     2.0 / 3.0,
	}
	got := FromSignals(want).ToSignals()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("signal conversion mismatch (-want +got):\n%s", diff)
	}
}

func TestFixture_ToContext(t *testing.T) {
	f := sampleFixture()
	ctx := f.ToContext()
	if ctx.InputFingerprint != "in-fp" || ctx.ConfigFingerprint != "cfg-fp" {
		t.Error("persisted fingerprints not carried into the context")
	}
	if len(ctx.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(ctx.Snapshots))
	}
	if ctx.Snapshots[0].State.String() != "structure" {
		t.Errorf("state name not decoded, got %s", ctx.Snapshots[0].State)
	}
}

func TestFixture_ToContextGatesOnStoredFingerprints(t *testing.T) {
	f := sampleFixture()
	rerun := f.ToContext()
	rerun.InputFingerprint = "other-input"

	err := Verify(f.ToContext(), rerun)
	if err == nil {
		t.Fatal("rerun with a different input fingerprint must not verify")
	}
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) || mismatch.PassIndex != -1 {
		t.Fatalf("expected a fingerprint-level mismatch, got %v", err)
	}
}

// #endregion roundtrip-tests
