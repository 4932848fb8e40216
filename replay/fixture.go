package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/perceptlab/cortex/perception"
	"github.com/perceptlab/cortex/signals"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: an input,
// the loop configuration it ran under, and the trace it is expected to
// reproduce bit-exactly.
type Fixture struct {
	Description string `json:"description"`

	// Fingerprints captured at export time. A rerun whose own fingerprints
	// differ has diverged before any snapshot is compared.
	InputFingerprint  string `json:"input_fingerprint"`
	ConfigFingerprint string `json:"config_fingerprint"`

	Input     FixtureInput      `json:"input"`
	Config    FixtureConfig     `json:"config"`
	Budget    FixtureBudget     `json:"budget"`
	Expected  FixtureExpected   `json:"expected"`
	Snapshots []FixtureSnapshot `json:"snapshots"`
}

// FixtureInput carries the raw samples and their metadata tags.
type FixtureInput struct {
	Samples []float64         `json:"samples"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// FixtureConfig mirrors the maturation configuration with JSON tags.
type FixtureConfig struct {
	MaxPasses          int     `json:"max_passes"`
	MinPasses          int     `json:"min_passes"`
	ConvergenceEpsilon float64 `json:"convergence_epsilon"`
	EnableProtoAgency  bool    `json:"enable_proto_agency"`
}

// FixtureBudget mirrors the computational budget with JSON tags. Durations
// are in milliseconds so fixtures stay human-editable.
type FixtureBudget struct {
	MaxPasses     int   `json:"max_passes"`
	MaxDurationMS int64 `json:"max_duration_ms"`
	MaxWorkingSet int   `json:"max_working_set_bytes"`
}

// FixtureExpected captures the outcome a replay run must reproduce.
type FixtureExpected struct {
	StopReason string `json:"stop_reason"`
	FinalState string `json:"final_state"`
	PassesRun  int    `json:"passes_run"`
}

// FixtureSnapshot mirrors one recorded pass with JSON tags.
type FixtureSnapshot struct {
	PassIndex int            `json:"pass_index"`
	State     string         `json:"state"`
	Signals   FixtureSignals `json:"signals"`
}

// FixtureSignals mirrors signals.SensorySignals with JSON tags.
type FixtureSignals struct {
	Entropy          float64 `json:"entropy"`
	SampleCount      int     `json:"sample_count"`
	UniqueValues     int     `json:"unique_values"`
	Min              float64 `json:"min"`
	Max              float64 `json:"max"`
	Mean             float64 `json:"mean"`
	StdDev           float64 `json:"std_dev"`
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`

	MaxAutocorrelation      float64 `json:"max_autocorrelation"`
	MaxAutocorrelationLag   int     `json:"max_autocorrelation_lag"`
	PeriodicityDetected     bool    `json:"periodicity_detected"`
	PeriodicitySignificance float64 `json:"periodicity_significance"`

	LocalGlobalEntropyRatio float64 `json:"local_global_entropy_ratio"`
	Compressibility         float64 `json:"compressibility"`
	VarianceRatio           float64 `json:"variance_ratio"`
	StationarityPassed      bool    `json:"stationarity_passed"`

	RandomnessPassed bool    `json:"randomness_passed"`
	RandomnessPValue float64 `json:"randomness_p_value"`

	IntentionalityScore float64 `json:"intentionality_score"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToSignals converts fixture signals to the domain struct.
func (fs FixtureSignals) ToSignals() signals.SensorySignals {
	return signals.SensorySignals{
		Entropy:          fs.Entropy,
		SampleCount:      fs.SampleCount,
		UniqueValues:     fs.UniqueValues,
		Min:              fs.Min,
		Max:              fs.Max,
		Mean:             fs.Mean,
		StdDev:           fs.StdDev,
		ZeroCrossingRate: fs.ZeroCrossingRate,

		MaxAutocorrelation:      fs.MaxAutocorrelation,
		MaxAutocorrelationLag:   fs.MaxAutocorrelationLag,
		PeriodicityDetected:     fs.PeriodicityDetected,
		PeriodicitySignificance: fs.PeriodicitySignificance,

		LocalGlobalEntropyRatio: fs.LocalGlobalEntropyRatio,
		Compressibility:         fs.Compressibility,
		VarianceRatio:           fs.VarianceRatio,
		StationarityPassed:      fs.StationarityPassed,

		RandomnessPassed: fs.RandomnessPassed,
		RandomnessPValue: fs.RandomnessPValue,

		IntentionalityScore: fs.IntentionalityScore,
	}
}

// FromSignals converts the domain struct to fixture signals.
func FromSignals(s signals.SensorySignals) FixtureSignals {
	return FixtureSignals{
		Entropy:          s.Entropy,
		SampleCount:      s.SampleCount,
		UniqueValues:     s.UniqueValues,
		Min:              s.Min,
		Max:              s.Max,
		Mean:             s.Mean,
		StdDev:           s.StdDev,
		ZeroCrossingRate: s.ZeroCrossingRate,

		MaxAutocorrelation:      s.MaxAutocorrelation,
		MaxAutocorrelationLag:   s.MaxAutocorrelationLag,
		PeriodicityDetected:     s.PeriodicityDetected,
		PeriodicitySignificance: s.PeriodicitySignificance,

		LocalGlobalEntropyRatio: s.LocalGlobalEntropyRatio,
		Compressibility:         s.Compressibility,
		VarianceRatio:           s.VarianceRatio,
		StationarityPassed:      s.StationarityPassed,

		RandomnessPassed: s.RandomnessPassed,
		RandomnessPValue: s.RandomnessPValue,

		IntentionalityScore: s.IntentionalityScore,
	}
}

// ToContext converts the fixture's recorded trace to a replay context,
// keyed by the fingerprints persisted at export time.
func (f *Fixture) ToContext() *Context {
	ctx := &Context{
		InputFingerprint:  f.InputFingerprint,
		ConfigFingerprint: f.ConfigFingerprint,
	}
	for _, snap := range f.Snapshots {
		ctx.Snapshots = append(ctx.Snapshots, Snapshot{
			PassIndex: snap.PassIndex,
			Signals:   snap.Signals.ToSignals(),
			State:     stateFromName(snap.State),
		})
	}
	return ctx
}

func stateFromName(name string) perception.State {
	switch name {
	case "pattern":
		return perception.StatePattern
	case "structure":
		return perception.StateStructure
	case "proto_agency":
		return perception.StateProtoAgency
	}
	return perception.StateCarrier
}

// #endregion fixture-loader
