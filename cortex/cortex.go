// Package cortex implements a bounded, multi-pass perceptual refinement
// engine. One invocation derives layered mathematical features from a raw
// signal, refines them over several internal passes, and returns a single
// immutable output. The engine is a pure function of its inputs: nothing
// persists across invocations and no global state is read or written, so
// independent invocations can run concurrently without coordination.
package cortex

import (
	"fmt"
	"math"

	"github.com/perceptlab/cortex/budget"
	"github.com/perceptlab/cortex/extract"
	"github.com/perceptlab/cortex/perception"
	"github.com/perceptlab/cortex/replay"
	"github.com/perceptlab/cortex/signals"
)

// #region raw-input

// MinSamples is the smallest input the pipeline can process: one full
// structure-level window. Shorter inputs are rejected before any pass runs.
const MinSamples = 16

// RawInput is an immutable ordered sequence of samples plus optional
// metadata tags. Constructors copy; the engine never mutates it.
type RawInput struct {
	samples []float64
	tags    map[string]string
}

// FromSamples builds a RawInput from float samples.
func FromSamples(samples []float64) RawInput {
	cp := make([]float64, len(samples))
	copy(cp, samples)
	return RawInput{samples: cp}
}

// FromBytes builds a RawInput interpreting each byte as an unsigned value.
// The engine does not know what the bytes represent.
func FromBytes(data []byte) RawInput {
	samples := make([]float64, len(data))
	for i, b := range data {
		samples[i] = float64(b)
	}
	return RawInput{samples: samples}
}

// WithTag returns a copy carrying an additional metadata tag. Tags feed the
// input fingerprint but never the computation.
func (in RawInput) WithTag(key, value string) RawInput {
	tags := make(map[string]string, len(in.tags)+1)
	for k, v := range in.tags {
		tags[k] = v
	}
	tags[key] = value
	return RawInput{samples: in.samples, tags: tags}
}

// Len returns the sample count.
func (in RawInput) Len() int {
	return len(in.samples)
}

// Samples returns a copy of the sample sequence.
func (in RawInput) Samples() []float64 {
	cp := make([]float64, len(in.samples))
	copy(cp, in.samples)
	return cp
}

// Fingerprint returns the content fingerprint of samples and tags.
func (in RawInput) Fingerprint() string {
	return replay.FingerprintSamples(in.samples, in.tags)
}

func (in RawInput) validate() error {
	if len(in.samples) == 0 {
		return &InvalidInputError{Reason: "input is empty"}
	}
	if len(in.samples) < MinSamples {
		return &InvalidInputError{Reason: fmt.Sprintf("input has %d samples, need at least %d", len(in.samples), MinSamples)}
	}
	for _, v := range in.samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidInputError{Reason: "input contains non-finite sample"}
		}
	}
	return nil
}

// #endregion raw-input

// #region errors

// InvalidInputError reports an input that fails precondition checks.
// It is surfaced before any pass is attempted.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// #endregion errors

// #region cortex

// Cortex is the engine. It is stateless: the struct exists for ergonomics
// and all instances are interchangeable and safe for concurrent use.
type Cortex struct {
	extractor *extract.Extractor
}

// New creates a cortex engine.
func New() *Cortex {
	return &Cortex{extractor: extract.NewExtractor()}
}

// Perceive is the single-pass convenience entry point. It runs one
// extraction pass under a permissive budget. Inputs that cannot be
// processed yield an empty output rather than an error.
func (c *Cortex) Perceive(in RawInput) CortexOutput {
	out, err := c.PerceiveMature(in, SinglePass(), budget.Unlimited())
	if err != nil {
		return CortexOutput{}
	}
	return CortexOutput{
		Signals:    out.Signals,
		FinalState: out.FinalState,
		History:    out.History,
	}
}

// PerceiveMature runs the bounded maturation loop: repeated extraction
// passes over an evolving working buffer until convergence, budget
// exhaustion, a proto-agency terminal transition, or numeric instability.
// All intermediate state is discarded when the call returns.
func (c *Cortex) PerceiveMature(in RawInput, cfg MaturationConfig, bud budget.Budget) (MatureOutput, error) {
	if err := in.validate(); err != nil {
		return MatureOutput{}, err
	}
	return c.mature(in, cfg, bud, nil)
}

// PerceiveMatureTraced is PerceiveMature with opt-in replay capture. The
// returned context is read-only and is purely observational: recording
// never alters the computation.
func (c *Cortex) PerceiveMatureTraced(in RawInput, cfg MaturationConfig, bud budget.Budget) (MatureOutput, *replay.Context, error) {
	if err := in.validate(); err != nil {
		return MatureOutput{}, nil, err
	}
	rec := replay.NewRecorder(in.Fingerprint(), cfg.Fingerprint())
	out, err := c.mature(in, cfg, bud, rec)
	if err != nil {
		return MatureOutput{}, nil, err
	}
	return out, rec.Context(), nil
}

// #endregion cortex

// #region output-types

// CortexOutput is the single-pass result consumed by external collaborators.
type CortexOutput struct {
	Signals    signals.SensorySignals
	FinalState perception.State
	History    perception.History
}

// #endregion output-types
