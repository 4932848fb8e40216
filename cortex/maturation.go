package cortex

import (
	"errors"
	"fmt"

	"github.com/perceptlab/cortex/budget"
	"github.com/perceptlab/cortex/extract"
	"github.com/perceptlab/cortex/perception"
	"github.com/perceptlab/cortex/replay"
	"github.com/perceptlab/cortex/signals"
)

// #region stop-reason

// StopReason explains why the maturation loop stopped.
type StopReason string

const (
	// StopConverged means consecutive passes agreed within epsilon, or the
	// working buffer reached a refinement fixpoint.
	StopConverged StopReason = "converged"

	// StopBudgetExhausted means a computational ceiling denied the next
	// pass. This is a normal outcome, not an error.
	StopBudgetExhausted StopReason = "budget_exhausted"

	// StopNumericInstability means a pass produced non-finite values; the
	// loop stopped and the last good pass's results were kept.
	StopNumericInstability StopReason = "numeric_instability"

	// StopProtoAgency means the proto-agency threshold fired a terminal
	// state transition.
	StopProtoAgency StopReason = "proto_agency"
)

// #endregion stop-reason

// #region mature-output

// MatureOutput is the immutable result of one maturation invocation.
// Signals and FinalState always reflect the last fully completed pass.
type MatureOutput struct {
	Signals    signals.SensorySignals
	FinalState perception.State
	History    perception.History

	PassesRun  int
	StopReason StopReason
	Converged  bool

	// FinalDelta is the feature-vector distance between the last two
	// completed passes. It stays at 1 when only one pass ran and is 0 on
	// a refinement fixpoint.
	FinalDelta float64

	// Ceiling names the exhausted limit when StopReason is
	// StopBudgetExhausted.
	Ceiling budget.Ceiling

	// InstabilityLevel and InstabilityPass locate the failure when
	// StopReason is StopNumericInstability.
	InstabilityLevel perception.State
	InstabilityPass  int
}

// #endregion mature-output

// #region loop

func (c *Cortex) mature(in RawInput, cfg MaturationConfig, bud budget.Budget, rec *replay.Recorder) (MatureOutput, error) {
	guard := budget.NewGuard(bud)
	buffer := in.Samples()
	opts := extract.Options{EnableProtoAgency: cfg.EnableProtoAgency}

	out := MatureOutput{FinalDelta: 1}
	var prev *signals.SensorySignals
	prevState := perception.StateCarrier

	for {
		if out.PassesRun >= cfg.MaxPasses {
			out.StopReason = StopBudgetExhausted
			out.Ceiling = budget.CeilingPassCount
			return out, nil
		}
		permit, err := guard.TryAcquirePass(budget.EstimateWorkingSet(len(buffer)))
		if err != nil {
			var exhausted *budget.ExhaustedError
			if !errors.As(err, &exhausted) {
				return MatureOutput{}, err
			}
			out.StopReason = StopBudgetExhausted
			out.Ceiling = exhausted.Ceiling
			return out, nil
		}

		res, err := c.extractor.Extract(buffer, opts)
		permit.Release()
		if err != nil {
			var inst *extract.InstabilityError
			if !errors.As(err, &inst) {
				return MatureOutput{}, err
			}
			if out.PassesRun == 0 {
				// No good checkpoint exists to fall back to.
				return MatureOutput{}, fmt.Errorf("pass 1 unstable: %w", inst)
			}
			out.StopReason = StopNumericInstability
			out.InstabilityLevel = inst.Level
			out.InstabilityPass = permit.PassIndex
			return out, nil
		}

		out.PassesRun = permit.PassIndex
		out.Signals = res.Signals
		out.FinalState = res.State
		if res.State != prevState {
			out.History.Append(perception.Transition{
				From:      prevState,
				To:        res.State,
				PassIndex: permit.PassIndex,
				Trigger:   transitionTrigger(res),
			})
		}
		rec.Record(permit.PassIndex, res.Signals, res.State)

		if cfg.EnableProtoAgency && res.Trigger.Fired() {
			out.StopReason = StopProtoAgency
			return out, nil
		}

		if prev != nil {
			out.FinalDelta = signals.Distance(res.Signals, *prev)
			if out.PassesRun >= cfg.MinPasses && out.FinalDelta <= cfg.ConvergenceEpsilon {
				out.StopReason = StopConverged
				out.Converged = true
				return out, nil
			}
		}

		next := refine(buffer, res.Signals)
		if buffersBitEqual(next, buffer) {
			out.StopReason = StopConverged
			out.Converged = true
			out.FinalDelta = 0
			return out, nil
		}
		buffer = next
		sig := res.Signals
		prev = &sig
		prevState = res.State
	}
}

func transitionTrigger(res extract.Result) string {
	if res.State == perception.StateProtoAgency {
		return fmt.Sprintf("proto-agency conditions met (%d of 3)", res.Trigger.Count())
	}
	return "analysis levels completed"
}

// #endregion loop
