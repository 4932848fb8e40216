package budget

import (
	"fmt"
	"math"
	"time"
)

// #region ceiling

// Ceiling identifies which budget limit was hit.
type Ceiling string

const (
	CeilingPassCount Ceiling = "pass_count"
	CeilingDuration  Ceiling = "duration"
	CeilingMemory    Ceiling = "memory"
)

// #endregion ceiling

// #region budget

// Budget holds the immutable ceilings for one invocation. It does not track
// remaining capacity; that is the Guard's job. Limits are computational
// facts (memory exhaustion, termination, fairness), never judgments about
// the input's meaning.
type Budget struct {
	// MaxPasses bounds the refinement pass count. This is the sole hard
	// termination guarantee: the pass counter reaching zero forces a stop
	// no matter what the convergence heuristics do.
	MaxPasses int

	// MaxDuration bounds wall-clock time for the whole invocation, checked
	// at pass boundaries only. Zero means unlimited.
	MaxDuration time.Duration

	// MaxWorkingSet bounds the estimated working-set size in bytes.
	// Zero means unlimited.
	MaxWorkingSet int
}

// Default returns the standard ceilings: generous enough for any reasonable
// input, finite enough to guarantee termination.
func Default() Budget {
	return Budget{
		MaxPasses:     10_000,
		MaxDuration:   30 * time.Second,
		MaxWorkingSet: 500 * 1024 * 1024,
	}
}

// Unlimited lifts every ceiling except pass count, which stays finite so the
// termination guarantee survives. Use for tests or trusted callers.
func Unlimited() Budget {
	return Budget{MaxPasses: math.MaxInt32}
}

// Minimal returns tight ceilings for resource-constrained environments.
func Minimal() Budget {
	return Budget{
		MaxPasses:     100,
		MaxDuration:   time.Second,
		MaxWorkingSet: 10 * 1024 * 1024,
	}
}

// WithMaxPasses returns a copy with the pass ceiling replaced.
func (b Budget) WithMaxPasses(n int) Budget {
	if n < 1 {
		n = 1
	}
	b.MaxPasses = n
	return b
}

// WithMaxDuration returns a copy with the duration ceiling replaced.
func (b Budget) WithMaxDuration(d time.Duration) Budget {
	b.MaxDuration = d
	return b
}

// WithMaxWorkingSet returns a copy with the memory ceiling replaced.
func (b Budget) WithMaxWorkingSet(bytes int) Budget {
	b.MaxWorkingSet = bytes
	return b
}

// EstimateWorkingSet estimates the bytes a pass over sampleCount samples
// touches: the float64 buffer plus a 3x overhead for intermediate slices.
func EstimateWorkingSet(sampleCount int) int {
	return sampleCount * 8 * 3
}

// #endregion budget

// #region exhausted-error

// ExhaustedError signals that a ceiling was hit. The maturation loop maps it
// to a normal stop reason; exhaustion is a designed-for outcome, not a fault.
type ExhaustedError struct {
	Ceiling   Ceiling
	Requested int64
	Limit     int64
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("budget exhausted: %s ceiling (requested %d, limit %d)", e.Ceiling, e.Requested, e.Limit)
}

// #endregion exhausted-error
