package cortex

import "github.com/perceptlab/cortex/replay"

// #region maturation-config

// MaturationConfig controls loop behavior for one invocation. It is
// value-copied into the call and never mutated by the engine.
type MaturationConfig struct {
	// MaxPasses is the loop's own pass ceiling, enforced alongside the
	// budget's pass counter. The lower of the two wins.
	MaxPasses int

	// MinPasses is the smallest number of passes before the convergence
	// delta check applies. A refinement fixpoint still converges earlier.
	MinPasses int

	// ConvergenceEpsilon is the feature-vector distance below which two
	// consecutive passes count as converged.
	ConvergenceEpsilon float64

	// EnableProtoAgency permits the terminal proto-agency transition.
	EnableProtoAgency bool
}

// DefaultMaturation is the general-purpose configuration.
func DefaultMaturation() MaturationConfig {
	return MaturationConfig{
		MaxPasses:          5,
		MinPasses:          2,
		ConvergenceEpsilon: 0.01,
		EnableProtoAgency:  false,
	}
}

// SinglePass runs exactly one extraction pass.
func SinglePass() MaturationConfig {
	cfg := DefaultMaturation()
	cfg.MaxPasses = 1
	cfg.MinPasses = 1
	return cfg
}

// Deep allows many refinement passes with a tight convergence bar, for
// offline analysis where latency does not matter.
func Deep() MaturationConfig {
	return MaturationConfig{
		MaxPasses:          50,
		MinPasses:          3,
		ConvergenceEpsilon: 0.0001,
		EnableProtoAgency:  true,
	}
}

// WithMaxPasses returns a copy with the pass ceiling replaced.
func (c MaturationConfig) WithMaxPasses(n int) MaturationConfig {
	c.MaxPasses = n
	return c
}

// WithConvergenceEpsilon returns a copy with the convergence bar replaced.
func (c MaturationConfig) WithConvergenceEpsilon(eps float64) MaturationConfig {
	c.ConvergenceEpsilon = eps
	return c
}

// WithProtoAgency returns a copy with the terminal transition toggled.
func (c MaturationConfig) WithProtoAgency(enabled bool) MaturationConfig {
	c.EnableProtoAgency = enabled
	return c
}

// Fingerprint returns the configuration fingerprint used to pair replay
// traces. Budget limits are deliberately excluded: traces taken under
// different budgets must share a fingerprint so their common prefix can
// be compared.
func (c MaturationConfig) Fingerprint() string {
	return replay.FingerprintConfig(c.MaxPasses, c.MinPasses, c.ConvergenceEpsilon, c.EnableProtoAgency)
}

// #endregion maturation-config
