package budget

import "time"

// #region guard

// Guard enforces one invocation's ceilings. It is single-owner state for a
// strictly sequential pass loop: every check is plain arithmetic with no
// locks, so acquisition can never block or deadlock. The remaining-pass
// counter is monotonically decreasing and never goes negative.
type Guard struct {
	budget    Budget
	remaining int
	start     time.Time
}

// NewGuard creates a guard and starts the invocation clock.
func NewGuard(b Budget) *Guard {
	return &Guard{
		budget:    b,
		remaining: b.MaxPasses,
		start:     time.Now(),
	}
}

// Remaining returns how many passes may still be granted.
func (g *Guard) Remaining() int {
	return g.remaining
}

// Elapsed returns wall time since the invocation started.
func (g *Guard) Elapsed() time.Duration {
	return time.Since(g.start)
}

// TryAcquirePass grants permission for one pass or reports which ceiling
// blocks it. Checks run in order: pass count, elapsed time, working set.
// The call is synchronous and returns immediately either way.
func (g *Guard) TryAcquirePass(workingSetBytes int) (Permit, error) {
	if g.remaining <= 0 {
		return Permit{}, &ExhaustedError{
			Ceiling:   CeilingPassCount,
			Requested: 1,
			Limit:     int64(g.budget.MaxPasses),
		}
	}
	if g.budget.MaxDuration > 0 {
		if elapsed := time.Since(g.start); elapsed >= g.budget.MaxDuration {
			return Permit{}, &ExhaustedError{
				Ceiling:   CeilingDuration,
				Requested: int64(elapsed),
				Limit:     int64(g.budget.MaxDuration),
			}
		}
	}
	if g.budget.MaxWorkingSet > 0 && workingSetBytes >= g.budget.MaxWorkingSet {
		return Permit{}, &ExhaustedError{
			Ceiling:   CeilingMemory,
			Requested: int64(workingSetBytes),
			Limit:     int64(g.budget.MaxWorkingSet),
		}
	}

	g.remaining--
	return Permit{
		guard:     g,
		PassIndex: g.budget.MaxPasses - g.remaining,
	}, nil
}

// #endregion guard

// #region permit

// Permit is a scoped permission for exactly one pass. Release is idempotent
// and must run whether the pass succeeds or fails.
type Permit struct {
	guard     *Guard
	PassIndex int // 1-based
	released  bool
}

// Release marks the permit consumed. The pass counter was already charged
// at acquisition, so releasing never refunds a pass.
func (p *Permit) Release() {
	if p.released || p.guard == nil {
		return
	}
	p.released = true
}

// #endregion permit
