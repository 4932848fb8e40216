package budget

import (
	"errors"
	"math"
	"testing"
	"time"
)

// #region budget-tests

func TestDefault_Ceilings(t *testing.T) {
	b := Default()
	if b.MaxPasses != 10_000 {
		t.Errorf("expected 10000 passes, got %d", b.MaxPasses)
	}
	if b.MaxDuration != 30*time.Second {
		t.Errorf("expected 30s ceiling, got %v", b.MaxDuration)
	}
	if b.MaxWorkingSet != 500*1024*1024 {
		t.Errorf("expected 500MB ceiling, got %d", b.MaxWorkingSet)
	}
}

func TestUnlimited_OnlyPassBound(t *testing.T) {
	b := Unlimited()
	if b.MaxPasses != math.MaxInt32 {
		t.Errorf("expected MaxInt32 passes, got %d", b.MaxPasses)
	}
	if b.MaxDuration != 0 || b.MaxWorkingSet != 0 {
		t.Error("unlimited budget should leave time and memory unchecked")
	}
}

func TestBuilders_CopySemantics(t *testing.T) {
	base := Default()
	modified := base.WithMaxPasses(3).WithMaxDuration(time.Second)
	if base.MaxPasses != 10_000 {
		t.Error("builder must not mutate the receiver")
	}
	if modified.MaxPasses != 3 || modified.MaxDuration != time.Second {
		t.Errorf("builder result wrong: %+v", modified)
	}
}

func TestEstimateWorkingSet(t *testing.T) {
	if got := EstimateWorkingSet(1000); got != 24000 {
		t.Errorf("expected 24000 bytes for 1000 samples, got %d", got)
	}
}

// #endregion budget-tests

// #region guard-tests

func TestGuard_PassCountMonotone(t *testing.T) {
	g := NewGuard(Unlimited().WithMaxPasses(3))

	for want := 1; want <= 3; want++ {
		permit, err := g.TryAcquirePass(0)
		if err != nil {
			t.Fatalf("pass %d: %v", want, err)
		}
		if permit.PassIndex != want {
			t.Errorf("expected pass index %d, got %d", want, permit.PassIndex)
		}
		permit.Release()
	}

	if g.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", g.Remaining())
	}

	_, err := g.TryAcquirePass(0)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if exhausted.Ceiling != CeilingPassCount {
		t.Errorf("expected pass_count ceiling, got %s", exhausted.Ceiling)
	}

	// Denial must not disturb the counter.
	if g.Remaining() != 0 {
		t.Errorf("denied acquisition changed remaining to %d", g.Remaining())
	}
}

func TestGuard_MemoryCeiling(t *testing.T) {
	g := NewGuard(Unlimited().WithMaxWorkingSet(1024))

	if _, err := g.TryAcquirePass(512); err != nil {
		t.Fatalf("under-limit working set denied: %v", err)
	}

	_, err := g.TryAcquirePass(2048)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if exhausted.Ceiling != CeilingMemory {
		t.Errorf("expected memory ceiling, got %s", exhausted.Ceiling)
	}
	if exhausted.Requested != 2048 || exhausted.Limit != 1024 {
		t.Errorf("expected requested/limit 2048/1024, got %d/%d", exhausted.Requested, exhausted.Limit)
	}
}

func TestGuard_DurationCeiling(t *testing.T) {
	g := NewGuard(Unlimited().WithMaxDuration(time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, err := g.TryAcquirePass(0)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if exhausted.Ceiling != CeilingDuration {
		t.Errorf("expected duration ceiling, got %s", exhausted.Ceiling)
	}
}

func TestGuard_ZeroMeansUnchecked(t *testing.T) {
	g := NewGuard(Budget{MaxPasses: 1})
	// Zero duration and memory ceilings must not deny anything.
	if _, err := g.TryAcquirePass(1 << 40); err != nil {
		t.Fatalf("unchecked ceilings denied a pass: %v", err)
	}
}

func TestPermit_ReleaseIdempotent(t *testing.T) {
	g := NewGuard(Default())
	permit, err := g.TryAcquirePass(0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	permit.Release()
	permit.Release()

	if g.Remaining() != Default().MaxPasses-1 {
		t.Errorf("double release must not change accounting, remaining %d", g.Remaining())
	}
}

func TestExhaustedError_Message(t *testing.T) {
	err := &ExhaustedError{Ceiling: CeilingPassCount, Requested: 1, Limit: 5}
	want := "budget exhausted: pass_count ceiling (requested 1, limit 5)"
	if err.Error() != want {
		t.Errorf("got %q", err.Error())
	}
}

// #endregion guard-tests
