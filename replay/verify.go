package replay

import (
	"fmt"

	"github.com/perceptlab/cortex/signals"
)

// #region mismatch

// MismatchError reports a reproducibility contract violation. It is raised
// only by verification, never during normal execution, and is always a hard
// failure. PassIndex is -1 when the fingerprints themselves disagree.
type MismatchError struct {
	PassIndex int
	Detail    string
}

func (e *MismatchError) Error() string {
	if e.PassIndex < 0 {
		return fmt.Sprintf("replay mismatch: %s", e.Detail)
	}
	return fmt.Sprintf("replay mismatch at pass %d: %s", e.PassIndex, e.Detail)
}

// #endregion mismatch

// #region verify

// Verify asserts that two traces of what should be the same (input, config)
// pair are bit-exact over their shared prefix. Signals are compared on the
// underlying float representation, never approximately. Length divergence
// beyond the shared prefix is permitted: the runs may have used different
// budget ceilings.
func Verify(a, b *Context) error {
	if a == nil || b == nil {
		return &MismatchError{PassIndex: -1, Detail: "nil replay context"}
	}
	if a.InputFingerprint != b.InputFingerprint {
		return &MismatchError{PassIndex: -1, Detail: "input fingerprints differ"}
	}
	if a.ConfigFingerprint != b.ConfigFingerprint {
		return &MismatchError{PassIndex: -1, Detail: "config fingerprints differ"}
	}

	shared := len(a.Snapshots)
	if len(b.Snapshots) < shared {
		shared = len(b.Snapshots)
	}

	for i := 0; i < shared; i++ {
		sa, sb := a.Snapshots[i], b.Snapshots[i]
		if sa.PassIndex != sb.PassIndex {
			return &MismatchError{
				PassIndex: sa.PassIndex,
				Detail:    fmt.Sprintf("pass index order differs (%d vs %d)", sa.PassIndex, sb.PassIndex),
			}
		}
		if sa.State != sb.State {
			return &MismatchError{
				PassIndex: sa.PassIndex,
				Detail:    fmt.Sprintf("perceptual state differs (%s vs %s)", sa.State, sb.State),
			}
		}
		if !signals.BitEqual(sa.Signals, sb.Signals) {
			return &MismatchError{
				PassIndex: sa.PassIndex,
				Detail:    "sensory signals differ bitwise",
			}
		}
	}
	return nil
}

// #endregion verify
