package replay

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"github.com/perceptlab/cortex/perception"
	"github.com/perceptlab/cortex/signals"
)

// #region types

// Snapshot is one fully-computed pass as captured for auditing. Snapshots
// are recorded only at pass boundaries, so no torn state is representable.
type Snapshot struct {
	PassIndex int
	Signals   signals.SensorySignals
	State     perception.State
}

// Context is the ordered, content-addressed trace of one invocation. It is
// owned by the invocation while recording and read-only once the invocation
// completes; it never feeds back into computation.
type Context struct {
	InputFingerprint  string
	ConfigFingerprint string
	Snapshots         []Snapshot
}

// #endregion types

// #region recorder

// Recorder appends snapshots during a single invocation. Capture is opt-in:
// a nil *Recorder is a valid no-op sink.
type Recorder struct {
	ctx Context
}

// NewRecorder creates a recorder bound to the invocation's input and config
// fingerprints, computed once at invocation start.
func NewRecorder(inputFingerprint, configFingerprint string) *Recorder {
	return &Recorder{ctx: Context{
		InputFingerprint:  inputFingerprint,
		ConfigFingerprint: configFingerprint,
	}}
}

// Record appends one pass's snapshot. No-op on a nil recorder.
func (r *Recorder) Record(passIndex int, sig signals.SensorySignals, state perception.State) {
	if r == nil {
		return
	}
	r.ctx.Snapshots = append(r.ctx.Snapshots, Snapshot{
		PassIndex: passIndex,
		Signals:   sig,
		State:     state,
	})
}

// Context returns the captured trace. Callers must treat it as read-only.
func (r *Recorder) Context() *Context {
	if r == nil {
		return nil
	}
	return &r.ctx
}

// #endregion recorder

// #region fingerprints

// FingerprintSamples derives the content fingerprint of a raw input: the
// exact bit pattern of every sample plus the metadata tags in sorted order.
func FingerprintSamples(samples []float64, tags map[string]string) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(samples)))
	h.Write(buf[:])
	for _, v := range samples {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(tags[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FingerprintConfig derives the fingerprint of a maturation configuration.
// The budget is deliberately excluded: traces under different budgets share
// fingerprints and may diverge only beyond their shared prefix.
func FingerprintConfig(maxPasses, minPasses int, convergenceEpsilon float64, enableProtoAgency bool) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(maxPasses))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(minPasses))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(convergenceEpsilon))
	h.Write(buf[:])
	if enableProtoAgency {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion fingerprints
