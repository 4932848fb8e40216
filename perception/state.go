package perception

// #region perceptual-state

// State is the perceptual abstraction level reached by a pass. It is a
// cognitive position, not a score: it tells the loop how far perception got.
type State int

const (
	// StateCarrier: basic signal statistics computed (level 0).
	StateCarrier State = iota
	// StatePattern: repetition/rhythm analysis completed (level 1).
	StatePattern
	// StateStructure: local-vs-global organization analysis completed (level 2).
	StateStructure
	// StateProtoAgency: the intentionality trigger condition fired (level 2.5).
	// This is a threshold crossing, not a classification.
	StateProtoAgency
)

// Level returns the numeric abstraction level for ordering checks.
func (s State) Level() float64 {
	switch s {
	case StateCarrier:
		return 0
	case StatePattern:
		return 1
	case StateStructure:
		return 2
	case StateProtoAgency:
		return 2.5
	}
	return 0
}

func (s State) String() string {
	switch s {
	case StateCarrier:
		return "carrier"
	case StatePattern:
		return "pattern"
	case StateStructure:
		return "structure"
	case StateProtoAgency:
		return "proto_agency"
	}
	return "unknown"
}

// #endregion perceptual-state

// #region trigger

// ProtoAgencyTrigger records which mathematical conditions fired.
// These are statistical tests, not interpretations of the input.
type ProtoAgencyTrigger struct {
	PredictabilityExceedsRandom bool // autocorrelation above the random band
	NonRandomnessConfirmed      bool // runs test rejects randomness
	TemporalCoherenceDetected   bool // local entropy below global entropy
}

// Count returns how many conditions fired.
func (t ProtoAgencyTrigger) Count() int {
	n := 0
	if t.PredictabilityExceedsRandom {
		n++
	}
	if t.NonRandomnessConfirmed {
		n++
	}
	if t.TemporalCoherenceDetected {
		n++
	}
	return n
}

// Fired reports whether the trigger condition holds. At least two of three
// conditions must fire, preventing a single statistical anomaly from
// transitioning the perceptual state.
func (t ProtoAgencyTrigger) Fired() bool {
	return t.Count() >= 2
}

// Score returns the continuous intentionality score in [0, 1].
func (t ProtoAgencyTrigger) Score() float64 {
	return float64(t.Count()) / 3.0
}

// #endregion trigger

// #region transitions

// Transition is one immutable step of the invocation's state sequence.
type Transition struct {
	From      State
	To        State
	PassIndex int    // 1-based pass that produced the To state
	Trigger   string // condition that caused the transition
}

// History is the append-only ordered sequence of transitions for one
// invocation. It is never reordered or mutated after append.
type History struct {
	transitions []Transition
}

// Append records a transition. Pass indices must be appended in order;
// History does not reorder.
func (h *History) Append(t Transition) {
	h.transitions = append(h.transitions, t)
}

// Transitions returns the recorded sequence. Callers must not mutate it.
func (h *History) Transitions() []Transition {
	return h.transitions
}

// Len returns the number of recorded transitions.
func (h *History) Len() int {
	return len(h.transitions)
}

// Current returns the latest state, or StateCarrier before any transition.
func (h *History) Current() State {
	if len(h.transitions) == 0 {
		return StateCarrier
	}
	return h.transitions[len(h.transitions)-1].To
}

// ProtoAgencyReached reports whether any transition entered StateProtoAgency.
func (h *History) ProtoAgencyReached() bool {
	for _, t := range h.transitions {
		if t.To == StateProtoAgency {
			return true
		}
	}
	return false
}

// #endregion transitions
