package perception

import "testing"

// #region state-tests

func TestState_LevelOrdering(t *testing.T) {
	order := []State{StateCarrier, StatePattern, StateStructure, StateProtoAgency}
	for i := 1; i < len(order); i++ {
		if order[i].Level() <= order[i-1].Level() {
			t.Errorf("%s level %.1f should exceed %s level %.1f",
				order[i], order[i].Level(), order[i-1], order[i-1].Level())
		}
	}
}

func TestState_ProtoAgencyIsHalfStep(t *testing.T) {
	if StateProtoAgency.Level() != 2.5 {
		t.Errorf("proto-agency level should be 2.5, got %.1f", StateProtoAgency.Level())
	}
}

// #endregion state-tests

// #region trigger-tests

func TestTrigger_RequiresTwoConditions(t *testing.T) {
	one := ProtoAgencyTrigger{PredictabilityExceedsRandom: true}
	if one.Fired() {
		t.Error("one condition must not fire the trigger")
	}
	two := ProtoAgencyTrigger{PredictabilityExceedsRandom: true, NonRandomnessConfirmed: true}
	if !two.Fired() {
		t.Error("two conditions must fire the trigger")
	}
}

func TestTrigger_Score(t *testing.T) {
	all := ProtoAgencyTrigger{true, true, true}
	if all.Score() != 1.0 {
		t.Errorf("all conditions should score 1.0, got %f", all.Score())
	}
	none := ProtoAgencyTrigger{}
	if none.Score() != 0 {
		t.Errorf("no conditions should score 0, got %f", none.Score())
	}
}

// #endregion trigger-tests

// #region history-tests

func TestHistory_CurrentDefaultsToCarrier(t *testing.T) {
	var h History
	if h.Current() != StateCarrier {
		t.Errorf("empty history should report carrier, got %s", h.Current())
	}
}

func TestHistory_AppendOrder(t *testing.T) {
	var h History
	h.Append(Transition{From: StateCarrier, To: StateStructure, PassIndex: 1})
	h.Append(Transition{From: StateStructure, To: StateProtoAgency, PassIndex: 2})

	if h.Len() != 2 {
		t.Fatalf("expected 2 transitions, got %d", h.Len())
	}
	if h.Current() != StateProtoAgency {
		t.Errorf("current should be proto_agency, got %s", h.Current())
	}
	if !h.ProtoAgencyReached() {
		t.Error("proto-agency should be reported as reached")
	}

	trs := h.Transitions()
	if trs[0].PassIndex != 1 || trs[1].PassIndex != 2 {
		t.Error("transitions must keep append order")
	}
}

// #endregion history-tests
