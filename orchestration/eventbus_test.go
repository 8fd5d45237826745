package orchestration

import (
	"testing"

	"github.com/opencouncil/orchestrator/core"
)

func TestBusNeverDropsMustDeliverEvents(t *testing.T) {
	var kinds []EventKind
	bus := NewBus(func(ev Event) { kinds = append(kinds, ev.Kind) })

	bus.PhaseStart(core.PhaseUnderstand, 0, nil)
	bus.PhaseDelta(core.PhaseUnderstand, "partial", nil)
	bus.PhaseEnd(core.PhaseUnderstand, 10, 0, "")
	bus.FinalAnswerStart()
	bus.FinalAnswerDelta("text")
	bus.FinalAnswerEnd("high")
	bus.Error(core.ErrKindTimeout, "boom", core.PhaseUnderstand)

	want := []EventKind{EventPhaseStart, EventPhaseDelta, EventPhaseEnd, EventFinalAnswerStart, EventFinalAnswerDelta, EventFinalAnswerEnd, EventError}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(kinds), kinds)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Fatalf("event %d: expected %s, got %s", i, k, kinds[i])
		}
	}
}

func TestNewBusToleratesNilEmit(t *testing.T) {
	bus := NewBus(nil)
	bus.PhaseStart(core.PhaseUnderstand, 0, nil) // must not panic
}
