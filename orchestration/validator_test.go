package orchestration

import (
	"testing"

	"github.com/opencouncil/orchestrator/core"
)

func TestValidateGateAFlagsUnsolicitedGreeting(t *testing.T) {
	score := Validator{}.Validate("what is the plan", "Hello! Here is the plan.\n# Plan\n1. do it\n", core.ContextPack{})
	found := false
	for _, g := range score.Gates {
		if g.Gate == core.GatePersona && !g.Pass {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected gate A to fail on unsolicited greeting, got %+v", score.Gates)
	}
}

func TestValidateGateBFlagsForbiddenTerm(t *testing.T) {
	lexicon := core.LexiconLock{ForbiddenTerms: []string{"banned"}}
	pack := core.ContextPack{LexiconLock: lexicon}
	score := Validator{}.Validate("q", "# Heading\n1. this mentions banned content\n", pack)

	found := false
	for _, g := range score.Gates {
		if g.Gate == core.GateLexicon && !g.Pass {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected gate B to fail on forbidden term, got %+v", score.Gates)
	}
}

func TestValidateGateCRequiresHeadingsAndFileCount(t *testing.T) {
	contract := core.OutputContract{RequiredHeadings: []string{"Summary"}, FileCount: 1}
	pack := core.ContextPack{OutputContract: contract}
	score := Validator{}.Validate("q", "# Intro\n1. step one\n", pack)

	var gateC core.GateOutcome
	for _, g := range score.Gates {
		if g.Gate == core.GateOutputContract {
			gateC = g
		}
	}
	if gateC.Pass {
		t.Fatalf("expected gate C to fail when required heading and file count are missing")
	}
	if len(gateC.Violations) < 2 {
		t.Fatalf("expected violations for both missing heading and file count, got %v", gateC.Violations)
	}
}

func TestValidateGateDRequiresHeadingAndStep(t *testing.T) {
	score := Validator{}.Validate("q", "just plain prose with no structure", core.ContextPack{})
	for _, g := range score.Gates {
		if g.Gate == core.GateCompleteness && g.Pass {
			t.Fatalf("expected gate D to fail on unstructured output")
		}
	}
}

func TestValidateGateEActivatesOnGoalKeyword(t *testing.T) {
	pack := core.ContextPack{Goal: "plan the incident response"}
	score := Validator{}.Validate("q", "# Response\n1. step\nno mention of required terms here", pack)

	var gateE core.GateOutcome
	for _, g := range score.Gates {
		if g.Gate == core.GateDomainCompleteness {
			gateE = g
		}
	}
	if gateE.Pass {
		t.Fatalf("expected gate E to fail when incident-required terms are absent")
	}
}

func TestValidateWellFormedArtefactPassesAllGates(t *testing.T) {
	artefact := "# Summary\nThis covers severity, escalation and role assignment.\n1. first step\n2. second step\n"
	pack := core.ContextPack{
		Goal:           "resolve the incident",
		OutputContract: core.OutputContract{RequiredHeadings: []string{"Summary"}},
	}
	score := Validator{}.Validate("how do we respond", artefact, pack)

	for _, g := range score.Gates {
		if !g.Pass {
			t.Fatalf("expected all gates to pass, gate %s failed with %v", g.Gate, g.Violations)
		}
	}
	if !score.GatePassed {
		t.Fatalf("expected GatePassed true for a well-formed artefact, got score %+v", score)
	}
}

func TestWeightedOverallUsesFixedWeights(t *testing.T) {
	got := core.WeightedOverall(10, 10, 10, 10)
	if got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	got = core.WeightedOverall(0, 0, 0, 0)
	if got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestEvaluateGatePassRequiresThresholdAndGates(t *testing.T) {
	dims := map[core.Dimension]float64{
		core.DimensionSubstance:    8,
		core.DimensionCompleteness: 8,
		core.DimensionDepth:        8,
		core.DimensionAccuracy:     8,
	}
	passingGates := []core.GateOutcome{{Gate: core.GatePersona, Pass: true}, {Gate: core.GateLexicon, Pass: true}, {Gate: core.GateOutputContract, Pass: true}}
	if !core.EvaluateGatePass(8, dims, passingGates) {
		t.Fatal("expected pass with overall 8 and all gates passing")
	}

	failingGates := []core.GateOutcome{{Gate: core.GatePersona, Pass: false}}
	if core.EvaluateGatePass(8, dims, failingGates) {
		t.Fatal("expected failure when gate A fails regardless of overall score")
	}

	lowDims := map[core.Dimension]float64{
		core.DimensionSubstance:    4,
		core.DimensionCompleteness: 10,
		core.DimensionDepth:        10,
		core.DimensionAccuracy:     10,
	}
	if core.EvaluateGatePass(9, lowDims, passingGates) {
		t.Fatal("expected failure when any individual dimension is below 5")
	}
}
