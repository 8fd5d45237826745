package contextpack

import (
	"errors"
	"strings"
	"testing"

	"github.com/opencouncil/orchestrator/core"
)

var errFakeEncodingUnavailable = errors.New("fake: encoding table unavailable")

func TestBuildDerivesGoalFromQueryWhenMissing(t *testing.T) {
	b := NewBuilder()
	pack := b.Build("what is the capital of France?\nmore detail", core.ContextPackFragments{}, 1)
	if pack.Goal != "what is the capital of France?" {
		t.Fatalf("expected derived goal to be first line, got %q", pack.Goal)
	}
}

func TestBuildKeepsCallerSuppliedGoal(t *testing.T) {
	b := NewBuilder()
	pack := b.Build("irrelevant query", core.ContextPackFragments{Goal: "explicit goal"}, 1)
	if pack.Goal != "explicit goal" {
		t.Fatalf("expected caller goal to survive, got %q", pack.Goal)
	}
}

func TestBuildTruncatesInOrderWhenOverBudget(t *testing.T) {
	b := &Builder{TokenBudget: 5}
	fragments := core.ContextPackFragments{
		Goal:          "a tiny goal",
		OpenQuestions: []string{"oldest open question", "newer open question"},
		Glossary:      []string{"term one", "term two"},
		StyleRules:    []string{"rule one"},
	}
	pack := b.Build("query", fragments, 1)

	if len(pack.OpenQuestions) > 0 {
		t.Fatalf("expected open_questions to be fully truncated first, got %v", pack.OpenQuestions)
	}
	if len(pack.Glossary) > 0 {
		t.Fatalf("expected glossary truncated before style_rules survive under tight budget, got %v", pack.Glossary)
	}
}

func TestBuildWithinBudgetDoesNotTruncate(t *testing.T) {
	b := NewBuilder()
	fragments := core.ContextPackFragments{
		Goal:          "short goal",
		OpenQuestions: []string{"one question"},
		Glossary:      []string{"one term"},
		StyleRules:    []string{"one rule"},
	}
	pack := b.Build("query", fragments, 1)

	if len(pack.OpenQuestions) != 1 || len(pack.Glossary) != 1 || len(pack.StyleRules) != 1 {
		t.Fatalf("expected no truncation under the default budget, got %+v", pack)
	}
}

func TestBuildWidensBudgetForHigherComplexity(t *testing.T) {
	fragments := core.ContextPackFragments{
		Goal:          "a tiny goal",
		OpenQuestions: []string{"oldest open question", "newer open question"},
		Glossary:      []string{"term one", "term two"},
		StyleRules:    []string{"rule one"},
	}

	low := (&Builder{TokenBudget: 10}).Build("query", fragments, 1)
	high := (&Builder{TokenBudget: 10}).Build("query", fragments, 5)

	if len(high.OpenQuestions) < len(low.OpenQuestions) {
		t.Fatalf("expected level-5 budget to retain at least as much as level-1, got high=%v low=%v", high.OpenQuestions, low.OpenQuestions)
	}
	if len(high.Glossary) == 0 {
		t.Fatalf("expected the widened level-5 budget to keep glossary entries, got none")
	}
}

func TestScaleBudgetForComplexity(t *testing.T) {
	cases := []struct {
		level int
		want  int
	}{
		{1, 10}, {2, 10}, {3, 15}, {4, 20}, {5, 20},
	}
	for _, c := range cases {
		if got := scaleBudgetForComplexity(10, c.level); got != c.want {
			t.Fatalf("level %d: expected %d, got %d", c.level, c.want, got)
		}
	}
}

func TestEstimateTokensFallsBackToLengthHeuristic(t *testing.T) {
	b := &Builder{TokenBudget: DefaultTokenBudget}
	b.encOnce.Do(func() {}) // pretend the lazy init already ran and failed
	b.enc = nil
	b.encErr = errFakeEncodingUnavailable

	pack := core.ContextPack{Goal: strings.Repeat("x", 400)}
	got := b.estimateTokens(pack)
	want := len(serialize(pack)) / 4
	if got != want {
		t.Fatalf("expected len/4 fallback estimate %d, got %d", want, got)
	}
}
