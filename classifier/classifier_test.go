package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClassifyHeuristicLevelsAreClamped(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"trivial", "hi"},
		{"long compound", strings.Repeat("word ", 500) + "? ? ? ?"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Classify(context.Background(), tc.query, nil)
			if r.Level < 1 || r.Level > 5 {
				t.Fatalf("level %d out of {1..5}", r.Level)
			}
		})
	}
}

func TestClassifyIsPureAndIdempotent(t *testing.T) {
	query := "Design and implement a rate limiter, then compare it against token buckets. Include code:\n```go\nfunc f() {}\n```"
	r1 := Classify(context.Background(), query, nil)
	r2 := Classify(context.Background(), query, nil)
	if r1 != r2 {
		t.Fatalf("classify not idempotent: %+v vs %+v", r1, r2)
	}
}

func TestClassifySimpleQueryLowLevel(t *testing.T) {
	r := Classify(context.Background(), "what time is it", nil)
	if r.Level > 2 {
		t.Fatalf("expected a low complexity level for a trivial query, got %d", r.Level)
	}
}

func TestClassifyComplexQueryHighLevel(t *testing.T) {
	query := strings.Repeat("requirement ", 200) +
		"design and implement this system, compare alternatives, and cite sources. " +
		"1. what about failure modes?\n2. what about scaling?\n3. what about cost?\n"
	r := Classify(context.Background(), query, nil)
	if r.Level < 4 {
		t.Fatalf("expected a high complexity level for a long compound query, got %d", r.Level)
	}
}

type stubAssist struct {
	result AssistResult
	err    error
}

func (s stubAssist) Classify(ctx context.Context, query string) (AssistResult, error) {
	return s.result, s.err
}

func TestClassifyAssistOverridesOnlyOnHighConfidence(t *testing.T) {
	query := "hi"
	heuristic := Classify(context.Background(), query, nil)

	lowConf := stubAssist{result: AssistResult{Level: 5, Confidence: "low"}}
	r := Classify(context.Background(), query, lowConf)
	if r.FromAssist || r.Level != heuristic.Level {
		t.Fatalf("low confidence assist must not override: got %+v", r)
	}

	mediumConf := stubAssist{result: AssistResult{Level: 5, Confidence: "medium"}}
	r = Classify(context.Background(), query, mediumConf)
	if r.FromAssist {
		t.Fatalf("medium confidence assist must not override: got %+v", r)
	}

	highConf := stubAssist{result: AssistResult{Level: 5, Confidence: "high", Rationale: "complex"}}
	r = Classify(context.Background(), query, highConf)
	if !r.FromAssist || r.Level != 5 {
		t.Fatalf("high confidence assist should override: got %+v", r)
	}
}

func TestClassifyAssistFailureFallsBackToHeuristic(t *testing.T) {
	query := "hi"
	heuristic := Classify(context.Background(), query, nil)

	failing := stubAssist{err: errors.New("boom")}
	r := Classify(context.Background(), query, failing)
	if r.FromAssist || r.Level != heuristic.Level {
		t.Fatalf("assist failure must fall back to heuristic: got %+v", r)
	}
}

func TestClassifyAssistOutOfRangeLevelFallsBack(t *testing.T) {
	query := "hi"
	heuristic := Classify(context.Background(), query, nil)

	badLevel := stubAssist{result: AssistResult{Level: 9, Confidence: "high"}}
	r := Classify(context.Background(), query, badLevel)
	if r.FromAssist || r.Level != heuristic.Level {
		t.Fatalf("out-of-range assist level must fall back: got %+v", r)
	}
}
