// Package classifier implements the Query Classifier (§4.4): a cheap,
// deterministic heuristic that assigns a query a complexity level in
// {1..5}, with an optional LLM-assisted override.
package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/opencouncil/orchestrator/core"
)

// imperativeVerbs are the signal words §4.4 calls out by name.
var imperativeVerbs = []string{
	"prove", "design", "implement", "compare", "build", "analyze",
	"evaluate", "optimize", "refactor", "architect", "derive", "justify",
}

var (
	codeFenceRe = regexp.MustCompile("```")
	mathSymbolRe = regexp.MustCompile(`[=<>≤≥≈∑∫√±÷×]`)
	refRequestRe = regexp.MustCompile(`(?i)\b(cite|citation|reference|source)s?\b`)
	enumeratedListRe = regexp.MustCompile(`(?m)^\s*(?:[0-9]+[.)]|[-*])\s+`)
)

// Result is the classifier's verdict for one query (§4.4, §6).
type Result struct {
	Level      int
	Rationale  string
	FromAssist bool
}

// Assist is the optional LLM-assist collaborator. A single short
// invocation returns a level and a confidence; Classify uses the result
// only when Confidence == "high" (§4.4, SPEC_FULL.md §4.4 ADD).
type Assist interface {
	Classify(ctx context.Context, query string) (AssistResult, error)
}

// AssistResult is what an Assist implementation reports back.
type AssistResult struct {
	Level      int
	Rationale  string
	Confidence string // "low" | "medium" | "high"
}

// Classify assigns a complexity level to query using the heuristic
// lookup table, then consults assist (if non-nil) for a possible
// override. Classify is pure and idempotent for a fixed (query, assist
// response) pair (§4.4's guarantee); assist failures never propagate,
// they just fall back to the heuristic result.
func Classify(ctx context.Context, query string, assist Assist) Result {
	heuristic := classifyHeuristic(query)

	if assist == nil {
		return heuristic
	}

	assisted, err := assist.Classify(ctx, query)
	if err != nil {
		return heuristic
	}
	if assisted.Confidence != "high" {
		return heuristic
	}
	if assisted.Level < 1 || assisted.Level > 5 {
		return heuristic
	}

	return Result{
		Level:      assisted.Level,
		Rationale:  assisted.Rationale,
		FromAssist: true,
	}
}

// classifyHeuristic computes the deterministic 0-4 raw score from the
// four signal buckets and clamps it to {1..5} (SPEC_FULL.md §4.4 ADD).
func classifyHeuristic(query string) Result {
	score := tokenCountScore(query) +
		imperativeVerbScore(query) +
		domainMarkerScore(query) +
		subQuestionScore(query)

	level := clampLevel(score)
	return Result{Level: level, Rationale: "heuristic"}
}

// tokenCountScore buckets by whitespace-token count: <20, 20-60, 60-150,
// 150-400, 400+ each contribute an increasing share of the 0-1 point.
func tokenCountScore(query string) float64 {
	n := len(strings.Fields(query))
	switch {
	case n < 20:
		return 0.0
	case n < 60:
		return 0.25
	case n < 150:
		return 0.5
	case n < 400:
		return 0.75
	default:
		return 1.0
	}
}

func imperativeVerbScore(query string) float64 {
	lower := strings.ToLower(query)
	for _, verb := range imperativeVerbs {
		if strings.Contains(lower, verb) {
			return 1.0
		}
	}
	return 0.0
}

func domainMarkerScore(query string) float64 {
	if codeFenceRe.MatchString(query) || mathSymbolRe.MatchString(query) || refRequestRe.MatchString(query) {
		return 1.0
	}
	return 0.0
}

// subQuestionScore counts '?' occurrences and enumerated list items;
// more than one of either signals a compound, multi-part query.
func subQuestionScore(query string) float64 {
	questionMarks := strings.Count(query, "?")
	listItems := len(enumeratedListRe.FindAllString(query, -1))

	count := questionMarks
	if listItems > count {
		count = listItems
	}

	switch {
	case count <= 1:
		return 0.0
	case count <= 3:
		return 0.5
	default:
		return 1.0
	}
}

// clampLevel maps a 0-4 raw sum onto the closed {1..5} level set.
func clampLevel(raw float64) int {
	level := int(raw) + 1
	if level < 1 {
		return 1
	}
	if level > 5 {
		return 5
	}
	return level
}

// AssistFromInvoker adapts an ai.Adapter-style invocation function into
// an Assist, letting the Facade wire the classifier's optional LLM pass
// through the same provider registry used for specialist calls without
// classifier importing ai (avoiding an import cycle back through core).
type AssistFromInvoker struct {
	Invoke func(ctx context.Context, query string) (AssistResult, error)
}

func (a AssistFromInvoker) Classify(ctx context.Context, query string) (AssistResult, error) {
	if a.Invoke == nil {
		return AssistResult{}, core.NewError("classifier.Assist", core.ErrKindInvalidResponse, nil)
	}
	return a.Invoke(ctx, query)
}
