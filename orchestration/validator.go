package orchestration

import (
	"regexp"
	"strings"

	"github.com/opencouncil/orchestrator/core"
)

// domainKeywordRequirements is Gate E's data table: goal keyword -> required
// mention terms (SPEC_FULL.md §4.8 ADD), kept as data rather than
// hardcoded branching. It is fixed at build time; RunInput has no field
// that adds to it.
var domainKeywordRequirements = map[string][]string{
	"incident":  {"severity", "escalation", "role"},
	"migration": {"rollback", "downtime"},
	"api":       {"versioning", "error handling"},
	"endpoint":  {"versioning", "error handling"},
}

var (
	greetingRe       = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|greetings|dear)\b`)
	headingRe        = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	enumeratedStepRe = regexp.MustCompile(`(?m)^\s*(?:[0-9]+[.)]|[-*])\s+`)
	codeBlockRe      = regexp.MustCompile("(?s)```.*?```")
)

// Validator applies Gates A-E to a candidate final artefact and computes
// the weighted QualityScore (§4.8).
type Validator struct{}

// Validate runs all five gates against artefact and returns the resulting
// QualityScore, including per-gate violations.
func (Validator) Validate(query, artefact string, pack core.ContextPack) core.QualityScore {
	gateA := evaluateGateA(query, artefact)
	gateB := evaluateGateB(artefact, pack.LexiconLock)
	gateC := evaluateGateC(artefact, pack.OutputContract)
	gateD := evaluateGateD(artefact)
	gateE := evaluateGateE(artefact, pack.Goal)

	gates := []core.GateOutcome{gateA, gateB, gateC, gateD, gateE}

	var violations []string
	for _, g := range gates {
		violations = append(violations, g.Violations...)
	}

	substance := dimensionScore(gateD.Pass, gateE.Pass)
	completeness := dimensionScore(gateC.Pass, gateD.Pass)
	depth := dimensionScore(gateD.Pass, gateE.Pass)
	accuracy := dimensionScore(gateA.Pass, gateB.Pass)

	overall := core.WeightedOverall(substance, completeness, depth, accuracy)
	dims := map[core.Dimension]float64{
		core.DimensionSubstance:    substance,
		core.DimensionCompleteness: completeness,
		core.DimensionDepth:        depth,
		core.DimensionAccuracy:     accuracy,
	}

	return core.QualityScore{
		Substance:    substance,
		Completeness: completeness,
		Depth:        depth,
		Accuracy:     accuracy,
		Overall:      overall,
		GatePassed:   core.EvaluateGatePass(overall, dims, gates),
		Gates:        gates,
		Violations:   violations,
	}
}

// dimensionScore is a simple two-factor blend: both true scores 10, one
// true scores 6.5, neither scores 3 — deterministic and monotonic in the
// number of contributing gates passed (P8).
func dimensionScore(a, b bool) float64 {
	switch {
	case a && b:
		return 10
	case a || b:
		return 6.5
	default:
		return 3
	}
}

func evaluateGateA(query, artefact string) core.GateOutcome {
	queryHasGreeting := greetingRe.MatchString(query)
	outputHasGreeting := greetingRe.MatchString(artefact)

	if !queryHasGreeting && outputHasGreeting {
		return core.GateOutcome{Gate: core.GatePersona, Pass: false, Violations: []string{"persona:unsolicited_greeting"}}
	}
	return core.GateOutcome{Gate: core.GatePersona, Pass: true}
}

func evaluateGateB(artefact string, lexicon core.LexiconLock) core.GateOutcome {
	lower := strings.ToLower(artefact)
	var violations []string

	for _, term := range lexicon.ForbiddenTerms {
		if term == "" {
			continue
		}
		if wordBoundaryContains(lower, strings.ToLower(term)) {
			violations = append(violations, "lexicon:forbidden:"+term)
		}
	}
	for _, term := range lexicon.AllowedTerms {
		if term == "" {
			continue
		}
		if !wordBoundaryContains(lower, strings.ToLower(term)) {
			violations = append(violations, "lexicon:missing_allowed:"+term)
		}
	}

	return core.GateOutcome{Gate: core.GateLexicon, Pass: len(violations) == 0, Violations: violations}
}

func wordBoundaryContains(haystack, term string) bool {
	pattern := `\b` + regexp.QuoteMeta(term) + `\b`
	matched, _ := regexp.MatchString(pattern, haystack)
	return matched
}

func evaluateGateC(artefact string, contract core.OutputContract) core.GateOutcome {
	var violations []string
	headings := extractHeadings(artefact)

	for _, required := range contract.RequiredHeadings {
		if !containsFold(headings, required) {
			violations = append(violations, "output_contract:missing_heading:"+required)
		}
	}

	if contract.FileCount > 0 {
		count := len(codeBlockRe.FindAllString(artefact, -1))
		if count != contract.FileCount {
			violations = append(violations, "output_contract:file_count_mismatch")
		}
	}

	return core.GateOutcome{Gate: core.GateOutputContract, Pass: len(violations) == 0, Violations: violations}
}

func evaluateGateD(artefact string) core.GateOutcome {
	var violations []string

	headings := headingRe.FindAllStringSubmatch(artefact, -1)
	if len(headings) == 0 {
		violations = append(violations, "completeness:no_heading")
	}
	if len(enumeratedStepRe.FindAllString(artefact, -1)) == 0 {
		violations = append(violations, "completeness:no_enumerated_step")
	}
	if hasAdjacentDuplicateSections(headings) {
		violations = append(violations, "completeness:adjacent_duplicate_sections")
	}

	return core.GateOutcome{Gate: core.GateCompleteness, Pass: len(violations) == 0, Violations: violations}
}

func hasAdjacentDuplicateSections(headings [][]string) bool {
	for i := 1; i < len(headings); i++ {
		if strings.EqualFold(strings.TrimSpace(headings[i][1]), strings.TrimSpace(headings[i-1][1])) {
			return true
		}
	}
	return false
}

func evaluateGateE(artefact, goal string) core.GateOutcome {
	lower := strings.ToLower(artefact)
	goalLower := strings.ToLower(goal)

	var violations []string
	for keyword, required := range domainKeywordRequirements {
		if !strings.Contains(goalLower, keyword) {
			continue
		}
		for _, term := range required {
			if !wordBoundaryContains(lower, term) {
				violations = append(violations, "domain_completeness:"+keyword+":missing:"+term)
			}
		}
	}

	return core.GateOutcome{Gate: core.GateDomainCompleteness, Pass: len(violations) == 0, Violations: violations}
}

func extractHeadings(artefact string) []string {
	matches := headingRe.FindAllStringSubmatch(artefact, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
