// Package contextpack builds and shrinks the canonical ContextPack state
// block every phase is seeded with (§4.5).
package contextpack

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/opencouncil/orchestrator/core"
)

// DefaultTokenBudget is the approximate serialized-pack budget (§4.5).
const DefaultTokenBudget = 250

// Builder derives a core.ContextPack from caller fragments and enforces
// the token budget via ordered truncation.
type Builder struct {
	TokenBudget int

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
}

// NewBuilder returns a Builder using the default token budget.
func NewBuilder() *Builder {
	return &Builder{TokenBudget: DefaultTokenBudget}
}

// Build derives a ContextPack from query and fragments, deriving Goal
// from the raw query when the caller didn't supply one, then shrinks
// the result to fit the token budget (§4.5). complexityLevel is the
// Query Classifier's 1-5 verdict (§4.4); higher levels widen the
// effective budget so harder queries keep more glossary entries, open
// questions and style rules before truncation (locked decisions are
// never truncated).
func (b *Builder) Build(query string, fragments core.ContextPackFragments, complexityLevel int) core.ContextPack {
	pack := core.ContextPack{
		Goal:            fragments.Goal,
		LockedDecisions: append([]string(nil), fragments.LockedDecisions...),
		Glossary:        append([]string(nil), fragments.Glossary...),
		OpenQuestions:   append([]string(nil), fragments.OpenQuestions...),
		StyleRules:      append([]string(nil), fragments.StyleRules...),
	}
	if pack.Goal == "" {
		pack.Goal = deriveGoal(query)
	}
	if fragments.OutputContract != nil {
		pack.OutputContract = *fragments.OutputContract
	}
	if fragments.LexiconLock != nil {
		pack.LexiconLock = *fragments.LexiconLock
	}

	budget := b.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	budget = scaleBudgetForComplexity(budget, complexityLevel)

	for _, field := range core.TruncationOrder() {
		for b.estimateTokens(pack) > budget && truncateOldest(&pack, field) {
		}
	}

	return pack
}

// deriveGoal takes the raw query as a fallback Goal, trimmed to a
// single line so it reads as a short objective rather than the whole
// prompt verbatim.
func deriveGoal(query string) string {
	line := strings.TrimSpace(query)
	if idx := strings.IndexAny(line, "\n"); idx >= 0 {
		line = line[:idx]
	}
	const maxLen = 200
	if len(line) > maxLen {
		line = line[:maxLen]
	}
	return line
}

// scaleBudgetForComplexity widens budget for higher classifier levels:
// levels 1-2 keep the baseline budget, level 3 gets 1.5x, and levels 4-5
// get 2x, giving harder queries more room before truncation kicks in.
func scaleBudgetForComplexity(budget, complexityLevel int) int {
	switch {
	case complexityLevel >= 4:
		return budget * 2
	case complexityLevel == 3:
		return budget + budget/2
	default:
		return budget
	}
}

// truncateOldest drops the oldest entry of the named field from pack.
// Returns false once the field is empty, signalling the caller to move
// to the next field in truncation order.
func truncateOldest(pack *core.ContextPack, field string) bool {
	switch field {
	case "open_questions":
		if len(pack.OpenQuestions) == 0 {
			return false
		}
		pack.OpenQuestions = pack.OpenQuestions[1:]
		return true
	case "glossary":
		if len(pack.Glossary) == 0 {
			return false
		}
		pack.Glossary = pack.Glossary[1:]
		return true
	case "style_rules":
		if len(pack.StyleRules) == 0 {
			return false
		}
		pack.StyleRules = pack.StyleRules[1:]
		return true
	default:
		return false
	}
}

// estimateTokens measures the serialized pack's token-equivalent length
// using cl100k_base, falling back to a len/4 heuristic if the encoding
// table can't be loaded (§4.5 ADD).
func (b *Builder) estimateTokens(pack core.ContextPack) int {
	serialized := serialize(pack)

	b.encOnce.Do(func() {
		b.enc, b.encErr = tiktoken.GetEncoding("cl100k_base")
	})
	if b.encErr != nil || b.enc == nil {
		return len(serialized) / 4
	}
	return len(b.enc.Encode(serialized, nil, nil))
}

func serialize(pack core.ContextPack) string {
	var sb strings.Builder
	sb.WriteString(pack.Goal)
	for _, s := range pack.LockedDecisions {
		sb.WriteString(s)
	}
	for _, s := range pack.Glossary {
		sb.WriteString(s)
	}
	for _, s := range pack.OpenQuestions {
		sb.WriteString(s)
	}
	for _, s := range pack.StyleRules {
		sb.WriteString(s)
	}
	for _, s := range pack.OutputContract.RequiredHeadings {
		sb.WriteString(s)
	}
	sb.WriteString(pack.OutputContract.Format)
	for _, s := range pack.LexiconLock.AllowedTerms {
		sb.WriteString(s)
	}
	for _, s := range pack.LexiconLock.ForbiddenTerms {
		sb.WriteString(s)
	}
	return sb.String()
}
