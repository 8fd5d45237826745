package core

// OutputContract describes the shape the final synthesized answer must take.
type OutputContract struct {
	RequiredHeadings []string
	FileCount        int
	Format           string
}

// LexiconLock pins the vocabulary Gate B checks the final artefact against
// (§4.8).
type LexiconLock struct {
	AllowedTerms   []string
	ForbiddenTerms []string
}

// ContextPack is the canonical, size-bounded state block every phase's
// prompts are built from. Builder truncation order when the token budget is
// exceeded is open_questions, then glossary, then style_rules (§4.4).
type ContextPack struct {
	Goal            string
	LockedDecisions []string
	Glossary        []string
	OpenQuestions   []string
	OutputContract  OutputContract
	StyleRules      []string
	LexiconLock     LexiconLock
}

// truncationOrder is the fixed field drop order applied by the Context Pack
// Builder when a pack exceeds its token budget (§4.4).
var truncationOrder = []string{"open_questions", "glossary", "style_rules"}

// TruncationOrder returns the fixed field drop order.
func TruncationOrder() []string {
	out := make([]string, len(truncationOrder))
	copy(out, truncationOrder)
	return out
}
