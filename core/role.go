package core

// Role identifies one of the fixed perspectives the council invokes once per run.
type Role string

const (
	RoleArchitect    Role = "architect"
	RoleDataEngineer Role = "data_engineer"
	RoleResearcher   Role = "researcher"
	RoleRedTeamer    Role = "red_teamer"
	RoleOptimizer    Role = "optimizer"
	RoleSynthesizer  Role = "synthesizer"
	RoleJudge        Role = "judge"
)

// SpecialistRoles are the five roles run in parallel during Phase 1.
var SpecialistRoles = []Role{
	RoleArchitect,
	RoleDataEngineer,
	RoleResearcher,
	RoleRedTeamer,
	RoleOptimizer,
}

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleArchitect, RoleDataEngineer, RoleResearcher, RoleRedTeamer, RoleOptimizer, RoleSynthesizer, RoleJudge:
		return true
	default:
		return false
	}
}

// AbstractPhase is one of the five publicly projected pipeline stages.
type AbstractPhase string

const (
	PhaseUnderstand   AbstractPhase = "understand"
	PhaseResearch     AbstractPhase = "research"
	PhaseReasonRefine AbstractPhase = "reason_refine"
	PhaseCrosscheck   AbstractPhase = "crosscheck"
	PhaseSynthesize   AbstractPhase = "synthesize"
)

// AbstractPhases is the fixed ordered sequence of the five public phases.
var AbstractPhases = []AbstractPhase{
	PhaseUnderstand,
	PhaseResearch,
	PhaseReasonRefine,
	PhaseCrosscheck,
	PhaseSynthesize,
}

// roleToPhase is the fixed projection from Role to AbstractPhase (§3).
//
// architect -> understand, researcher -> research, {data_engineer, optimizer,
// red_teamer} -> reason_refine (coalesced into one visible phase, per the
// resolved Open Question in SPEC_FULL.md §4.6), synthesizer -> crosscheck,
// judge -> synthesize.
var roleToPhase = map[Role]AbstractPhase{
	RoleArchitect:    PhaseUnderstand,
	RoleResearcher:   PhaseResearch,
	RoleDataEngineer: PhaseReasonRefine,
	RoleOptimizer:    PhaseReasonRefine,
	RoleRedTeamer:    PhaseReasonRefine,
	RoleSynthesizer:  PhaseCrosscheck,
	RoleJudge:        PhaseSynthesize,
}

// PhaseForRole projects a Role onto its public AbstractPhase.
func PhaseForRole(r Role) (AbstractPhase, bool) {
	p, ok := roleToPhase[r]
	return p, ok
}

// StepIndexForPhase returns the fixed 0..4 ordering of an AbstractPhase.
func StepIndexForPhase(p AbstractPhase) int {
	for i, ap := range AbstractPhases {
		if ap == p {
			return i
		}
	}
	return -1
}
