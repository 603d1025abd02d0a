package flow

import (
	"go-approvals/internal/features/template"
)

// EvaluationResult is the outcome of matching a flow's signatures against its
// officer lists. It carries partial progress; the flow's status never does.
type EvaluationResult struct {
	SatisfiedRequired   []template.OfficerSpec `json:"satisfied_required"`
	UnsatisfiedRequired []template.OfficerSpec `json:"unsatisfied_required"`
	SatisfiedOptional   []template.OfficerSpec `json:"satisfied_optional"`
	IsComplete          bool                   `json:"is_complete"`
}

// Evaluate decides whether every must-sign officer is satisfied.
// currentRoles maps each signer's user id to the role slug they hold right
// now ("" when none): role requirements track current organizational
// authority, not the role held at signing time. A role slug matching no role
// record simply never appears in currentRoles, leaving the requirement
// unsatisfiable until the role exists again. The function is pure: repeated
// calls on unchanged inputs yield identical results.
func Evaluate(f *ApprovalFlow, currentRoles map[string]string) EvaluationResult {
	result := EvaluationResult{
		SatisfiedRequired:   make([]template.OfficerSpec, 0, len(f.RequiredOfficers)),
		UnsatisfiedRequired: make([]template.OfficerSpec, 0),
		SatisfiedOptional:   make([]template.OfficerSpec, 0),
	}

	for _, spec := range f.RequiredOfficers {
		if officerSatisfied(spec, f.Signatures, currentRoles) {
			result.SatisfiedRequired = append(result.SatisfiedRequired, spec)
		} else {
			result.UnsatisfiedRequired = append(result.UnsatisfiedRequired, spec)
		}
	}

	// Can-sign officers never gate completion; they are reported for
	// visibility only.
	for _, spec := range f.OptionalOfficers {
		if officerSatisfied(spec, f.Signatures, currentRoles) {
			result.SatisfiedOptional = append(result.SatisfiedOptional, spec)
		}
	}

	result.IsComplete = len(result.UnsatisfiedRequired) == 0
	return result
}

// officerSatisfied counts a requirement satisfied once regardless of how many
// matching signers signed
func officerSatisfied(spec template.OfficerSpec, signatures []Signature, currentRoles map[string]string) bool {
	for _, sig := range signatures {
		switch spec.Kind {
		case template.OfficerKindPerson:
			if sig.UserID == spec.Reference {
				return true
			}
		case template.OfficerKindRole:
			if slug, ok := currentRoles[sig.UserID]; ok && slug != "" && slug == spec.Reference {
				return true
			}
		}
	}
	return false
}
