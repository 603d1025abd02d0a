package flow

import (
	"testing"
	"time"

	"go-approvals/internal/features/template"
)

func sigAt(userID, username string) Signature {
	return Signature{UserID: userID, Username: username, SignedAt: time.Now()}
}

func personMust(ref string) template.OfficerSpec {
	return template.OfficerSpec{Kind: template.OfficerKindPerson, Reference: ref, Action: template.ActionMustSign}
}

func roleMust(slug string) template.OfficerSpec {
	return template.OfficerSpec{Kind: template.OfficerKindRole, Reference: slug, Action: template.ActionMustSign}
}

func roleCan(slug string) template.OfficerSpec {
	return template.OfficerSpec{Kind: template.OfficerKindRole, Reference: slug, Action: template.ActionCanSign}
}

func TestEvaluateIncomplete(t *testing.T) {
	f := &ApprovalFlow{
		RequiredOfficers: []template.OfficerSpec{personMust("u1"), roleMust("accountant")},
		Signatures:       []Signature{sigAt("u1", "alice")},
		Status:           FlowStatusPending,
	}

	result := Evaluate(f, map[string]string{"u1": "manager"})

	if result.IsComplete {
		t.Fatal("flow with an unsatisfied role requirement must not be complete")
	}
	if len(result.SatisfiedRequired) != 1 || result.SatisfiedRequired[0].Reference != "u1" {
		t.Fatalf("expected person u1 satisfied, got %+v", result.SatisfiedRequired)
	}
	if len(result.UnsatisfiedRequired) != 1 || result.UnsatisfiedRequired[0].Reference != "accountant" {
		t.Fatalf("expected accountant unsatisfied, got %+v", result.UnsatisfiedRequired)
	}
}

func TestEvaluateComplete(t *testing.T) {
	f := &ApprovalFlow{
		RequiredOfficers: []template.OfficerSpec{personMust("u1"), roleMust("accountant")},
		Signatures:       []Signature{sigAt("u1", "alice"), sigAt("u2", "bob")},
		Status:           FlowStatusPending,
	}

	result := Evaluate(f, map[string]string{"u1": "manager", "u2": "accountant"})

	if !result.IsComplete {
		t.Fatalf("all required officers satisfied, expected complete; unsatisfied: %+v", result.UnsatisfiedRequired)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	f := &ApprovalFlow{
		RequiredOfficers: []template.OfficerSpec{roleMust("accountant")},
		Signatures:       []Signature{sigAt("u2", "bob")},
		Status:           FlowStatusPending,
	}
	roles := map[string]string{"u2": "accountant"}

	first := Evaluate(f, roles)
	second := Evaluate(f, roles)

	if first.IsComplete != second.IsComplete ||
		len(first.SatisfiedRequired) != len(second.SatisfiedRequired) ||
		len(first.UnsatisfiedRequired) != len(second.UnsatisfiedRequired) {
		t.Fatal("evaluation on unchanged inputs must be stable")
	}
}

// A signer who has lost the role since signing no longer satisfies a role
// requirement: evaluation tracks current authority.
func TestEvaluateRoleFreshness(t *testing.T) {
	f := &ApprovalFlow{
		RequiredOfficers: []template.OfficerSpec{roleMust("accountant")},
		Signatures:       []Signature{sigAt("u2", "bob")},
		Status:           FlowStatusPending,
	}

	if result := Evaluate(f, map[string]string{"u2": "accountant"}); !result.IsComplete {
		t.Fatal("signer holding the role must satisfy the requirement")
	}
	if result := Evaluate(f, map[string]string{"u2": ""}); result.IsComplete {
		t.Fatal("signer stripped of the role must no longer satisfy the requirement")
	}
	if result := Evaluate(f, map[string]string{"u2": "manager"}); result.IsComplete {
		t.Fatal("signer moved to a different role must no longer satisfy the requirement")
	}
}

func TestEvaluateMultipleMatchingSignersCountOnce(t *testing.T) {
	f := &ApprovalFlow{
		RequiredOfficers: []template.OfficerSpec{roleMust("accountant"), roleMust("manager")},
		Signatures:       []Signature{sigAt("u2", "bob"), sigAt("u3", "carol")},
		Status:           FlowStatusPending,
	}

	// Two accountants signed; the accountant requirement is satisfied once
	// and the manager requirement stays open.
	result := Evaluate(f, map[string]string{"u2": "accountant", "u3": "accountant"})

	if result.IsComplete {
		t.Fatal("second accountant signature must not satisfy the manager requirement")
	}
	if len(result.SatisfiedRequired) != 1 || result.SatisfiedRequired[0].Reference != "accountant" {
		t.Fatalf("expected only accountant satisfied, got %+v", result.SatisfiedRequired)
	}
}

// A role slug that matches no role record is permanently unsatisfiable, not
// an error and not vacuously satisfied.
func TestEvaluateUnknownRoleSlug(t *testing.T) {
	f := &ApprovalFlow{
		RequiredOfficers: []template.OfficerSpec{roleMust("comptroller")},
		Signatures:       []Signature{sigAt("u2", "bob"), sigAt("u3", "carol")},
		Status:           FlowStatusPending,
	}

	result := Evaluate(f, map[string]string{"u2": "accountant", "u3": "manager"})

	if result.IsComplete {
		t.Fatal("requirement naming a nonexistent role must stay unsatisfied")
	}
}

func TestEvaluateOptionalOfficersNeverGate(t *testing.T) {
	f := &ApprovalFlow{
		RequiredOfficers: []template.OfficerSpec{personMust("u1")},
		OptionalOfficers: []template.OfficerSpec{roleCan("auditor")},
		Signatures:       []Signature{sigAt("u1", "alice")},
		Status:           FlowStatusPending,
	}

	result := Evaluate(f, map[string]string{"u1": "manager"})

	if !result.IsComplete {
		t.Fatal("unsatisfied can-sign officers must not block completion")
	}
	if len(result.SatisfiedOptional) != 0 {
		t.Fatalf("auditor never signed, got %+v", result.SatisfiedOptional)
	}
}

func TestEvaluateNoRequiredOfficers(t *testing.T) {
	f := &ApprovalFlow{
		RequiredOfficers: []template.OfficerSpec{},
		OptionalOfficers: []template.OfficerSpec{roleCan("auditor")},
		Status:           FlowStatusPending,
	}

	if result := Evaluate(f, nil); !result.IsComplete {
		t.Fatal("flow with no must-sign officers is trivially complete")
	}
}
