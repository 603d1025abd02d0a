package template

import (
	"testing"
)

func TestRunGuardEmptyScriptAllows(t *testing.T) {
	allowed, reason, err := RunGuard("", GuardInput{SignerID: "u1"})
	if err != nil || !allowed || reason != "" {
		t.Fatalf("empty script must allow, got allowed=%v reason=%q err=%v", allowed, reason, err)
	}
}

func TestRunGuardVetoWithReason(t *testing.T) {
	script := `
if signer.role != "accountant" {
	allow = false
	reason = "accountants only"
}
`
	allowed, reason, err := RunGuard(script, GuardInput{SignerID: "u1", SignerRole: "manager"})
	if err != nil {
		t.Fatalf("RunGuard: %v", err)
	}
	if allowed {
		t.Fatal("expected veto for non-accountant")
	}
	if reason != "accountants only" {
		t.Fatalf("wrong reason: %q", reason)
	}

	allowed, _, err = RunGuard(script, GuardInput{SignerID: "u2", SignerRole: "accountant"})
	if err != nil || !allowed {
		t.Fatalf("accountant must pass, got allowed=%v err=%v", allowed, err)
	}
}

func TestRunGuardReadsObject(t *testing.T) {
	script := `
if object.amount > 1000 {
	allow = false
	reason = "amount requires senior sign-off"
}
`
	allowed, _, err := RunGuard(script, GuardInput{
		SignerID: "u1",
		Object:   map[string]interface{}{"amount": int64(5000)},
	})
	if err != nil {
		t.Fatalf("RunGuard: %v", err)
	}
	if allowed {
		t.Fatal("expected veto for large amount")
	}

	allowed, _, err = RunGuard(script, GuardInput{
		SignerID: "u1",
		Object:   map[string]interface{}{"amount": int64(100)},
	})
	if err != nil || !allowed {
		t.Fatalf("small amount must pass, got allowed=%v err=%v", allowed, err)
	}
}

func TestRunGuardCompileErrorReported(t *testing.T) {
	allowed, _, err := RunGuard("not a ( valid script", GuardInput{SignerID: "u1"})
	if err == nil {
		t.Fatal("expected compile error")
	}
	// Broken scripts report the error but leave the decision open
	if !allowed {
		t.Fatal("compile failure must not veto on its own")
	}
}
