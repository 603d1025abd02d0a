package template

import (
	"fmt"

	"github.com/d5/tengo/v2"
)

// GuardInput is what a guard script sees about the pending signature
type GuardInput struct {
	SignerID   string
	SignerName string
	SignerRole string
	Object     map[string]interface{}
}

// RunGuard executes a template's guard script against a pending signature.
// The script receives `signer` and `object` maps and may set `allow = false`
// plus an optional `reason`. A missing script allows; script errors are
// returned so the caller can log them and fail open.
func RunGuard(scriptSrc string, input GuardInput) (allowed bool, reason string, err error) {
	if scriptSrc == "" {
		return true, "", nil
	}

	script := tengo.NewScript([]byte(scriptSrc))

	signer := map[string]interface{}{
		"id":       input.SignerID,
		"username": input.SignerName,
		"role":     input.SignerRole,
	}
	object := input.Object
	if object == nil {
		object = map[string]interface{}{}
	}

	script.Add("signer", signer)
	script.Add("object", object)
	script.Add("allow", true)
	script.Add("reason", "")

	compiled, err := script.Compile()
	if err != nil {
		return true, "", fmt.Errorf("failed to compile guard script: %w", err)
	}

	if err := compiled.Run(); err != nil {
		return true, "", fmt.Errorf("failed to run guard script: %w", err)
	}

	allowed = true
	if v := compiled.Get("allow"); v != nil {
		allowed = v.Bool()
	}
	if v := compiled.Get("reason"); v != nil {
		reason = v.String()
	}
	return allowed, reason, nil
}
