package flow

import "errors"

// Failure taxonomy. Configuration errors need administrative action before a
// retry can succeed; conflict errors are caller logic errors or duplicate
// requests and are never retried automatically; ErrConflict is the transient
// concurrency case surfaced after bounded internal retries.
var (
	ErrTemplateNotFound = errors.New("no active approval template for this object type and source")
	ErrDuplicateFlow    = errors.New("an approval flow already exists for this object")
	ErrFlowNotFound     = errors.New("approval flow not found")
	ErrAlreadySigned    = errors.New("user has already signed this flow")
	ErrAlreadyTerminal  = errors.New("approval flow is already in a terminal status")
	ErrNotEligible      = errors.New("signature vetoed by the template guard")
	ErrConflict         = errors.New("concurrent update conflict, retry the request")
)
