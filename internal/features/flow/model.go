package flow

import (
	"context"
	"time"

	"go-approvals/internal/features/template"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FlowStatus is the externally visible state of a flow. Pending is the only
// non-terminal status; partial progress is observable through evaluation
// results, never through status.
type FlowStatus string

const (
	FlowStatusPending  FlowStatus = "pending"
	FlowStatusApproved FlowStatus = "approved"
	FlowStatusRejected FlowStatus = "rejected"
)

// Signature records one signer's approval. Username is a snapshot taken at
// signing time so the record stays historically accurate if the user is later
// renamed or removed.
type Signature struct {
	UserID   string    `bson:"user_id" json:"user_id"`
	Username string    `bson:"username" json:"username"`
	SignedAt time.Time `bson:"signed_at" json:"signed_at"`
}

// ApprovalFlow is one live sign-off instance attached to exactly one business
// object. Officer lists are copied from the template at creation time, so
// later template edits do not retroactively change in-flight flows.
// Signatures are append-only in submission order. Version backs the
// optimistic guard on the terminal transition.
type ApprovalFlow struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ObjectType   string             `bson:"object_type" json:"object_type"`
	ObjectID     string             `bson:"object_id" json:"object_id"` // type-erased business object reference
	ObjectSource string             `bson:"object_source" json:"object_source"`
	TemplateID   string             `bson:"template_id" json:"template_id"`

	RequiredOfficers []template.OfficerSpec `bson:"required_officers" json:"required_officers"`
	OptionalOfficers []template.OfficerSpec `bson:"optional_officers" json:"optional_officers"`
	Signatures       []Signature            `bson:"signatures" json:"signatures"`

	Status       FlowStatus `bson:"status" json:"status"`
	Version      int64      `bson:"version" json:"version"`
	RejectedBy   string     `bson:"rejected_by,omitempty" json:"rejected_by,omitempty"`
	RejectReason string     `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// HasSigned reports whether the user already holds a signature on this flow
func (f *ApprovalFlow) HasSigned(userID string) bool {
	for _, sig := range f.Signatures {
		if sig.UserID == userID {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the flow has left Pending
func (f *ApprovalFlow) IsTerminal() bool {
	return f.Status != FlowStatusPending
}

// CompletionEvent is handed to the business-object owner when a flow reaches
// a terminal status. Delivery is best-effort; the flow's own transition is
// the source of truth.
type CompletionEvent struct {
	FlowID      string     `json:"flow_id"`
	ObjectType  string     `json:"object_type"`
	ObjectID    string     `json:"object_id"`
	Outcome     FlowStatus `json:"outcome"`
	CompletedAt time.Time  `json:"completed_at"`
}

// CompletionNotifier receives completion events. Implemented by the notify
// feature; declared here to keep the dependency pointing outward.
type CompletionNotifier interface {
	NotifyFlowCompleted(ctx context.Context, event CompletionEvent)
}

// RoleDirectory is the engine's view of the identity directory. RoleSlugOf
// returns "" when the user holds no role or does not exist.
type RoleDirectory interface {
	RoleSlugOf(ctx context.Context, userID string) (string, error)
}

// ObjectFetcher retrieves the raw business object for guard scripts and
// payload enrichment. A nil payload with nil error means the source is not
// registered or the object was not found; callers treat that as soft.
type ObjectFetcher interface {
	FetchObject(ctx context.Context, source, objectType, objectID string) (map[string]interface{}, error)
}
