package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditAction string

const (
	AuditActionFlowCreated  AuditAction = "FLOW_CREATED"
	AuditActionFlowSigned   AuditAction = "FLOW_SIGNED"
	AuditActionFlowApproved AuditAction = "FLOW_APPROVED"
	AuditActionFlowRejected AuditAction = "FLOW_REJECTED"
	AuditActionFlowRepaired AuditAction = "FLOW_REPAIRED"
	AuditActionFlowDrift    AuditAction = "FLOW_DRIFT"
	AuditActionTemplate     AuditAction = "TEMPLATE"
	AuditActionIdentity     AuditAction = "IDENTITY"
	AuditActionLogin        AuditAction = "LOGIN"
	AuditActionNotify       AuditAction = "NOTIFY"
	AuditActionSource       AuditAction = "SOURCE"
	AuditActionReport       AuditAction = "REPORT"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

// AuditLog is one append-only entry in the decision trail. Entries carry
// enough context (flow id, object reference, actor) to reconstruct a
// decision without re-querying other systems.
type AuditLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action     AuditAction        `bson:"action" json:"action"`
	ObjectType string             `bson:"object_type" json:"object_type"`
	ObjectID   string             `bson:"object_id" json:"object_id"`
	FlowID     string             `bson:"flow_id,omitempty" json:"flow_id,omitempty"`
	ActorID    string             `bson:"actor_id" json:"actor_id"`
	ActorName  string             `bson:"-" json:"actor_name,omitempty"` // Populated name of the actor
	Changes    map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// Log is the record shape written by the async zap DB writer
type Log struct {
	Message      string    `bson:"message" json:"message"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	IpAddress    string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	AppId        string    `bson:"app_id" json:"app_id"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
