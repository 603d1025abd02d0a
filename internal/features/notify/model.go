package notify

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotifyTarget is a registered completion-event subscriber. ObjectType
// narrows the subscription; an empty value receives every event.
type NotifyTarget struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	URL         string             `json:"url" bson:"url"`
	Secret      string             `json:"secret,omitempty" bson:"secret,omitempty"`
	ObjectType  string             `json:"object_type,omitempty" bson:"object_type,omitempty"`
	Headers     map[string]string  `json:"headers,omitempty" bson:"headers,omitempty"`
	IsActive    bool               `json:"is_active" bson:"is_active"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Delivery records one webhook attempt. Flows complete whether or not any
// delivery succeeds; this log is the recovery trail for the object side.
type Delivery struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TargetID   primitive.ObjectID `json:"target_id" bson:"target_id"`
	URL        string             `json:"url" bson:"url"`
	FlowID     string             `json:"flow_id" bson:"flow_id"`
	Outcome    string             `json:"outcome" bson:"outcome"`
	Attempt    int                `json:"attempt" bson:"attempt"`
	StatusCode int                `json:"status_code" bson:"status_code"`
	Response   string             `json:"response,omitempty" bson:"response,omitempty"`
	Success    bool               `json:"success" bson:"success"`
	Duration   int64              `json:"duration" bson:"duration"` // milliseconds
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}
