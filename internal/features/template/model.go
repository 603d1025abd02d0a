package template

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfficerKind distinguishes a concrete identity from a role reference
type OfficerKind string

const (
	OfficerKindPerson OfficerKind = "person"
	OfficerKindRole   OfficerKind = "role"
)

// OfficerAction says whether an officer's signature is mandatory for
// completion or merely permitted
type OfficerAction string

const (
	ActionMustSign OfficerAction = "must_sign"
	ActionCanSign  OfficerAction = "can_sign"
)

// OfficerSpec is a declarative signing requirement. Reference is a user id
// when Kind is person and a role slug when Kind is role. Order is advisory
// display sequencing only; signing order is not enforced.
type OfficerSpec struct {
	Kind      OfficerKind   `bson:"kind" json:"kind"`
	Reference string        `bson:"reference" json:"reference"`
	Action    OfficerAction `bson:"action" json:"action"`
	Order     int           `bson:"order" json:"order"`
}

// Matches reports whether two specs name the same requirement
func (o OfficerSpec) Matches(other OfficerSpec) bool {
	return o.Kind == other.Kind && o.Reference == other.Reference
}

// ApprovalTemplate is a reusable officer configuration bound to one
// (objectType, objectSource) pair. At most one active template may exist per
// pair. Edits never affect flows already instantiated from it.
type ApprovalTemplate struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ObjectType   string             `bson:"object_type" json:"object_type"`
	ObjectSource string             `bson:"object_source" json:"object_source"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Officers     []OfficerSpec      `bson:"officers" json:"officers"`
	// GuardScript is an optional tengo script evaluated before a signature is
	// accepted. It sees `signer` and `object` and may set `allow = false`
	// and `reason`. Script failures are logged and fail open.
	GuardScript string    `bson:"guard_script,omitempty" json:"guard_script,omitempty"`
	Active      bool      `bson:"active" json:"active"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// PartitionOfficers deep-copies the officer list split by action
func PartitionOfficers(officers []OfficerSpec) (required, optional []OfficerSpec) {
	required = make([]OfficerSpec, 0)
	optional = make([]OfficerSpec, 0)
	for _, o := range officers {
		if o.Action == ActionCanSign {
			optional = append(optional, o)
		} else {
			required = append(required, o)
		}
	}
	return required, optional
}
