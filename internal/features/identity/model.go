package identity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is one entry in the role directory. Officer specs reference roles by
// slug; the slug is derived from the name at creation time and stays stable
// across renames of the display name.
type Role struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	IsSystem    bool               `bson:"is_system" json:"is_system"` // Prevent deletion of system roles
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// User holds at most one role reference at a time
type User struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Username  string              `bson:"username" json:"username"`
	Password  string              `bson:"password" json:"-"`
	Email     string              `bson:"email" json:"email"`
	Status    string              `bson:"status" json:"status"` // active, inactive, suspended
	RoleID    *primitive.ObjectID `bson:"role_id,omitempty" json:"role_id,omitempty"`
	LastLogin *time.Time          `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}
