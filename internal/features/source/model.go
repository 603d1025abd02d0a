package source

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TableMapping tells the connector where one object type lives in the
// external database.
type TableMapping struct {
	ObjectType string `json:"object_type" bson:"object_type"`
	Table      string `json:"table" bson:"table"`
	IDColumn   string `json:"id_column" bson:"id_column"`
}

// ObjectSource is a registered external ERP database. Name is the key that
// templates and flows carry as objectSource.
type ObjectSource struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	DBType   string             `json:"db_type" bson:"db_type"` // "postgresql" or "mysql"
	Host     string             `json:"host" bson:"host"`
	Port     int                `json:"port" bson:"port"`
	Database string             `json:"database" bson:"database"`
	Username string             `json:"username" bson:"username"`
	Password string             `json:"password,omitempty" bson:"password,omitempty"`
	SSLMode  string             `json:"ssl_mode,omitempty" bson:"ssl_mode,omitempty"`
	Mappings []TableMapping     `json:"mappings" bson:"mappings"`
	IsActive bool               `json:"is_active" bson:"is_active"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// MappingFor returns the table mapping for an object type, nil when the
// source does not expose it.
func (s *ObjectSource) MappingFor(objectType string) *TableMapping {
	for i := range s.Mappings {
		if s.Mappings[i].ObjectType == objectType {
			return &s.Mappings[i]
		}
	}
	return nil
}
