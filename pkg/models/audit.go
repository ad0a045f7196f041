package models

import "time"

// AuditEntry represents an audit log entry
type AuditEntry struct {
	ID        string                 `bson:"_id,omitempty" json:"id,omitempty"`
	Service   string                 `bson:"service" json:"service"`
	Action    string                 `bson:"action" json:"action"`
	EntityID  string                 `bson:"entity_id" json:"entity_id"`
	Data      map[string]interface{} `bson:"data" json:"data"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
}
