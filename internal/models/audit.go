// internal/models/audit.go
package models

import "time"

// AuditEntry is one append-only record of a state-changing admin action.
type AuditEntry struct {
	ID           string                 `json:"id"`
	ActorID      string                 `json:"actorId"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	Details      map[string]interface{} `json:"details,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}
