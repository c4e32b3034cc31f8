package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification records one fan-out attempt to an outbound sink (slack, teams
// or email). Delivery failures are logged and recorded here, never propagated
// back into the scoring pipeline.
type Notification struct {
	ID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DocumentID string `gorm:"type:uuid" json:"document_id"`

	Channel string         `json:"channel"` // slack | teams | email
	Payload datatypes.JSON `json:"payload"`
	Status  string         `json:"status"` // sent | failed
	Error   string         `json:"error"`

	CreatedAt time.Time `json:"created_at"`
}
