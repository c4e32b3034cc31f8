package models

import (
	"time"

	"gorm.io/datatypes"
)

// DeploymentAssessment is the stored result of the deterministic deployment
// risk calculator. RiskScore is 0-100 where higher is WORSE, the inverse of
// ComplianceReport.ComplianceScore; the two scales are intentionally kept
// separate.
type DeploymentAssessment struct {
	ID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID string `json:"user_id"`

	ModelAccuracy float64 `json:"model_accuracy"`
	LatencyMs     float64 `json:"latency_ms"`
	ErrorRate     float64 `json:"error_rate"`
	Environment   string  `json:"environment"` // development | staging | production

	RiskScore   int            `json:"risk_score"`
	RiskLevel   string         `json:"risk_level"` // low | medium | high | critical
	Mitigations datatypes.JSON `json:"mitigations"`

	CreatedAt time.Time `json:"created_at"`
}
