package models

import (
	"time"

	"gorm.io/datatypes"
)

// Risk levels, ordered LOW < MEDIUM < HIGH < CRITICAL.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

// Issue is one compliance problem detected in a document.
type Issue struct {
	Category       string `json:"category"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// Recommendation is one remediation step attached to a report.
type Recommendation struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Timeline string `json:"timeline"`
}

// ComplianceReport is one risk-scoring verdict for a document. Reports are
// never mutated after creation; re-analysis inserts a new row and the most
// recent row is authoritative for dashboards.
type ComplianceReport struct {
	ID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DocumentID string `gorm:"type:uuid;not null" json:"document_id"`
	UserID     string `json:"user_id"`

	// RiskLevel is one of LOW/MEDIUM/HIGH/CRITICAL.
	RiskLevel string `json:"risk_level"`

	// ComplianceScore is 0-100, higher is better. Note the deployment
	// assessment path uses the inverse convention (see DeploymentAssessment).
	ComplianceScore int `json:"compliance_score"`

	// IssuesDetected and Recommendations are JSONB arrays of Issue and
	// Recommendation respectively.
	IssuesDetected  datatypes.JSON `json:"issues_detected"`
	Recommendations datatypes.JSON `json:"recommendations"`

	AnalysisSummary string `json:"analysis_summary"`

	// ModelVersion records which model (or fallback policy) produced the verdict.
	ModelVersion string `json:"model_version"`

	CreatedAt time.Time `json:"created_at"`
}
