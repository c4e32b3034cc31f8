package services

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"

	model "github.com/Raghav-C/CompliVault/models"
)

// Deployment target environments.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Scoring thresholds for the deployment risk calculator.
const (
	accuracyFloor    = 0.85
	latencyCeilingMs = 500.0
	errorRateCeiling = 0.02
	latencyCapPoints = 30
)

// DeploymentInput holds the four metrics the deployment risk calculator
// scores.
type DeploymentInput struct {
	ModelAccuracy float64 `json:"model_accuracy"`
	LatencyMs     float64 `json:"latency_ms"`
	ErrorRate     float64 `json:"error_rate"`
	Environment   string  `json:"environment"`
}

// DeploymentVerdict is the calculator's output. RiskScore is 0-100 where
// HIGHER IS WORSE — the inverse of the document compliance score, which
// rates higher as better. The two scales are deliberately kept apart.
type DeploymentVerdict struct {
	RiskScore   int      `json:"risk_score"`
	RiskLevel   string   `json:"risk_level"`
	Mitigations []string `json:"mitigations"`
}

// AssessDeploymentRisk scores a model deployment from its accuracy, latency,
// error rate and target environment. Fully deterministic, no I/O.
func AssessDeploymentRisk(in DeploymentInput) DeploymentVerdict {
	score := 0
	mitigations := []string{}

	if in.ModelAccuracy < accuracyFloor {
		score += int(math.Round((accuracyFloor - in.ModelAccuracy) * 100))
		mitigations = append(mitigations,
			fmt.Sprintf("Model accuracy %.2f is below the %.2f floor; retrain or tune before deploying.", in.ModelAccuracy, accuracyFloor))
	}

	if in.LatencyMs > latencyCeilingMs {
		points := int(math.Round((in.LatencyMs - latencyCeilingMs) / 10))
		if points > latencyCapPoints {
			points = latencyCapPoints
		}
		score += points
		mitigations = append(mitigations,
			fmt.Sprintf("Latency %.0fms exceeds the %.0fms target; profile the serving path or add capacity.", in.LatencyMs, latencyCeilingMs))
	}

	if in.ErrorRate > errorRateCeiling {
		score += int(math.Round(in.ErrorRate * 1000))
		mitigations = append(mitigations,
			fmt.Sprintf("Error rate %.3f exceeds the %.2f threshold; investigate failing requests before rollout.", in.ErrorRate, errorRateCeiling))
	}

	if in.Environment == EnvProduction {
		score = int(math.Round(float64(score) * 1.5))
		mitigations = append(mitigations,
			"Production target: use a canary rollout with automated rollback.",
			"Production target: ensure on-call alerting covers model error rates and latency.")
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return DeploymentVerdict{
		RiskScore:   score,
		RiskLevel:   deploymentRiskLevel(score),
		Mitigations: mitigations,
	}
}

// CreateDeploymentAssessment validates the input, runs the calculator and
// persists the verdict.
func (s *DocumentService) CreateDeploymentAssessment(in DeploymentInput, userID string) (*model.DeploymentAssessment, error) {
	switch in.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// ok
	default:
		return nil, fmt.Errorf("unknown environment %q; expected development, staging or production", in.Environment)
	}
	if in.ModelAccuracy < 0 || in.ModelAccuracy > 1 {
		return nil, fmt.Errorf("model_accuracy must be between 0 and 1")
	}
	if in.ErrorRate < 0 || in.ErrorRate > 1 {
		return nil, fmt.Errorf("error_rate must be between 0 and 1")
	}
	if in.LatencyMs < 0 {
		return nil, fmt.Errorf("latency_ms must not be negative")
	}

	verdict := AssessDeploymentRisk(in)

	mitigationsJSON, err := json.Marshal(verdict.Mitigations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mitigations: %w", err)
	}

	assessment := model.DeploymentAssessment{
		UserID:        userID,
		ModelAccuracy: in.ModelAccuracy,
		LatencyMs:     in.LatencyMs,
		ErrorRate:     in.ErrorRate,
		Environment:   in.Environment,
		RiskScore:     verdict.RiskScore,
		RiskLevel:     verdict.RiskLevel,
		Mitigations:   datatypes.JSON(mitigationsJSON),
		CreatedAt:     time.Now(),
	}
	if err := s.db.Create(&assessment).Error; err != nil {
		return nil, fmt.Errorf("failed to save deployment assessment: %w", err)
	}
	return &assessment, nil
}

// GetAllDeploymentAssessments returns stored assessments, newest first.
func (s *DocumentService) GetAllDeploymentAssessments() ([]model.DeploymentAssessment, error) {
	var assessments []model.DeploymentAssessment
	if err := s.db.Order("created_at DESC").Find(&assessments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch deployment assessments: %w", err)
	}
	return assessments, nil
}

func deploymentRiskLevel(score int) string {
	switch {
	case score < 25:
		return "low"
	case score < 50:
		return "medium"
	case score < 75:
		return "high"
	default:
		return "critical"
	}
}
