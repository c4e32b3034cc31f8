package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	model "github.com/Raghav-C/CompliVault/models"
)

// Distinct user-facing error kinds for scoring call failures. Either way the
// caller still gets a storable fallback report; these only shape the message
// shown to the user.
var (
	ErrScoringRateLimited    = errors.New("compliance analysis is rate limited; try again later")
	ErrScoringQuotaExhausted = errors.New("compliance analysis credits exhausted; contact support")
	ErrScoringCallFailed     = errors.New("compliance analysis call failed")
	ErrScoringUnparsable     = errors.New("compliance analysis response could not be parsed")
)

// maxPromptChars bounds the text prefix sent to the LLM. Truncation exists to
// respect request-size limits, not for correctness: anything past the prefix
// is not analyzed.
const maxPromptChars = 12000

// Fallback policy: a hard call failure got no response at all, a parse
// failure at least got one back, so the two synthesize different scores.
const (
	fallbackScoreCallFailure  = 50
	fallbackScoreParseFailure = 75
	fallbackModelVersion      = "fallback-policy/v1"
)

// ScoredReport is the scoring engine's verdict before persistence.
type ScoredReport struct {
	RiskLevel       string                 `json:"risk_level"`
	ComplianceScore int                    `json:"compliance_score"`
	IssuesDetected  []model.Issue          `json:"issues_detected"`
	Recommendations []model.Recommendation `json:"recommendations"`
	AnalysisSummary string                 `json:"analysis_summary"`
	ModelVersion    string                 `json:"model_version"`
}

// RiskScorer produces a compliance verdict from normalized text.
type RiskScorer interface {
	ScoreDocument(text string) (ScoredReport, error)
}

// ScoringEngine calls an OpenAI-compatible chat-completions API and parses
// the structured response. The external call is treated as an untrusted
// black box: any shape mismatch is a parse failure, never propagated into
// the report unchecked.
type ScoringEngine struct {
	endpoint   string
	apiKey     string
	modelName  string
	httpClient *http.Client
}

func NewScoringEngine(endpoint, apiKey, modelName string) *ScoringEngine {
	return &ScoringEngine{
		endpoint:  endpoint,
		apiKey:    apiKey,
		modelName: modelName,
		// LLM calls can hang for minutes under load; cap them.
		httpClient: &http.Client{Timeout: 45 * time.Second},
	}
}

// ScoreDocument sends a bounded prefix of the document text to the LLM and
// parses the verdict. On any failure it returns a deterministic fallback
// report together with the error kind, so the document is never left
// unscored. The call is a single attempt: retries are operator-triggered
// re-invocations of the whole pipeline.
func (e *ScoringEngine) ScoreDocument(text string) (ScoredReport, error) {
	if len(text) > maxPromptChars {
		// Back off to a rune boundary so the cut never splits a UTF-8 sequence.
		cut := maxPromptChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		log.Printf("[ScoreDocument] truncating document text from %d to %d bytes", len(text), cut)
		text = text[:cut]
	}

	prompt := fmt.Sprintf(`Analyze the following document for regulatory compliance risk.

Document Text:
%s

Instructions:
1. Classify the overall risk as one of LOW, MEDIUM, HIGH or CRITICAL.
2. Rate compliance from 0 to 100, where higher means more compliant.
3. List each detected issue with category, severity (LOW/MEDIUM/HIGH/CRITICAL), description and recommendation.
4. List remediation recommendations with priority (HIGH/MEDIUM/LOW), action and timeline.
5. Provide a short summary of the analysis.

Response Format:
{
    "risk_level": "LOW|MEDIUM|HIGH|CRITICAL",
    "compliance_score": 0-100,
    "issues_detected": [{"category": "...", "severity": "...", "description": "...", "recommendation": "..."}],
    "recommendations": [{"priority": "...", "action": "...", "timeline": "..."}],
    "analysis_summary": "..."
}`, text)

	reqBody, err := json.Marshal(map[string]interface{}{
		"messages": []map[string]string{
			{"role": "system", "content": "You are a compliance analyst reviewing documents for regulatory risk."},
			{"role": "user", "content": prompt},
		},
		"model":       e.modelName,
		"temperature": 0.2,
		"max_tokens":  1024,
		"response_format": map[string]string{
			"type": "json_object",
		},
	})
	if err != nil {
		log.Printf("[ScoreDocument] ERROR creating request body: %v", err)
		return fallbackReport(fallbackScoreCallFailure), fmt.Errorf("%w: %v", ErrScoringCallFailed, err)
	}

	req, err := http.NewRequest("POST", e.endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		log.Printf("[ScoreDocument] ERROR creating request: %v", err)
		return fallbackReport(fallbackScoreCallFailure), fmt.Errorf("%w: %v", ErrScoringCallFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		log.Printf("[ScoreDocument] ERROR sending request: %v", err)
		return fallbackReport(fallbackScoreCallFailure), fmt.Errorf("%w: %v", ErrScoringCallFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to parsing
	case http.StatusTooManyRequests:
		log.Printf("[ScoreDocument] rate limited by scoring API: %s", resp.Status)
		return fallbackReport(fallbackScoreCallFailure), ErrScoringRateLimited
	case http.StatusPaymentRequired:
		log.Printf("[ScoreDocument] scoring API quota exhausted: %s", resp.Status)
		return fallbackReport(fallbackScoreCallFailure), ErrScoringQuotaExhausted
	default:
		log.Printf("[ScoreDocument] non-200 status code: %d", resp.StatusCode)
		return fallbackReport(fallbackScoreCallFailure), fmt.Errorf("%w: status %d", ErrScoringCallFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[ScoreDocument] ERROR reading response: %v", err)
		return fallbackReport(fallbackScoreCallFailure), fmt.Errorf("%w: %v", ErrScoringCallFailed, err)
	}

	report, err := parseScoringResponse(body, e.modelName)
	if err != nil {
		log.Printf("[ScoreDocument] ERROR parsing response: %v", err)
		return fallbackReport(fallbackScoreParseFailure), fmt.Errorf("%w: %v", ErrScoringUnparsable, err)
	}
	return report, nil
}

// llmReportPayload is the strict schema the LLM content must match.
type llmReportPayload struct {
	RiskLevel       string                 `json:"risk_level"`
	ComplianceScore *int                   `json:"compliance_score"`
	IssuesDetected  []model.Issue          `json:"issues_detected"`
	Recommendations []model.Recommendation `json:"recommendations"`
	AnalysisSummary string                 `json:"analysis_summary"`
}

func parseScoringResponse(body []byte, modelName string) (ScoredReport, error) {
	var envelope struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ScoredReport{}, fmt.Errorf("invalid response envelope: %v", err)
	}
	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		return ScoredReport{}, fmt.Errorf("response contains no choices")
	}

	var payload llmReportPayload
	if err := json.Unmarshal([]byte(envelope.Choices[0].Message.Content), &payload); err != nil {
		return ScoredReport{}, fmt.Errorf("invalid report content: %v", err)
	}

	level := strings.ToUpper(strings.TrimSpace(payload.RiskLevel))
	switch level {
	case model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical:
		// ok
	default:
		return ScoredReport{}, fmt.Errorf("unknown risk level %q", payload.RiskLevel)
	}

	if payload.ComplianceScore == nil {
		return ScoredReport{}, fmt.Errorf("missing compliance_score")
	}
	score := *payload.ComplianceScore
	if score < 0 || score > 100 {
		return ScoredReport{}, fmt.Errorf("compliance_score %d out of range", score)
	}

	// A level inconsistent with the score band is tolerated and stored as
	// returned; only range violations are treated as parse failures.
	report := ScoredReport{
		RiskLevel:       level,
		ComplianceScore: score,
		IssuesDetected:  payload.IssuesDetected,
		Recommendations: payload.Recommendations,
		AnalysisSummary: payload.AnalysisSummary,
		ModelVersion:    modelName,
	}
	if report.IssuesDetected == nil {
		report.IssuesDetected = []model.Issue{}
	}
	if report.Recommendations == nil {
		report.Recommendations = []model.Recommendation{}
	}
	return report, nil
}

// fallbackReport synthesizes the deterministic degraded verdict used when the
// scoring call fails or its response cannot be parsed. It is a valid,
// storable report, never an exception that aborts the pipeline.
func fallbackReport(score int) ScoredReport {
	timeline := "within 2 business days"
	if score == fallbackScoreParseFailure {
		timeline = "within 5 business days"
	}
	return ScoredReport{
		RiskLevel:       model.RiskMedium,
		ComplianceScore: score,
		IssuesDetected: []model.Issue{
			{
				Category:       "automated-analysis",
				Severity:       model.RiskMedium,
				Description:    "Automated compliance analysis could not be completed for this document.",
				Recommendation: "Escalate to manual compliance review.",
			},
		},
		Recommendations: []model.Recommendation{
			{
				Priority: "HIGH",
				Action:   "Escalate this document for manual compliance review",
				Timeline: timeline,
			},
		},
		AnalysisSummary: "Automated analysis was incomplete; a conservative interim verdict was recorded.",
		ModelVersion:    fallbackModelVersion,
	}
}
