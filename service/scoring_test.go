package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/Raghav-C/CompliVault/models"
)

func chatCompletionBody(t *testing.T, content string) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	require.NoError(t, err)
	return string(body)
}

func newTestEngine(url string) *ScoringEngine {
	return NewScoringEngine(url, "test-key", "test-model")
}

func TestScoreDocument_Success(t *testing.T) {
	content := `{
		"risk_level": "HIGH",
		"compliance_score": 35,
		"issues_detected": [
			{"category": "data-protection", "severity": "HIGH", "description": "No retention policy.", "recommendation": "Add a retention clause."}
		],
		"recommendations": [
			{"priority": "HIGH", "action": "Add a data retention clause", "timeline": "within 30 days"}
		],
		"analysis_summary": "Significant gaps in data handling."
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionBody(t, content)))
	}))
	defer server.Close()

	report, err := newTestEngine(server.URL).ScoreDocument("some contract text")

	assert.NoError(t, err)
	assert.Equal(t, model.RiskHigh, report.RiskLevel)
	assert.Equal(t, 35, report.ComplianceScore)
	assert.Len(t, report.IssuesDetected, 1)
	assert.Len(t, report.Recommendations, 1)
	assert.Equal(t, "test-model", report.ModelVersion)
}

func TestScoreDocument_FallbackOnCallFailures(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{name: "rate limited", statusCode: http.StatusTooManyRequests, wantErr: ErrScoringRateLimited},
		{name: "quota exhausted", statusCode: http.StatusPaymentRequired, wantErr: ErrScoringQuotaExhausted},
		{name: "server error", statusCode: http.StatusInternalServerError, wantErr: ErrScoringCallFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			report, err := newTestEngine(server.URL).ScoreDocument("text")

			assert.ErrorIs(t, err, tt.wantErr)
			assertFallbackShape(t, report, fallbackScoreCallFailure)
		})
	}
}

func TestScoreDocument_FallbackOnNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	report, err := newTestEngine(server.URL).ScoreDocument("text")

	assert.ErrorIs(t, err, ErrScoringCallFailed)
	assertFallbackShape(t, report, fallbackScoreCallFailure)
}

func TestScoreDocument_FallbackOnParseFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not JSON", content: "the document looks fine to me"},
		{name: "unknown risk level", content: `{"risk_level": "SEVERE", "compliance_score": 40, "analysis_summary": "x"}`},
		{name: "missing score", content: `{"risk_level": "LOW", "analysis_summary": "x"}`},
		{name: "score out of range", content: `{"risk_level": "LOW", "compliance_score": 140, "analysis_summary": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(chatCompletionBody(t, tt.content)))
			}))
			defer server.Close()

			report, err := newTestEngine(server.URL).ScoreDocument("text")

			assert.ErrorIs(t, err, ErrScoringUnparsable)
			assertFallbackShape(t, report, fallbackScoreParseFailure)
		})
	}
}

func TestScoreDocument_ToleratesLevelScoreMismatch(t *testing.T) {
	// A LOW level with a terrible score is inconsistent but in range: stored
	// as returned, not corrected.
	content := `{"risk_level": "LOW", "compliance_score": 5, "analysis_summary": "odd"}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletionBody(t, content)))
	}))
	defer server.Close()

	report, err := newTestEngine(server.URL).ScoreDocument("text")

	assert.NoError(t, err)
	assert.Equal(t, model.RiskLow, report.RiskLevel)
	assert.Equal(t, 5, report.ComplianceScore)
}

func TestScoreDocument_TruncatesLongText(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 1 {
			gotPrompt = req.Messages[1].Content
		}
		w.Write([]byte(chatCompletionBody(t, `{"risk_level": "LOW", "compliance_score": 90, "analysis_summary": "ok"}`)))
	}))
	defer server.Close()

	long := make([]byte, maxPromptChars*2)
	for i := range long {
		long[i] = 'a'
	}

	_, err := newTestEngine(server.URL).ScoreDocument(string(long))

	assert.NoError(t, err)
	// The prompt wraps the truncated text in instructions, so it must be
	// comfortably below twice the cap.
	assert.Less(t, len(gotPrompt), maxPromptChars+2048)
}

func TestScoreDocument_TruncationKeepsRuneBoundary(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 1 {
			gotPrompt = req.Messages[1].Content
		}
		w.Write([]byte(chatCompletionBody(t, `{"risk_level": "LOW", "compliance_score": 90, "analysis_summary": "ok"}`)))
	}))
	defer server.Close()

	// One leading ASCII byte misaligns every following three-byte rune with
	// the truncation point, so a byte-index cut would split one of them.
	long := "a" + strings.Repeat("語", maxPromptChars)

	_, err := newTestEngine(server.URL).ScoreDocument(long)

	assert.NoError(t, err)
	assert.True(t, utf8.ValidString(gotPrompt), "prompt must stay valid UTF-8 after truncation")
	assert.NotContains(t, gotPrompt, "�")
}

func assertFallbackShape(t *testing.T, report ScoredReport, wantScore int) {
	t.Helper()
	assert.Equal(t, model.RiskMedium, report.RiskLevel)
	assert.Equal(t, wantScore, report.ComplianceScore)
	assert.Len(t, report.IssuesDetected, 1, "fallback carries exactly one issue")
	assert.Len(t, report.Recommendations, 1, "fallback carries exactly one recommendation")
	assert.Equal(t, fallbackModelVersion, report.ModelVersion)
	assert.NotEmpty(t, report.Recommendations[0].Timeline)
}
