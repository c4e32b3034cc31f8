package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Raghav-C/CompliVault/initializers"
	model "github.com/Raghav-C/CompliVault/models"
)

// NotificationService fans completed verdicts out to Slack, Teams and email.
// It is deliberately separate from the scoring engine: the engine returns a
// result, this dispatcher consumes it. Every delivery is fire-and-forget;
// failures are logged and recorded, never propagated back to the pipeline.
type NotificationService struct {
	db         *gorm.DB
	cfg        *initializers.Config
	httpClient *http.Client
}

func NewNotificationService(db *gorm.DB, cfg *initializers.Config) *NotificationService {
	return &NotificationService{
		db:         db,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// DispatchReport sends the verdict to every configured sink.
func (n *NotificationService) DispatchReport(doc model.Document, report model.ComplianceReport) {
	summary := fmt.Sprintf("Compliance verdict for %q: risk %s, score %d/100.",
		doc.OriginalName, report.RiskLevel, report.ComplianceScore)

	if n.cfg.SlackWebhookURL != "" {
		payload := map[string]interface{}{"text": summary}
		n.postWebhook(doc.ID, "slack", n.cfg.SlackWebhookURL, payload)
	}

	if n.cfg.TeamsWebhookURL != "" {
		payload := map[string]interface{}{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"summary":    "Compliance verdict",
			"themeColor": riskColor(report.RiskLevel),
			"title":      fmt.Sprintf("Compliance verdict: %s", doc.OriginalName),
			"text":       summary,
		}
		n.postWebhook(doc.ID, "teams", n.cfg.TeamsWebhookURL, payload)
	}

	if n.cfg.NotifyEmail != "" && n.cfg.SMTPFrom != "" {
		n.sendEmail(doc, report, summary)
	}
}

func (n *NotificationService) postWebhook(documentID, channel, url string, payload map[string]interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[postWebhook] marshal error for %s: %v", channel, err)
		return
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		n.recordNotification(documentID, channel, body, "failed", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.WebhookSecret != "" {
		req.Header.Set("X-Webhook-Secret", n.cfg.WebhookSecret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		log.Printf("[postWebhook] %s delivery failed: %v", channel, err)
		n.recordNotification(documentID, channel, body, "failed", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("[postWebhook] %s delivery failed with status %d", channel, resp.StatusCode)
		n.recordNotification(documentID, channel, body, "failed", fmt.Sprintf("status %d", resp.StatusCode))
		return
	}
	n.recordNotification(documentID, channel, body, "sent", "")
}

func (n *NotificationService) sendEmail(doc model.Document, report model.ComplianceReport, summary string) {
	subject := fmt.Sprintf("Compliance verdict: %s", doc.OriginalName)
	body := fmt.Sprintf(`
	<html>
	<body>
		<h2>Compliance Verdict</h2>
		<p>%s</p>
		<ul>
			<li><strong>Document:</strong> %s</li>
			<li><strong>Risk Level:</strong> %s</li>
			<li><strong>Compliance Score:</strong> %d/100</li>
			<li><strong>Summary:</strong> %s</li>
		</ul>
	</body>
	</html>
`, summary, doc.OriginalName, report.RiskLevel, report.ComplianceScore, report.AnalysisSummary)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + n.cfg.SMTPFrom + "\r\n" +
		"To: " + n.cfg.NotifyEmail + "\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
		body)

	auth := smtp.PlainAuth("", n.cfg.SMTPFrom, n.cfg.SMTPPassword, n.cfg.SMTPHost)
	err := smtp.SendMail(n.cfg.SMTPHost+":"+n.cfg.SMTPPort, auth, n.cfg.SMTPFrom, []string{n.cfg.NotifyEmail}, message)
	if err != nil {
		log.Printf("[sendEmail] delivery failed for document %s: %v", doc.ID, err)
		n.recordNotification(doc.ID, "email", []byte(summary), "failed", err.Error())
		return
	}
	n.recordNotification(doc.ID, "email", []byte(summary), "sent", "")
}

func (n *NotificationService) recordNotification(documentID, channel string, payload []byte, status, errMsg string) {
	if !json.Valid(payload) {
		quoted, err := json.Marshal(string(payload))
		if err != nil {
			quoted = []byte(`""`)
		}
		payload = quoted
	}

	record := model.Notification{
		DocumentID: documentID,
		Channel:    channel,
		Payload:    datatypes.JSON(payload),
		Status:     status,
		Error:      errMsg,
		CreatedAt:  time.Now(),
	}
	if err := n.db.Create(&record).Error; err != nil {
		log.Printf("[recordNotification] ERROR saving notification record: %v", err)
	}
}

func riskColor(level string) string {
	switch level {
	case model.RiskCritical:
		return "8B0000"
	case model.RiskHigh:
		return "FF0000"
	case model.RiskMedium:
		return "FFA500"
	default:
		return "2EB886"
	}
}
