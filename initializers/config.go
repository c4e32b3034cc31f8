package initializers

import (
	"fmt"
	"os"
)

// Config carries every secret and endpoint the services need. It is loaded
// once at startup and injected; core logic never reads the process
// environment directly, which keeps the pipeline testable against fake
// HTTP endpoints.
type Config struct {
	// Object storage (S3-compatible).
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	// Elasticsearch. Optional: indexing is skipped when empty.
	ElasticsearchURL string

	// LLM scoring API (OpenAI-compatible chat completions).
	LLMAPIKey   string
	LLMEndpoint string
	LLMModel    string

	// OCR API (OCR.space-compatible).
	OCRAPIKey   string
	OCREndpoint string

	// Outbound notification sinks. Any of these may be empty, in which case
	// that channel is skipped.
	SlackWebhookURL string
	TeamsWebhookURL string
	WebhookSecret   string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPPassword string
	NotifyEmail  string
}

// LoadConfig reads the configuration from the environment. Storage, LLM and
// OCR credentials are required; everything else degrades gracefully.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		S3Region:    os.Getenv("S3_REGION"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		ElasticsearchURL: os.Getenv("ELASTICSEARCH_URL"),

		LLMAPIKey:   os.Getenv("LLM_API_KEY"),
		LLMEndpoint: getEnvDefault("LLM_ENDPOINT", "https://api.groq.com/openai/v1/chat/completions"),
		LLMModel:    getEnvDefault("LLM_MODEL", "llama-3.3-70b-versatile"),

		OCRAPIKey:   os.Getenv("OCR_API_KEY"),
		OCREndpoint: getEnvDefault("OCR_ENDPOINT", "https://api.ocr.space/parse/image"),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		TeamsWebhookURL: os.Getenv("TEAMS_WEBHOOK_URL"),
		WebhookSecret:   os.Getenv("WEBHOOK_SECRET"),

		SMTPHost:     getEnvDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvDefault("SMTP_PORT", "587"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		NotifyEmail:  os.Getenv("NOTIFY_EMAIL"),
	}

	if cfg.S3Region == "" || cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("missing required S3 configuration environment variables")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET environment variable is not set")
	}
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY environment variable is not set")
	}
	if cfg.OCRAPIKey == "" {
		return nil, fmt.Errorf("OCR_API_KEY environment variable is not set")
	}

	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
