package models

import "time"

// Processing status lifecycle for a document. A document only advances
// pending -> processing -> {completed|error|failed}; operator retries reset
// it to processing, never back past validation.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusFailed     = "failed"
)

// Document represents one uploaded compliance document.
type Document struct {
	// ID is a unique identifier for the document, stored as a UUID in the database.
	// In Elasticsearch, it's indexed as a keyword for exact matching.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id" elastic:"type:keyword"`

	// UserID identifies the owning user, indexed as a keyword. Empty when the
	// upload was anonymous.
	UserID string `json:"user_id" elastic:"type:keyword"`

	// Title is derived from the original filename, indexed as text for full-text search.
	Title string `json:"title" elastic:"type:text,analyzer:standard"`

	// OriginalName is the filename as uploaded by the user.
	OriginalName string `json:"original_name" elastic:"type:keyword"`

	// StoredName is the content-addressed object key in the storage bucket.
	StoredName string `json:"stored_name" elastic:"type:keyword"`

	// MimeType is the declared MIME type of the upload (e.g. "application/pdf").
	MimeType string `json:"mime_type" elastic:"type:keyword"`

	// SizeBytes is the byte size of the uploaded file.
	SizeBytes int64 `json:"size_bytes"`

	// OriginalURL is the storage URL where the raw bytes live, indexed as a keyword.
	OriginalURL string `json:"original_url" elastic:"type:keyword"`

	// ExtractedText contains the normalized plain text (direct or OCR),
	// indexed as text for full-text search.
	ExtractedText string `json:"extracted_text" elastic:"type:text,analyzer:standard"`

	// ProcessingStatus tracks the pipeline lifecycle (see constants above).
	ProcessingStatus string `gorm:"default:pending" json:"processing_status" elastic:"type:keyword"`

	// OCR routing flags set by the validator and the extraction router.
	OcrRequired  bool `json:"ocr_required"`
	OcrAttempted bool `json:"ocr_attempted"`
	OcrCompleted bool `json:"ocr_completed"`

	CreatedAt time.Time `json:"created_at" elastic:"type:date"`
	UpdatedAt time.Time `json:"updated_at" elastic:"type:date"`
}
