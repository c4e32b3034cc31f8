package models

import (
	"time"

	"gorm.io/datatypes"
)

// Failure kinds recorded when a pipeline stage rejects or throws.
const (
	FailureValidation = "validation_error"
	FailureUpload     = "upload_error"
	FailureOCR        = "ocr_error"
	FailureAnalysis   = "analysis_error"
	FailureStorage    = "storage_error"
)

// IngestionFailure is one record per failed or retried ingestion attempt.
// Rows are never deleted, only marked resolved; operator retries increment
// RetryCount.
type IngestionFailure struct {
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// DocumentID is empty for failures that happen before a document row
	// exists (validation and upload errors).
	DocumentID string `json:"document_id"`

	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`

	ErrorType    string         `gorm:"not null" json:"error_type"`
	ErrorMessage string         `json:"error_message"`
	Details      datatypes.JSON `json:"details"`

	RetryCount  int        `gorm:"default:0" json:"retry_count"`
	LastRetryAt *time.Time `json:"last_retry_at"`

	Resolved   bool       `gorm:"default:false" json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at"`

	CreatedAt time.Time `json:"created_at"`
}
