package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	model "github.com/Raghav-C/CompliVault/models"
)

// RecordIngestionFailure writes one failure row. Failure rows are never
// deleted, only marked resolved, so the operator view keeps its history.
func (s *DocumentService) RecordIngestionFailure(documentID, fileName, fileType string, fileSize int64, errorType, message string) {
	details, err := json.Marshal(map[string]interface{}{
		"file_name": fileName,
		"file_type": fileType,
		"file_size": fileSize,
	})
	if err != nil {
		details = []byte("{}")
	}

	failure := model.IngestionFailure{
		DocumentID:   documentID,
		FileName:     fileName,
		FileType:     fileType,
		FileSize:     fileSize,
		ErrorType:    errorType,
		ErrorMessage: message,
		Details:      datatypes.JSON(details),
		CreatedAt:    time.Now(),
	}
	if err := s.db.Create(&failure).Error; err != nil {
		log.Printf("[RecordIngestionFailure] ERROR saving failure record: %v", err)
		return
	}
	log.Printf("[RecordIngestionFailure] %s recorded for %s: %s", errorType, fileName, message)
}

// MarkRetry bumps the retry counter on every unresolved failure for the
// document.
func (s *DocumentService) MarkRetry(documentID string) {
	now := time.Now()
	if err := s.db.Model(&model.IngestionFailure{}).
		Where("document_id = ? AND resolved = ?", documentID, false).
		Updates(map[string]interface{}{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_retry_at": now,
		}).Error; err != nil {
		log.Printf("[MarkRetry] ERROR updating retry count for %s: %v", documentID, err)
	}
}

// GetIngestionFailures returns failure records, newest first. Pass
// includeResolved=false for the operator's open-items view.
func (s *DocumentService) GetIngestionFailures(includeResolved bool) ([]model.IngestionFailure, error) {
	var failures []model.IngestionFailure
	q := s.db.Order("created_at DESC")
	if !includeResolved {
		q = q.Where("resolved = ?", false)
	}
	if err := q.Find(&failures).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch ingestion failures: %w", err)
	}
	return failures, nil
}

// ResolveIngestionFailure marks a failure as handled.
func (s *DocumentService) ResolveIngestionFailure(id string) error {
	now := time.Now()
	result := s.db.Model(&model.IngestionFailure{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve ingestion failure: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("ingestion failure %s not found", id)
	}
	return nil
}
