package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Raghav-C/CompliVault/initializers"
	model "github.com/Raghav-C/CompliVault/models"
)

// OCREngine is the image-recognition fallback path.
type OCREngine interface {
	RecognizeText(fileBytes []byte, filename string) (string, error)
}

// ReportNotifier fans a completed verdict out to the configured sinks.
type ReportNotifier interface {
	DispatchReport(doc model.Document, report model.ComplianceReport)
}

// DocumentService owns the ingestion pipeline: validate -> store -> extract
// -> score -> persist -> notify. Collaborators are injected so every stage
// can be tested against fakes.
type DocumentService struct {
	db       *gorm.DB
	store    ObjectStore
	esClient *elasticsearch.Client
	ocr      OCREngine
	scorer   RiskScorer
	notifier ReportNotifier
}

// NewDocumentService wires the pipeline from injected configuration.
func NewDocumentService(db *gorm.DB, cfg *initializers.Config) (*DocumentService, error) {
	store, err := NewS3Store(cfg)
	if err != nil {
		return nil, err
	}

	var esClient *elasticsearch.Client
	if cfg.ElasticsearchURL != "" {
		esClient, err = elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{cfg.ElasticsearchURL},
		})
		if err != nil {
			log.Printf("Warning: Failed to create Elasticsearch client: %v", err)
		}
	}

	return &DocumentService{
		db:       db,
		store:    store,
		esClient: esClient,
		ocr:      NewOCRClient(cfg.OCREndpoint, cfg.OCRAPIKey),
		scorer:   NewScoringEngine(cfg.LLMEndpoint, cfg.LLMAPIKey, cfg.LLMModel),
		notifier: NewNotificationService(db, cfg),
	}, nil
}

// UploadAndProcessDocument validates the upload, persists the raw bytes and
// runs the full pipeline. A validation rejection is not an error: the
// ValidationResult carries the reasons and the document is never created.
// The degraded return carries the scoring error kind when the stored report
// is a fallback verdict.
func (s *DocumentService) UploadAndProcessDocument(file multipart.File, header *multipart.FileHeader, userID string) (*model.Document, *model.ComplianceReport, ValidationResult, error, error) {
	log.Printf("[Upload] file: name=%s size=%d", header.Filename, header.Size)

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[Upload] ERROR reading file: %v", err)
		s.RecordIngestionFailure("", header.Filename, header.Header.Get("Content-Type"), header.Size,
			model.FailureUpload, fmt.Sprintf("failed to read upload: %v", err))
		return nil, nil, ValidationResult{}, nil, fmt.Errorf("failed to read file: %w", err)
	}

	declaredType := header.Header.Get("Content-Type")
	validation := ValidateDocument(header.Filename, declaredType, int64(len(fileBytes)), bytes.NewReader(fileBytes))
	if !validation.IsValid {
		s.RecordIngestionFailure("", header.Filename, declaredType, int64(len(fileBytes)),
			model.FailureValidation, strings.Join(validation.Errors, "; "))
		return nil, nil, validation, nil, nil
	}

	// Content-addressed key: re-uploading or retrying the same bytes never
	// duplicates the stored object.
	key := storedObjectKey(header.Filename, fileBytes)
	fileURL, err := s.store.Upload(key, fileBytes, declaredType)
	if err != nil {
		s.RecordIngestionFailure("", header.Filename, declaredType, int64(len(fileBytes)),
			model.FailureUpload, err.Error())
		return nil, nil, validation, nil, err
	}

	doc := model.Document{
		UserID:           userID,
		Title:            strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename)),
		OriginalName:     header.Filename,
		StoredName:       key,
		MimeType:         declaredType,
		SizeBytes:        int64(len(fileBytes)),
		OriginalURL:      fileURL,
		ProcessingStatus: model.StatusPending,
		OcrRequired:      validation.RequiresOCR,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if err := s.db.Create(&doc).Error; err != nil {
		log.Printf("[Upload] ERROR saving document: %v", err)
		s.RecordIngestionFailure("", header.Filename, declaredType, int64(len(fileBytes)),
			model.FailureStorage, err.Error())
		return nil, nil, validation, nil, fmt.Errorf("failed to save to database: %w", err)
	}

	report, degraded, err := s.ProcessDocument(&doc, fileBytes, false)
	if err != nil {
		// The pipeline has already recorded the failure and set a terminal
		// status; the document row survives for operator retry.
		return &doc, nil, validation, degraded, err
	}
	return &doc, report, validation, degraded, nil
}

// ProcessDocument routes extraction, scores the text and persists the
// verdict. It always drives the document to a terminal status within this
// invocation. The degraded return carries the scoring error kind when a
// fallback report was stored; err is reserved for extraction and storage
// failures.
func (s *DocumentService) ProcessDocument(doc *model.Document, fileBytes []byte, forceOCR bool) (*model.ComplianceReport, error, error) {
	s.setStatus(doc, model.StatusProcessing)

	text, err := s.routeExtraction(doc, fileBytes, forceOCR)
	if err != nil {
		s.setStatus(doc, model.StatusFailed)
		s.RecordIngestionFailure(doc.ID, doc.OriginalName, doc.MimeType, doc.SizeBytes,
			model.FailureOCR, err.Error())
		return nil, nil, err
	}

	doc.ExtractedText = text
	if err := s.db.Model(doc).Updates(map[string]interface{}{
		"extracted_text": doc.ExtractedText,
		"ocr_attempted":  doc.OcrAttempted,
		"ocr_completed":  doc.OcrCompleted,
		"updated_at":     time.Now(),
	}).Error; err != nil {
		s.setStatus(doc, model.StatusError)
		s.RecordIngestionFailure(doc.ID, doc.OriginalName, doc.MimeType, doc.SizeBytes,
			model.FailureStorage, err.Error())
		return nil, nil, fmt.Errorf("failed to persist extracted text: %w", err)
	}

	s.indexDocument(*doc)

	// OCR completion is not user-visible; scoring runs immediately. The
	// scorer never leaves the document unscored: on failure it hands back a
	// deterministic fallback report plus the error kind.
	scored, degraded := s.scorer.ScoreDocument(text)
	if degraded != nil {
		log.Printf("[ProcessDocument] degraded scoring for %s: %v", doc.ID, degraded)
		s.RecordIngestionFailure(doc.ID, doc.OriginalName, doc.MimeType, doc.SizeBytes,
			model.FailureAnalysis, degraded.Error())
	}

	report, err := s.saveReport(doc, scored)
	if err != nil {
		s.setStatus(doc, model.StatusError)
		s.RecordIngestionFailure(doc.ID, doc.OriginalName, doc.MimeType, doc.SizeBytes,
			model.FailureStorage, err.Error())
		return nil, degraded, err
	}

	// Degraded or not, the user has an actionable verdict: completed.
	s.setStatus(doc, model.StatusCompleted)

	go s.notifier.DispatchReport(*doc, *report)

	return report, degraded, nil
}

// routeExtraction picks the extraction path. Direct extraction failures are
// unreadable-text signals, not terminal errors: they re-route to OCR.
func (s *DocumentService) routeExtraction(doc *model.Document, fileBytes []byte, forceOCR bool) (string, error) {
	useOCR := forceOCR || doc.OcrRequired

	if !useOCR {
		text, err := extractDirectText(doc.MimeType, fileBytes)
		if err == nil {
			return text, nil
		}
		log.Printf("[routeExtraction] direct extraction failed for %s, falling back to OCR: %v", doc.ID, err)
		useOCR = true
	}

	doc.OcrAttempted = true
	text, err := s.ocr.RecognizeText(fileBytes, doc.OriginalName)
	if err != nil {
		return "", fmt.Errorf("OCR extraction failed: %w", err)
	}
	doc.OcrCompleted = true

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("OCR returned no text: %w", ErrUnreadableText)
	}
	return text, nil
}

// RetryDocument is the operator-triggered re-entry into the pipeline. The
// stored bytes already passed validation, so the router is re-entered
// directly; forceOCR switches the extraction path for documents whose direct
// extraction keeps failing.
func (s *DocumentService) RetryDocument(id string, forceOCR bool) (*model.Document, *model.ComplianceReport, error, error) {
	var doc model.Document
	if err := s.db.First(&doc, "id = ?", id).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("document not found: %w", err)
	}

	fileBytes, err := s.store.Download(doc.StoredName)
	if err != nil {
		s.setStatus(&doc, model.StatusError)
		s.RecordIngestionFailure(doc.ID, doc.OriginalName, doc.MimeType, doc.SizeBytes,
			model.FailureStorage, err.Error())
		return &doc, nil, nil, err
	}

	s.MarkRetry(doc.ID)

	report, degraded, err := s.ProcessDocument(&doc, fileBytes, forceOCR)
	return &doc, report, degraded, err
}

// saveReport persists an immutable ComplianceReport row. Re-analysis inserts
// a new row; the latest one is authoritative.
func (s *DocumentService) saveReport(doc *model.Document, scored ScoredReport) (*model.ComplianceReport, error) {
	issuesJSON, err := json.Marshal(scored.IssuesDetected)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal issues: %w", err)
	}
	recsJSON, err := json.Marshal(scored.Recommendations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	report := model.ComplianceReport{
		DocumentID:      doc.ID,
		UserID:          doc.UserID,
		RiskLevel:       scored.RiskLevel,
		ComplianceScore: scored.ComplianceScore,
		IssuesDetected:  datatypes.JSON(issuesJSON),
		Recommendations: datatypes.JSON(recsJSON),
		AnalysisSummary: scored.AnalysisSummary,
		ModelVersion:    scored.ModelVersion,
		CreatedAt:       time.Now(),
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to save compliance report: %w", err)
	}

	log.Printf("[saveReport] report %s stored for document %s (level=%s score=%d)",
		report.ID, doc.ID, report.RiskLevel, report.ComplianceScore)
	return &report, nil
}

func (s *DocumentService) setStatus(doc *model.Document, status string) {
	doc.ProcessingStatus = status
	doc.UpdatedAt = time.Now()
	if err := s.db.Model(doc).Updates(map[string]interface{}{
		"processing_status": status,
		"updated_at":        doc.UpdatedAt,
	}).Error; err != nil {
		log.Printf("[setStatus] ERROR updating status for %s: %v", doc.ID, err)
	}
}

// GetAllDocuments returns every document, newest first.
func (s *DocumentService) GetAllDocuments() ([]model.Document, error) {
	var documents []model.Document
	if err := s.db.Order("created_at DESC").Find(&documents).Error; err != nil {
		log.Printf("[GetAllDocuments] database query error: %v", err)
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}
	return documents, nil
}

// GetDocument returns one document by id.
func (s *DocumentService) GetDocument(id string) (*model.Document, error) {
	var doc model.Document
	if err := s.db.First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	return &doc, nil
}

// GetDocumentReports returns all reports for a document, newest first.
func (s *DocumentService) GetDocumentReports(documentID string) ([]model.ComplianceReport, error) {
	var reports []model.ComplianceReport
	if err := s.db.Where("document_id = ?", documentID).Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}
	return reports, nil
}

// DeleteDocument removes the stored object and the document row (reports
// cascade at the database level).
func (s *DocumentService) DeleteDocument(id string) error {
	doc, err := s.GetDocument(id)
	if err != nil {
		return err
	}

	if err := s.store.Remove(doc.StoredName); err != nil {
		// The row is still deleted; an orphaned object is preferable to a
		// dangling database record pointing at storage we may have lost.
		log.Printf("[DeleteDocument] ERROR removing stored object %s: %v", doc.StoredName, err)
	}

	if err := s.db.Delete(&model.Document{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// indexDocument indexes the document text in Elasticsearch. Indexing is
// best-effort and never breaks the pipeline.
func (s *DocumentService) indexDocument(doc model.Document) {
	if s.esClient == nil {
		return
	}

	payload := map[string]interface{}{
		"document_id":    doc.ID,
		"title":          doc.Title,
		"file_url":       doc.OriginalURL,
		"extracted_text": doc.ExtractedText,
		"timestamp":      time.Now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[indexDocument] marshal error: %v", err)
		return
	}

	res, err := s.esClient.Index(
		"documents",
		bytes.NewReader(body),
		s.esClient.Index.WithDocumentID(doc.ID),
		s.esClient.Index.WithContext(context.Background()),
	)
	if err != nil {
		log.Printf("[indexDocument] Elasticsearch indexing error: %v", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("[indexDocument] Elasticsearch indexing failed: %s", res.String())
	}
}

// SearchDocuments runs a full-text query against the documents index.
func (s *DocumentService) SearchDocuments(query string) ([]map[string]interface{}, error) {
	if s.esClient == nil {
		return nil, fmt.Errorf("elasticsearch client is not initialized")
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title", "extracted_text"},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(context.Background()),
		s.esClient.Search.WithIndex("documents"),
		s.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits structure in search response")
	}
	hitsArray, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits array in search response")
	}

	var documents []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		documents = append(documents, source)
	}
	return documents, nil
}

// storedObjectKey derives a content-addressed object key so operator retries
// and duplicate uploads map to the same stored file.
func storedObjectKey(filename string, data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]) + "-" + filepath.Base(filename)
}
