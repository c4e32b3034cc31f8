package controller

import (
	"errors"
	"log"
	"net/http"

	service "github.com/Raghav-C/CompliVault/service"

	"github.com/gin-gonic/gin"
)

// DocumentController manages HTTP requests for document ingestion and search.
type DocumentController struct {
	service *service.DocumentService
}

// NewDocumentController initializes the controller with the service
func NewDocumentController(service *service.DocumentService) *DocumentController {
	return &DocumentController{service}
}

// UploadDocument handles the file upload request and runs the full pipeline.
func (c *DocumentController) UploadDocument(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return
	}
	defer file.Close()

	userID := ctx.PostForm("user_id")

	doc, report, validation, degraded, err := c.service.UploadAndProcessDocument(file, header, userID)
	// An infrastructure failure (read, storage, database) is a 500 with a
	// retry affordance; only an actual validation rejection is the user's 400.
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !validation.IsValid {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":      "Document failed validation",
			"validation": validation,
		})
		return
	}

	response := gin.H{
		"message":    "Document uploaded and processed successfully",
		"document":   doc,
		"report":     report,
		"validation": validation,
	}
	if degraded != nil {
		response["analysis_notice"] = degradedMessage(degraded)
	}
	ctx.JSON(http.StatusOK, response)
}

// GetAllDocuments retrieves all documents from the database
func (c *DocumentController) GetAllDocuments(ctx *gin.Context) {
	docs, err := c.service.GetAllDocuments()
	if err != nil {
		log.Printf("Error fetching documents: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve documents",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

// GetDocument retrieves one document by id
func (c *DocumentController) GetDocument(ctx *gin.Context) {
	doc, err := c.service.GetDocument(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, doc)
}

// RetryDocument re-enters the pipeline for a failed document. The optional
// force_ocr flag switches the extraction path to OCR.
func (c *DocumentController) RetryDocument(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Document ID required"})
		return
	}

	var req struct {
		ForceOCR bool `json:"force_ocr"`
	}
	// Body is optional; an empty body means a plain retry.
	_ = ctx.ShouldBindJSON(&req)

	doc, report, degraded, err := c.service.RetryDocument(id, req.ForceOCR)
	if err != nil {
		log.Printf("[RetryDocument] retry failed for %s: %v", id, err)
		status := http.StatusInternalServerError
		if doc == nil {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"message":  "Document reprocessed successfully",
		"document": doc,
		"report":   report,
	}
	if degraded != nil {
		response["analysis_notice"] = degradedMessage(degraded)
	}
	ctx.JSON(http.StatusOK, response)
}

// DeleteDocument removes a document and its stored file
func (c *DocumentController) DeleteDocument(ctx *gin.Context) {
	if err := c.service.DeleteDocument(ctx.Param("id")); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}

// SearchDocuments runs a full-text query against the search index
func (c *DocumentController) SearchDocuments(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	results, err := c.service.SearchDocuments(query)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Search completed successfully",
		"results": results,
	})
}

// degradedMessage maps scoring error kinds to the user-facing notice. The
// verdict is stored either way; this only explains why it is conservative.
func degradedMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrScoringRateLimited):
		return "Automated analysis was rate limited; a conservative interim verdict was recorded. Try re-analyzing later."
	case errors.Is(err, service.ErrScoringQuotaExhausted):
		return "Automated analysis credits are exhausted; contact support. A conservative interim verdict was recorded."
	case errors.Is(err, service.ErrScoringUnparsable):
		return "The analysis response could not be interpreted; a conservative interim verdict was recorded."
	default:
		return "Automated analysis was unavailable; a conservative interim verdict was recorded."
	}
}
