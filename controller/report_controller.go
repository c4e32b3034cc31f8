package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDocumentReports returns every verdict for a document, newest first. The
// newest row is the authoritative one for dashboards.
func (c *DocumentController) GetDocumentReports(ctx *gin.Context) {
	documentID := ctx.Param("id")
	if documentID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Document ID required"})
		return
	}

	reports, err := c.service.GetDocumentReports(documentID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"total":   len(reports),
	})
}
