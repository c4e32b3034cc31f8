package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetIngestionFailures lists failure records for the operator view. Resolved
// rows are included only when include_resolved=true.
func (c *DocumentController) GetIngestionFailures(ctx *gin.Context) {
	includeResolved := ctx.Query("include_resolved") == "true"

	failures, err := c.service.GetIngestionFailures(includeResolved)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"failures": failures,
		"total":    len(failures),
	})
}

// ResolveIngestionFailure marks a failure record as handled.
func (c *DocumentController) ResolveIngestionFailure(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failure ID required"})
		return
	}

	if err := c.service.ResolveIngestionFailure(id); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Ingestion failure marked as resolved"})
}
