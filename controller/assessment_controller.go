package controller

import (
	"net/http"

	service "github.com/Raghav-C/CompliVault/service"

	"github.com/gin-gonic/gin"
)

// CreateDeploymentAssessment scores a model deployment from its metrics and
// stores the verdict. Unlike document scoring this path is deterministic and
// makes no external call.
func (c *DocumentController) CreateDeploymentAssessment(ctx *gin.Context) {
	var req struct {
		service.DeploymentInput
		UserID string `json:"user_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assessment, err := c.service.CreateDeploymentAssessment(req.DeploymentInput, req.UserID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, assessment)
}

// GetDeploymentAssessments lists stored assessments, newest first.
func (c *DocumentController) GetDeploymentAssessments(ctx *gin.Context) {
	assessments, err := c.service.GetAllDeploymentAssessments()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"assessments": assessments,
		"total":       len(assessments),
	})
}
