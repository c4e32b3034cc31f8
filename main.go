package main

import (
	"log"
	"net/http"

	controller "github.com/Raghav-C/CompliVault/controller"
	"github.com/Raghav-C/CompliVault/initializers"
	middleware "github.com/Raghav-C/CompliVault/middleware"
	service "github.com/Raghav-C/CompliVault/service"

	"github.com/gin-gonic/gin"
)

func init() {
	if err := initializers.LoadEnv(); err != nil {
		log.Printf("[WARN] No .env file loaded: %s", err)
	}
	if err := initializers.ConnectDB(); err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize database connection: %s", err)
	}
	if err := initializers.Migrate(); err != nil {
		log.Fatalf("[CRITICAL] Failed to run database migrations: %s", err)
	}
}

func main() {
	cfg, err := initializers.LoadConfig()
	if err != nil {
		log.Fatalf("[CRITICAL] Failed to load configuration: %s", err)
	}

	docService, err := service.NewDocumentService(initializers.DB, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize document service: %s", err)
	}

	docController := controller.NewDocumentController(docService)

	router := gin.Default()
	router.Use(middleware.RequestID())
	router.Use(middleware.CORSMiddleware())

	// Global rate limiter for most routes
	router.Use(middleware.GlobalRateLimiter.Limit())

	// Ingestion and retry trigger external OCR/LLM calls, so they get the
	// stricter limiter.
	router.POST("/upload",
		middleware.StrictRateLimiter.Limit(),
		docController.UploadDocument)
	router.POST("/documents/:id/retry",
		middleware.StrictRateLimiter.Limit(),
		docController.RetryDocument)

	router.GET("/documents", docController.GetAllDocuments)
	router.GET("/documents/:id", docController.GetDocument)
	router.GET("/documents/:id/reports", docController.GetDocumentReports)
	router.DELETE("/documents/:id",
		middleware.StrictRateLimiter.Limit(),
		docController.DeleteDocument)

	router.GET("/failures", docController.GetIngestionFailures)
	router.PUT("/failures/:id/resolve", docController.ResolveIngestionFailure)

	router.POST("/assessments",
		middleware.StrictRateLimiter.Limit(),
		docController.CreateDeploymentAssessment)
	router.GET("/assessments", docController.GetDeploymentAssessments)

	router.GET("/search", docController.SearchDocuments)

	// Healthcheck endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.Run(":8080")
}
