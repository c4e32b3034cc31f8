package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/agiledragon/gomonkey/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/Raghav-C/CompliVault/models"
	service "github.com/Raghav-C/CompliVault/service"
)

func uploadRequest(t *testing.T) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "contract.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func uploadRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	ctrl := NewDocumentController(&service.DocumentService{})
	router.POST("/upload", ctrl.UploadDocument)
	return router
}

func TestUploadDocument_ReadFailureIsServerError(t *testing.T) {
	// A failure reading the upload stream is infrastructure, not a document
	// problem: the response must be a 500, never a validation rejection.
	patches := gomonkey.ApplyMethod(reflect.TypeOf(&service.DocumentService{}), "UploadAndProcessDocument",
		func(_ *service.DocumentService, _ multipart.File, _ *multipart.FileHeader, _ string) (*model.Document, *model.ComplianceReport, service.ValidationResult, error, error) {
			return nil, nil, service.ValidationResult{}, nil, errors.New("failed to read file: disk error")
		})
	defer patches.Reset()

	rec := httptest.NewRecorder()
	uploadRouter().ServeHTTP(rec, uploadRequest(t))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "failed to read file")
	assert.NotContains(t, body, "validation")
}

func TestUploadDocument_ValidationRejectionIsBadRequest(t *testing.T) {
	rejection := service.ValidationResult{
		IsValid:  false,
		Errors:   []string{"file is empty"},
		Warnings: []string{},
	}
	patches := gomonkey.ApplyMethod(reflect.TypeOf(&service.DocumentService{}), "UploadAndProcessDocument",
		func(_ *service.DocumentService, _ multipart.File, _ *multipart.FileHeader, _ string) (*model.Document, *model.ComplianceReport, service.ValidationResult, error, error) {
			return nil, nil, rejection, nil, nil
		})
	defer patches.Reset()

	rec := httptest.NewRecorder()
	uploadRouter().ServeHTTP(rec, uploadRequest(t))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error      string                   `json:"error"`
		Validation service.ValidationResult `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Document failed validation", body.Error)
	assert.Equal(t, []string{"file is empty"}, body.Validation.Errors)
}

func TestUploadDocument_DegradedScoringCarriesNotice(t *testing.T) {
	doc := &model.Document{ID: "doc-1", OriginalName: "contract.pdf", ProcessingStatus: model.StatusCompleted}
	report := &model.ComplianceReport{RiskLevel: model.RiskMedium, ComplianceScore: 50}

	patches := gomonkey.ApplyMethod(reflect.TypeOf(&service.DocumentService{}), "UploadAndProcessDocument",
		func(_ *service.DocumentService, _ multipart.File, _ *multipart.FileHeader, _ string) (*model.Document, *model.ComplianceReport, service.ValidationResult, error, error) {
			return doc, report, service.ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}},
				service.ErrScoringRateLimited, nil
		})
	defer patches.Reset()

	rec := httptest.NewRecorder()
	uploadRouter().ServeHTTP(rec, uploadRequest(t))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	notice, _ := body["analysis_notice"].(string)
	assert.Contains(t, notice, "rate limited")
}
