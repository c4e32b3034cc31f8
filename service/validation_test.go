package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// errReader simulates an I/O failure while probing file contents.
type errReader struct{}

func (errReader) Read(p []byte) (int, error) {
	return 0, errors.New("disk read failed")
}

func pdfBytes(body string) []byte {
	return []byte("%PDF-1.4\n" + body)
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		declaredType string
		size         int64
		content      []byte
		wantValid    bool
		wantOCR      bool
		wantErrSub   []string
		wantWarnSub  []string
	}{
		{
			name:         "oversized file",
			filename:     "huge.pdf",
			declaredType: "application/pdf",
			size:         11 * 1024 * 1024,
			content:      pdfBytes("/Font /Contents"),
			wantValid:    false,
			wantErrSub:   []string{"11.00MB", "10MB"},
		},
		{
			name:         "empty pdf",
			filename:     "empty.pdf",
			declaredType: "application/pdf",
			size:         0,
			content:      []byte{},
			wantValid:    false,
			wantErrSub:   []string{"empty"},
		},
		{
			name:         "unsupported type",
			filename:     "script.exe",
			declaredType: "application/x-msdownload",
			size:         128,
			content:      []byte("MZ"),
			wantValid:    false,
			wantErrSub:   []string{".pdf, .doc, .docx, .csv, .xls, .xlsx, .jpg, .png, .tiff"},
		},
		{
			name:         "image requires OCR",
			filename:     "scan.png",
			declaredType: "image/png",
			size:         2048,
			content:      []byte{0x89, 0x50, 0x4E, 0x47},
			wantValid:    true,
			wantOCR:      true,
			wantWarnSub:  []string{"OCR"},
		},
		{
			name:         "pdf without magic header",
			filename:     "broken.pdf",
			declaredType: "application/pdf",
			size:         64,
			content:      []byte("not a pdf at all"),
			wantValid:    false,
			wantErrSub:   []string{"corrupted"},
		},
		{
			name:         "encrypted pdf with valid header",
			filename:     "locked.pdf",
			declaredType: "application/pdf",
			size:         256,
			content:      pdfBytes("/Encrypt 123 /Font /Contents"),
			wantValid:    false,
			wantErrSub:   []string{"encrypted"},
		},
		{
			name:         "scanned pdf heuristic",
			filename:     "scanned.pdf",
			declaredType: "application/pdf",
			size:         256,
			content:      pdfBytes("/Contents [1 0 R]"),
			wantValid:    true,
			wantOCR:      true,
			wantWarnSub:  []string{"scanned"},
		},
		{
			name:         "docx with bad magic",
			filename:     "fake.docx",
			declaredType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			size:         512,
			content:      []byte("this is not a zip"),
			wantValid:    false,
			wantErrSub:   []string{"corrupted"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateDocument(tt.filename, tt.declaredType, tt.size, bytes.NewReader(tt.content))

			assert.Equal(t, tt.wantValid, result.IsValid)
			assert.Equal(t, tt.wantValid, len(result.Errors) == 0, "isValid must mirror the errors list")
			assert.Equal(t, tt.wantOCR, result.RequiresOCR)

			for _, sub := range tt.wantErrSub {
				assert.True(t, containsSubstring(result.Errors, sub),
					"expected an error containing %q, got %v", sub, result.Errors)
			}
			for _, sub := range tt.wantWarnSub {
				assert.True(t, containsSubstring(result.Warnings, sub),
					"expected a warning containing %q, got %v", sub, result.Warnings)
			}
		})
	}
}

func TestValidateDocument_WellFormedDocx(t *testing.T) {
	// 2 MiB buffer with the ZIP local-file-header magic.
	content := make([]byte, 2*1024*1024)
	content[0] = 0x50
	content[1] = 0x4B
	content[2] = 0x03
	content[3] = 0x04

	result := ValidateDocument("contract.docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		int64(len(content)), bytes.NewReader(content))

	assert.True(t, result.IsValid)
	assert.False(t, result.RequiresOCR)
	assert.Empty(t, result.Errors)
}

func TestValidateDocument_EmptyFileMayStackErrors(t *testing.T) {
	// Both the size rule and the content rules may fire; at minimum the
	// empty-file error must be present.
	result := ValidateDocument("empty.pdf", "application/pdf", 0, bytes.NewReader(nil))

	assert.False(t, result.IsValid)
	assert.True(t, containsSubstring(result.Errors, "empty"))
}

func TestValidateDocument_LargePDFWarning(t *testing.T) {
	result := ValidateDocument("big.pdf", "application/pdf", 6*1024*1024,
		bytes.NewReader(pdfBytes("/Font /Contents")))

	assert.True(t, result.IsValid)
	assert.True(t, containsSubstring(result.Warnings, "slower"))
}

func TestValidateDocument_ReadFailureIsCaptured(t *testing.T) {
	// An I/O error never escapes: it becomes a generic validation error.
	result := ValidateDocument("broken.pdf", "application/pdf", 1024, errReader{})

	assert.False(t, result.IsValid)
	assert.True(t, containsSubstring(result.Errors, "unable to read file contents"))
}

func TestValidateDocument_Idempotent(t *testing.T) {
	content := pdfBytes("/Contents [1 0 R]")

	first := ValidateDocument("scan.pdf", "application/pdf", int64(len(content)), bytes.NewReader(content))
	second := ValidateDocument("scan.pdf", "application/pdf", int64(len(content)), bytes.NewReader(content))

	assert.Equal(t, first, second)
}

func TestValidateDocument_HeuristicIsNotAuthoritative(t *testing.T) {
	// The /Contents-without-/Font check is a best-effort hint: a text PDF
	// with font resources must not trip it, and tripping it never rejects.
	textual := pdfBytes("/Font <</F1 1 0 R>> /Contents [1 0 R]")
	result := ValidateDocument("text.pdf", "application/pdf", int64(len(textual)), bytes.NewReader(textual))
	assert.True(t, result.IsValid)
	assert.False(t, result.RequiresOCR)

	scanned := pdfBytes("/Contents [1 0 R]")
	result = ValidateDocument("scan.pdf", "application/pdf", int64(len(scanned)), bytes.NewReader(scanned))
	assert.True(t, result.IsValid, "the heuristic must only warn, never reject")
	assert.True(t, result.RequiresOCR)
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
