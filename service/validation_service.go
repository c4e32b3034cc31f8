package services

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// MaxFileSize is the hard upload cap.
const MaxFileSize = 10 * 1024 * 1024

// largePDFThreshold is the size above which PDF processing gets a slowness warning.
const largePDFThreshold = 5 * 1024 * 1024

// contentProbeSize bounds how much of the file the validator reads for its
// content checks.
const contentProbeSize = 64 * 1024

const (
	mimePDF  = "application/pdf"
	mimeDoc  = "application/msword"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeCSV  = "text/csv"
	mimeXLS  = "application/vnd.ms-excel"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// supportedTypes maps accepted MIME types to their canonical extensions.
var supportedTypes = map[string]string{
	mimePDF:      "pdf",
	mimeDoc:      "doc",
	mimeDocx:     "docx",
	mimeCSV:      "csv",
	mimeXLS:      "xls",
	mimeXLSX:     "xlsx",
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/tiff": "tiff",
}

const supportedExtensionsList = ".pdf, .doc, .docx, .csv, .xls, .xlsx, .jpg, .png, .tiff"

// ValidationMetadata summarizes what the validator saw.
type ValidationMetadata struct {
	DeclaredType       string `json:"declaredType"`
	SizeBytes          int64  `json:"sizeBytes"`
	SuspectedEncrypted bool   `json:"suspectedEncrypted"`
	SuspectedCorrupt   bool   `json:"suspectedCorrupt"`
}

// ValidationResult is the ephemeral verdict on a candidate file. It is never
// persisted; IsValid is true exactly when Errors is empty, and warnings never
// affect validity.
type ValidationResult struct {
	IsValid     bool               `json:"isValid"`
	Errors      []string           `json:"errors"`
	Warnings    []string           `json:"warnings"`
	RequiresOCR bool               `json:"requiresOCR"`
	Metadata    ValidationMetadata `json:"metadata"`
}

// ValidateDocument decides whether a candidate file may enter the pipeline
// and annotates it with processing hints. All rules are applied
// independently so every violation is reported, not just the first. The
// function is side-effect free: no storage writes, no network, and all
// failure paths (including read errors) end up in the Errors list rather
// than a returned error.
func ValidateDocument(filename, declaredType string, size int64, r io.Reader) ValidationResult {
	result := ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
		Metadata: ValidationMetadata{
			DeclaredType: declaredType,
			SizeBytes:    size,
		},
	}

	if size > MaxFileSize {
		result.Errors = append(result.Errors,
			fmt.Sprintf("file size %.2fMB exceeds the 10MB limit", float64(size)/(1024*1024)))
	}
	if size == 0 {
		result.Errors = append(result.Errors, "file is empty")
	}

	if _, ok := supportedTypes[declaredType]; !ok {
		result.Errors = append(result.Errors,
			fmt.Sprintf("unsupported file type %q; supported types are: %s", declaredType, supportedExtensionsList))
	}

	if strings.HasPrefix(declaredType, "image/") {
		result.RequiresOCR = true
		result.Warnings = append(result.Warnings, "image upload: text will be extracted via OCR")
	}

	// Content checks only make sense when there is something to read.
	if size > 0 {
		switch declaredType {
		case mimePDF:
			validatePDFContent(r, &result)
			if size > largePDFThreshold {
				result.Warnings = append(result.Warnings, "large PDF: processing may be slower than usual")
			}
		case mimeDocx:
			validateZipContent(r, &result)
		}
	}

	result.IsValid = len(result.Errors) == 0
	if !result.IsValid {
		log.Printf("[ValidateDocument] %s rejected: %v", filename, result.Errors)
	}
	return result
}

// validatePDFContent checks the %PDF magic header, looks for the /Encrypt
// marker, and applies the scanned-document heuristic. The /Contents-without-
// /Font check is a heuristic, not authoritative: text can be embedded in
// ways it misses, and image-only PDFs can carry font resources.
func validatePDFContent(r io.Reader, result *ValidationResult) {
	probe := make([]byte, contentProbeSize)
	n, err := io.ReadFull(r, probe)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		result.Errors = append(result.Errors, "unable to read file contents")
		return
	}
	probe = probe[:n]

	if n < 4 || string(probe[:4]) != "%PDF" {
		result.Metadata.SuspectedCorrupt = true
		result.Errors = append(result.Errors, "file appears corrupted: missing PDF header")
		return
	}

	text := string(probe)
	if strings.Contains(text, "/Encrypt") {
		result.Metadata.SuspectedEncrypted = true
		result.Errors = append(result.Errors, "encrypted PDFs cannot be processed; remove the password and re-upload")
	}

	if strings.Contains(text, "/Contents") && !strings.Contains(text, "/Font") {
		result.RequiresOCR = true
		result.Warnings = append(result.Warnings, "PDF looks image-based (scanned): text will be extracted via OCR")
	}
}

// validateZipContent checks the ZIP local-file-header magic that every .docx
// container starts with.
func validateZipContent(r io.Reader, result *ValidationResult) {
	header := make([]byte, 4)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		result.Errors = append(result.Errors, "unable to read file contents")
		return
	}

	if n < 2 || header[0] != 0x50 || header[1] != 0x4B {
		result.Metadata.SuspectedCorrupt = true
		result.Errors = append(result.Errors, "file appears corrupted: not a valid docx container")
	}
}
