package services

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// ErrUnreadableText signals that direct extraction ran but produced no usable
// text, so the document should be re-routed through OCR.
var ErrUnreadableText = errors.New("no readable text extracted")

// extractDirectText normalizes a supported document format into plain text
// without any network call. Formats with no direct parser (legacy .doc,
// images) return an error so the router falls back to OCR.
func extractDirectText(mimeType string, data []byte) (string, error) {
	switch mimeType {
	case mimePDF:
		return extractPDFText(data)
	case mimeCSV:
		return extractCSVText(data)
	case mimeXLS, mimeXLSX:
		return extractSpreadsheetText(data)
	case mimeDocx:
		return extractDocxText(data)
	default:
		return "", fmt.Errorf("no direct extractor for %s: %w", mimeType, ErrUnreadableText)
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", ErrUnreadableText
	}
	return text, nil
}

func extractCSVText(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // tolerate ragged rows

	var lines []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse CSV: %w", err)
		}
		lines = append(lines, strings.Join(record, " "))
	}

	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return "", ErrUnreadableText
	}
	return text, nil
}

func extractSpreadsheetText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			log.Printf("[extractSpreadsheetText] error reading sheet %s: %v", sheet, err)
			continue
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
	}

	text := strings.Join(lines, "\n")
	if text == "" {
		return "", ErrUnreadableText
	}
	return text, nil
}

// extractDocxText reads the word/document.xml entry of the docx zip container
// and collects its character data, one line per paragraph.
func extractDocxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx container: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", fmt.Errorf("failed to open document.xml: %w", err)
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", fmt.Errorf("failed to read document.xml: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("docx container has no word/document.xml: %w", ErrUnreadableText)
	}

	decoder := xml.NewDecoder(bytes.NewReader(docXML))
	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteString("\n")
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrUnreadableText
	}
	return text, nil
}

// OCRClient calls an OCR.space-compatible image recognition API. The endpoint
// and key are injected so tests can point it at a fake server.
type OCRClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewOCRClient(endpoint, apiKey string) *OCRClient {
	return &OCRClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		// A stuck OCR provider must not pin the handler.
		httpClient: &http.Client{Timeout: 45 * time.Second},
	}
}

// RecognizeText sends the file to the OCR API and returns the extracted text.
func (c *OCRClient) RecognizeText(fileBytes []byte, filename string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OCR API key is not set")
	}

	fileType := ocrFileType(filename)

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	if err := w.WriteField("apikey", c.apiKey); err != nil {
		return "", fmt.Errorf("failed to write apikey field: %w", err)
	}
	if err := w.WriteField("language", "eng"); err != nil {
		return "", fmt.Errorf("failed to write language field: %w", err)
	}
	if err := w.WriteField("isOverlayRequired", "false"); err != nil {
		return "", fmt.Errorf("failed to write isOverlayRequired field: %w", err)
	}
	if err := w.WriteField("filetype", fileType); err != nil {
		return "", fmt.Errorf("failed to write filetype field: %w", err)
	}

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = fw.Write(fileBytes); err != nil {
		return "", fmt.Errorf("failed to write file bytes: %w", err)
	}
	w.Close()

	req, err := http.NewRequest("POST", c.endpoint, &b)
	if err != nil {
		return "", fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read OCR response body: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		// Plain-text error bodies come back from the API on bad requests.
		return "", fmt.Errorf("OCR API error: %s", string(bodyBytes))
	}

	if errorMessage, ok := result["ErrorMessage"].(string); ok && errorMessage != "" {
		return "", fmt.Errorf("OCR API error: %s", errorMessage)
	}

	parsedResults, ok := result["ParsedResults"].([]interface{})
	if !ok || len(parsedResults) == 0 {
		return "", fmt.Errorf("no OCR results found in response")
	}

	firstResult, ok := parsedResults[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid parsed results format")
	}

	parsedText, ok := firstResult["ParsedText"].(string)
	if !ok {
		return "", fmt.Errorf("failed to extract ParsedText from OCR response")
	}

	log.Printf("[OCRClient] extracted %d characters from %s", len(parsedText), filename)
	return parsedText, nil
}

func ocrFileType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "PDF"
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPG"
	case ".tiff", ".tif":
		return "TIFF"
	default:
		return "PDF"
	}
}
