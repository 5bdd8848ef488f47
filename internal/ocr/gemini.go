package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/klinikpos/clinicsyncgo/internal/models"
	"google.golang.org/api/option"
)

const extractionPrompt = `You are reading a scanned Turkish SGK medical document
(report, prescription or invoice). Return ONLY a JSON object with these keys:
patientName, registryNumber, issueDate (YYYY-MM-DD), validUntil (YYYY-MM-DD),
rawText. Use empty strings for fields you cannot read.`

// GeminiExtractor extracts document fields using the Gemini vision API.
type GeminiExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiExtractor creates a Gemini-backed extractor.
func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &GeminiExtractor{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Close closes the client connection
func (g *GeminiExtractor) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// Extract sends the document image to Gemini and parses the structured reply.
func (g *GeminiExtractor) Extract(ctx context.Context, imagePath string) (*ExtractionResult, error) {
	start := time.Now()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", imagePath, err)
	}

	format := strings.TrimPrefix(filepath.Ext(imagePath), ".")
	if format == "" || format == "jpg" {
		format = "jpeg"
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData(format, data),
		genai.Text(extractionPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini extraction error: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var fullText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			fullText += string(txt)
		}
	}

	info, rawText := parseExtraction(fullText)
	confidence := 0.9
	if info.PatientName == "" || info.RegistryNumber == "" {
		confidence = 0.5
	}
	info.Confidence = confidence
	info.Method = models.ExtractionMethodOCR

	return &ExtractionResult{
		Success:        true,
		ExtractedText:  rawText,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
		Info:           info,
	}, nil
}

// parseExtraction decodes the model's JSON reply, tolerating surrounding
// markdown fences and prose.
func parseExtraction(text string) (*models.ExtractedInfo, string) {
	var payload struct {
		PatientName    string `json:"patientName"`
		RegistryNumber string `json:"registryNumber"`
		IssueDate      string `json:"issueDate"`
		ValidUntil     string `json:"validUntil"`
		RawText        string `json:"rawText"`
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		_ = json.Unmarshal([]byte(text[start:end+1]), &payload)
	}

	info := &models.ExtractedInfo{
		PatientName:    payload.PatientName,
		RegistryNumber: payload.RegistryNumber,
	}
	if t, err := time.Parse("2006-01-02", payload.IssueDate); err == nil {
		info.IssueDate = &t
	}
	if t, err := time.Parse("2006-01-02", payload.ValidUntil); err == nil {
		info.ValidUntil = &t
	}

	raw := payload.RawText
	if raw == "" {
		raw = text
	}
	return info, raw
}
