package ocr

import (
	"context"
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/models"
)

// ExtractionResult is the contract of the text-extraction collaborator.
type ExtractionResult struct {
	Success        bool                  `json:"success"`
	ExtractedText  string                `json:"extractedText"`
	Confidence     float64               `json:"confidence"` // 0..1
	ProcessingTime time.Duration         `json:"processingTime"`
	Info           *models.ExtractedInfo `json:"extractedInfo,omitempty"`
}

// Extractor pulls structured fields out of a scanned document image.
type Extractor interface {
	Extract(ctx context.Context, imagePath string) (*ExtractionResult, error)
}

// FallbackResult is what the engine uses when extraction fails: a low
// confidence placeholder routed to manual review instead of an error.
func FallbackResult() *ExtractionResult {
	return &ExtractionResult{
		Success:       true,
		ExtractedText: "",
		Confidence:    0.0,
		Info: &models.ExtractedInfo{
			Confidence: 0.0,
			Method:     models.ExtractionMethodOCR,
		},
	}
}

// StaticExtractor always returns a fixed result. Used when no extraction
// backend is configured and by tests.
type StaticExtractor struct {
	Result *ExtractionResult
	Err    error
}

// Extract returns the configured result.
func (s *StaticExtractor) Extract(ctx context.Context, imagePath string) (*ExtractionResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return FallbackResult(), nil
}
