package records

import (
	"fmt"

	"github.com/klinikpos/clinicsyncgo/internal/models"
)

// ValidationResult is the structured outcome of a validator. It is returned,
// never thrown: UI-facing callers check it before invoking a mutation.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

var knownDocumentTypes = map[string]bool{
	models.DocumentTypeRapor:    true,
	models.DocumentTypeRecete:   true,
	models.DocumentTypeFatura:   true,
	models.DocumentTypeIrsaliye: true,
	models.DocumentTypeIade:     true,
	models.DocumentTypeBelge:    true,
}

// ValidateDocument checks a document for structural problems. Pure function;
// the manager itself does not re-validate on write.
func ValidateDocument(doc models.Document) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if doc.PatientID == "" {
		res.Errors = append(res.Errors, "patientId is required")
	}
	if doc.FileName == "" {
		res.Errors = append(res.Errors, "fileName is required")
	}
	if !knownDocumentTypes[doc.DocumentType] {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown documentType %q", doc.DocumentType))
	}

	if doc.ExtractedInfo != nil {
		info := doc.ExtractedInfo
		if info.Confidence < 0 || info.Confidence > 1 {
			res.Errors = append(res.Errors, "extractedInfo.confidence must be between 0 and 1")
		} else if info.Method == models.ExtractionMethodOCR && info.Confidence < 0.5 {
			res.Warnings = append(res.Warnings, "low OCR confidence, verify extracted fields manually")
		}
		if info.Method != models.ExtractionMethodManual && info.Method != models.ExtractionMethodOCR {
			res.Errors = append(res.Errors, fmt.Sprintf("unknown extraction method %q", info.Method))
		}
		if info.IssueDate != nil && info.ValidUntil != nil && info.ValidUntil.Before(*info.IssueDate) {
			res.Errors = append(res.Errors, "validUntil is before issueDate")
		}
	} else if doc.DocumentType == models.DocumentTypeRapor {
		res.Warnings = append(res.Warnings, "report has no extracted info yet")
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

func isElevenDigits(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ValidateEReceipt checks an e-receipt for structural problems. Pure function.
func ValidateEReceipt(r models.EReceipt) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if r.PatientID == "" {
		res.Errors = append(res.Errors, "patientId is required")
	}
	if r.PrescriptionNumber == "" {
		res.Errors = append(res.Errors, "prescriptionNumber is required")
	}
	if !isElevenDigits(r.NationalID) {
		res.Errors = append(res.Errors, "nationalId must be 11 digits")
	}
	if len(r.Materials) == 0 {
		res.Errors = append(res.Errors, "at least one material line is required")
	}
	for i, m := range r.Materials {
		if m.Code == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("material %d: code is required", i))
		}
		if m.Quantity <= 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("material %d: quantity must be positive", i))
		}
	}
	if r.TotalAmount < 0 {
		res.Errors = append(res.Errors, "totalAmount must not be negative")
	} else if r.TotalAmount == 0 {
		res.Warnings = append(res.Warnings, "totalAmount is zero")
	}

	res.IsValid = len(res.Errors) == 0
	return res
}
