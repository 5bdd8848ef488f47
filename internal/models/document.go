package models

import "time"

// Document type constants (SGK regulatory artifact kinds)
const (
	DocumentTypeRapor    = "rapor"     // medical report
	DocumentTypeRecete   = "recete"    // prescription
	DocumentTypeFatura   = "fatura"    // invoice
	DocumentTypeIrsaliye = "irsaliye"  // delivery slip
	DocumentTypeIade     = "iade_fisi" // return slip
	DocumentTypeBelge    = "belge"     // generic document
)

// Document processing status constants
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// Extraction method constants
const (
	ExtractionMethodManual = "manual"
	ExtractionMethodOCR    = "ocr"
)

// ExtractedInfo holds the fields pulled out of a scanned document,
// either typed in by the operator or extracted by the OCR pipeline.
type ExtractedInfo struct {
	PatientName    string     `json:"patientName,omitempty"`
	RegistryNumber string     `json:"registryNumber,omitempty"` // SGK sicil no
	IssueDate      *time.Time `json:"issueDate,omitempty"`
	ValidUntil     *time.Time `json:"validUntil,omitempty"`
	Confidence     float64    `json:"confidence"` // 0..1
	Method         string     `json:"method"`     // manual, ocr
}

// Document represents a regulatory artifact (report, prescription, invoice,
// delivery slip, return slip) owned by exactly one patient. Documents live in
// the local store and are synchronized to the remote backend via the outbox.
type Document struct {
	ID            string         `json:"id"`
	PatientID     string         `json:"patientId"`
	FileName      string         `json:"fileName"`
	DocumentType  string         `json:"documentType"`
	ExtractedInfo *ExtractedInfo `json:"extractedInfo,omitempty"`
	Status        string         `json:"status"` // pending, processing, completed, failed
	UploadedAt    time.Time      `json:"uploadedAt"`
	ProcessedAt   *time.Time     `json:"processedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// DocumentPatch is a typed partial update for Document. Nil fields are left
// untouched. Unknown keys are rejected at decode time by the handler layer.
type DocumentPatch struct {
	FileName      *string        `json:"fileName,omitempty"`
	DocumentType  *string        `json:"documentType,omitempty"`
	Status        *string        `json:"status,omitempty"`
	ExtractedInfo *ExtractedInfo `json:"extractedInfo,omitempty"`
	ProcessedAt   *time.Time     `json:"processedAt,omitempty"`
}
