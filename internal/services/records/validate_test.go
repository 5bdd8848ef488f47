package records

import (
	"testing"
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() models.Document {
	return models.Document{
		PatientID:    "p1",
		FileName:     "rapor.pdf",
		DocumentType: models.DocumentTypeRapor,
		ExtractedInfo: &models.ExtractedInfo{
			PatientName: "Ayse Yilmaz",
			Confidence:  0.9,
			Method:      models.ExtractionMethodManual,
		},
	}
}

func TestValidateDocumentOK(t *testing.T) {
	res := ValidateDocument(validDocument())
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestValidateDocumentRequiredFields(t *testing.T) {
	doc := validDocument()
	doc.PatientID = ""
	doc.FileName = ""

	res := ValidateDocument(doc)
	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 2)
}

func TestValidateDocumentUnknownType(t *testing.T) {
	doc := validDocument()
	doc.DocumentType = "makbuz"

	res := ValidateDocument(doc)
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "makbuz")
}

func TestValidateDocumentConfidenceBounds(t *testing.T) {
	doc := validDocument()
	doc.ExtractedInfo.Confidence = 1.2
	assert.False(t, ValidateDocument(doc).IsValid)

	doc.ExtractedInfo.Confidence = -0.1
	assert.False(t, ValidateDocument(doc).IsValid)
}

func TestValidateDocumentLowConfidenceWarning(t *testing.T) {
	doc := validDocument()
	doc.ExtractedInfo.Method = models.ExtractionMethodOCR
	doc.ExtractedInfo.Confidence = 0.3

	res := ValidateDocument(doc)
	assert.True(t, res.IsValid, "low confidence warns, never blocks")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "confidence")
}

func TestValidateDocumentDateOrder(t *testing.T) {
	doc := validDocument()
	issue := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	until := issue.AddDate(0, -1, 0)
	doc.ExtractedInfo.IssueDate = &issue
	doc.ExtractedInfo.ValidUntil = &until

	res := ValidateDocument(doc)
	assert.False(t, res.IsValid)
}

func TestValidateDocumentReportWithoutInfoWarns(t *testing.T) {
	doc := validDocument()
	doc.ExtractedInfo = nil

	res := ValidateDocument(doc)
	assert.True(t, res.IsValid)
	assert.NotEmpty(t, res.Warnings)
}

func validEReceipt() models.EReceipt {
	return models.EReceipt{
		PatientID:          "p1",
		PrescriptionNumber: "3RX000123",
		NationalID:         "12345678901",
		Materials: []models.EReceiptMaterial{
			{Code: "OR1010", Name: "Strip", Quantity: 2},
		},
		TotalAmount: 184.50,
	}
}

func TestValidateEReceiptOK(t *testing.T) {
	res := ValidateEReceipt(validEReceipt())
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestValidateEReceiptNationalID(t *testing.T) {
	r := validEReceipt()
	r.NationalID = "12345"
	assert.False(t, ValidateEReceipt(r).IsValid)

	// Right length but not numeric.
	r.NationalID = "1234567890X"
	assert.False(t, ValidateEReceipt(r).IsValid)

	r.NationalID = "12345678901"
	assert.True(t, ValidateEReceipt(r).IsValid)
}

func TestValidateEReceiptNeedsMaterials(t *testing.T) {
	r := validEReceipt()
	r.Materials = nil

	res := ValidateEReceipt(r)
	assert.False(t, res.IsValid)
}

func TestValidateEReceiptMaterialLines(t *testing.T) {
	r := validEReceipt()
	r.Materials = append(r.Materials, models.EReceiptMaterial{Code: "", Quantity: 0})

	res := ValidateEReceipt(r)
	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 2, "missing code and non-positive quantity")
}

func TestValidateEReceiptAmounts(t *testing.T) {
	r := validEReceipt()
	r.TotalAmount = -1
	assert.False(t, ValidateEReceipt(r).IsValid)

	r.TotalAmount = 0
	res := ValidateEReceipt(r)
	assert.True(t, res.IsValid)
	assert.NotEmpty(t, res.Warnings)
}
