package records

import (
	"context"
	"log"
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/klinikpos/clinicsyncgo/internal/ocr"
	"github.com/klinikpos/clinicsyncgo/internal/outbox"
	"github.com/klinikpos/clinicsyncgo/internal/store"
	"github.com/klinikpos/clinicsyncgo/internal/utils"
	"github.com/klinikpos/clinicsyncgo/internal/workflow"
)

// Service is the document and e-receipt manager. Every mutation is applied to
// the local store first, persisted synchronously, and mirrored into the
// outbox; callers get the locally computed result immediately. Validation is
// the caller's job (ValidateDocument / ValidateEReceipt): the service trusts
// its input on write.
type Service struct {
	store     *store.LocalStore
	queue     *outbox.Queue
	machine   *workflow.Machine
	extractor ocr.Extractor
	now       func() time.Time
}

// NewService creates the manager over the given store, outbox and state
// machine.
func NewService(st *store.LocalStore, queue *outbox.Queue, machine *workflow.Machine, extractor ocr.Extractor) *Service {
	return &Service{
		store:     st,
		queue:     queue,
		machine:   machine,
		extractor: extractor,
		now:       time.Now,
	}
}

// CreateDocumentInput carries the fields for a new document.
type CreateDocumentInput struct {
	PatientID     string                `json:"patientId"`
	FileName      string                `json:"fileName"`
	DocumentType  string                `json:"documentType"`
	ExtractedInfo *models.ExtractedInfo `json:"extractedInfo,omitempty"`
}

// CreateDocument stores a new document, auto-attaches a draft workflow, and
// enqueues the remote POST.
func (s *Service) CreateDocument(in CreateDocumentInput, actor string) (models.Document, error) {
	now := s.now().UTC()
	doc := models.Document{
		ID:            utils.TimeID("doc"),
		PatientID:     in.PatientID,
		FileName:      in.FileName,
		DocumentType:  in.DocumentType,
		ExtractedInfo: in.ExtractedInfo,
		Status:        models.DocumentStatusPending,
		UploadedAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.store.AddDocument(doc)
	s.queue.Enqueue(outbox.Operation{
		Action:     "create",
		EntityType: "document",
		EntityID:   doc.ID,
		Method:     "POST",
		Endpoint:   "/documents",
		Payload:    doc,
	})

	if _, err := s.machine.Create(doc.ID, doc.PatientID, actor); err != nil {
		// Workflow creation only touches local state; it cannot fail today,
		// but a document without a workflow would be unusable.
		return models.Document{}, err
	}

	log.Printf("📄 Document %s created (%s) for patient %s", doc.ID, doc.DocumentType, doc.PatientID)
	return doc, nil
}

// GetDocument returns one document.
func (s *Service) GetDocument(id string) (models.Document, error) {
	return s.store.FindDocument(id)
}

// ListDocuments returns all documents.
func (s *Service) ListDocuments() []models.Document {
	return s.store.ListDocuments()
}

// UpdateDocument applies a typed partial update and enqueues the remote PUT.
func (s *Service) UpdateDocument(id string, patch models.DocumentPatch) (models.Document, error) {
	doc, err := s.store.FindDocument(id)
	if err != nil {
		return models.Document{}, err
	}

	if patch.FileName != nil {
		doc.FileName = *patch.FileName
	}
	if patch.DocumentType != nil {
		doc.DocumentType = *patch.DocumentType
	}
	if patch.Status != nil {
		doc.Status = *patch.Status
	}
	if patch.ExtractedInfo != nil {
		doc.ExtractedInfo = patch.ExtractedInfo
	}
	if patch.ProcessedAt != nil {
		doc.ProcessedAt = patch.ProcessedAt
	}
	doc.UpdatedAt = s.now().UTC()

	if err := s.store.ReplaceDocument(doc); err != nil {
		return models.Document{}, err
	}

	s.queue.Enqueue(outbox.Operation{
		Action:     "update",
		EntityType: "document",
		EntityID:   doc.ID,
		Method:     "PUT",
		Endpoint:   "/documents/" + doc.ID,
		Payload:    doc,
	})
	return doc, nil
}

// DeleteDocument removes the document and its attached workflow locally and
// enqueues a single remote DELETE; the backend cascades server-side.
func (s *Service) DeleteDocument(id string) error {
	if err := s.store.RemoveDocumentCascade(id); err != nil {
		return err
	}

	s.queue.Enqueue(outbox.Operation{
		Action:     "delete",
		EntityType: "document",
		EntityID:   id,
		Method:     "DELETE",
		Endpoint:   "/documents/" + id,
	})

	log.Printf("🗑️ Document %s deleted (workflow cascaded locally)", id)
	return nil
}

// ProcessDocumentOCR runs text extraction for a document. Extraction failures
// are recoverable: the document falls back to a low-confidence placeholder
// that routes it to manual review instead of failing the operation.
func (s *Service) ProcessDocumentOCR(ctx context.Context, id, imagePath string) (models.Document, error) {
	doc, err := s.store.FindDocument(id)
	if err != nil {
		return models.Document{}, err
	}

	doc.Status = models.DocumentStatusProcessing
	doc.UpdatedAt = s.now().UTC()
	if err := s.store.ReplaceDocument(doc); err != nil {
		return models.Document{}, err
	}

	if imagePath == "" {
		imagePath = doc.FileName
	}

	result, extractErr := s.extractor.Extract(ctx, imagePath)
	if extractErr != nil || result == nil || !result.Success {
		log.Printf("⚠️ OCR failed for document %s, using fallback: %v", id, extractErr)
		result = ocr.FallbackResult()
	}

	now := s.now().UTC()
	doc.ExtractedInfo = result.Info
	doc.Status = models.DocumentStatusCompleted
	doc.ProcessedAt = &now
	doc.UpdatedAt = now

	if err := s.store.ReplaceDocument(doc); err != nil {
		return models.Document{}, err
	}

	s.queue.Enqueue(outbox.Operation{
		Action:     "update",
		EntityType: "document",
		EntityID:   doc.ID,
		Method:     "PUT",
		Endpoint:   "/documents/" + doc.ID,
		Payload:    doc,
	})
	return doc, nil
}

// MaterialInput is one material line on a new e-receipt.
type MaterialInput struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// CreateEReceiptInput carries the fields for a new e-receipt.
type CreateEReceiptInput struct {
	PatientID          string          `json:"patientId"`
	PrescriptionNumber string          `json:"prescriptionNumber"`
	NationalID         string          `json:"nationalId"`
	Materials          []MaterialInput `json:"materials"`
	TotalAmount        float64         `json:"totalAmount"`
}

// CreateEReceipt stores a new e-receipt and enqueues the remote POST.
func (s *Service) CreateEReceipt(in CreateEReceiptInput) (models.EReceipt, error) {
	now := s.now().UTC()

	materials := make([]models.EReceiptMaterial, len(in.Materials))
	for i, m := range in.Materials {
		materials[i] = models.EReceiptMaterial{
			ID:             utils.TimeID("mat"),
			Code:           m.Code,
			Name:           m.Name,
			Quantity:       m.Quantity,
			DeliveryStatus: models.MaterialDeliveryPending,
		}
	}

	r := models.EReceipt{
		ID:                 utils.TimeID("erx"),
		PatientID:          in.PatientID,
		PrescriptionNumber: in.PrescriptionNumber,
		NationalID:         in.NationalID,
		Materials:          materials,
		TotalAmount:        in.TotalAmount,
		Status:             models.EReceiptStatusActive,
		DeliveryStatus:     models.MaterialDeliveryPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	s.store.AddEReceipt(r)
	s.queue.Enqueue(outbox.Operation{
		Action:     "create",
		EntityType: "ereceipt",
		EntityID:   r.ID,
		Method:     "POST",
		Endpoint:   "/patients/" + r.PatientID + "/ereceipts",
		Payload:    r,
	})

	log.Printf("🧾 E-receipt %s created for patient %s (%d materials)", r.ID, r.PatientID, len(materials))
	return r, nil
}

// GetEReceipt returns one e-receipt.
func (s *Service) GetEReceipt(id string) (models.EReceipt, error) {
	return s.store.FindEReceipt(id)
}

// ListEReceipts returns all e-receipts.
func (s *Service) ListEReceipts() []models.EReceipt {
	return s.store.ListEReceipts()
}

// UpdateEReceipt applies a typed partial update and enqueues the remote PUT.
func (s *Service) UpdateEReceipt(id string, patch models.EReceiptPatch) (models.EReceipt, error) {
	r, err := s.store.FindEReceipt(id)
	if err != nil {
		return models.EReceipt{}, err
	}

	if patch.PrescriptionNumber != nil {
		r.PrescriptionNumber = *patch.PrescriptionNumber
	}
	if patch.NationalID != nil {
		r.NationalID = *patch.NationalID
	}
	if patch.TotalAmount != nil {
		r.TotalAmount = *patch.TotalAmount
	}
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	r.UpdatedAt = s.now().UTC()

	if err := s.store.ReplaceEReceipt(r); err != nil {
		return models.EReceipt{}, err
	}

	s.queue.Enqueue(outbox.Operation{
		Action:     "update",
		EntityType: "ereceipt",
		EntityID:   r.ID,
		Method:     "PUT",
		Endpoint:   "/patients/" + r.PatientID + "/ereceipts/" + r.ID,
		Payload:    r,
	})
	return r, nil
}

// DeliverMaterial records a full delivery of one material line and recomputes
// the receipt aggregate: the receipt completes exactly when every line is
// delivered. Re-delivering an already delivered line refreshes the delivery
// metadata without changing the aggregate.
func (s *Service) DeliverMaterial(receiptID, materialID string, delivery models.MaterialDelivery) (models.EReceipt, error) {
	r, err := s.store.FindEReceipt(receiptID)
	if err != nil {
		return models.EReceipt{}, err
	}

	idx := -1
	for i := range r.Materials {
		if r.Materials[i].ID == materialID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.EReceipt{}, store.NewNotFound("material", materialID)
	}

	now := s.now().UTC()
	mat := &r.Materials[idx]
	if delivery.Barcode != "" {
		mat.Barcode = delivery.Barcode
	}
	if delivery.SerialNumber != "" {
		mat.SerialNumber = delivery.SerialNumber
	}
	if delivery.DeliveryNotes != "" {
		mat.DeliveryNotes = delivery.DeliveryNotes
	}
	if delivery.DeliveryDate != nil {
		mat.DeliveryDate = delivery.DeliveryDate
	} else {
		mat.DeliveryDate = &now
	}
	// Full delivery only; partial quantities are not modeled.
	mat.DeliveryStatus = models.MaterialDeliveryDelivered
	mat.DeliveredQuantity = mat.Quantity

	if r.AllMaterialsDelivered() {
		r.DeliveryStatus = models.MaterialDeliveryDelivered
		r.Status = models.EReceiptStatusCompleted
	} else {
		r.DeliveryStatus = models.MaterialDeliveryPending
		r.Status = models.EReceiptStatusActive
	}
	r.UpdatedAt = now

	if err := s.store.ReplaceEReceipt(r); err != nil {
		return models.EReceipt{}, err
	}

	// Queued under the receipt's id so the dispatcher keeps deliveries
	// ordered behind earlier operations on the same receipt; the material is
	// identified by the endpoint and payload.
	s.queue.Enqueue(outbox.Operation{
		Action:     "deliver",
		EntityType: "ereceipt",
		EntityID:   r.ID,
		Method:     "PUT",
		Endpoint:   "/patients/" + r.PatientID + "/ereceipts/" + r.ID + "/materials/" + materialID + "/delivery",
		Payload:    r.Materials[idx],
	})

	// Serialized devices additionally get a UTS notification record.
	if mat.Barcode != "" || mat.SerialNumber != "" {
		s.store.AddUTSRecord(models.UTSRecord{
			ID:           utils.TimeID("uts"),
			EReceiptID:   r.ID,
			MaterialCode: mat.Code,
			Barcode:      mat.Barcode,
			SerialNumber: mat.SerialNumber,
			NotifiedAt:   now,
			CreatedAt:    now,
		})
	}

	log.Printf("📦 Material %s delivered on e-receipt %s (receipt status: %s)", materialID, r.ID, r.Status)
	return r, nil
}

// ListUTSRecords returns the recorded product-tracking notifications.
func (s *Service) ListUTSRecords() []models.UTSRecord {
	return s.store.ListUTSRecords()
}
