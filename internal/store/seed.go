package store

import (
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/models"
)

// Seed dataset used when a slot is empty or its payload cannot be parsed.
// Kept deliberately small: one document with its draft workflow and one
// two-line e-receipt, enough for a fresh terminal to render something.

func seedDocuments() []models.Document {
	now := time.Now().UTC()
	return []models.Document{
		{
			ID:           "doc-seed-1",
			PatientID:    "patient-seed-1",
			FileName:     "ornek_rapor.pdf",
			DocumentType: models.DocumentTypeRapor,
			Status:       models.DocumentStatusPending,
			UploadedAt:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func seedWorkflowData() models.WorkflowData {
	now := time.Now().UTC()
	return models.WorkflowData{
		Workflows: []models.Workflow{
			{
				ID:            "wf-seed-1",
				DocumentID:    "doc-seed-1",
				PatientID:     "patient-seed-1",
				CurrentStatus: models.WorkflowStatusDraft,
				StatusHistory: []models.StatusEntry{
					{
						Status:    models.WorkflowStatusDraft,
						Timestamp: now,
						ActorID:   models.SystemActor,
					},
				},
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		EReceipts: []models.EReceipt{
			{
				ID:                 "erx-seed-1",
				PatientID:          "patient-seed-1",
				PrescriptionNumber: "3RX000001",
				NationalID:         "11111111110",
				Materials: []models.EReceiptMaterial{
					{
						ID:             "mat-seed-1",
						Code:           "OR1010",
						Name:           "Glukometre strip (50li)",
						Quantity:       2,
						DeliveryStatus: models.MaterialDeliveryPending,
					},
					{
						ID:             "mat-seed-2",
						Code:           "OR1020",
						Name:           "Lancet (100lu)",
						Quantity:       1,
						DeliveryStatus: models.MaterialDeliveryPending,
					},
				},
				TotalAmount:    184.50,
				Status:         models.EReceiptStatusActive,
				DeliveryStatus: models.MaterialDeliveryPending,
				CreatedAt:      now,
				UpdatedAt:      now,
			},
		},
		UTSRecords: []models.UTSRecord{},
	}
}
