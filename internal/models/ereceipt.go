package models

import "time"

// EReceipt status constants
const (
	EReceiptStatusActive    = "active"
	EReceiptStatusCompleted = "completed"
)

// Material delivery status constants
const (
	MaterialDeliveryPending   = "pending"
	MaterialDeliveryDelivered = "delivered"
)

// EReceiptMaterial is one claimed item on an e-receipt. It is mutated only by
// the delivery operation, which always records a full delivery.
type EReceiptMaterial struct {
	ID                string     `json:"id"`
	Code              string     `json:"code"` // SUT/UTS material code
	Name              string     `json:"name"`
	Quantity          int        `json:"quantity"`
	DeliveredQuantity int        `json:"deliveredQuantity"`
	DeliveryStatus    string     `json:"deliveryStatus"` // pending, delivered
	Barcode           string     `json:"barcode,omitempty"`
	SerialNumber      string     `json:"serialNumber,omitempty"`
	DeliveryDate      *time.Time `json:"deliveryDate,omitempty"`
	DeliveryNotes     string     `json:"deliveryNotes,omitempty"`
}

// EReceipt is an itemized prescription/claim belonging to a patient.
// DeliveryStatus is "delivered" and Status is "completed" if and only if every
// material line is delivered; both are recomputed after each delivery event.
type EReceipt struct {
	ID                 string             `json:"id"`
	PatientID          string             `json:"patientId"`
	PrescriptionNumber string             `json:"prescriptionNumber"`
	NationalID         string             `json:"nationalId"` // TC kimlik no
	Materials          []EReceiptMaterial `json:"materials"`
	TotalAmount        float64            `json:"totalAmount"`
	Status             string             `json:"status"`         // active, completed
	DeliveryStatus     string             `json:"deliveryStatus"` // pending, delivered
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// AllMaterialsDelivered reports whether every material line has been delivered.
func (r *EReceipt) AllMaterialsDelivered() bool {
	for _, m := range r.Materials {
		if m.DeliveryStatus != MaterialDeliveryDelivered {
			return false
		}
	}
	return len(r.Materials) > 0
}

// EReceiptPatch is a typed partial update for EReceipt.
type EReceiptPatch struct {
	PrescriptionNumber *string  `json:"prescriptionNumber,omitempty"`
	NationalID         *string  `json:"nationalId,omitempty"`
	TotalAmount        *float64 `json:"totalAmount,omitempty"`
	Status             *string  `json:"status,omitempty"`
}

// MaterialDelivery carries the metadata recorded when a material is handed
// over to the patient.
type MaterialDelivery struct {
	Barcode       string     `json:"barcode,omitempty"`
	SerialNumber  string     `json:"serialNumber,omitempty"`
	DeliveryDate  *time.Time `json:"deliveryDate,omitempty"`
	DeliveryNotes string     `json:"deliveryNotes,omitempty"`
}
