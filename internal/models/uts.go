package models

import "time"

// UTSRecord is a product-tracking (Ürün Takip Sistemi) notification recorded
// when a serialized medical device is handed over. Kept in the workflow_data
// slot alongside workflows and e-receipts.
type UTSRecord struct {
	ID           string    `json:"id"`
	EReceiptID   string    `json:"eReceiptId,omitempty"`
	MaterialCode string    `json:"materialCode"`
	Barcode      string    `json:"barcode"`
	SerialNumber string    `json:"serialNumber,omitempty"`
	NotifiedAt   time.Time `json:"notifiedAt"`
	CreatedAt    time.Time `json:"createdAt"`
}
