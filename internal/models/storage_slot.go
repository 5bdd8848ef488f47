package models

import "time"

// Storage slot names. The local cache persists as two full-snapshot slots:
// one holding the document array, one holding {workflows, eReceipts,
// utsRecords}.
const (
	SlotDocuments    = "documents"
	SlotWorkflowData = "workflow_data"
)

// StorageSlot is one named persistence slot. Every save rewrites the whole
// payload (no partial writes), so a slot row is always a consistent snapshot.
type StorageSlot struct {
	Name      string    `gorm:"primaryKey;type:varchar(50)" json:"name"`
	Payload   []byte    `gorm:"type:jsonb" json:"payload"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (StorageSlot) TableName() string {
	return "storage_slots"
}

// WorkflowData is the composite payload of the workflow_data slot.
type WorkflowData struct {
	Workflows  []Workflow  `json:"workflows"`
	EReceipts  []EReceipt  `json:"eReceipts"`
	UTSRecords []UTSRecord `json:"utsRecords"`
}
