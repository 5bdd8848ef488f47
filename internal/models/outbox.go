package models

import (
	"time"

	"gorm.io/datatypes"
)

// Outbox operation status constants
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusCompleted  = "completed"
	OutboxStatusFailed     = "failed"
)

// OutboxOperation is one queued remote mutation. Entries are append-only:
// after creation only the dispatcher touches them, and only to record
// delivery progress. The Idempotency-Key header is generated once at enqueue
// time so retried deliveries of the same entry reuse the same key.
type OutboxOperation struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	EntityType     string         `gorm:"type:varchar(50);not null;index" json:"entityType"`
	EntityID       string         `gorm:"type:varchar(100);not null;index" json:"entityId"`
	Action         string         `gorm:"type:varchar(50);not null" json:"action"` // create, update, delete, status_update, deliver
	Method         string         `gorm:"type:varchar(10);not null" json:"method"` // GET, POST, PUT, DELETE
	Endpoint       string         `gorm:"type:varchar(500);not null" json:"endpoint"`
	Payload        datatypes.JSON `json:"payload,omitempty"`
	IdempotencyKey string         `gorm:"type:varchar(200);uniqueIndex;not null" json:"idempotencyKey"`
	Status         string         `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	RetryCount     int            `gorm:"default:0" json:"retryCount"`
	MaxRetries     int            `gorm:"default:5" json:"maxRetries"`
	LastError      *string        `gorm:"type:text" json:"lastError,omitempty"`
	ProcessedAt    *time.Time     `json:"processedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// TableName specifies the table name
func (OutboxOperation) TableName() string {
	return "outbox_operations"
}
