package outbox

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/klinikpos/clinicsyncgo/internal/models"
	"gorm.io/datatypes"
)

// Operation describes one remote mutation to enqueue.
type Operation struct {
	Action     string // create, update, delete, status_update, deliver
	EntityType string // document, workflow, ereceipt
	EntityID   string
	Method     string // POST, PUT, DELETE
	Endpoint   string // path relative to the remote API base URL
	Payload    interface{}
}

// Queue is the write side of the outbox. Enqueue never fails the calling
// mutation: journal errors are logged and swallowed, because the local cache
// has already accepted the operation by the time it reaches the queue.
type Queue struct {
	journal Journal
	now     func() time.Time
}

// NewQueue creates an outbox queue on top of the given journal.
func NewQueue(journal Journal) *Queue {
	return &Queue{journal: journal, now: time.Now}
}

// Enqueue appends one entry describing a remote mutation. The idempotency key
// binds the entry to one (action, entity, instant) triple: retried deliveries
// of this entry reuse the key, while a new call for the same entity produces
// a fresh one.
func (q *Queue) Enqueue(op Operation) {
	var payload datatypes.JSON
	if op.Payload != nil {
		raw, err := json.Marshal(op.Payload)
		if err != nil {
			log.Printf("⚠️ Outbox: failed to serialize payload for %s %s: %v", op.Action, op.EntityID, err)
			return
		}
		payload = datatypes.JSON(raw)
	}

	entry := &models.OutboxOperation{
		ID:             uuid.New().String(),
		EntityType:     op.EntityType,
		EntityID:       op.EntityID,
		Action:         op.Action,
		Method:         op.Method,
		Endpoint:       op.Endpoint,
		Payload:        payload,
		IdempotencyKey: IdempotencyKey(op.Action, op.EntityID, q.now()),
		Status:         models.OutboxStatusPending,
		MaxRetries:     5,
	}

	if err := q.journal.Append(entry); err != nil {
		log.Printf("⚠️ Outbox: failed to enqueue %s %s %s: %v", op.Method, op.Endpoint, op.EntityID, err)
		return
	}
	log.Printf("📤 Outbox: queued %s %s (key %s)", op.Method, op.Endpoint, entry.IdempotencyKey)
}

// IdempotencyKey builds the {action}-{entityId}-{timestamp} token attached to
// every outbound operation.
func IdempotencyKey(action, entityID string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", action, entityID, at.UnixMilli())
}
