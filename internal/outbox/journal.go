package outbox

import (
	"fmt"
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/models"
	"gorm.io/gorm"
)

// Journal is the durable backing of the outbox. Entries are appended once and
// updated only by the dispatcher while recording delivery progress.
type Journal interface {
	Append(op *models.OutboxOperation) error
	NextPending(limit int) ([]models.OutboxOperation, error)
	MarkProcessing(id string) error
	MarkCompleted(id string) error
	MarkRetry(id string, attemptErr string) error
	MarkFailed(id string, attemptErr string) error
	CountByStatus() (map[string]int64, error)
}

// GormJournal persists outbox entries in the outbox_operations table.
type GormJournal struct {
	db *gorm.DB
}

// NewGormJournal creates a journal backed by the given database.
func NewGormJournal(db *gorm.DB) *GormJournal {
	return &GormJournal{db: db}
}

// Append stores a new pending entry.
func (j *GormJournal) Append(op *models.OutboxOperation) error {
	if err := j.db.Create(op).Error; err != nil {
		return fmt.Errorf("failed to append outbox entry: %w", err)
	}
	return nil
}

// NextPending returns pending entries in insertion order (FIFO).
func (j *GormJournal) NextPending(limit int) ([]models.OutboxOperation, error) {
	var ops []models.OutboxOperation
	err := j.db.
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&ops).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending outbox entries: %w", err)
	}
	return ops, nil
}

// MarkProcessing flags an entry as being delivered.
func (j *GormJournal) MarkProcessing(id string) error {
	return j.db.Model(&models.OutboxOperation{}).
		Where("id = ?", id).
		Update("status", models.OutboxStatusProcessing).Error
}

// MarkCompleted records a successful delivery.
func (j *GormJournal) MarkCompleted(id string) error {
	now := time.Now().UTC()
	return j.db.Model(&models.OutboxOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.OutboxStatusCompleted,
			"processed_at": &now,
		}).Error
}

// MarkRetry puts an entry back to pending with an incremented retry count.
func (j *GormJournal) MarkRetry(id string, attemptErr string) error {
	return j.db.Model(&models.OutboxOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.OutboxStatusPending,
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  attemptErr,
		}).Error
}

// MarkFailed records a permanently failed entry.
func (j *GormJournal) MarkFailed(id string, attemptErr string) error {
	return j.db.Model(&models.OutboxOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.OutboxStatusFailed,
			"last_error": attemptErr,
		}).Error
}

// CountByStatus returns entry counts grouped by status, for the status API.
func (j *GormJournal) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := j.db.Model(&models.OutboxOperation{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count outbox entries: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}
