package store

import (
	"errors"
	"fmt"

	"github.com/klinikpos/clinicsyncgo/internal/models"
	"gorm.io/gorm"
)

// SlotStore is the persistence boundary of the local cache. Implementations
// store full-snapshot payloads per named slot.
type SlotStore interface {
	LoadSlot(name string) ([]byte, error)
	SaveSlot(name string, payload []byte) error
}

// GormSlotStore persists slots in the storage_slots table.
type GormSlotStore struct {
	db *gorm.DB
}

// NewGormSlotStore creates a slot store backed by the given database.
func NewGormSlotStore(db *gorm.DB) *GormSlotStore {
	return &GormSlotStore{db: db}
}

// LoadSlot returns the stored payload for a slot. A missing slot yields a nil
// payload and no error, which the local store treats as "seed defaults".
func (s *GormSlotStore) LoadSlot(name string) ([]byte, error) {
	var slot models.StorageSlot
	err := s.db.First(&slot, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %s: %w", name, err)
	}
	return slot.Payload, nil
}

// SaveSlot overwrites the slot payload in full.
func (s *GormSlotStore) SaveSlot(name string, payload []byte) error {
	slot := models.StorageSlot{Name: name, Payload: payload}
	err := s.db.Save(&slot).Error
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", name, err)
	}
	return nil
}
