package store

import (
	"errors"
	"testing"
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/models"
)

// memSlots is an in-memory SlotStore for tests.
type memSlots struct {
	data    map[string][]byte
	loadErr error
	saveErr error
}

func newMemSlots() *memSlots {
	return &memSlots{data: make(map[string][]byte)}
}

func (m *memSlots) LoadSlot(name string) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data[name], nil
}

func (m *memSlots) SaveSlot(name string, payload []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[name] = payload
	return nil
}

type recordingNotifier struct {
	slots []string
}

func (n *recordingNotifier) StoreChanged(slot string) {
	n.slots = append(n.slots, slot)
}

func TestLoadSeedsOnEmptySlots(t *testing.T) {
	s := New(newMemSlots())
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	docs := s.ListDocuments()
	if len(docs) != 1 || docs[0].ID != "doc-seed-1" {
		t.Fatalf("Expected seed document, got %+v", docs)
	}

	if _, err := s.FindWorkflow("wf-seed-1"); err != nil {
		t.Errorf("Expected seed workflow: %v", err)
	}

	r, err := s.FindEReceipt("erx-seed-1")
	if err != nil {
		t.Fatalf("Expected seed e-receipt: %v", err)
	}
	if len(r.Materials) != 2 {
		t.Errorf("Expected 2 seed materials, got %d", len(r.Materials))
	}
}

func TestLoadSeedsOnCorruptPayload(t *testing.T) {
	slots := newMemSlots()
	slots.data[models.SlotDocuments] = []byte("{not json")
	slots.data[models.SlotWorkflowData] = []byte("also not json")

	s := New(slots)
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if docs := s.ListDocuments(); len(docs) != 1 || docs[0].ID != "doc-seed-1" {
		t.Errorf("Corrupt documents slot should seed defaults, got %+v", docs)
	}
	if _, err := s.FindEReceipt("erx-seed-1"); err != nil {
		t.Errorf("Corrupt workflow slot should seed defaults: %v", err)
	}
}

func TestLoadRunsOncePerProcess(t *testing.T) {
	slots := newMemSlots()
	s := New(slots)
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s.AddDocument(models.Document{ID: "doc-extra", PatientID: "p1"})

	// Second Load must not reset in-memory state.
	if err := s.Load(); err != nil {
		t.Fatalf("Second Load failed: %v", err)
	}
	if _, err := s.FindDocument("doc-extra"); err != nil {
		t.Errorf("Second Load reset state: %v", err)
	}
}

func TestReloadReadsSlotsAgain(t *testing.T) {
	slots := newMemSlots()

	writer := New(slots)
	if err := writer.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	writer.AddDocument(models.Document{ID: "doc-other-terminal", PatientID: "p9"})

	reader := New(slots)
	if err := reader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := reader.FindDocument("doc-other-terminal"); err != nil {
		t.Fatalf("Reader should see persisted document: %v", err)
	}

	writer.AddDocument(models.Document{ID: "doc-later", PatientID: "p9"})
	if _, err := reader.FindDocument("doc-later"); err == nil {
		t.Fatal("Reader saw a write it has not reloaded yet")
	}

	reader.Reload()
	if _, err := reader.FindDocument("doc-later"); err != nil {
		t.Errorf("Reload should pick up the new document: %v", err)
	}
}

func TestMutationsPersistThrough(t *testing.T) {
	slots := newMemSlots()
	s := New(slots)
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	now := time.Now().UTC()
	s.AddEReceipt(models.EReceipt{
		ID:        "erx-1",
		PatientID: "p1",
		Materials: []models.EReceiptMaterial{{ID: "mat-1", Code: "OR1010", Quantity: 1, DeliveryStatus: models.MaterialDeliveryPending}},
		Status:    models.EReceiptStatusActive,
		CreatedAt: now,
	})

	fresh := New(slots)
	if err := fresh.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	r, err := fresh.FindEReceipt("erx-1")
	if err != nil {
		t.Fatalf("E-receipt did not round-trip: %v", err)
	}
	if len(r.Materials) != 1 || r.Materials[0].Code != "OR1010" {
		t.Errorf("Materials did not round-trip: %+v", r.Materials)
	}
}

func TestRemoveDocumentCascade(t *testing.T) {
	s := New(newMemSlots())
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s.AddDocument(models.Document{ID: "doc-1", PatientID: "p1"})
	s.AddWorkflow(models.Workflow{ID: "wf-1", DocumentID: "doc-1", PatientID: "p1", CurrentStatus: models.WorkflowStatusDraft})

	if err := s.RemoveDocumentCascade("doc-1"); err != nil {
		t.Fatalf("Cascade delete failed: %v", err)
	}

	if _, err := s.FindDocument("doc-1"); !IsNotFound(err) {
		t.Errorf("Document should be gone, got %v", err)
	}
	if _, err := s.FindWorkflow("wf-1"); !IsNotFound(err) {
		t.Errorf("Attached workflow should be gone, got %v", err)
	}
}

func TestRemoveDocumentCascadeNotFound(t *testing.T) {
	s := New(newMemSlots())
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := s.RemoveDocumentCascade("missing")
	if !IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestNotifierFiresPerSlot(t *testing.T) {
	s := New(newMemSlots())
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	n := &recordingNotifier{}
	s.SetNotifier(n)

	s.AddDocument(models.Document{ID: "doc-1", PatientID: "p1"})

	// Every mutation persists both slots, so both get announced.
	if len(n.slots) != 2 {
		t.Fatalf("Expected 2 notifications, got %d (%v)", len(n.slots), n.slots)
	}
	if n.slots[0] != models.SlotDocuments || n.slots[1] != models.SlotWorkflowData {
		t.Errorf("Unexpected notification order: %v", n.slots)
	}
}

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	slots := newMemSlots()
	s := New(slots)
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	slots.saveErr = errors.New("disk full")
	s.AddDocument(models.Document{ID: "doc-1", PatientID: "p1"})

	// The write must still be visible locally.
	if _, err := s.FindDocument("doc-1"); err != nil {
		t.Errorf("In-memory state lost after save failure: %v", err)
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := New(newMemSlots())
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	receipts := s.ListEReceipts()
	receipts[0].Materials[0].DeliveryStatus = models.MaterialDeliveryDelivered

	again, err := s.FindEReceipt(receipts[0].ID)
	if err != nil {
		t.Fatalf("FindEReceipt failed: %v", err)
	}
	if again.Materials[0].DeliveryStatus != models.MaterialDeliveryPending {
		t.Error("Mutating a listed receipt leaked into the store")
	}
}
