package store

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/klinikpos/clinicsyncgo/internal/models"
)

// Notifier receives a signal after every persisted mutation so other
// terminals can reload their caches. The websocket hub implements it.
type Notifier interface {
	StoreChanged(slot string)
}

// LocalStore owns the in-memory collections (documents, workflows,
// e-receipts, UTS records) and writes them through to the slot store as full
// snapshots after every mutation. Persistence is best-effort: a failed save
// is logged and never rolls back the in-memory state. Convergence between
// terminals is last-writer-wins at slot granularity; there is no merge.
type LocalStore struct {
	mu          sync.RWMutex
	slots       SlotStore
	notifier    Notifier
	initialized bool

	documents  []models.Document
	workflows  []models.Workflow
	eReceipts  []models.EReceipt
	utsRecords []models.UTSRecord
}

// New creates a LocalStore on top of the given slot store. Call Load before
// first use.
func New(slots SlotStore) *LocalStore {
	return &LocalStore{slots: slots}
}

// SetNotifier attaches the change broadcaster. Optional.
func (s *LocalStore) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Load reads both slots into memory, seeding the default dataset on any
// parse failure or empty result. Safe to call multiple times; the load runs
// at most once per process lifetime.
func (s *LocalStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	s.loadLocked()
	s.initialized = true
	return nil
}

// Reload re-reads both slots unconditionally. Called when another terminal
// wrote the same slots (store-change broadcast).
func (s *LocalStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	s.initialized = true
	log.Println("🔄 Local store reloaded from storage slots")
}

func (s *LocalStore) loadLocked() {
	payload, err := s.slots.LoadSlot(models.SlotDocuments)
	var docs []models.Document
	if err == nil && len(payload) > 0 {
		err = json.Unmarshal(payload, &docs)
	}
	if err != nil || len(docs) == 0 {
		if err != nil {
			log.Printf("⚠️ Documents slot unreadable, seeding defaults: %v", err)
		}
		docs = seedDocuments()
	}
	s.documents = docs

	payload, err = s.slots.LoadSlot(models.SlotWorkflowData)
	var data models.WorkflowData
	parsed := false
	if err == nil && len(payload) > 0 {
		if err = json.Unmarshal(payload, &data); err == nil {
			parsed = true
		}
	}
	if !parsed || len(data.Workflows)+len(data.EReceipts) == 0 {
		if err != nil {
			log.Printf("⚠️ Workflow data slot unreadable, seeding defaults: %v", err)
		}
		data = seedWorkflowData()
	}
	s.workflows = data.Workflows
	s.eReceipts = data.EReceipts
	s.utsRecords = data.UTSRecords
	if s.utsRecords == nil {
		s.utsRecords = []models.UTSRecord{}
	}
}

// saveLocked serializes both slots in full and writes them through.
// Failures are logged, never propagated: the in-memory state stays
// authoritative for this process.
func (s *LocalStore) saveLocked() {
	if payload, err := json.Marshal(s.documents); err != nil {
		log.Printf("⚠️ Failed to serialize documents slot: %v", err)
	} else if err := s.slots.SaveSlot(models.SlotDocuments, payload); err != nil {
		log.Printf("⚠️ Failed to persist documents slot: %v", err)
	} else if s.notifier != nil {
		s.notifier.StoreChanged(models.SlotDocuments)
	}

	data := models.WorkflowData{
		Workflows:  s.workflows,
		EReceipts:  s.eReceipts,
		UTSRecords: s.utsRecords,
	}
	if payload, err := json.Marshal(data); err != nil {
		log.Printf("⚠️ Failed to serialize workflow data slot: %v", err)
	} else if err := s.slots.SaveSlot(models.SlotWorkflowData, payload); err != nil {
		log.Printf("⚠️ Failed to persist workflow data slot: %v", err)
	} else if s.notifier != nil {
		s.notifier.StoreChanged(models.SlotWorkflowData)
	}
}

// --- Documents ---

// ListDocuments returns a copy of the document collection.
func (s *LocalStore) ListDocuments() []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Document, len(s.documents))
	copy(out, s.documents)
	return out
}

// FindDocument returns the document with the given id.
func (s *LocalStore) FindDocument(id string) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.documents {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Document{}, NewNotFound("document", id)
}

// AddDocument appends a document and persists.
func (s *LocalStore) AddDocument(doc models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents = append(s.documents, doc)
	s.saveLocked()
}

// ReplaceDocument swaps the stored document with the same id and persists.
func (s *LocalStore) ReplaceDocument(doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.documents {
		if s.documents[i].ID == doc.ID {
			s.documents[i] = doc
			s.saveLocked()
			return nil
		}
	}
	return NewNotFound("document", doc.ID)
}

// RemoveDocumentCascade removes the document and its attached workflow (if
// any) in one operation, then persists once. The remote side cascades
// server-side, so callers enqueue a single DELETE for the document only.
func (s *LocalStore) RemoveDocumentCascade(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.documents {
		if s.documents[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NewNotFound("document", id)
	}
	s.documents = append(s.documents[:idx], s.documents[idx+1:]...)

	for i := range s.workflows {
		if s.workflows[i].DocumentID == id {
			s.workflows = append(s.workflows[:i], s.workflows[i+1:]...)
			break
		}
	}

	s.saveLocked()
	return nil
}

// --- Workflows ---

// ListWorkflows returns a deep copy of the workflow collection.
func (s *LocalStore) ListWorkflows() []models.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Workflow, len(s.workflows))
	for i, w := range s.workflows {
		out[i] = cloneWorkflow(w)
	}
	return out
}

// FindWorkflow returns the workflow with the given id.
func (s *LocalStore) FindWorkflow(id string) (models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.workflows {
		if w.ID == id {
			return cloneWorkflow(w), nil
		}
	}
	return models.Workflow{}, NewNotFound("workflow", id)
}

// FindWorkflowByDocument returns the workflow attached to the given document.
func (s *LocalStore) FindWorkflowByDocument(documentID string) (models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.workflows {
		if w.DocumentID == documentID {
			return cloneWorkflow(w), nil
		}
	}
	return models.Workflow{}, NewNotFound("workflow for document", documentID)
}

// AddWorkflow appends a workflow and persists.
func (s *LocalStore) AddWorkflow(w models.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows = append(s.workflows, cloneWorkflow(w))
	s.saveLocked()
}

// ReplaceWorkflow swaps the stored workflow with the same id and persists.
func (s *LocalStore) ReplaceWorkflow(w models.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.workflows {
		if s.workflows[i].ID == w.ID {
			s.workflows[i] = cloneWorkflow(w)
			s.saveLocked()
			return nil
		}
	}
	return NewNotFound("workflow", w.ID)
}

// --- EReceipts ---

// ListEReceipts returns a deep copy of the e-receipt collection.
func (s *LocalStore) ListEReceipts() []models.EReceipt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.EReceipt, len(s.eReceipts))
	for i, r := range s.eReceipts {
		out[i] = cloneEReceipt(r)
	}
	return out
}

// FindEReceipt returns the e-receipt with the given id.
func (s *LocalStore) FindEReceipt(id string) (models.EReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.eReceipts {
		if r.ID == id {
			return cloneEReceipt(r), nil
		}
	}
	return models.EReceipt{}, NewNotFound("e-receipt", id)
}

// AddEReceipt appends an e-receipt and persists.
func (s *LocalStore) AddEReceipt(r models.EReceipt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eReceipts = append(s.eReceipts, cloneEReceipt(r))
	s.saveLocked()
}

// ReplaceEReceipt swaps the stored e-receipt with the same id and persists.
func (s *LocalStore) ReplaceEReceipt(r models.EReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.eReceipts {
		if s.eReceipts[i].ID == r.ID {
			s.eReceipts[i] = cloneEReceipt(r)
			s.saveLocked()
			return nil
		}
	}
	return NewNotFound("e-receipt", r.ID)
}

// --- UTS records ---

// ListUTSRecords returns a copy of the UTS record collection.
func (s *LocalStore) ListUTSRecords() []models.UTSRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.UTSRecord, len(s.utsRecords))
	copy(out, s.utsRecords)
	return out
}

// AddUTSRecord appends a UTS notification record and persists.
func (s *LocalStore) AddUTSRecord(rec models.UTSRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.utsRecords = append(s.utsRecords, rec)
	s.saveLocked()
}

func cloneWorkflow(w models.Workflow) models.Workflow {
	history := make([]models.StatusEntry, len(w.StatusHistory))
	copy(history, w.StatusHistory)
	w.StatusHistory = history
	return w
}

func cloneEReceipt(r models.EReceipt) models.EReceipt {
	materials := make([]models.EReceiptMaterial, len(r.Materials))
	copy(materials, r.Materials)
	r.Materials = materials
	return r
}
