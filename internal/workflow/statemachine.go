package workflow

import (
	"fmt"
	"log"
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/klinikpos/clinicsyncgo/internal/outbox"
	"github.com/klinikpos/clinicsyncgo/internal/store"
	"github.com/klinikpos/clinicsyncgo/internal/utils"
)

// InvalidTransitionError is returned when a requested status change is not
// permitted by the transition table.
type InvalidTransitionError struct {
	WorkflowID string
	From       string
	To         string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("workflow %s: invalid transition %s -> %s", e.WorkflowID, e.From, e.To)
}

// transitions is the allowed successor set per status. Terminal statuses
// (rejected, completed, cancelled) have no successors; resubmission creates a
// new workflow instead of reopening one.
var transitions = map[string][]string{
	models.WorkflowStatusDraft:       {models.WorkflowStatusSubmitted, models.WorkflowStatusCancelled},
	models.WorkflowStatusSubmitted:   {models.WorkflowStatusUnderReview, models.WorkflowStatusCancelled},
	models.WorkflowStatusUnderReview: {models.WorkflowStatusApproved, models.WorkflowStatusRejected, models.WorkflowStatusCancelled},
	models.WorkflowStatusApproved:    {models.WorkflowStatusPaid, models.WorkflowStatusCancelled},
	models.WorkflowStatusPaid:        {models.WorkflowStatusCompleted, models.WorkflowStatusCancelled},
	models.WorkflowStatusRejected:    {},
	models.WorkflowStatusCompleted:   {},
	models.WorkflowStatusCancelled:   {},
}

// IsTerminal reports whether the status has no successors.
func IsTerminal(status string) bool {
	succ, ok := transitions[status]
	return ok && len(succ) == 0
}

// CanTransition reports whether from -> to is allowed. Re-entering the same
// non-terminal status is permitted; it appends history but derives nothing.
func CanTransition(from, to string) bool {
	if from == to {
		return !IsTerminal(from)
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine applies status transitions to workflows held in the local store and
// mirrors every accepted transition into the outbox.
type Machine struct {
	store *store.LocalStore
	queue *outbox.Queue
	now   func() time.Time
}

// NewMachine creates a state machine over the given store and outbox.
func NewMachine(st *store.LocalStore, queue *outbox.Queue) *Machine {
	return &Machine{store: st, queue: queue, now: time.Now}
}

// Create starts a new draft workflow for a document and persists it.
func (m *Machine) Create(documentID, patientID, actor string) (models.Workflow, error) {
	now := m.now().UTC()
	if actor == "" {
		actor = models.SystemActor
	}

	w := models.Workflow{
		ID:            utils.TimeID("wf"),
		DocumentID:    documentID,
		PatientID:     patientID,
		CurrentStatus: models.WorkflowStatusDraft,
		StatusHistory: []models.StatusEntry{
			{Status: models.WorkflowStatusDraft, Timestamp: now, ActorID: actor},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.store.AddWorkflow(w)
	m.queue.Enqueue(outbox.Operation{
		Action:     "create",
		EntityType: "workflow",
		EntityID:   w.ID,
		Method:     "POST",
		Endpoint:   "/workflows",
		Payload:    w,
	})

	log.Printf("📄 Workflow %s created for document %s", w.ID, documentID)
	return w, nil
}

// Transition moves a workflow to newStatus. It appends a history entry, sets
// the current status, and derives milestone timestamps on first entry into
// submitted, approved and paid. Re-entering a status never overwrites a
// milestone already set. Exactly one outbox entry is enqueued per accepted
// transition.
func (m *Machine) Transition(workflowID, newStatus, actor, notes string) (models.Workflow, error) {
	w, err := m.store.FindWorkflow(workflowID)
	if err != nil {
		return models.Workflow{}, err
	}

	if !CanTransition(w.CurrentStatus, newStatus) {
		return models.Workflow{}, &InvalidTransitionError{
			WorkflowID: workflowID,
			From:       w.CurrentStatus,
			To:         newStatus,
		}
	}

	now := m.now().UTC()
	if actor == "" {
		actor = models.SystemActor
	}

	w.StatusHistory = append(w.StatusHistory, models.StatusEntry{
		Status:    newStatus,
		Timestamp: now,
		ActorID:   actor,
		Notes:     notes,
	})
	w.CurrentStatus = newStatus
	w.UpdatedAt = now

	// Milestones are set once, on first entry.
	switch newStatus {
	case models.WorkflowStatusSubmitted:
		if w.SubmittedDate == nil {
			t := now
			w.SubmittedDate = &t
		}
	case models.WorkflowStatusApproved:
		if w.ApprovalDate == nil {
			t := now
			w.ApprovalDate = &t
		}
	case models.WorkflowStatusPaid:
		if w.PaymentDate == nil {
			t := now
			w.PaymentDate = &t
		}
	}

	if err := m.store.ReplaceWorkflow(w); err != nil {
		return models.Workflow{}, err
	}

	m.queue.Enqueue(outbox.Operation{
		Action:     "status_update",
		EntityType: "workflow",
		EntityID:   w.ID,
		Method:     "PUT",
		Endpoint:   "/workflows/" + w.ID + "/status",
		Payload: map[string]interface{}{
			"status":    newStatus,
			"notes":     notes,
			"actorId":   actor,
			"timestamp": now,
		},
	})

	log.Printf("🔄 Workflow %s: %s (by %s)", w.ID, newStatus, actor)
	return w, nil
}
