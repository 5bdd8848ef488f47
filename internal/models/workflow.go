package models

import "time"

// Workflow status constants. The approval lifecycle is:
// draft -> submitted -> under_review -> {approved | rejected};
// approved -> paid -> completed; cancelled from any non-terminal state.
const (
	WorkflowStatusDraft       = "draft"
	WorkflowStatusSubmitted   = "submitted"
	WorkflowStatusUnderReview = "under_review"
	WorkflowStatusApproved    = "approved"
	WorkflowStatusRejected    = "rejected"
	WorkflowStatusPaid        = "paid"
	WorkflowStatusCompleted   = "completed"
	WorkflowStatusCancelled   = "cancelled"
)

// SystemActor marks a history entry as generated by the engine rather than
// an operator.
const SystemActor = "system-generated"

// StatusEntry is one element of a workflow's append-only history.
type StatusEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actorId"` // operator id or SystemActor
	Notes     string    `json:"notes,omitempty"`
}

// Workflow is the approval lifecycle attached to at most one Document.
// CurrentStatus always equals the status of the last history entry; history
// is never truncated or reordered.
type Workflow struct {
	ID            string        `json:"id"`
	DocumentID    string        `json:"documentId"`
	PatientID     string        `json:"patientId"`
	CurrentStatus string        `json:"currentStatus"`
	StatusHistory []StatusEntry `json:"statusHistory"`
	SubmittedDate *time.Time    `json:"submittedDate,omitempty"`
	ApprovalDate  *time.Time    `json:"approvalDate,omitempty"`
	PaymentDate   *time.Time    `json:"paymentDate,omitempty"`
	Deadline      *time.Time    `json:"deadline,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// LastEntry returns the most recent history entry, or nil for an empty history.
func (w *Workflow) LastEntry() *StatusEntry {
	if len(w.StatusHistory) == 0 {
		return nil
	}
	return &w.StatusHistory[len(w.StatusHistory)-1]
}
