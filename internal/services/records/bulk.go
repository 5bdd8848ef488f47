package records

import (
	"context"
	"fmt"
	"log"

	"github.com/klinikpos/clinicsyncgo/internal/models"
)

// Bulk operation type constants
const (
	BulkTypeProcess = "process"
	BulkTypeApprove = "approve"
	BulkTypeReject  = "reject"
	BulkTypeSubmit  = "submit"
)

// BulkRequest applies one operation kind across a list of documents.
type BulkRequest struct {
	Type        string   `json:"type"` // process, approve, reject, submit
	DocumentIDs []string `json:"documentIds"`
	Notes       string   `json:"notes,omitempty"`
	ActorID     string   `json:"actorId,omitempty"`
}

// BulkItemError records one failed item inside a bulk result.
type BulkItemError struct {
	DocumentID string `json:"documentId"`
	Error      string `json:"error"`
}

// BulkResult is the aggregate outcome. Bulk operations never raise: per-item
// failures are captured here and the caller inspects Success and Errors.
type BulkResult struct {
	Success   bool            `json:"success"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Errors    []BulkItemError `json:"errors"`
}

var bulkTransitions = map[string]string{
	BulkTypeApprove: models.WorkflowStatusApproved,
	BulkTypeReject:  models.WorkflowStatusRejected,
	BulkTypeSubmit:  models.WorkflowStatusSubmitted,
}

// BulkOperation iterates the document ids sequentially (keeping per-entity
// outbox ordering intact) and continues past individual failures.
func (s *Service) BulkOperation(ctx context.Context, req BulkRequest) BulkResult {
	result := BulkResult{Errors: []BulkItemError{}}

	for _, docID := range req.DocumentIDs {
		var err error
		switch req.Type {
		case BulkTypeProcess:
			_, err = s.ProcessDocumentOCR(ctx, docID, "")
		case BulkTypeApprove, BulkTypeReject, BulkTypeSubmit:
			err = s.transitionByDocument(docID, bulkTransitions[req.Type], req.ActorID, req.Notes)
		default:
			err = fmt.Errorf("unknown bulk operation type %q", req.Type)
		}

		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{
				DocumentID: docID,
				Error:      err.Error(),
			})
			continue
		}
		result.Processed++
	}

	result.Success = result.Failed == 0
	log.Printf("📦 Bulk %s: %d processed, %d failed", req.Type, result.Processed, result.Failed)
	return result
}

func (s *Service) transitionByDocument(documentID, status, actor, notes string) error {
	w, err := s.store.FindWorkflowByDocument(documentID)
	if err != nil {
		return err
	}
	_, err = s.machine.Transition(w.ID, status, actor, notes)
	return err
}
