package records

import (
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/models"
)

// Statistics is the read-side summary computed on demand over the in-memory
// collections. Nothing here is cached.
type Statistics struct {
	ByType             map[string]int `json:"byType"`
	ByStatus           map[string]int `json:"byStatus"`
	PendingApprovals   int            `json:"pendingApprovals"`
	MonthlySubmissions int            `json:"monthlySubmissions"`
	ApprovalRate       float64        `json:"approvalRate"`
	TotalValue         float64        `json:"totalValue"`
}

// Statistics derives counts, rates and monthly figures from the current
// collections at evaluation time.
func (s *Service) Statistics() Statistics {
	now := s.now()
	stats := Statistics{
		ByType:   make(map[string]int),
		ByStatus: make(map[string]int),
	}

	for _, d := range s.store.ListDocuments() {
		stats.ByType[d.DocumentType]++
	}

	var total, draft, succeeded int
	for _, w := range s.store.ListWorkflows() {
		stats.ByStatus[w.CurrentStatus]++
		total++

		switch w.CurrentStatus {
		case models.WorkflowStatusDraft:
			draft++
		case models.WorkflowStatusUnderReview:
			stats.PendingApprovals++
		case models.WorkflowStatusApproved, models.WorkflowStatusPaid, models.WorkflowStatusCompleted:
			succeeded++
		}

		if w.SubmittedDate != nil && sameMonth(*w.SubmittedDate, now) {
			stats.MonthlySubmissions++
		}
	}

	if denom := total - draft; denom > 0 {
		stats.ApprovalRate = float64(succeeded) / float64(denom) * 100
	}

	for _, r := range s.store.ListEReceipts() {
		stats.TotalValue += r.TotalAmount
	}

	return stats
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
