package dto

import "github.com/noah-isme/estate-admin-api/internal/models"

// ApprovalFilter captures query parameters for listing pending actions.
type ApprovalFilter struct {
	Module      string `form:"module"`
	Status      string `form:"status"`
	Kind        string `form:"kind"`
	RequestedBy string `form:"requested_by"`
}

// DecisionRequest is the body for approve/reject calls.
type DecisionRequest struct {
	// Reason is the reviewer's note, required when rejecting.
	Reason string `json:"reason"`
}

// DecisionResponse returns the decided action and, on approval of a
// create or update, the record as it now stands in the store.
type DecisionResponse struct {
	Action *models.PendingAction `json:"action"`
	Record *models.Record        `json:"record,omitempty"`
}
