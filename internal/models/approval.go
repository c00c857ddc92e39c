package models

import "time"

// ActionKind discriminates what a pending action will do when approved.
type ActionKind string

const (
	ActionCreate ActionKind = "CREATE"
	ActionUpdate ActionKind = "UPDATE"
	ActionDelete ActionKind = "DELETE"
)

// ActionStatus is the lifecycle state of a pending action. APPROVED and
// REJECTED are terminal.
type ActionStatus string

const (
	StatusPending  ActionStatus = "PENDING"
	StatusApproved ActionStatus = "APPROVED"
	StatusRejected ActionStatus = "REJECTED"
)

// PendingAction is an employee-submitted mutation awaiting admin review.
//
// Draft carries the full proposed fields for CREATE and UPDATE and is
// empty for DELETE. TargetID and BaseVersion are set for UPDATE and
// DELETE; BaseVersion is the record version the employee saw when the
// action was submitted, checked again at approval time.
type PendingAction struct {
	ID          string       `db:"id" json:"id"`
	Module      string       `db:"module" json:"module"`
	Kind        ActionKind   `db:"kind" json:"kind"`
	Status      ActionStatus `db:"status" json:"status"`
	TargetID    *string      `db:"target_id" json:"target_id,omitempty"`
	BaseVersion *int         `db:"base_version" json:"base_version,omitempty"`
	Draft       Fields       `db:"draft" json:"draft,omitempty"`
	RequestedBy string       `db:"requested_by" json:"requested_by"`
	ReviewedBy  *string      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	Reason      string       `db:"reason" json:"reason,omitempty"`
	RequestedAt time.Time    `db:"requested_at" json:"requested_at"`
	ReviewedAt  *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// Decided reports whether the action has reached a terminal status.
func (a *PendingAction) Decided() bool {
	return a.Status != StatusPending
}

// ApprovalFilter narrows pending action listings.
type ApprovalFilter struct {
	Module      string
	Status      *ActionStatus
	Kind        *ActionKind
	RequestedBy string
}
