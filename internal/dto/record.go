package dto

import "github.com/noah-isme/estate-admin-api/internal/models"

// RecordRequest is the body for create and update calls. Fields is the
// full proposed state of the record, validated against the module schema.
type RecordRequest struct {
	Fields models.Fields `json:"fields" binding:"required"`
	// BaseVersion is required for updates and deletes: the version the
	// caller last read. Mutations against a newer version are rejected.
	BaseVersion *int `json:"base_version,omitempty"`
}

// ListRequest captures the list view query parameters.
type ListRequest struct {
	Search    string `form:"search"`
	Category  string `form:"category"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// MutationResult tells the caller whether the mutation was applied
// directly or queued for approval.
type MutationResult struct {
	Applied bool                  `json:"applied"`
	Record  *models.Record        `json:"record,omitempty"`
	Action  *models.PendingAction `json:"pending_action,omitempty"`
}

// DashboardResponse is the per-module record counts plus the approval
// queue depth.
type DashboardResponse struct {
	ModuleCounts   map[string]int `json:"module_counts"`
	PendingActions int            `json:"pending_actions"`
}
