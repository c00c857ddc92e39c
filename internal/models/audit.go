package models

import "time"

// Audit actions recorded by the console.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionLogout          = "LOGOUT"
	AuditActionPasswordChange  = "PASSWORD_CHANGE"
	AuditActionRecordCreate    = "RECORD_CREATE"
	AuditActionRecordUpdate    = "RECORD_UPDATE"
	AuditActionRecordDelete    = "RECORD_DELETE"
	AuditActionActionRequested = "ACTION_REQUESTED"
	AuditActionActionApproved  = "ACTION_APPROVED"
	AuditActionActionRejected  = "ACTION_REJECTED"
	AuditActionExport          = "EXPORT"
	AuditActionImport          = "IMPORT"
	AuditActionUserCreate      = "USER_CREATE"
	AuditActionUserUpdate      = "USER_UPDATE"
)

// AuditLog is a single audit trail entry.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Action    string    `db:"action" json:"action"`
	Module    string    `db:"module" json:"module,omitempty"`
	TargetID  string    `db:"target_id" json:"target_id,omitempty"`
	Detail    string    `db:"detail" json:"detail,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
