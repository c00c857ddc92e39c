package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Export job lifecycle states.
type ExportJobStatus string

const (
	ExportStatusQueued     ExportJobStatus = "QUEUED"
	ExportStatusProcessing ExportJobStatus = "PROCESSING"
	ExportStatusFinished   ExportJobStatus = "FINISHED"
	ExportStatusFailed     ExportJobStatus = "FAILED"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportJobParams is the frozen snapshot of the list view parameters an
// export was requested with, stored as jsonb.
type ExportJobParams struct {
	Module    string `json:"module"`
	Search    string `json:"search,omitempty"`
	Category  string `json:"category,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
	Format    string `json:"format"`
}

// Value implements driver.Valuer.
func (p ExportJobParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *ExportJobParams) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("export params: unsupported scan type %T", src)
	}
}

// ExportJob is an asynchronous export run.
type ExportJob struct {
	ID          string          `db:"id" json:"id"`
	Status      ExportJobStatus `db:"status" json:"status"`
	Params      ExportJobParams `db:"params" json:"params"`
	FilePath    string          `db:"file_path" json:"-"`
	RowCount    int             `db:"row_count" json:"row_count"`
	Error       string          `db:"error" json:"error,omitempty"`
	RequestedBy string          `db:"requested_by" json:"requested_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	StartedAt   *time.Time      `db:"started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}
