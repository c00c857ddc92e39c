package dto

import "github.com/noah-isme/estate-admin-api/internal/models"

// ExportRequest captures query parameters for a synchronous export or
// an async export job. The list parameters mirror ListRequest so an
// export sees exactly what the table showed.
type ExportRequest struct {
	Search    string `form:"search"`
	Category  string `form:"category"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Format    string `form:"format"`
}

// ExportJobResponse enriches a finished job with a signed download URL.
type ExportJobResponse struct {
	models.ExportJob
	DownloadURL string `json:"download_url,omitempty"`
}

// ImportResult summarises a CSV import run.
type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
	Records  []models.Record  `json:"-"`
}

// ImportRowError points at a rejected CSV row.
type ImportRowError struct {
	Row    int               `json:"row"`
	Reason map[string]string `json:"reason"`
}
