package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	"github.com/noah-isme/estate-admin-api/internal/service"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
	"github.com/noah-isme/estate-admin-api/pkg/response"
)

type exportService interface {
	ExportSync(ctx context.Context, module string, req dto.ExportRequest, actorID string) (*service.SyncExport, error)
	CreateJob(ctx context.Context, module string, req dto.ExportRequest, actorID string) (*models.ExportJob, error)
	GetJob(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ExportJobResponse, error)
	ListJobs(ctx context.Context, actor *models.JWTClaims, limit int) ([]dto.ExportJobResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler exposes synchronous exports and the async export job API.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// ExportSync godoc
// @Summary Export a module view as CSV
// @Description Streams a CSV of the current list view. Responds 204 when the view is empty.
// @Tags Exports
// @Produce text/csv
// @Param module path string true "Module name"
// @Param search query string false "Search term"
// @Param category query string false "Category filter"
// @Param sort_by query string false "Sort field"
// @Param sort_order query string false "asc or desc"
// @Success 200 {file} file
// @Success 204 {object} response.Envelope
// @Router /modules/{module}/export [get]
func (h *ExportHandler) ExportSync(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export query"))
		return
	}
	res, err := h.service.ExportSync(c.Request.Context(), c.Param("module"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Empty {
		response.NoContent(c)
		return
	}
	writeCSVAttachment(c, res.Filename, res.Payload)
}

// CreateJob godoc
// @Summary Queue an export job
// @Description Queues a CSV or PDF export processed by a background worker.
// @Tags Exports
// @Produce json
// @Param module path string true "Module name"
// @Param format query string false "csv or pdf"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /modules/{module}/export-jobs [post]
func (h *ExportHandler) CreateJob(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export query"))
		return
	}
	job, err := h.service.CreateJob(c.Request.Context(), c.Param("module"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// GetJob godoc
// @Summary Fetch an export job
// @Description Returns job status; finished jobs carry a signed download URL.
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) GetJob(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	job, err := h.service.GetJob(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// ListJobs godoc
// @Summary List export jobs
// @Description Lists the caller's export jobs, newest first.
// @Tags Exports
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /exports [get]
func (h *ExportHandler) ListJobs(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	jobs, err := h.service.ListJobs(c.Request.Context(), claims, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil, map[string]interface{}{"count": len(jobs)})
}

// Download godoc
// @Summary Download a finished export
// @Description Serves the export file referenced by a signed token. No session required.
// @Tags Exports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	dl, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer dl.File.Close()

	contentType := "text/csv"
	if dl.Format == string(models.ExportFormatPDF) {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(dl.Filename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, dl.File)
}
