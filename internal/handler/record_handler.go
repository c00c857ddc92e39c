package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
	"github.com/noah-isme/estate-admin-api/pkg/response"
)

type recordService interface {
	List(ctx context.Context, module string, query dto.ListRequest) ([]models.Record, error)
	Get(ctx context.Context, module, id string) (*models.Record, error)
	Create(ctx context.Context, module string, req dto.RecordRequest, actor *models.JWTClaims) (*dto.MutationResult, error)
	Update(ctx context.Context, module, id string, req dto.RecordRequest, actor *models.JWTClaims) (*dto.MutationResult, error)
	Delete(ctx context.Context, module, id string, baseVersion *int, actor *models.JWTClaims) (*dto.MutationResult, error)
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
}

type importService interface {
	Import(ctx context.Context, module string, payload []byte, actorID string) (*dto.ImportResult, error)
}

// maxImportBody caps uploaded CSV payloads at 8 MiB.
const maxImportBody = 8 << 20

// RecordHandler exposes the generic per-module CRUD endpoints.
type RecordHandler struct {
	records  recordService
	importer importService
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(records recordService, importer importService) *RecordHandler {
	return &RecordHandler{records: records, importer: importer}
}

// List godoc
// @Summary List records of a module
// @Tags Records
// @Produce json
// @Param module path string true "Module name"
// @Param search query string false "Case-insensitive substring search"
// @Param category query string false "Category filter"
// @Param sort_by query string false "Sort field"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /modules/{module}/records [get]
func (h *RecordHandler) List(c *gin.Context) {
	var query dto.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid list query"))
		return
	}
	records, err := h.records.List(c.Request.Context(), c.Param("module"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"count": len(records)})
}

// Get godoc
// @Summary Fetch one record
// @Tags Records
// @Produce json
// @Param module path string true "Module name"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /modules/{module}/records/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	record, err := h.records.Get(c.Request.Context(), c.Param("module"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Create a record
// @Description Admins create directly; employee submissions are queued for approval.
// @Tags Records
// @Accept json
// @Produce json
// @Param module path string true "Module name"
// @Param payload body dto.RecordRequest true "Record fields"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /modules/{module}/records [post]
func (h *RecordHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid record payload"))
		return
	}
	result, err := h.records.Create(c.Request.Context(), c.Param("module"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Applied {
		response.JSON(c, http.StatusCreated, result, nil)
		return
	}
	response.Accepted(c, result)
}

// Update godoc
// @Summary Update a record
// @Description Version-guarded update. Admins apply directly; employee submissions are queued.
// @Tags Records
// @Accept json
// @Produce json
// @Param module path string true "Module name"
// @Param id path string true "Record ID"
// @Param payload body dto.RecordRequest true "Record fields with base_version"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /modules/{module}/records/{id} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid record payload"))
		return
	}
	result, err := h.records.Update(c.Request.Context(), c.Param("module"), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Applied {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.Accepted(c, result)
}

// Delete godoc
// @Summary Delete a record
// @Description Version-guarded delete. Admins apply directly; employee submissions are queued.
// @Tags Records
// @Produce json
// @Param module path string true "Module name"
// @Param id path string true "Record ID"
// @Param base_version query int false "Version the caller last read"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /modules/{module}/records/{id} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var baseVersion *int
	if raw := c.Query("base_version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "base_version must be an integer"))
			return
		}
		baseVersion = &v
	}
	result, err := h.records.Delete(c.Request.Context(), c.Param("module"), c.Param("id"), baseVersion, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Applied {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.Accepted(c, result)
}

// Import godoc
// @Summary Import records from CSV
// @Description Parses an uploaded CSV and creates one record per valid row. Invalid rows are skipped and reported.
// @Tags Records
// @Accept text/csv
// @Produce json
// @Param module path string true "Module name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /modules/{module}/import [post]
func (h *RecordHandler) Import(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBody))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unable to read upload"))
		return
	}
	result, err := h.importer.Import(c.Request.Context(), c.Param("module"), payload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Dashboard godoc
// @Summary Dashboard counts
// @Description Per-module record counts plus the pending approval queue depth.
// @Tags Records
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *RecordHandler) Dashboard(c *gin.Context) {
	res, err := h.records.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

func writeCSVAttachment(c *gin.Context, filename string, payload []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}
