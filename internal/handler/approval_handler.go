package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
	"github.com/noah-isme/estate-admin-api/pkg/response"
)

type approvalService interface {
	List(ctx context.Context, query dto.ApprovalFilter, actor *models.JWTClaims) ([]models.PendingAction, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.PendingAction, error)
	Approve(ctx context.Context, id string, req dto.DecisionRequest, reviewerID string) (*dto.DecisionResponse, error)
	Reject(ctx context.Context, id string, req dto.DecisionRequest, reviewerID string) (*dto.DecisionResponse, error)
}

// ApprovalHandler exposes the approval queue endpoints.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// List godoc
// @Summary List pending actions
// @Description Admins see the full queue; employees see only their own submissions.
// @Tags Approvals
// @Produce json
// @Param module query string false "Module name"
// @Param status query string false "PENDING, APPROVED, REJECTED or ALL (default PENDING)"
// @Param kind query string false "CREATE, UPDATE or DELETE"
// @Success 200 {object} response.Envelope
// @Router /approvals [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.ApprovalFilter
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval query"))
		return
	}
	actions, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, actions, nil, map[string]interface{}{"count": len(actions)})
}

// Get godoc
// @Summary Fetch one pending action
// @Tags Approvals
// @Produce json
// @Param id path string true "Action ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /approvals/{id} [get]
func (h *ApprovalHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	action, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, action, nil)
}

// Approve godoc
// @Summary Approve a pending action
// @Description Applies the queued mutation to the record store, then marks the action approved.
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Action ID"
// @Param payload body dto.DecisionRequest false "Optional reviewer note"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approvals/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
			return
		}
	}
	res, err := h.service.Approve(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Reject godoc
// @Summary Reject a pending action
// @Description Marks the action rejected without touching the record store. A reason is required.
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Action ID"
// @Param payload body dto.DecisionRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approvals/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	res, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
