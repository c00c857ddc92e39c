package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
)

type fakeApprovalSrv struct {
	actions    []models.PendingAction
	decision   *dto.DecisionResponse
	decideErr  error
	lastReason string
}

func (f *fakeApprovalSrv) List(context.Context, dto.ApprovalFilter, *models.JWTClaims) ([]models.PendingAction, error) {
	return f.actions, nil
}

func (f *fakeApprovalSrv) Get(context.Context, string, *models.JWTClaims) (*models.PendingAction, error) {
	if len(f.actions) == 0 {
		return nil, appErrors.ErrNotFound
	}
	return &f.actions[0], nil
}

func (f *fakeApprovalSrv) Approve(_ context.Context, _ string, req dto.DecisionRequest, _ string) (*dto.DecisionResponse, error) {
	f.lastReason = req.Reason
	return f.decision, f.decideErr
}

func (f *fakeApprovalSrv) Reject(_ context.Context, _ string, req dto.DecisionRequest, _ string) (*dto.DecisionResponse, error) {
	f.lastReason = req.Reason
	return f.decision, f.decideErr
}

func TestApprovalHandlerApproveWithoutBody(t *testing.T) {
	srv := &fakeApprovalSrv{decision: &dto.DecisionResponse{Action: &models.PendingAction{ID: "act-1", Status: models.StatusApproved}}}
	handler := NewApprovalHandler(srv)

	c, rec := testContext(t, http.MethodPost, "/approvals/act-1/approve", "", adminTestClaims())
	c.Params = gin.Params{{Key: "id", Value: "act-1"}}

	handler.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.lastReason)
}

func TestApprovalHandlerRejectPassesReason(t *testing.T) {
	srv := &fakeApprovalSrv{decision: &dto.DecisionResponse{Action: &models.PendingAction{ID: "act-1", Status: models.StatusRejected}}}
	handler := NewApprovalHandler(srv)

	c, rec := testContext(t, http.MethodPost, "/approvals/act-1/reject", `{"reason":"duplicate entry"}`, adminTestClaims())
	c.Params = gin.Params{{Key: "id", Value: "act-1"}}

	handler.Reject(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "duplicate entry", srv.lastReason)
}

func TestApprovalHandlerDecisionConflict(t *testing.T) {
	srv := &fakeApprovalSrv{decideErr: appErrors.ErrInvalidState}
	handler := NewApprovalHandler(srv)

	c, rec := testContext(t, http.MethodPost, "/approvals/act-1/approve", "", adminTestClaims())
	c.Params = gin.Params{{Key: "id", Value: "act-1"}}

	handler.Approve(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApprovalHandlerListRequiresClaims(t *testing.T) {
	handler := NewApprovalHandler(&fakeApprovalSrv{})

	c, rec := testContext(t, http.MethodGet, "/approvals", "", nil)

	handler.List(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
