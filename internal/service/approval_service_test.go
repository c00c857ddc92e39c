package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
)

func seedPendingCreate(t *testing.T, queue *approvalStoreStub) *models.PendingAction {
	t.Helper()
	action := &models.PendingAction{
		Module:      "contacts",
		Kind:        models.ActionCreate,
		Draft:       models.Fields{"category": "client", "contactPerson": "S. Iyer", "contactNo": "9820012345"},
		RequestedBy: "emp-1",
	}
	require.NoError(t, queue.Create(context.Background(), action))
	return action
}

func TestApprovalServiceApproveCreate(t *testing.T) {
	records := newRecordStoreStub()
	queue := newApprovalStoreStub()
	cache := &invalidatorStub{}
	audit := &auditStub{}
	svc := NewApprovalService(queue, records, cache, audit, nil, nil)

	action := seedPendingCreate(t, queue)

	resp, err := svc.Approve(context.Background(), action.ID, dto.DecisionRequest{}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, resp.Action.Status)
	require.NotNil(t, resp.Record)

	// The record is now visible in the store.
	list, err := records.ListByModule(context.Background(), "contacts")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "S. Iyer", list[0].Fields["contactPerson"])

	require.Equal(t, []string{"contacts"}, cache.modules)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionActionApproved, audit.logs[0].Action)
}

func TestApprovalServiceApproveUpdateAndDelete(t *testing.T) {
	records := newRecordStoreStub()
	queue := newApprovalStoreStub()
	svc := NewApprovalService(queue, records, &invalidatorStub{}, &auditStub{}, nil, nil)
	ctx := context.Background()

	record := &models.Record{Module: "leads", Fields: models.Fields{"inquiryNo": "INQ-1", "inquiryDate": "2026-08-01", "clientCompany": "Acme", "contactPerson": "R"}}
	require.NoError(t, records.Create(ctx, record))

	one := 1
	update := &models.PendingAction{
		Module:      "leads",
		Kind:        models.ActionUpdate,
		TargetID:    &record.ID,
		BaseVersion: &one,
		Draft:       models.Fields{"inquiryNo": "INQ-1", "inquiryDate": "2026-08-01", "clientCompany": "Acme Ltd", "contactPerson": "R"},
		RequestedBy: "emp-1",
	}
	require.NoError(t, queue.Create(ctx, update))

	resp, err := svc.Approve(ctx, update.ID, dto.DecisionRequest{}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 2, resp.Record.Version)

	stored, err := records.GetByID(ctx, "leads", record.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme Ltd", stored.Fields["clientCompany"])

	two := 2
	del := &models.PendingAction{
		Module:      "leads",
		Kind:        models.ActionDelete,
		TargetID:    &record.ID,
		BaseVersion: &two,
		RequestedBy: "emp-1",
	}
	require.NoError(t, queue.Create(ctx, del))

	resp, err = svc.Approve(ctx, del.ID, dto.DecisionRequest{}, "admin-1")
	require.NoError(t, err)
	require.Nil(t, resp.Record)

	_, err = records.GetByID(ctx, "leads", record.ID)
	require.Error(t, err)
}

func TestApprovalServiceRejectLeavesStoreUntouched(t *testing.T) {
	records := newRecordStoreStub()
	queue := newApprovalStoreStub()
	svc := NewApprovalService(queue, records, &invalidatorStub{}, &auditStub{}, nil, nil)

	action := seedPendingCreate(t, queue)

	resp, err := svc.Reject(context.Background(), action.ID, dto.DecisionRequest{Reason: "duplicate entry"}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, resp.Action.Status)
	require.Equal(t, "duplicate entry", resp.Action.Reason)

	list, err := records.ListByModule(context.Background(), "contacts")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestApprovalServiceRejectRequiresReason(t *testing.T) {
	queue := newApprovalStoreStub()
	svc := NewApprovalService(queue, newRecordStoreStub(), &invalidatorStub{}, &auditStub{}, nil, nil)
	action := seedPendingCreate(t, queue)

	_, err := svc.Reject(context.Background(), action.ID, dto.DecisionRequest{}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceDoubleDecision(t *testing.T) {
	records := newRecordStoreStub()
	queue := newApprovalStoreStub()
	svc := NewApprovalService(queue, records, &invalidatorStub{}, &auditStub{}, nil, nil)
	ctx := context.Background()

	action := seedPendingCreate(t, queue)
	_, err := svc.Approve(ctx, action.ID, dto.DecisionRequest{}, "admin-1")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, action.ID, dto.DecisionRequest{}, "admin-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	_, err = svc.Reject(ctx, action.ID, dto.DecisionRequest{Reason: "late"}, "admin-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceStaleBaselineStaysPending(t *testing.T) {
	records := newRecordStoreStub()
	queue := newApprovalStoreStub()
	svc := NewApprovalService(queue, records, &invalidatorStub{}, &auditStub{}, nil, nil)
	ctx := context.Background()

	record := &models.Record{Module: "leads", Fields: models.Fields{"inquiryNo": "INQ-1", "inquiryDate": "2026-08-01", "clientCompany": "Acme", "contactPerson": "R"}}
	require.NoError(t, records.Create(ctx, record))

	one := 1
	action := &models.PendingAction{
		Module:      "leads",
		Kind:        models.ActionUpdate,
		TargetID:    &record.ID,
		BaseVersion: &one,
		Draft:       models.Fields{"inquiryNo": "INQ-1", "inquiryDate": "2026-08-01", "clientCompany": "Acme Ltd", "contactPerson": "R"},
		RequestedBy: "emp-1",
	}
	require.NoError(t, queue.Create(ctx, action))

	// The record moves on before the reviewer gets to it.
	bump := &models.Record{ID: record.ID, Module: "leads", Fields: models.Fields{"inquiryNo": "INQ-1", "clientCompany": "Acme Group"}}
	require.NoError(t, records.Update(ctx, bump, 1))

	_, err := svc.Approve(ctx, action.ID, dto.DecisionRequest{}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// The action is still PENDING for re-resolution.
	stored, err := queue.GetByID(ctx, action.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, stored.Status)

	// The store keeps the concurrent write.
	current, err := records.GetByID(ctx, "leads", record.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme Group", current.Fields["clientCompany"])
}

func TestApprovalServiceVanishedTargetConflicts(t *testing.T) {
	records := newRecordStoreStub()
	queue := newApprovalStoreStub()
	svc := NewApprovalService(queue, records, &invalidatorStub{}, &auditStub{}, nil, nil)
	ctx := context.Background()

	missing := "rec-gone"
	one := 1
	action := &models.PendingAction{
		Module:      "leads",
		Kind:        models.ActionDelete,
		TargetID:    &missing,
		BaseVersion: &one,
		RequestedBy: "emp-1",
	}
	require.NoError(t, queue.Create(ctx, action))

	_, err := svc.Approve(ctx, action.ID, dto.DecisionRequest{}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceListVisibility(t *testing.T) {
	queue := newApprovalStoreStub()
	svc := NewApprovalService(queue, newRecordStoreStub(), &invalidatorStub{}, &auditStub{}, nil, nil)
	ctx := context.Background()

	mine := seedPendingCreate(t, queue)
	other := &models.PendingAction{
		Module:      "contacts",
		Kind:        models.ActionCreate,
		Draft:       models.Fields{"category": "client", "contactPerson": "X", "contactNo": "1"},
		RequestedBy: "emp-2",
	}
	require.NoError(t, queue.Create(ctx, other))

	all, err := svc.List(ctx, dto.ApprovalFilter{}, adminClaims())
	require.NoError(t, err)
	require.Len(t, all, 2)

	own, err := svc.List(ctx, dto.ApprovalFilter{}, employeeClaims())
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, mine.ID, own[0].ID)

	_, err = svc.Get(ctx, other.ID, employeeClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceListDefaultsToPendingQueue(t *testing.T) {
	queue := newApprovalStoreStub()
	svc := NewApprovalService(queue, newRecordStoreStub(), &invalidatorStub{}, &auditStub{}, nil, nil)
	ctx := context.Background()

	decided := seedPendingCreate(t, queue)
	open := seedPendingCreate(t, queue)
	_, err := svc.Approve(ctx, decided.ID, dto.DecisionRequest{}, "admin-1")
	require.NoError(t, err)

	// The default queue shows only undecided actions.
	actions, err := svc.List(ctx, dto.ApprovalFilter{}, adminClaims())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.Equal(t, open.ID, actions[0].ID)
	require.Equal(t, models.StatusPending, actions[0].Status)

	history, err := svc.List(ctx, dto.ApprovalFilter{Status: "all"}, adminClaims())
	require.NoError(t, err)
	require.Len(t, history, 2)

	approved, err := svc.List(ctx, dto.ApprovalFilter{Status: "approved"}, adminClaims())
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, decided.ID, approved[0].ID)

	_, err = svc.List(ctx, dto.ApprovalFilter{Status: "done"}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
