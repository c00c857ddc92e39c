package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
)

func newRecordServiceForTest(records *recordStoreStub, queue *approvalStoreStub, audit *auditStub) *RecordService {
	return NewRecordService(records, queue, nil, audit, nil, nil, time.Minute)
}

func TestRecordServiceAdminCreateAppliesDirectly(t *testing.T) {
	records := newRecordStoreStub()
	queue := newApprovalStoreStub()
	audit := &auditStub{}
	svc := newRecordServiceForTest(records, queue, audit)

	result, err := svc.Create(context.Background(), "contacts", dto.RecordRequest{
		Fields: models.Fields{
			"category":      "client",
			"contactPerson": "S. Iyer",
			"contactNo":     "9820012345",
		},
	}, adminClaims())
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.NotNil(t, result.Record)
	require.Equal(t, 1, result.Record.Version)
	require.Empty(t, queue.actions)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionRecordCreate, audit.logs[0].Action)
}

func TestRecordServiceEmployeeCreateEnqueues(t *testing.T) {
	records := newRecordStoreStub()
	queue := newApprovalStoreStub()
	svc := newRecordServiceForTest(records, queue, &auditStub{})

	result, err := svc.Create(context.Background(), "contacts", dto.RecordRequest{
		Fields: models.Fields{
			"category":      "client",
			"contactPerson": "S. Iyer",
			"contactNo":     "9820012345",
		},
	}, employeeClaims())
	require.NoError(t, err)
	require.False(t, result.Applied)
	require.NotNil(t, result.Action)
	require.Equal(t, models.StatusPending, result.Action.Status)
	require.Equal(t, models.ActionCreate, result.Action.Kind)

	// Nothing in the store until an admin approves.
	list, err := records.ListByModule(context.Background(), "contacts")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestRecordServiceCreateValidationDetails(t *testing.T) {
	svc := newRecordServiceForTest(newRecordStoreStub(), newApprovalStoreStub(), &auditStub{})

	_, err := svc.Create(context.Background(), "contacts", dto.RecordRequest{
		Fields: models.Fields{"category": "client"},
	}, adminClaims())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Equal(t, "required", appErr.Details["contactPerson"])
	require.Equal(t, "required", appErr.Details["contactNo"])
}

func TestRecordServiceUpdateStaleVersionConflicts(t *testing.T) {
	records := newRecordStoreStub()
	svc := newRecordServiceForTest(records, newApprovalStoreStub(), &auditStub{})

	created, err := svc.Create(context.Background(), "leads", dto.RecordRequest{
		Fields: models.Fields{
			"inquiryNo":     "INQ-1",
			"inquiryDate":   "2026-08-01",
			"clientCompany": "Acme Spaces",
			"contactPerson": "R. Mehta",
		},
	}, adminClaims())
	require.NoError(t, err)
	id := created.Record.ID

	// First update moves the record to version 2.
	one := 1
	_, err = svc.Update(context.Background(), "leads", id, dto.RecordRequest{
		Fields: models.Fields{
			"inquiryNo":     "INQ-1",
			"inquiryDate":   "2026-08-01",
			"clientCompany": "Acme Spaces Ltd",
			"contactPerson": "R. Mehta",
		},
		BaseVersion: &one,
	}, adminClaims())
	require.NoError(t, err)

	// A second update against the old baseline conflicts.
	_, err = svc.Update(context.Background(), "leads", id, dto.RecordRequest{
		Fields: models.Fields{
			"inquiryNo":     "INQ-1",
			"inquiryDate":   "2026-08-01",
			"clientCompany": "Acme Again",
			"contactPerson": "R. Mehta",
		},
		BaseVersion: &one,
	}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRecordServiceUnknownModule(t *testing.T) {
	svc := newRecordServiceForTest(newRecordStoreStub(), newApprovalStoreStub(), &auditStub{})

	_, err := svc.List(context.Background(), "vendors", dto.ListRequest{})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnknownModule.Code, appErrors.FromError(err).Code)
}

func TestRecordServiceListFiltersAndSorts(t *testing.T) {
	records := newRecordStoreStub()
	svc := newRecordServiceForTest(records, newApprovalStoreStub(), &auditStub{})
	ctx := context.Background()

	for _, fields := range []models.Fields{
		{"inquiryNo": "INQ-1", "inquiryDate": "2026-08-01", "clientCompany": "Acme Spaces", "contactPerson": "A", "budget": "500"},
		{"inquiryNo": "INQ-2", "inquiryDate": "2026-08-02", "clientCompany": "Bluewater", "contactPerson": "B", "budget": "100"},
		{"inquiryNo": "INQ-3", "inquiryDate": "2026-08-03", "clientCompany": "acme logistics", "contactPerson": "C", "budget": "300"},
	} {
		_, err := svc.Create(ctx, "leads", dto.RecordRequest{Fields: fields}, adminClaims())
		require.NoError(t, err)
	}

	matched, err := svc.List(ctx, "leads", dto.ListRequest{Search: "ACME"})
	require.NoError(t, err)
	require.Len(t, matched, 2)

	sorted, err := svc.List(ctx, "leads", dto.ListRequest{SortBy: "budget", SortOrder: "asc"})
	require.NoError(t, err)
	require.Equal(t, "INQ-2", sorted[0].Fields["inquiryNo"])
	require.Equal(t, "INQ-1", sorted[2].Fields["inquiryNo"])
}

func TestRecordServiceDashboard(t *testing.T) {
	records := newRecordStoreStub()
	queue := newApprovalStoreStub()
	svc := newRecordServiceForTest(records, queue, &auditStub{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "land", dto.RecordRequest{
		Fields: models.Fields{"landParcelName": "Parcel 7", "location": "Thane", "areaInSqm": float64(1250)},
	}, adminClaims())
	require.NoError(t, err)

	_, err = svc.Create(ctx, "land", dto.RecordRequest{
		Fields: models.Fields{"landParcelName": "Parcel 8", "location": "Pune", "areaInSqm": float64(900)},
	}, employeeClaims())
	require.NoError(t, err)

	stats, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.ModuleCounts["land"])
	require.Equal(t, 0, stats.ModuleCounts["leads"])
	require.Equal(t, 1, stats.PendingActions)
}
