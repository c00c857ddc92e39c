package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
	"github.com/noah-isme/estate-admin-api/pkg/storage"
)

func TestImportServiceBasicRows(t *testing.T) {
	records := newRecordStoreStub()
	cache := &invalidatorStub{}
	audit := &auditStub{}
	svc := NewImportService(records, cache, audit, nil, 0)

	payload := []byte("contactPerson,category,contactNo,city\n" +
		"S. Iyer,client,9820012345,Mumbai\n" +
		"R. Mehta,developer,9820054321,Pune\n")

	result, err := svc.Import(context.Background(), "contacts", payload, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	require.Equal(t, 0, result.Skipped)

	list, err := records.ListByModule(context.Background(), "contacts")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Mumbai", list[0].Fields["city"])
	require.Equal(t, []string{"contacts"}, cache.modules)
	require.Len(t, audit.logs, 1)
}

func TestImportServiceSkipsInvalidRows(t *testing.T) {
	records := newRecordStoreStub()
	svc := NewImportService(records, &invalidatorStub{}, &auditStub{}, nil, 0)

	// Second row is missing the required contactNo.
	payload := []byte("contactPerson,category,contactNo\n" +
		"S. Iyer,client,9820012345\n" +
		"R. Mehta,developer,\n")

	result, err := svc.Import(context.Background(), "contacts", payload, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
	require.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 3, result.Errors[0].Row)
	require.Equal(t, "required", result.Errors[0].Reason["contactNo"])
}

func TestImportServiceNumericFallback(t *testing.T) {
	records := newRecordStoreStub()
	svc := NewImportService(records, &invalidatorStub{}, &auditStub{}, nil, 0)

	payload := []byte("developerName,type,noOfBuildings\n" +
		"Skyline Corp,corporate,not-a-number\n")

	result, err := svc.Import(context.Background(), "developers", payload, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
	require.Equal(t, float64(0), result.Records[0].Fields["noOfBuildings"])
}

func TestImportServiceSemicolonLists(t *testing.T) {
	records := newRecordStoreStub()
	svc := NewImportService(records, &invalidatorStub{}, &auditStub{}, nil, 0)

	payload := []byte("developerName,type,presenceCity\n" +
		"Skyline Corp,corporate,Mumbai;Pune;Thane\n")

	result, err := svc.Import(context.Background(), "developers", payload, "admin-1")
	require.NoError(t, err)
	require.Equal(t, []any{"Mumbai", "Pune", "Thane"}, result.Records[0].Fields["presenceCity"])
}

func TestImportServiceRejectsUnknownColumn(t *testing.T) {
	svc := NewImportService(newRecordStoreStub(), &invalidatorStub{}, &auditStub{}, nil, 0)

	payload := []byte("contactPerson,category,contactNoo\nX,client,1\n")
	_, err := svc.Import(context.Background(), "contacts", payload, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

// Export then re-import: the records land in a fresh store with the
// same fields, ids and timestamps aside.
func TestImportExportRoundTrip(t *testing.T) {
	source := newRecordStoreStub()
	lister := newRecordServiceForTest(source, newApprovalStoreStub(), &auditStub{})
	ctx := context.Background()

	original := models.Fields{
		"landParcelName": "Parcel 7",
		"location":       "Thane Industrial Belt",
		"city":           "Thane",
		"areaInSqm":      float64(1250),
		"zone":           "Industrial",
		"documents": map[string]any{
			"propertyCard": map[string]any{"uploaded": true, "fileName": "pc.pdf"},
		},
	}
	_, err := lister.Create(ctx, "land", dto.RecordRequest{Fields: original}, adminClaims())
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exporter := NewExportService(lister, newExportJobStoreStub(), &dispatcherStub{}, store, storage.NewSignedURLSigner("s", time.Hour), &auditStub{}, nil, ExportConfig{}, nil)

	exported, err := exporter.ExportSync(ctx, "land", dto.ExportRequest{Format: "csv"}, "admin-1")
	require.NoError(t, err)

	target := newRecordStoreStub()
	importer := NewImportService(target, &invalidatorStub{}, &auditStub{}, nil, 0)
	result, err := importer.Import(ctx, "land", exported.Payload, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)

	got := result.Records[0].Fields
	require.Equal(t, "Parcel 7", got["landParcelName"])
	require.Equal(t, "Thane Industrial Belt", got["location"])
	require.Equal(t, float64(1250), got["areaInSqm"])
	require.Equal(t, "Industrial", got["zone"])
	docs, ok := got["documents"].(map[string]any)
	require.True(t, ok)
	card, ok := docs["propertyCard"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, card["uploaded"])
	require.Equal(t, "pc.pdf", card["fileName"])
}
