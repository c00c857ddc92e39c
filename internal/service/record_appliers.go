package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/estate-admin-api/internal/models"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
)

type recordStore interface {
	Create(ctx context.Context, record *models.Record) error
	GetByID(ctx context.Context, module, id string) (*models.Record, error)
	ListByModule(ctx context.Context, module string) ([]models.Record, error)
	Update(ctx context.Context, record *models.Record, baseVersion int) error
	Delete(ctx context.Context, module, id string, baseVersion int) error
	CountByModule(ctx context.Context) (map[string]int, error)
}

// recordApplier applies validated mutations to the record store. Both
// direct admin writes and approved pending actions funnel through it
// so the version guard semantics stay in one place.
type recordApplier struct {
	records recordStore
}

// applyCreate inserts a new record.
func (a *recordApplier) applyCreate(ctx context.Context, module string, draft models.Fields) (*models.Record, error) {
	record := &models.Record{Module: module, Fields: draft.Clone()}
	if err := a.records.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create record")
	}
	return record, nil
}

// applyUpdate replaces the record fields guarded by baseVersion. A
// missing record maps to ErrNotFound; a version mismatch to ErrConflict.
func (a *recordApplier) applyUpdate(ctx context.Context, module, id string, baseVersion int, draft models.Fields) (*models.Record, error) {
	record := &models.Record{ID: id, Module: module, Fields: draft.Clone()}
	if err := a.records.Update(ctx, record, baseVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, a.classifyGuardFailure(ctx, module, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update record")
	}
	return record, nil
}

// applyDelete removes the record guarded by baseVersion.
func (a *recordApplier) applyDelete(ctx context.Context, module, id string, baseVersion int) error {
	if err := a.records.Delete(ctx, module, id, baseVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a.classifyGuardFailure(ctx, module, id)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete record")
	}
	return nil
}

// classifyGuardFailure distinguishes "record is gone" from "record
// moved past the caller's baseline" after a zero-row guarded write.
func (a *recordApplier) classifyGuardFailure(ctx context.Context, module, id string) error {
	if _, err := a.records.GetByID(ctx, module, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	return appErrors.Clone(appErrors.ErrConflict, "record changed since it was last read")
}
