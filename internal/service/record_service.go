package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/listview"
	"github.com/noah-isme/estate-admin-api/internal/models"
	"github.com/noah-isme/estate-admin-api/internal/schema"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
)

type approvalEnqueuer interface {
	Create(ctx context.Context, action *models.PendingAction) error
	CountPending(ctx context.Context) (int, error)
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RecordService serves module list views and routes mutations: admins
// write to the store directly, employees enqueue a pending action for
// review.
type RecordService struct {
	records  recordStore
	approval approvalEnqueuer
	cache    listCache
	audit    auditLogger
	applier  recordApplier
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewRecordService constructs the service.
func NewRecordService(records recordStore, approval approvalEnqueuer, cache listCache, audit auditLogger, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &RecordService{
		records:  records,
		approval: approval,
		cache:    cache,
		audit:    audit,
		applier:  recordApplier{records: records},
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// List returns the module's collection filtered and sorted per the
// query. The raw collection is cached; filter and sort always run in
// memory so every request sees consistent list view semantics.
func (s *RecordService) List(ctx context.Context, module string, query dto.ListRequest) ([]models.Record, error) {
	sc, err := schema.Get(module)
	if err != nil {
		return nil, err
	}

	records, err := s.loadCollection(ctx, module)
	if err != nil {
		return nil, err
	}

	filtered := listview.Filter(sc, records, query.Search, query.Category)
	if query.SortBy != "" || query.SortOrder != "" {
		filtered = listview.Sort(sc, filtered, query.SortBy, query.SortOrder)
	}
	return filtered, nil
}

// Get returns a single record.
func (s *RecordService) Get(ctx context.Context, module, id string) (*models.Record, error) {
	if _, err := schema.Get(module); err != nil {
		return nil, err
	}
	record, err := s.records.GetByID(ctx, module, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	return record, nil
}

// Create routes a create mutation by actor role.
func (s *RecordService) Create(ctx context.Context, module string, req dto.RecordRequest, actor *models.JWTClaims) (*dto.MutationResult, error) {
	sc, err := schema.Get(module)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if errs := sc.ValidateDraft(req.Fields); len(errs) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, errs)
	}

	if actor.Role == models.RoleAdmin {
		record, err := s.applier.applyCreate(ctx, module, req.Fields)
		if err != nil {
			return nil, err
		}
		s.afterWrite(ctx, module, actor.UserID, models.AuditActionRecordCreate, record.ID)
		return &dto.MutationResult{Applied: true, Record: record}, nil
	}

	action := &models.PendingAction{
		Module:      module,
		Kind:        models.ActionCreate,
		Draft:       req.Fields.Clone(),
		RequestedBy: actor.UserID,
	}
	return s.enqueue(ctx, action, actor)
}

// Update routes an update mutation by actor role.
func (s *RecordService) Update(ctx context.Context, module, id string, req dto.RecordRequest, actor *models.JWTClaims) (*dto.MutationResult, error) {
	sc, err := schema.Get(module)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if errs := sc.ValidateDraft(req.Fields); len(errs) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, errs)
	}

	baseVersion, err := s.resolveBaseVersion(ctx, module, id, req.BaseVersion)
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleAdmin {
		record, err := s.applier.applyUpdate(ctx, module, id, baseVersion, req.Fields)
		if err != nil {
			return nil, err
		}
		s.afterWrite(ctx, module, actor.UserID, models.AuditActionRecordUpdate, id)
		return &dto.MutationResult{Applied: true, Record: record}, nil
	}

	action := &models.PendingAction{
		Module:      module,
		Kind:        models.ActionUpdate,
		TargetID:    &id,
		BaseVersion: &baseVersion,
		Draft:       req.Fields.Clone(),
		RequestedBy: actor.UserID,
	}
	return s.enqueue(ctx, action, actor)
}

// Delete routes a delete mutation by actor role.
func (s *RecordService) Delete(ctx context.Context, module, id string, baseVersionReq *int, actor *models.JWTClaims) (*dto.MutationResult, error) {
	if _, err := schema.Get(module); err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	baseVersion, err := s.resolveBaseVersion(ctx, module, id, baseVersionReq)
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleAdmin {
		if err := s.applier.applyDelete(ctx, module, id, baseVersion); err != nil {
			return nil, err
		}
		s.afterWrite(ctx, module, actor.UserID, models.AuditActionRecordDelete, id)
		return &dto.MutationResult{Applied: true}, nil
	}

	action := &models.PendingAction{
		Module:      module,
		Kind:        models.ActionDelete,
		TargetID:    &id,
		BaseVersion: &baseVersion,
		RequestedBy: actor.UserID,
	}
	return s.enqueue(ctx, action, actor)
}

// Dashboard returns per-module record counts and the approval queue depth.
func (s *RecordService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	counts, err := s.records.CountByModule(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count records")
	}
	for _, module := range schema.Modules() {
		if _, ok := counts[module]; !ok {
			counts[module] = 0
		}
	}
	pending, err := s.approval.CountPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending actions")
	}
	s.metrics.SetPendingActions(pending)
	return &dto.DashboardResponse{ModuleCounts: counts, PendingActions: pending}, nil
}

// InvalidateModule drops the module's cached collection. Called after
// any write lands, including approved actions.
func (s *RecordService) InvalidateModule(ctx context.Context, module string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, collectionCacheKey(module)); err != nil {
		s.logger.Warn("failed to invalidate list cache", zap.String("module", module), zap.Error(err))
	}
}

func (s *RecordService) loadCollection(ctx context.Context, module string) ([]models.Record, error) {
	key := collectionCacheKey(module)
	if s.cache != nil {
		var cached []models.Record
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("list cache read failed", zap.String("module", module), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	records, err := s.records.ListByModule(ctx, module)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, records, s.cacheTTL); err != nil {
			s.logger.Warn("list cache write failed", zap.String("module", module), zap.Error(err))
		}
	}
	return records, nil
}

func (s *RecordService) resolveBaseVersion(ctx context.Context, module, id string, requested *int) (int, error) {
	if requested != nil {
		return *requested, nil
	}
	record, err := s.records.GetByID(ctx, module, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	return record.Version, nil
}

func (s *RecordService) enqueue(ctx context.Context, action *models.PendingAction, actor *models.JWTClaims) (*dto.MutationResult, error) {
	if err := s.approval.Create(ctx, action); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue pending action")
	}
	targetID := action.ID
	if action.TargetID != nil {
		targetID = *action.TargetID
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:   actor.UserID,
		Action:   models.AuditActionActionRequested,
		Module:   action.Module,
		TargetID: targetID,
		Detail:   fmt.Sprintf(`{"kind":%q,"action_id":%q}`, action.Kind, action.ID),
	})
	return &dto.MutationResult{Applied: false, Action: action}, nil
}

func (s *RecordService) afterWrite(ctx context.Context, module, userID, action, targetID string) {
	s.InvalidateModule(ctx, module)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:   userID,
		Action:   action,
		Module:   module,
		TargetID: targetID,
	})
}

func (s *RecordService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

func collectionCacheKey(module string) string {
	return "records:" + module
}
