package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
)

type approvalStore interface {
	Create(ctx context.Context, action *models.PendingAction) error
	GetByID(ctx context.Context, id string) (*models.PendingAction, error)
	List(ctx context.Context, filter models.ApprovalFilter) ([]models.PendingAction, error)
	CountPending(ctx context.Context) (int, error)
	UpdateStatus(ctx context.Context, id string, status models.ActionStatus, reviewedBy, reason string, reviewedAt time.Time) error
}

type cacheInvalidator interface {
	InvalidateModule(ctx context.Context, module string)
}

// ApprovalService reviews the pending action queue. Approving applies
// the action to the record store first and only then marks the action
// decided; when the apply fails the action stays PENDING so a reviewer
// can retry or reject after the conflict is resolved.
type ApprovalService struct {
	queue   approvalStore
	applier recordApplier
	cache   cacheInvalidator
	audit   auditLogger
	metrics *MetricsService
	logger  *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(queue approvalStore, records recordStore, cache cacheInvalidator, audit auditLogger, metrics *MetricsService, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		queue:   queue,
		applier: recordApplier{records: records},
		cache:   cache,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
	}
}

// List returns actions visible to the actor. Without an explicit
// status the result is the review queue: PENDING actions only.
// status=ALL lifts the filter for history views. Employees only see
// their own submissions; admins see every requester's.
func (s *ApprovalService) List(ctx context.Context, query dto.ApprovalFilter, actor *models.JWTClaims) ([]models.PendingAction, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ApprovalFilter{
		Module:      strings.TrimSpace(query.Module),
		RequestedBy: strings.TrimSpace(query.RequestedBy),
	}
	switch status := models.ActionStatus(strings.ToUpper(strings.TrimSpace(query.Status))); status {
	case "":
		pending := models.StatusPending
		filter.Status = &pending
	case "ALL":
		// No status filter.
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
		filter.Status = &status
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be PENDING, APPROVED, REJECTED or ALL")
	}
	if query.Kind != "" {
		kind := models.ActionKind(strings.ToUpper(query.Kind))
		switch kind {
		case models.ActionCreate, models.ActionUpdate, models.ActionDelete:
			filter.Kind = &kind
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be CREATE, UPDATE or DELETE")
		}
	}
	if actor.Role != models.RoleAdmin {
		filter.RequestedBy = actor.UserID
	}

	actions, err := s.queue.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending actions")
	}
	return actions, nil
}

// Get returns one action enforcing the same visibility rule as List.
func (s *ApprovalService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.PendingAction, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	action, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && action.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return action, nil
}

// Approve applies the action to the record store and marks it APPROVED.
func (s *ApprovalService) Approve(ctx context.Context, id string, req dto.DecisionRequest, reviewerID string) (*dto.DecisionResponse, error) {
	action, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if action.Decided() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "action already decided")
	}

	record, err := s.apply(ctx, action)
	if err != nil {
		// Apply failed: the action stays PENDING for re-resolution.
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.queue.UpdateStatus(ctx, action.ID, models.StatusApproved, reviewerID, req.Reason, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "action already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update action status")
	}

	action.Status = models.StatusApproved
	action.ReviewedBy = &reviewerID
	action.ReviewedAt = &now
	action.Reason = req.Reason

	if s.cache != nil {
		s.cache.InvalidateModule(ctx, action.Module)
	}
	s.emitAudit(ctx, reviewerID, models.AuditActionActionApproved, action)
	s.metrics.RecordDecision("approved")

	return &dto.DecisionResponse{Action: action, Record: record}, nil
}

// Reject marks the action REJECTED without touching the record store.
func (s *ApprovalService) Reject(ctx context.Context, id string, req dto.DecisionRequest, reviewerID string) (*dto.DecisionResponse, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required when rejecting")
	}

	action, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if action.Decided() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "action already decided")
	}

	now := time.Now().UTC()
	if err := s.queue.UpdateStatus(ctx, action.ID, models.StatusRejected, reviewerID, req.Reason, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "action already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update action status")
	}

	action.Status = models.StatusRejected
	action.ReviewedBy = &reviewerID
	action.ReviewedAt = &now
	action.Reason = req.Reason

	s.emitAudit(ctx, reviewerID, models.AuditActionActionRejected, action)
	s.metrics.RecordDecision("rejected")
	return &dto.DecisionResponse{Action: action}, nil
}

func (s *ApprovalService) apply(ctx context.Context, action *models.PendingAction) (*models.Record, error) {
	switch action.Kind {
	case models.ActionCreate:
		return s.applier.applyCreate(ctx, action.Module, action.Draft)
	case models.ActionUpdate:
		targetID, baseVersion, err := actionTarget(action)
		if err != nil {
			return nil, err
		}
		record, err := s.applier.applyUpdate(ctx, action.Module, targetID, baseVersion, action.Draft)
		if err != nil {
			return nil, asApprovalConflict(err)
		}
		return record, nil
	case models.ActionDelete:
		targetID, baseVersion, err := actionTarget(action)
		if err != nil {
			return nil, err
		}
		if err := s.applier.applyDelete(ctx, action.Module, targetID, baseVersion); err != nil {
			return nil, asApprovalConflict(err)
		}
		return nil, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported action kind: %s", action.Kind))
	}
}

func (s *ApprovalService) load(ctx context.Context, id string) (*models.PendingAction, error) {
	action, err := s.queue.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pending action not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending action")
	}
	return action, nil
}

func (s *ApprovalService) emitAudit(ctx context.Context, reviewerID, auditAction string, action *models.PendingAction) {
	if s.audit == nil {
		return
	}
	targetID := action.ID
	if action.TargetID != nil {
		targetID = *action.TargetID
	}
	log := &models.AuditLog{
		UserID:   reviewerID,
		Action:   auditAction,
		Module:   action.Module,
		TargetID: targetID,
		Detail:   fmt.Sprintf(`{"kind":%q,"action_id":%q}`, action.Kind, action.ID),
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", auditAction), zap.Error(err))
	}
}

func actionTarget(action *models.PendingAction) (string, int, error) {
	if action.TargetID == nil || action.BaseVersion == nil {
		return "", 0, appErrors.Clone(appErrors.ErrValidation, "action is missing its target")
	}
	return *action.TargetID, *action.BaseVersion, nil
}

// asApprovalConflict folds a vanished target into the stale-baseline
// outcome: either way the queue entry no longer matches reality, the
// reviewer decides what happens next.
func asApprovalConflict(err error) error {
	appErr := appErrors.FromError(err)
	if appErr.Code == appErrors.ErrNotFound.Code {
		return appErrors.Clone(appErrors.ErrConflict, "target record no longer exists")
	}
	return err
}
