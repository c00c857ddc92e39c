package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/estate-admin-api/internal/models"
)

// ApprovalRepository persists the pending action queue.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

const actionColumns = `id, module, kind, status, target_id, base_version, draft,
       requested_by, reviewed_by, reason, requested_at, reviewed_at`

// Create enqueues a new pending action.
func (r *ApprovalRepository) Create(ctx context.Context, action *models.PendingAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.Status == "" {
		action.Status = models.StatusPending
	}
	if action.RequestedAt.IsZero() {
		action.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pending_actions
	(id, module, kind, status, target_id, base_version, draft, requested_by, reviewed_by, reason, requested_at, reviewed_at)
	VALUES (:id, :module, :kind, :status, :target_id, :base_version, :draft, :requested_by, :reviewed_by, :reason, :requested_at, :reviewed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, action); err != nil {
		return fmt.Errorf("create pending action: %w", err)
	}
	return nil
}

// GetByID fetches an action by identifier.
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.PendingAction, error) {
	const query = `SELECT ` + actionColumns + ` FROM pending_actions WHERE id = $1`
	var action models.PendingAction
	if err := r.db.GetContext(ctx, &action, query, id); err != nil {
		return nil, err
	}
	return &action, nil
}

// List returns actions matching the filter, oldest request first so
// reviewers work the queue in submission order.
func (r *ApprovalRepository) List(ctx context.Context, filter models.ApprovalFilter) ([]models.PendingAction, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + actionColumns + ` FROM pending_actions`)

	conditions := make([]string, 0, 4)
	if filter.Module != "" {
		args = append(args, filter.Module)
		conditions = append(conditions, fmt.Sprintf("module = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at ASC, id ASC")

	var actions []models.PendingAction
	if err := r.db.SelectContext(ctx, &actions, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	return actions, nil
}

// CountPending returns the depth of the pending queue.
func (r *ApprovalRepository) CountPending(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM pending_actions WHERE status = 'PENDING'`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count pending actions: %w", err)
	}
	return count, nil
}

// UpdateStatus records a review decision. The guard on status keeps
// decided actions immutable: a second decision affects zero rows and
// surfaces as sql.ErrNoRows.
func (r *ApprovalRepository) UpdateStatus(ctx context.Context, id string, status models.ActionStatus, reviewedBy, reason string, reviewedAt time.Time) error {
	const query = `UPDATE pending_actions
	SET status = $1, reviewed_by = $2, reason = $3, reviewed_at = $4
	WHERE id = $5 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, status, reviewedBy, reason, reviewedAt, id)
	if err != nil {
		return fmt.Errorf("update pending action status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check pending action update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
