package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/estate-admin-api/internal/models"
)

// ExportJobRepository persists asynchronous export runs.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

const exportJobColumns = `id, status, params, file_path, row_count, error, requested_by, created_at, started_at, finished_at`

// Create inserts a queued job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO export_jobs (id, status, params, file_path, row_count, error, requested_by, created_at, started_at, finished_at)
	VALUES (:id, :status, :params, :file_path, :row_count, :error, :requested_by, :created_at, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID fetches a job by identifier.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByUser returns a user's most recent jobs.
func (r *ExportJobRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.ExportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT `+exportJobColumns+` FROM export_jobs WHERE requested_by = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, userID); err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, nil
}

// MarkProcessing transitions a queued job to PROCESSING. The status
// guard keeps a job from being picked up twice.
func (r *ExportJobRepository) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	const query = `UPDATE export_jobs SET status = 'PROCESSING', started_at = $2 WHERE id = $1 AND status = 'QUEUED'`
	result, err := r.db.ExecContext(ctx, query, id, startedAt)
	if err != nil {
		return fmt.Errorf("mark export job processing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check export job update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkFinished records a successful run.
func (r *ExportJobRepository) MarkFinished(ctx context.Context, id, filePath string, rowCount int, finishedAt time.Time) error {
	const query = `UPDATE export_jobs SET status = 'FINISHED', file_path = $2, row_count = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, filePath, rowCount, finishedAt); err != nil {
		return fmt.Errorf("mark export job finished: %w", err)
	}
	return nil
}

// MarkFailed records a failed run with its error message.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, errMsg string, finishedAt time.Time) error {
	const query = `UPDATE export_jobs SET status = 'FAILED', error = $2, finished_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, errMsg, finishedAt); err != nil {
		return fmt.Errorf("mark export job failed: %w", err)
	}
	return nil
}

// DeleteOlderThan removes finished and failed jobs past the retention
// cutoff, returning the file paths so stored files can be cleaned up.
func (r *ExportJobRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `DELETE FROM export_jobs
	WHERE created_at < $1 AND status IN ('FINISHED', 'FAILED')
	RETURNING file_path`
	rows, err := r.db.QueryxContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete old export jobs: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan export job path: %w", err)
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths, rows.Err()
}
