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

// RecordRepository persists module records. All six modules share the
// records table, discriminated by the module column, with a version
// stamp bumped on every write.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

const recordColumns = `id, module, fields, version, created_at, updated_at`

// Create inserts a new record at version 1.
func (r *RecordRepository) Create(ctx context.Context, record *models.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Version = 1

	const query = `INSERT INTO records (id, module, fields, version, created_at, updated_at)
	VALUES (:id, :module, :fields, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// GetByID fetches a record scoped to its module.
func (r *RecordRepository) GetByID(ctx context.Context, module, id string) (*models.Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM records WHERE module = $1 AND id = $2`
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, module, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByModule returns the full collection of a module in insertion
// order. List views paginate in memory, so no LIMIT here.
func (r *RecordRepository) ListByModule(ctx context.Context, module string) ([]models.Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM records WHERE module = $1 ORDER BY created_at ASC, id ASC`
	var records []models.Record
	if err := r.db.SelectContext(ctx, &records, query, module); err != nil {
		return nil, fmt.Errorf("list records for %s: %w", module, err)
	}
	return records, nil
}

// Update replaces the record fields, guarded by the version the caller
// last read. Returns sql.ErrNoRows when the guard fails, either because
// the record is gone or because it moved past baseVersion.
func (r *RecordRepository) Update(ctx context.Context, record *models.Record, baseVersion int) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE records SET fields = $1, version = version + 1, updated_at = $2
	WHERE module = $3 AND id = $4 AND version = $5
	RETURNING version`
	row := r.db.QueryRowxContext(ctx, query, record.Fields, record.UpdatedAt, record.Module, record.ID, baseVersion)
	if err := row.Scan(&record.Version); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// Delete removes a record, guarded the same way as Update.
func (r *RecordRepository) Delete(ctx context.Context, module, id string, baseVersion int) error {
	const query = `DELETE FROM records WHERE module = $1 AND id = $2 AND version = $3`
	result, err := r.db.ExecContext(ctx, query, module, id, baseVersion)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check record delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByModule returns record counts per module for the dashboard.
func (r *RecordRepository) CountByModule(ctx context.Context) (map[string]int, error) {
	const query = `SELECT module, COUNT(*) AS count FROM records GROUP BY module`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var module string
		var count int
		if err := rows.Scan(&module, &count); err != nil {
			return nil, fmt.Errorf("scan record count: %w", err)
		}
		counts[module] = count
	}
	return counts, rows.Err()
}
