package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/noah-isme/estate-admin-api/internal/models"
)

// recordStoreStub is an in-memory recordStore keeping insertion order
// and honouring the version guard semantics of the SQL layer.
type recordStoreStub struct {
	records []*models.Record
	nextID  int
}

func newRecordStoreStub() *recordStoreStub {
	return &recordStoreStub{}
}

func (s *recordStoreStub) Create(ctx context.Context, record *models.Record) error {
	if record.ID == "" {
		s.nextID++
		record.ID = fmt.Sprintf("rec-%d", s.nextID)
	}
	record.Version = 1
	record.CreatedAt = time.Now().UTC()
	copy := *record
	s.records = append(s.records, &copy)
	return nil
}

func (s *recordStoreStub) GetByID(ctx context.Context, module, id string) (*models.Record, error) {
	for _, r := range s.records {
		if r.Module == module && r.ID == id {
			copy := *r
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *recordStoreStub) ListByModule(ctx context.Context, module string) ([]models.Record, error) {
	out := make([]models.Record, 0)
	for _, r := range s.records {
		if r.Module == module {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *recordStoreStub) Update(ctx context.Context, record *models.Record, baseVersion int) error {
	for _, r := range s.records {
		if r.Module == record.Module && r.ID == record.ID {
			if r.Version != baseVersion {
				return sql.ErrNoRows
			}
			r.Fields = record.Fields.Clone()
			r.Version++
			r.UpdatedAt = time.Now().UTC()
			record.Version = r.Version
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *recordStoreStub) Delete(ctx context.Context, module, id string, baseVersion int) error {
	for i, r := range s.records {
		if r.Module == module && r.ID == id {
			if r.Version != baseVersion {
				return sql.ErrNoRows
			}
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *recordStoreStub) CountByModule(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, r := range s.records {
		counts[r.Module]++
	}
	return counts, nil
}

// approvalStoreStub mirrors the pending_actions table.
type approvalStoreStub struct {
	actions []*models.PendingAction
	nextID  int
}

func newApprovalStoreStub() *approvalStoreStub {
	return &approvalStoreStub{}
}

func (s *approvalStoreStub) Create(ctx context.Context, action *models.PendingAction) error {
	if action.ID == "" {
		s.nextID++
		action.ID = fmt.Sprintf("act-%d", s.nextID)
	}
	if action.Status == "" {
		action.Status = models.StatusPending
	}
	if action.RequestedAt.IsZero() {
		action.RequestedAt = time.Now().UTC()
	}
	copy := *action
	s.actions = append(s.actions, &copy)
	return nil
}

func (s *approvalStoreStub) GetByID(ctx context.Context, id string) (*models.PendingAction, error) {
	for _, a := range s.actions {
		if a.ID == id {
			copy := *a
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *approvalStoreStub) List(ctx context.Context, filter models.ApprovalFilter) ([]models.PendingAction, error) {
	out := make([]models.PendingAction, 0)
	for _, a := range s.actions {
		if filter.Module != "" && a.Module != filter.Module {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.Kind != nil && a.Kind != *filter.Kind {
			continue
		}
		if filter.RequestedBy != "" && a.RequestedBy != filter.RequestedBy {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *approvalStoreStub) CountPending(ctx context.Context) (int, error) {
	count := 0
	for _, a := range s.actions {
		if a.Status == models.StatusPending {
			count++
		}
	}
	return count, nil
}

func (s *approvalStoreStub) UpdateStatus(ctx context.Context, id string, status models.ActionStatus, reviewedBy, reason string, reviewedAt time.Time) error {
	for _, a := range s.actions {
		if a.ID == id {
			if a.Status != models.StatusPending {
				return sql.ErrNoRows
			}
			a.Status = status
			a.ReviewedBy = &reviewedBy
			a.Reason = reason
			a.ReviewedAt = &reviewedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type invalidatorStub struct {
	modules []string
}

func (i *invalidatorStub) InvalidateModule(ctx context.Context, module string) {
	i.modules = append(i.modules, module)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}
}

func employeeClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "emp-1", Email: "emp@example.com", Role: models.RoleEmployee}
}
