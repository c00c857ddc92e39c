package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
	"github.com/noah-isme/estate-admin-api/pkg/jobs"
	"github.com/noah-isme/estate-admin-api/pkg/storage"
)

type exportJobStoreStub struct {
	jobs              map[string]*models.ExportJob
	nextID            int
	markProcessingErr error
}

func newExportJobStoreStub() *exportJobStoreStub {
	return &exportJobStoreStub{jobs: make(map[string]*models.ExportJob)}
}

func (s *exportJobStoreStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		s.nextID++
		job.ID = "job-" + time.Now().UTC().Format("150405") + "-" + string(rune('a'+s.nextID))
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	copy := *job
	s.jobs[job.ID] = &copy
	return nil
}

func (s *exportJobStoreStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if job, ok := s.jobs[id]; ok {
		copy := *job
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *exportJobStoreStub) ListByUser(ctx context.Context, userID string, limit int) ([]models.ExportJob, error) {
	out := make([]models.ExportJob, 0)
	for _, job := range s.jobs {
		if job.RequestedBy == userID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (s *exportJobStoreStub) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	if s.markProcessingErr != nil {
		return s.markProcessingErr
	}
	job, ok := s.jobs[id]
	if !ok || job.Status != models.ExportStatusQueued {
		return sql.ErrNoRows
	}
	job.Status = models.ExportStatusProcessing
	job.StartedAt = &startedAt
	return nil
}

func (s *exportJobStoreStub) MarkFinished(ctx context.Context, id, filePath string, rowCount int, finishedAt time.Time) error {
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ExportStatusFinished
	job.FilePath = filePath
	job.RowCount = rowCount
	job.FinishedAt = &finishedAt
	return nil
}

func (s *exportJobStoreStub) MarkFailed(ctx context.Context, id, errMsg string, finishedAt time.Time) error {
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ExportStatusFailed
	job.Error = errMsg
	job.FinishedAt = &finishedAt
	return nil
}

func (s *exportJobStoreStub) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	var paths []string
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) && (job.Status == models.ExportStatusFinished || job.Status == models.ExportStatusFailed) {
			if job.FilePath != "" {
				paths = append(paths, job.FilePath)
			}
			delete(s.jobs, id)
		}
	}
	return paths, nil
}

type dispatcherStub struct {
	enqueued []jobs.Job
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	d.enqueued = append(d.enqueued, job)
	return nil
}

func seededExportService(t *testing.T) (*ExportService, *exportJobStoreStub, *dispatcherStub) {
	t.Helper()
	records := newRecordStoreStub()
	lister := newRecordServiceForTest(records, newApprovalStoreStub(), &auditStub{})
	ctx := context.Background()

	for _, fields := range []models.Fields{
		{"category": "client", "contactPerson": "S. Iyer", "contactNo": "9820012345", "city": "Mumbai"},
		{"category": "developer", "contactPerson": "R. Mehta", "contactNo": "9820054321", "city": "Pune"},
	} {
		_, err := lister.Create(ctx, "contacts", dto.RecordRequest{Fields: fields}, adminClaims())
		require.NoError(t, err)
	}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	repo := newExportJobStoreStub()
	queue := &dispatcherStub{}
	svc := NewExportService(lister, repo, queue, store, signer, &auditStub{}, nil, ExportConfig{}, nil)
	return svc, repo, queue
}

func TestExportServiceSyncCSV(t *testing.T) {
	svc, _, _ := seededExportService(t)

	result, err := svc.ExportSync(context.Background(), "contacts", dto.ExportRequest{Format: "csv"}, "admin-1")
	require.NoError(t, err)
	require.False(t, result.Empty)
	require.Equal(t, 2, result.RowCount)
	require.Equal(t, "contacts.csv", result.Filename)

	lines := strings.Split(strings.TrimRight(string(result.Payload), "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "id,category,"))
	require.Contains(t, string(result.Payload), "S. Iyer")
}

func TestExportServiceSyncEmptyProducesNoFile(t *testing.T) {
	svc, _, _ := seededExportService(t)

	result, err := svc.ExportSync(context.Background(), "contacts", dto.ExportRequest{Format: "csv", Search: "no-such-person"}, "admin-1")
	require.NoError(t, err)
	require.True(t, result.Empty)
	require.Empty(t, result.Payload)
}

func TestExportServiceJobLifecycle(t *testing.T) {
	svc, repo, queue := seededExportService(t)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "contacts", dto.ExportRequest{Format: "pdf"}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, queue.enqueued, 1)

	require.NoError(t, svc.Handle(ctx, jobs.Job{ID: job.ID, Type: "export"}))

	stored, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusFinished, stored.Status)
	require.Equal(t, 2, stored.RowCount)
	require.NotEmpty(t, stored.FilePath)

	resp, err := svc.GetJob(ctx, job.ID, adminClaims())
	require.NoError(t, err)
	require.NotEmpty(t, resp.DownloadURL)
}

func TestExportServiceHandleClaimFailures(t *testing.T) {
	svc, repo, _ := seededExportService(t)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "contacts", dto.ExportRequest{Format: "csv"}, "admin-1")
	require.NoError(t, err)

	// A store failure while claiming the job surfaces to the queue for retry.
	repo.markProcessingErr = errors.New("connection reset")
	err = svc.Handle(ctx, jobs.Job{ID: job.ID, Type: "export"})
	require.ErrorContains(t, err, "connection reset")
	stored, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusQueued, stored.Status)

	// A duplicate first-attempt pickup is a silent no-op.
	repo.markProcessingErr = nil
	require.NoError(t, repo.MarkProcessing(ctx, job.ID, time.Now().UTC()))
	require.NoError(t, svc.Handle(ctx, jobs.Job{ID: job.ID, Type: "export"}))
	stored, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusProcessing, stored.Status)

	// A retry of an already-claimed job runs to completion.
	require.NoError(t, svc.Handle(ctx, jobs.Job{ID: job.ID, Type: "export", Attempt: 1}))
	stored, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusFinished, stored.Status)
}

func TestExportServiceJobOwnership(t *testing.T) {
	svc, _, _ := seededExportService(t)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "contacts", dto.ExportRequest{Format: "csv"}, "admin-1")
	require.NoError(t, err)

	_, err = svc.GetJob(ctx, job.ID, employeeClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRejectsBadFormat(t *testing.T) {
	svc, _, _ := seededExportService(t)

	_, err := svc.CreateJob(context.Background(), "contacts", dto.ExportRequest{Format: "xlsx"}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ExportSync(context.Background(), "contacts", dto.ExportRequest{Format: "pdf"}, "admin-1")
	require.Error(t, err)
}
