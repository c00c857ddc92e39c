package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/listview"
	"github.com/noah-isme/estate-admin-api/internal/models"
	"github.com/noah-isme/estate-admin-api/internal/schema"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
	"github.com/noah-isme/estate-admin-api/pkg/export"
	"github.com/noah-isme/estate-admin-api/pkg/jobs"
	"github.com/noah-isme/estate-admin-api/pkg/storage"
)

type recordLister interface {
	List(ctx context.Context, module string, query dto.ListRequest) ([]models.Record, error)
}

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
	MarkFinished(ctx context.Context, id, filePath string, rowCount int, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, errMsg string, finishedAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// SyncExport is the outcome of an inline export request. Empty is true
// when the filtered list had no rows, in which case no file is built.
type SyncExport struct {
	Filename string
	Payload  []byte
	RowCount int
	Empty    bool
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    string
	ExpiresAt time.Time
}

// ExportService renders module list views into CSV and PDF files, both
// inline and through the background job queue.
type ExportService struct {
	lister  recordLister
	repo    exportJobStore
	queue   jobDispatcher
	storage fileStorage
	signer  *storage.SignedURLSigner
	csv     csvRenderer
	pdf     pdfRenderer
	audit   auditLogger
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(lister recordLister, repo exportJobStore, queue jobDispatcher, store fileStorage, signer *storage.SignedURLSigner, audit auditLogger, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		lister:  lister,
		repo:    repo,
		queue:   queue,
		storage: store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		audit:   audit,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// ExportSync builds and renders the export inline. Only CSV is served
// synchronously; PDF always goes through the job queue.
func (s *ExportService) ExportSync(ctx context.Context, module string, req dto.ExportRequest, actorID string) (*SyncExport, error) {
	format := normalizeFormat(req.Format)
	if format != models.ExportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only csv is supported for inline export")
	}

	dataset, rowCount, err := s.buildDataset(ctx, module, req)
	if err != nil {
		return nil, err
	}
	if rowCount == 0 {
		return &SyncExport{Empty: true}, nil
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.emitAudit(ctx, actorID, module, rowCount)
	return &SyncExport{
		Filename: module + ".csv",
		Payload:  payload,
		RowCount: rowCount,
	}, nil
}

// CreateJob persists and enqueues an asynchronous export run.
func (s *ExportService) CreateJob(ctx context.Context, module string, req dto.ExportRequest, actorID string) (*models.ExportJob, error) {
	if _, err := schema.Get(module); err != nil {
		return nil, err
	}
	format := normalizeFormat(req.Format)
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	job := &models.ExportJob{
		Params: models.ExportJobParams{
			Module:    module,
			Search:    req.Search,
			Category:  req.Category,
			SortBy:    req.SortBy,
			SortOrder: req.SortOrder,
			Format:    format,
		},
		RequestedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export"}); err != nil {
		_ = s.repo.MarkFailed(ctx, job.ID, "failed to enqueue job", time.Now().UTC())
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// GetJob returns job metadata, enforcing ownership for employees and
// attaching a signed download URL once the job has finished.
func (s *ExportService) GetJob(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ExportJobResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if actor.Role != models.RoleAdmin && job.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return s.toResponse(job), nil
}

// ListJobs returns the actor's recent jobs.
func (s *ExportService) ListJobs(ctx context.Context, actor *models.JWTClaims, limit int) ([]dto.ExportJobResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	jobsList, err := s.repo.ListByUser(ctx, actor.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list export jobs")
	}
	out := make([]dto.ExportJobResponse, 0, len(jobsList))
	for i := range jobsList {
		out = append(out, *s.toResponse(&jobsList[i]))
	}
	return out, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return &ExportDownload{
		File:      file,
		Filename:  buildExportFilename(job.Params.Module, job.Params.Format),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// Handle processes a queued export job. Wired as the queue handler.
func (s *ExportService) Handle(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkProcessing(ctx, job.ID, time.Now().UTC()); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if job.Attempt == 0 {
			// Picked up twice, another worker owns it.
			return nil
		}
		// Retries find the job already past QUEUED; keep going.
	}

	relPath, rowCount, genErr := s.generate(ctx, record)
	if genErr != nil {
		if job.Attempt >= s.cfg.MaxRetries {
			if err := s.repo.MarkFailed(ctx, job.ID, genErr.Error(), time.Now().UTC()); err != nil {
				s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(err))
			}
			s.metrics.RecordExportJob("failed")
		}
		return genErr
	}

	if err := s.repo.MarkFinished(ctx, job.ID, relPath, rowCount, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to mark export job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	s.metrics.RecordExportJob("finished")
	s.emitAudit(ctx, record.RequestedBy, record.Params.Module, rowCount)
	return nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ExportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.ResultTTL)
	paths, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Warn("export job cleanup failed", zap.Error(err))
		return
	}
	for _, path := range paths {
		if err := s.storage.Delete(path); err != nil {
			s.logger.Warn("export file cleanup failed", zap.String("path", path), zap.Error(err))
		}
	}
	if _, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
}

func (s *ExportService) generate(ctx context.Context, job *models.ExportJob) (string, int, error) {
	req := dto.ExportRequest{
		Search:    job.Params.Search,
		Category:  job.Params.Category,
		SortBy:    job.Params.SortBy,
		SortOrder: job.Params.SortOrder,
		Format:    job.Params.Format,
	}
	dataset, rowCount, err := s.buildDataset(ctx, job.Params.Module, req)
	if err != nil {
		return "", 0, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, exportTitle(job.Params.Module))
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return "", 0, err
	}

	filename := fmt.Sprintf("%s_%s.%s", job.Params.Module, time.Now().UTC().Format("20060102_150405"), job.Params.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return "", 0, err
	}
	return relPath, rowCount, nil
}

// buildDataset renders the module's filtered, sorted list view into a
// flat dataset. Column order follows the schema; nested fields expand
// into dotted columns present in the data.
func (s *ExportService) buildDataset(ctx context.Context, module string, req dto.ExportRequest) (export.Dataset, int, error) {
	sc, err := schema.Get(module)
	if err != nil {
		return export.Dataset{}, 0, err
	}

	records, err := s.lister.List(ctx, module, dto.ListRequest{
		Search:    req.Search,
		Category:  req.Category,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return export.Dataset{}, 0, err
	}

	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		flat := listview.Flatten(record.Fields)
		flat["id"] = record.ID
		rows = append(rows, flat)
	}

	headers := datasetHeaders(sc, rows)
	return export.Dataset{Headers: headers, Rows: rows}, len(rows), nil
}

func (s *ExportService) toResponse(job *models.ExportJob) *dto.ExportJobResponse {
	resp := &dto.ExportJobResponse{ExportJob: *job}
	if job.Status == models.ExportStatusFinished && job.FilePath != "" && s.signer != nil {
		token, _, err := s.signer.Generate(job.ID, job.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign download url", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			resp.DownloadURL = fmt.Sprintf("%s/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
		}
	}
	return resp
}

func (s *ExportService) emitAudit(ctx context.Context, userID, module string, rowCount int) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID: userID,
		Action: models.AuditActionExport,
		Module: module,
		Detail: fmt.Sprintf(`{"rows":%d}`, rowCount),
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record export audit log", zap.Error(err))
	}
}

// datasetHeaders expands schema fields into the columns actually
// present: a field whose values flattened into dotted subkeys is
// replaced by those subkeys, sorted for a deterministic layout.
func datasetHeaders(sc *schema.Schema, rows []map[string]string) []string {
	headers := []string{"id"}
	for _, field := range sc.Fields {
		prefix := field.Name + "."
		subkeys := map[string]struct{}{}
		for _, row := range rows {
			for key := range row {
				if strings.HasPrefix(key, prefix) {
					subkeys[key] = struct{}{}
				}
			}
		}
		if len(subkeys) > 0 {
			expanded := make([]string, 0, len(subkeys))
			for key := range subkeys {
				expanded = append(expanded, key)
			}
			sort.Strings(expanded)
			headers = append(headers, expanded...)
			continue
		}
		headers = append(headers, field.Name)
	}
	return headers
}

func buildExportFilename(module, format string) string {
	return fmt.Sprintf("%s_export_%s.%s", module, time.Now().UTC().Format("20060102"), format)
}

func exportTitle(module string) string {
	return strings.ToUpper(module[:1]) + module[1:] + " Export"
}

func normalizeFormat(raw string) string {
	format := strings.ToLower(strings.TrimSpace(raw))
	if format == "" {
		format = models.ExportFormatCSV
	}
	return format
}
