package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/estate-admin-api/internal/dto"
	"github.com/noah-isme/estate-admin-api/internal/models"
	"github.com/noah-isme/estate-admin-api/internal/schema"
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
)

// ImportService loads CSV payloads into a module's collection. The
// parser is the mirror image of the CSV exporter: rows split on plain
// commas with no quote handling, list values split on ";", numeric
// cells that fail to parse fall back to 0.
type ImportService struct {
	records recordStore
	cache   cacheInvalidator
	audit   auditLogger
	applier recordApplier
	logger  *zap.Logger
	maxRows int
}

// NewImportService constructs the service.
func NewImportService(records recordStore, cache cacheInvalidator, audit auditLogger, logger *zap.Logger, maxRows int) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &ImportService{
		records: records,
		cache:   cache,
		audit:   audit,
		applier: recordApplier{records: records},
		logger:  logger,
		maxRows: maxRows,
	}
}

// Import parses the CSV payload and creates one record per valid row.
// Rows failing schema validation are skipped and reported; valid rows
// still land.
func (s *ImportService) Import(ctx context.Context, module string, payload []byte, actorID string) (*dto.ImportResult, error) {
	sc, err := schema.Get(module)
	if err != nil {
		return nil, err
	}

	lines := splitLines(string(payload))
	if len(lines) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "csv payload must have a header line and at least one row")
	}
	if len(lines)-1 > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("csv payload exceeds %d rows", s.maxRows))
	}

	headers := strings.Split(lines[0], ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	for _, h := range headers {
		if h == "id" {
			continue
		}
		if _, ok := sc.FieldByName(stripNested(h)); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown column: %s", h))
		}
	}

	result := &dto.ImportResult{}
	for lineNo, line := range lines[1:] {
		row := lineNo + 2
		cells := strings.Split(line, ",")
		draft := s.buildDraft(sc, headers, cells)

		if errs := sc.ValidateDraft(draft); len(errs) > 0 {
			result.Skipped++
			result.Errors = append(result.Errors, dto.ImportRowError{Row: row, Reason: errs})
			continue
		}

		record, err := s.applier.applyCreate(ctx, module, draft)
		if err != nil {
			return nil, err
		}
		result.Imported++
		result.Records = append(result.Records, *record)
	}

	if result.Imported > 0 && s.cache != nil {
		s.cache.InvalidateModule(ctx, module)
	}
	s.emitAudit(ctx, actorID, module, result)
	return result, nil
}

// buildDraft maps CSV cells onto the schema positionally by header.
// Extra cells past the header count are dropped, short rows leave the
// trailing fields unset.
func (s *ImportService) buildDraft(sc *schema.Schema, headers, cells []string) models.Fields {
	draft := models.Fields{}
	for i, header := range headers {
		if i >= len(cells) || header == "id" {
			continue
		}
		value := strings.TrimSpace(cells[i])
		if value == "" {
			continue
		}
		setDraftValue(sc, draft, header, value)
	}
	return draft
}

func setDraftValue(sc *schema.Schema, draft models.Fields, header, value string) {
	// Dotted headers rebuild the nested structure they were flattened
	// from, e.g. documents.propertyCard.uploaded.
	if parts := strings.SplitN(header, ".", 2); len(parts) == 2 {
		nested, _ := draft[parts[0]].(map[string]any)
		if nested == nil {
			nested = map[string]any{}
			draft[parts[0]] = nested
		}
		setNestedValue(nested, parts[1], value)
		return
	}

	if sc.IsNumeric(header) {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			parsed = 0
		}
		draft[header] = parsed
		return
	}
	if strings.Contains(value, ";") {
		parts := strings.Split(value, ";")
		list := make([]any, 0, len(parts))
		for _, p := range parts {
			list = append(list, strings.TrimSpace(p))
		}
		draft[header] = list
		return
	}
	draft[header] = value
}

func setNestedValue(target map[string]any, path, value string) {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) == 2 {
		child, _ := target[parts[0]].(map[string]any)
		if child == nil {
			child = map[string]any{}
			target[parts[0]] = child
		}
		setNestedValue(child, parts[1], value)
		return
	}
	switch value {
	case "true":
		target[path] = true
	case "false":
		target[path] = false
	default:
		target[path] = value
	}
}

func (s *ImportService) emitAudit(ctx context.Context, userID, module string, result *dto.ImportResult) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID: userID,
		Action: models.AuditActionImport,
		Module: module,
		Detail: fmt.Sprintf(`{"imported":%d,"skipped":%d}`, result.Imported, result.Skipped),
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record import audit log", zap.Error(err))
	}
}

func stripNested(header string) string {
	if idx := strings.Index(header, "."); idx > 0 {
		return header[:idx]
	}
	return header
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
