package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/calculator"
	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/observability"
	"github.com/noah-isme/scolarite-api/internal/repository"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AbsencePolicy carries the configurable limits applied to absence records.
type AbsencePolicy struct {
	Threshold         float64
	MaxHours          float64
	DefaultTotalHours float64
	MaxUploadMB       int
}

// AbsenceService manages absence records and the blacklist derived from them.
type AbsenceService interface {
	List(ctx context.Context, level string) ([]dto.AbsenceResponse, error)
	Get(ctx context.Context, id uint) (dto.AbsenceResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.AbsenceRequest) (dto.AbsenceResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, req dto.AbsenceRequest) (dto.AbsenceResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
	Rate(ctx context.Context, id uint) (dto.AbsenceRateResponse, error)
	Blacklist(ctx context.Context, threshold *float64) (dto.BlacklistResponse, error)
	ExportBlacklist(ctx context.Context, threshold *float64) ([]byte, error)
	Import(ctx context.Context, actor ActivityActor, file *multipart.FileHeader) (dto.ImportResult, error)
	ImportReader(ctx context.Context, actor ActivityActor, r io.Reader) (dto.ImportResult, error)
}

type absenceService struct {
	repo      repository.AbsenceRepository
	validator *validator.Validate
	sanitizer textSanitizer
	notifier  *ChangeNotifier
	policy    AbsencePolicy
	maxUpload int64
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAbsenceService constructs the absence service.
func NewAbsenceService(repo repository.AbsenceRepository, validate *validator.Validate, notifier *ChangeNotifier, policy AbsencePolicy, logger zerolog.Logger) AbsenceService {
	if policy.MaxHours <= 0 {
		policy.MaxHours = 500
	}
	if policy.DefaultTotalHours <= 0 || policy.DefaultTotalHours > policy.MaxHours {
		policy.DefaultTotalHours = policy.MaxHours
	}
	if policy.MaxUploadMB <= 0 {
		policy.MaxUploadMB = 5
	}

	return &absenceService{
		repo:      repo,
		validator: validate,
		sanitizer: newTextSanitizer(),
		notifier:  notifier,
		policy:    policy,
		maxUpload: int64(policy.MaxUploadMB) * 1024 * 1024,
		logger:    logger.With().Str("component", "absence_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/scolarite-api/internal/service/absence"),
	}
}

func (s *absenceService) List(ctx context.Context, level string) ([]dto.AbsenceResponse, error) {
	records, err := s.repo.List(ctx, repository.AbsenceFilter{Level: strings.ToUpper(strings.TrimSpace(level))})
	if err != nil {
		return nil, err
	}
	return dto.NewAbsenceResponses(records, s.policy.Threshold), nil
}

func (s *absenceService) Get(ctx context.Context, id uint) (dto.AbsenceResponse, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return dto.AbsenceResponse{}, err
	}
	return dto.NewAbsenceResponse(record, s.policy.Threshold), nil
}

func (s *absenceService) Create(ctx context.Context, actor ActivityActor, req dto.AbsenceRequest) (dto.AbsenceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "absences.create")
	defer span.End()

	model, err := s.buildModel(req)
	if err != nil {
		return dto.AbsenceResponse{}, err
	}

	exists, err := s.repo.ExistsByCNE(ctx, model.CNE, 0)
	if err != nil {
		span.RecordError(err)
		return dto.AbsenceResponse{}, err
	}
	if exists {
		return dto.AbsenceResponse{}, ErrDuplicateCNE
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AbsenceResponse{}, ErrDuplicateCNE
		}
		span.RecordError(err)
		s.logger.Error().Err(err).Str("cne", model.CNE).Msg("failed to create absence record")
		return dto.AbsenceResponse{}, err
	}
	span.SetAttributes(attribute.Int64("absence.id", int64(model.ID)))

	response := dto.NewAbsenceResponse(model, s.policy.Threshold)
	s.notifier.Notify(ctx, actor, models.ActionCreated, EntityAbsence, model.ID, absenceEventPayload(response))
	s.flagIfBlacklisted(ctx, response)
	return response, nil
}

func (s *absenceService) Update(ctx context.Context, actor ActivityActor, id uint, req dto.AbsenceRequest) (dto.AbsenceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "absences.update", trace.WithAttributes(attribute.Int64("absence.id", int64(id))))
	defer span.End()

	existing, err := s.find(ctx, id)
	if err != nil {
		return dto.AbsenceResponse{}, err
	}

	model, err := s.buildModel(req)
	if err != nil {
		return dto.AbsenceResponse{}, err
	}

	if model.CNE != existing.CNE {
		exists, err := s.repo.ExistsByCNE(ctx, model.CNE, id)
		if err != nil {
			span.RecordError(err)
			return dto.AbsenceResponse{}, err
		}
		if exists {
			return dto.AbsenceResponse{}, ErrDuplicateCNE
		}
	}

	model.ID = existing.ID
	model.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, &model); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AbsenceResponse{}, ErrAbsenceNotFound
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AbsenceResponse{}, ErrDuplicateCNE
		}
		span.RecordError(err)
		return dto.AbsenceResponse{}, err
	}

	response := dto.NewAbsenceResponse(model, s.policy.Threshold)
	s.notifier.Notify(ctx, actor, models.ActionUpdated, EntityAbsence, model.ID, absenceEventPayload(response))
	s.flagIfBlacklisted(ctx, response)
	return response, nil
}

func (s *absenceService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAbsenceNotFound
		}
		return err
	}

	s.notifier.Notify(ctx, actor, models.ActionDeleted, EntityAbsence, id, map[string]interface{}{"cne": existing.CNE})
	return nil
}

func (s *absenceService) Rate(ctx context.Context, id uint) (dto.AbsenceRateResponse, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return dto.AbsenceRateResponse{}, err
	}

	rate, err := calculator.AbsenceRate(record.HoursAbsent, record.HoursTotal)
	if err != nil {
		return dto.AbsenceRateResponse{}, err
	}
	return dto.NewAbsenceRateResponse(record, rate), nil
}

// Blacklist returns records whose rate meets the threshold, highest rate first.
// A nil threshold uses the configured default.
func (s *absenceService) Blacklist(ctx context.Context, threshold *float64) (dto.BlacklistResponse, error) {
	ctx, span := s.tracer.Start(ctx, "absences.blacklist")
	defer span.End()

	seuil, err := s.resolveThreshold(threshold)
	if err != nil {
		return dto.BlacklistResponse{}, err
	}
	span.SetAttributes(attribute.Float64("blacklist.threshold", seuil))

	records, err := s.repo.List(ctx, repository.AbsenceFilter{})
	if err != nil {
		span.RecordError(err)
		return dto.BlacklistResponse{}, err
	}

	items := make([]dto.AbsenceResponse, 0)
	for _, record := range records {
		listed, err := calculator.IsBlacklisted(record.HoursAbsent, record.HoursTotal, seuil)
		if err != nil {
			s.logger.Warn().Err(err).Uint("absence_id", record.ID).Msg("skipping absence record with invalid total hours")
			continue
		}
		if listed {
			items = append(items, dto.NewAbsenceResponse(record, seuil))
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Rate > items[j].Rate
	})

	observability.BlacklistQueries().Inc()
	observability.BlacklistSize().Set(float64(len(items)))

	return dto.BlacklistResponse{Threshold: seuil, Total: len(items), Items: items}, nil
}

func (s *absenceService) ExportBlacklist(ctx context.Context, threshold *float64) ([]byte, error) {
	blacklist, err := s.Blacklist(ctx, threshold)
	if err != nil {
		return nil, err
	}
	return writeBlacklistWorkbook(blacklist)
}

func (s *absenceService) Import(ctx context.Context, actor ActivityActor, file *multipart.FileHeader) (dto.ImportResult, error) {
	if file == nil {
		return dto.ImportResult{}, fmt.Errorf("%w: file is required", ErrInvalidSpreadsheet)
	}
	if file.Size > s.maxUpload {
		return dto.ImportResult{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return dto.ImportResult{}, err
	}
	defer handle.Close()

	return s.ImportReader(ctx, actor, handle)
}

// ImportReader imports an XLSX workbook. Rows whose CNE already exists are
// skipped; invalid rows are reported in Errors and do not abort the import.
func (s *absenceService) ImportReader(ctx context.Context, actor ActivityActor, r io.Reader) (dto.ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "absences.import")
	defer span.End()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(r, s.maxUpload+1)); err != nil {
		span.RecordError(err)
		return dto.ImportResult{}, err
	}
	if int64(buf.Len()) > s.maxUpload {
		span.SetStatus(codes.Error, "payload too large")
		return dto.ImportResult{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if !isSpreadsheetMIME(detected) {
		span.SetStatus(codes.Error, "unsupported type")
		return dto.ImportResult{}, fmt.Errorf("%w: %s", ErrUploadTypeNotAllowed, detected.String())
	}

	rows, err := parseAbsenceSheet(bytes.NewReader(buf.Bytes()))
	if err != nil {
		span.RecordError(err)
		return dto.ImportResult{}, err
	}

	result := dto.ImportResult{Errors: make([]dto.ImportRowError, 0)}
	importErr := s.importRows(ctx, rows, &result)
	if importErr != nil {
		span.RecordError(importErr)
	}

	observability.ImportRows().WithLabelValues("imported").Add(float64(result.Imported))
	observability.ImportRows().WithLabelValues("skipped").Add(float64(result.Skipped))
	observability.ImportRows().WithLabelValues("invalid").Add(float64(len(result.Errors)))
	span.SetAttributes(
		attribute.Int("import.imported", result.Imported),
		attribute.Int("import.skipped", result.Skipped),
		attribute.Int("import.invalid", len(result.Errors)),
	)

	// Rows created before a failure stay persisted, so the import is audited
	// and the dashboard invalidated either way.
	s.notifier.Notify(ctx, actor, models.ActionImported, EntityAbsence, 0, map[string]interface{}{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"invalid":  len(result.Errors),
		"aborted":  importErr != nil,
	})

	if importErr != nil {
		s.logger.Error().Err(importErr).
			Int("imported", result.Imported).
			Msg("absence spreadsheet import aborted")
		return result, importErr
	}

	s.logger.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("invalid", len(result.Errors)).
		Msg("absence spreadsheet imported")

	return result, nil
}

// importRows stops at the first repository error; counts in result reflect
// the rows handled up to that point.
func (s *absenceService) importRows(ctx context.Context, rows []absenceSheetRow, result *dto.ImportResult) error {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.Err != nil {
			result.Errors = append(result.Errors, dto.ImportRowError{Row: row.Number, Message: row.Err.Error()})
			continue
		}

		model, err := s.buildModel(row.Request)
		if err != nil {
			result.Errors = append(result.Errors, dto.ImportRowError{Row: row.Number, Message: err.Error()})
			continue
		}

		if _, dup := seen[model.CNE]; dup {
			result.Skipped++
			continue
		}
		seen[model.CNE] = struct{}{}

		exists, err := s.repo.ExistsByCNE(ctx, model.CNE, 0)
		if err != nil {
			return fmt.Errorf("row %d: %w", row.Number, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		if err := s.repo.Create(ctx, &model); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Skipped++
				continue
			}
			return fmt.Errorf("row %d: %w", row.Number, err)
		}
		result.Imported++
		s.flagIfBlacklisted(ctx, dto.NewAbsenceResponse(model, s.policy.Threshold))
	}
	return nil
}

func (s *absenceService) resolveThreshold(threshold *float64) (float64, error) {
	if threshold == nil {
		return s.policy.Threshold, nil
	}
	return calculator.NormalizeThreshold(*threshold)
}

func (s *absenceService) flagIfBlacklisted(ctx context.Context, response dto.AbsenceResponse) {
	if response.Rate < s.policy.Threshold {
		return
	}
	s.notifier.Emit(ctx, EventAbsenceBlacklisted, EntityAbsence, response.ID, map[string]interface{}{
		"cne":         response.CNE,
		"tauxAbsence": response.Rate,
		"severite":    string(response.Severity),
		"seuil":       s.policy.Threshold,
	})
}

func (s *absenceService) find(ctx context.Context, id uint) (models.AbsenceRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AbsenceRecord{}, ErrAbsenceNotFound
		}
		return models.AbsenceRecord{}, err
	}
	return record, nil
}

func (s *absenceService) buildModel(req dto.AbsenceRequest) (models.AbsenceRecord, error) {
	req.LastName = s.sanitizer.clean(req.LastName)
	req.FirstName = s.sanitizer.clean(req.FirstName)
	req.CNE = s.sanitizer.cleanCNE(req.CNE)
	req.Level = strings.ToUpper(strings.TrimSpace(req.Level))
	req.Module = s.sanitizer.clean(req.Module)

	if err := s.validator.Struct(req); err != nil {
		return models.AbsenceRecord{}, err
	}

	total := s.policy.DefaultTotalHours
	if req.HoursTotal != nil {
		total = *req.HoursTotal
	}
	if total > s.policy.MaxHours {
		return models.AbsenceRecord{}, fmt.Errorf("%w: heuresTotal must not exceed %g", ErrInvalidAbsenceHours, s.policy.MaxHours)
	}
	if req.HoursAbsent > total {
		return models.AbsenceRecord{}, fmt.Errorf("%w: heuresAbsence must not exceed heuresTotal (%g)", ErrInvalidAbsenceHours, total)
	}

	return models.AbsenceRecord{
		LastName:    req.LastName,
		FirstName:   req.FirstName,
		CNE:         req.CNE,
		Level:       req.Level,
		HoursAbsent: req.HoursAbsent,
		HoursTotal:  total,
		Module:      req.Module,
	}, nil
}

func isSpreadsheetMIME(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(xlsxMIME) || m.Is("application/zip") {
			return true
		}
	}
	return false
}

func absenceEventPayload(response dto.AbsenceResponse) map[string]interface{} {
	return map[string]interface{}{
		"cne":         response.CNE,
		"nom":         response.LastName,
		"prenom":      response.FirstName,
		"niveau":      response.Level,
		"tauxAbsence": response.Rate,
		"severite":    string(response.Severity),
	}
}
