package service

import (
	"context"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/calculator"
	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/repository"
)

// GradeService manages graded students and the rankings derived from their notes.
type GradeService interface {
	List(ctx context.Context) ([]dto.GradeStudentResponse, error)
	Get(ctx context.Context, id uint) (dto.GradeStudentResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.GradeStudentRequest) (dto.GradeStudentResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, req dto.GradeStudentRequest) (dto.GradeStudentResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
	Passing(ctx context.Context) ([]dto.GradeStudentResponse, error)
	TopStudents(ctx context.Context) ([]dto.GradeStudentResponse, error)
	Sorted(ctx context.Context) ([]dto.GradeStudentResponse, error)
	FinalGrade(ctx context.Context, id uint) (dto.FinalGradeResponse, error)
}

type gradeService struct {
	repo      repository.GradeStudentRepository
	absences  repository.AbsenceRepository
	validator *validator.Validate
	sanitizer textSanitizer
	notifier  *ChangeNotifier
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewGradeService constructs the grades service.
func NewGradeService(repo repository.GradeStudentRepository, absences repository.AbsenceRepository, validate *validator.Validate, notifier *ChangeNotifier, logger zerolog.Logger) GradeService {
	return &gradeService{
		repo:      repo,
		absences:  absences,
		validator: validate,
		sanitizer: newTextSanitizer(),
		notifier:  notifier,
		logger:    logger.With().Str("component", "grade_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/scolarite-api/internal/service/grade"),
	}
}

func (s *gradeService) List(ctx context.Context) ([]dto.GradeStudentResponse, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewGradeStudentResponses(students), nil
}

func (s *gradeService) Get(ctx context.Context, id uint) (dto.GradeStudentResponse, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return dto.GradeStudentResponse{}, err
	}
	return dto.NewGradeStudentResponse(student), nil
}

func (s *gradeService) Create(ctx context.Context, actor ActivityActor, req dto.GradeStudentRequest) (dto.GradeStudentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grades.create")
	defer span.End()

	model, err := s.buildModel(req)
	if err != nil {
		return dto.GradeStudentResponse{}, err
	}

	exists, err := s.repo.ExistsByCNE(ctx, model.CNE, 0)
	if err != nil {
		span.RecordError(err)
		return dto.GradeStudentResponse{}, err
	}
	if exists {
		return dto.GradeStudentResponse{}, ErrDuplicateCNE
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.GradeStudentResponse{}, ErrDuplicateCNE
		}
		span.RecordError(err)
		s.logger.Error().Err(err).Str("cne", model.CNE).Msg("failed to create grade student")
		return dto.GradeStudentResponse{}, err
	}
	span.SetAttributes(attribute.Int64("grade_student.id", int64(model.ID)))

	response := dto.NewGradeStudentResponse(model)
	s.notifier.Notify(ctx, actor, models.ActionCreated, EntityGradeStudent, model.ID, gradeEventPayload(response))
	return response, nil
}

func (s *gradeService) Update(ctx context.Context, actor ActivityActor, id uint, req dto.GradeStudentRequest) (dto.GradeStudentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grades.update", trace.WithAttributes(attribute.Int64("grade_student.id", int64(id))))
	defer span.End()

	existing, err := s.find(ctx, id)
	if err != nil {
		return dto.GradeStudentResponse{}, err
	}

	model, err := s.buildModel(req)
	if err != nil {
		return dto.GradeStudentResponse{}, err
	}

	if model.CNE != existing.CNE {
		exists, err := s.repo.ExistsByCNE(ctx, model.CNE, id)
		if err != nil {
			span.RecordError(err)
			return dto.GradeStudentResponse{}, err
		}
		if exists {
			return dto.GradeStudentResponse{}, ErrDuplicateCNE
		}
	}

	model.ID = existing.ID
	model.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, &model); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeStudentResponse{}, ErrGradeStudentNotFound
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.GradeStudentResponse{}, ErrDuplicateCNE
		}
		span.RecordError(err)
		return dto.GradeStudentResponse{}, err
	}

	response := dto.NewGradeStudentResponse(model)
	s.notifier.Notify(ctx, actor, models.ActionUpdated, EntityGradeStudent, model.ID, gradeEventPayload(response))
	return response, nil
}

func (s *gradeService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGradeStudentNotFound
		}
		return err
	}

	s.notifier.Notify(ctx, actor, models.ActionDeleted, EntityGradeStudent, id, map[string]interface{}{"cne": existing.CNE})
	return nil
}

func (s *gradeService) Passing(ctx context.Context) ([]dto.GradeStudentResponse, error) {
	students, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	passing := make([]dto.GradeStudentResponse, 0, len(students))
	for _, student := range students {
		if student.Passed {
			passing = append(passing, student)
		}
	}
	return passing, nil
}

// TopStudents returns every student tied at the best average.
func (s *gradeService) TopStudents(ctx context.Context) ([]dto.GradeStudentResponse, error) {
	students, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var best *float64
	for _, student := range students {
		if student.Average == nil {
			continue
		}
		if best == nil || *student.Average > *best {
			value := *student.Average
			best = &value
		}
	}

	top := make([]dto.GradeStudentResponse, 0)
	if best == nil {
		return top, nil
	}
	for _, student := range students {
		if student.Average != nil && *student.Average == *best {
			top = append(top, student)
		}
	}
	return top, nil
}

// Sorted orders students by average, best first. Students without notes come last.
func (s *gradeService) Sorted(ctx context.Context) ([]dto.GradeStudentResponse, error) {
	students, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i].Average, students[j].Average
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return students, nil
}

func (s *gradeService) FinalGrade(ctx context.Context, id uint) (dto.FinalGradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grades.final_grade", trace.WithAttributes(attribute.Int64("grade_student.id", int64(id))))
	defer span.End()

	student, err := s.find(ctx, id)
	if err != nil {
		return dto.FinalGradeResponse{}, err
	}

	average, ok := calculator.Average(student.Note1, student.Note2)
	if !ok {
		return dto.FinalGradeResponse{}, ErrAverageUndefined
	}

	rate := 0.0
	recorded := false
	if s.absences != nil {
		record, err := s.absences.GetByCNE(ctx, student.CNE)
		switch {
		case err == nil:
			rate, err = calculator.AbsenceRate(record.HoursAbsent, record.HoursTotal)
			if err != nil {
				return dto.FinalGradeResponse{}, err
			}
			recorded = true
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			span.RecordError(err)
			return dto.FinalGradeResponse{}, err
		}
	}
	span.SetAttributes(attribute.Bool("absence.recorded", recorded))

	return dto.NewFinalGradeResponse(student, calculator.FinalGrade(average, rate), recorded), nil
}

func (s *gradeService) find(ctx context.Context, id uint) (models.GradeStudent, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradeStudent{}, ErrGradeStudentNotFound
		}
		return models.GradeStudent{}, err
	}
	return student, nil
}

func (s *gradeService) buildModel(req dto.GradeStudentRequest) (models.GradeStudent, error) {
	req.LastName = s.sanitizer.clean(req.LastName)
	req.FirstName = s.sanitizer.clean(req.FirstName)
	req.CNE = s.sanitizer.cleanCNE(req.CNE)
	req.Module = s.sanitizer.clean(req.Module)

	if err := s.validator.Struct(req); err != nil {
		return models.GradeStudent{}, err
	}

	return models.GradeStudent{
		LastName:  req.LastName,
		FirstName: req.FirstName,
		CNE:       req.CNE,
		Note1:     req.Note1,
		Note2:     req.Note2,
		Module:    req.Module,
	}, nil
}

func gradeEventPayload(response dto.GradeStudentResponse) map[string]interface{} {
	payload := map[string]interface{}{
		"cne":    response.CNE,
		"nom":    response.LastName,
		"prenom": response.FirstName,
		"valide": response.Passed,
	}
	if response.Average != nil {
		payload["moyenne"] = *response.Average
	}
	return payload
}
