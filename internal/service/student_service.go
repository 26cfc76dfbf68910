package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/repository"
)

// StudentService is the plain CRUD variant of student management.
type StudentService interface {
	List(ctx context.Context) ([]dto.StudentResponse, error)
	Search(ctx context.Context, lastName string) ([]dto.StudentResponse, error)
	Get(ctx context.Context, id uint) (dto.StudentResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.StudentRequest) (dto.StudentResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, req dto.StudentRequest) (dto.StudentResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
}

type studentService struct {
	repo      repository.StudentRepository
	validator *validator.Validate
	sanitizer textSanitizer
	notifier  *ChangeNotifier
	logger    zerolog.Logger
}

// NewStudentService constructs the CRUD student service.
func NewStudentService(repo repository.StudentRepository, validate *validator.Validate, notifier *ChangeNotifier, logger zerolog.Logger) StudentService {
	return &studentService{
		repo:      repo,
		validator: validate,
		sanitizer: newTextSanitizer(),
		notifier:  notifier,
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) List(ctx context.Context) ([]dto.StudentResponse, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewStudentResponses(students), nil
}

// Search matches last names case-insensitively. An empty term lists everyone.
func (s *studentService) Search(ctx context.Context, lastName string) ([]dto.StudentResponse, error) {
	term := s.sanitizer.clean(lastName)
	if term == "" {
		return s.List(ctx)
	}

	students, err := s.repo.SearchByLastName(ctx, term)
	if err != nil {
		return nil, err
	}
	return dto.NewStudentResponses(students), nil
}

func (s *studentService) Get(ctx context.Context, id uint) (dto.StudentResponse, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Create(ctx context.Context, actor ActivityActor, req dto.StudentRequest) (dto.StudentResponse, error) {
	model, err := s.buildModel(req)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Msg("failed to create student")
		return dto.StudentResponse{}, err
	}

	response := dto.NewStudentResponse(model)
	s.notifier.Notify(ctx, actor, models.ActionCreated, EntityStudent, model.ID, studentEventPayload(response))
	return response, nil
}

func (s *studentService) Update(ctx context.Context, actor ActivityActor, id uint, req dto.StudentRequest) (dto.StudentResponse, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	model, err := s.buildModel(req)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	model.ID = existing.ID
	model.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, &model); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}

	response := dto.NewStudentResponse(model)
	s.notifier.Notify(ctx, actor, models.ActionUpdated, EntityStudent, model.ID, studentEventPayload(response))
	return response, nil
}

func (s *studentService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	s.notifier.Notify(ctx, actor, models.ActionDeleted, EntityStudent, id, nil)
	return nil
}

func (s *studentService) find(ctx context.Context, id uint) (models.Student, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func (s *studentService) buildModel(req dto.StudentRequest) (models.Student, error) {
	req.LastName = s.sanitizer.clean(req.LastName)
	req.FirstName = s.sanitizer.clean(req.FirstName)

	if err := s.validator.Struct(req); err != nil {
		return models.Student{}, err
	}

	return models.Student{
		LastName:  strings.TrimSpace(req.LastName),
		FirstName: strings.TrimSpace(req.FirstName),
		Note1:     req.Note1,
		Note2:     req.Note2,
	}, nil
}

func studentEventPayload(response dto.StudentResponse) map[string]interface{} {
	payload := map[string]interface{}{
		"nom":    response.LastName,
		"prenom": response.FirstName,
	}
	if response.Average != nil {
		payload["moyenne"] = *response.Average
	}
	return payload
}
