package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/repository"
)

// SeedService loads demonstration data into empty tables.
type SeedService interface {
	SeedDemo(ctx context.Context) (dto.SeedResult, error)
}

type seedService struct {
	grades   repository.GradeStudentRepository
	absences repository.AbsenceRepository
	students repository.StudentRepository
	cache    CacheInvalidator
	logger   zerolog.Logger
}

type demoStudent struct {
	lastName  string
	firstName string
	cne       string
	level     string
	module    string
	note1     float64
	note2     float64
	absent    float64
}

var demoStudents = []demoStudent{
	{"Dupont", "Jean", "CNE001", models.LevelL2, "Informatique", 15.0, 13.0, 60},
	{"Martin", "Marie", "CNE002", models.LevelL1, "Mathématiques", 11.0, 14.0, 85},
	{"Bernard", "Pierre", "CNE003", models.LevelL3, "Physique", 16.0, 15.5, 20},
	{"Dubois", "Sophie", "CNE004", models.LevelM1, "Chimie", 9.0, 10.5, 55},
	{"Thomas", "Luc", "CNE005", models.LevelL2, "Informatique", 13.5, 12.0, 90},
	{"Robert", "Julie", "CNE006", models.LevelM2, "Biologie", 16.0, 17.0, 30},
	{"Petit", "Paul", "CNE007", models.LevelL1, "Anglais", 8.0, 11.0, 70},
}

const demoTotalHours = 100.0

// NewSeedService constructs a seeding service. cache may be nil.
func NewSeedService(grades repository.GradeStudentRepository, absences repository.AbsenceRepository, students repository.StudentRepository, cache CacheInvalidator, logger zerolog.Logger) SeedService {
	return &seedService{
		grades:   grades,
		absences: absences,
		students: students,
		cache:    cache,
		logger:   logger.With().Str("component", "seed_service").Logger(),
	}
}

// SeedDemo inserts the demo dataset. Each table is only seeded when empty, so
// repeated runs are no-ops.
func (s *seedService) SeedDemo(ctx context.Context) (dto.SeedResult, error) {
	var result dto.SeedResult

	existingGrades, err := s.grades.List(ctx)
	if err != nil {
		return result, err
	}
	if len(existingGrades) == 0 {
		for _, demo := range demoStudents {
			note1, note2 := demo.note1, demo.note2
			model := models.GradeStudent{
				LastName:  demo.lastName,
				FirstName: demo.firstName,
				CNE:       demo.cne,
				Note1:     &note1,
				Note2:     &note2,
				Module:    demo.module,
			}
			if err := s.grades.Create(ctx, &model); err != nil {
				return result, err
			}
			result.GradeStudents++
		}
	}

	existingAbsences, err := s.absences.List(ctx, repository.AbsenceFilter{})
	if err != nil {
		return result, err
	}
	if len(existingAbsences) == 0 {
		for _, demo := range demoStudents {
			model := models.AbsenceRecord{
				LastName:    demo.lastName,
				FirstName:   demo.firstName,
				CNE:         demo.cne,
				Level:       demo.level,
				HoursAbsent: demo.absent,
				HoursTotal:  demoTotalHours,
				Module:      demo.module,
			}
			if err := s.absences.Create(ctx, &model); err != nil {
				return result, err
			}
			result.AbsenceRecords++
		}
	}

	existingStudents, err := s.students.List(ctx)
	if err != nil {
		return result, err
	}
	if len(existingStudents) == 0 {
		for _, demo := range demoStudents {
			note1, note2 := demo.note1, demo.note2
			model := models.Student{
				LastName:  demo.lastName,
				FirstName: demo.firstName,
				Note1:     &note1,
				Note2:     &note2,
			}
			if err := s.students.Create(ctx, &model); err != nil {
				return result, err
			}
			result.Students++
		}
	}

	if s.cache != nil && (result.GradeStudents+result.AbsenceRecords+result.Students) > 0 {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate dashboard cache after seeding")
		}
	}

	s.logger.Info().
		Int("grade_students", result.GradeStudents).
		Int("absence_records", result.AbsenceRecords).
		Int("students", result.Students).
		Msg("demo data seeded")

	return result, nil
}
