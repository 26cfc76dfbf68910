package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// GradeStudentRepository persists students tracked by the grades service.
type GradeStudentRepository interface {
	List(ctx context.Context) ([]models.GradeStudent, error)
	GetByID(ctx context.Context, id uint) (models.GradeStudent, error)
	GetByCNE(ctx context.Context, cne string) (models.GradeStudent, error)
	ExistsByCNE(ctx context.Context, cne string, excludeID uint) (bool, error)
	Create(ctx context.Context, student *models.GradeStudent) error
	Update(ctx context.Context, student *models.GradeStudent) error
	Delete(ctx context.Context, id uint) error
}

type gradeStudentRepository struct {
	db *gorm.DB
}

// NewGradeStudentRepository constructs the grades repository.
func NewGradeStudentRepository(db *gorm.DB) GradeStudentRepository {
	return &gradeStudentRepository{db: db}
}

func (r *gradeStudentRepository) List(ctx context.Context) ([]models.GradeStudent, error) {
	var students []models.GradeStudent
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *gradeStudentRepository) GetByID(ctx context.Context, id uint) (models.GradeStudent, error) {
	var student models.GradeStudent
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.GradeStudent{}, err
	}
	return student, nil
}

func (r *gradeStudentRepository) GetByCNE(ctx context.Context, cne string) (models.GradeStudent, error) {
	var student models.GradeStudent
	if err := r.db.WithContext(ctx).Where("cne = ?", cne).First(&student).Error; err != nil {
		return models.GradeStudent{}, err
	}
	return student, nil
}

func (r *gradeStudentRepository) ExistsByCNE(ctx context.Context, cne string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.GradeStudent{}).Where("cne = ?", cne)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gradeStudentRepository) Create(ctx context.Context, student *models.GradeStudent) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *gradeStudentRepository) Update(ctx context.Context, student *models.GradeStudent) error {
	// Select("*") so that clearing a note to NULL is persisted.
	result := r.db.WithContext(ctx).Model(student).Select("*").Omit("created_at").Updates(student)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gradeStudentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.GradeStudent{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
