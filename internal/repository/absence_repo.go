package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// AbsenceFilter narrows absence record queries.
type AbsenceFilter struct {
	Level string
}

// AbsenceRepository persists absence records.
type AbsenceRepository interface {
	List(ctx context.Context, filter AbsenceFilter) ([]models.AbsenceRecord, error)
	GetByID(ctx context.Context, id uint) (models.AbsenceRecord, error)
	GetByCNE(ctx context.Context, cne string) (models.AbsenceRecord, error)
	ExistsByCNE(ctx context.Context, cne string, excludeID uint) (bool, error)
	Create(ctx context.Context, record *models.AbsenceRecord) error
	Update(ctx context.Context, record *models.AbsenceRecord) error
	Delete(ctx context.Context, id uint) error
}

type absenceRepository struct {
	db *gorm.DB
}

// NewAbsenceRepository constructs the absence repository.
func NewAbsenceRepository(db *gorm.DB) AbsenceRepository {
	return &absenceRepository{db: db}
}

func (r *absenceRepository) List(ctx context.Context, filter AbsenceFilter) ([]models.AbsenceRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.AbsenceRecord{})
	if filter.Level != "" {
		query = query.Where("niveau = ?", filter.Level)
	}

	var records []models.AbsenceRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *absenceRepository) GetByID(ctx context.Context, id uint) (models.AbsenceRecord, error) {
	var record models.AbsenceRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return models.AbsenceRecord{}, err
	}
	return record, nil
}

func (r *absenceRepository) GetByCNE(ctx context.Context, cne string) (models.AbsenceRecord, error) {
	var record models.AbsenceRecord
	if err := r.db.WithContext(ctx).Where("cne = ?", cne).First(&record).Error; err != nil {
		return models.AbsenceRecord{}, err
	}
	return record, nil
}

func (r *absenceRepository) ExistsByCNE(ctx context.Context, cne string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.AbsenceRecord{}).Where("cne = ?", cne)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *absenceRepository) Create(ctx context.Context, record *models.AbsenceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *absenceRepository) Update(ctx context.Context, record *models.AbsenceRecord) error {
	result := r.db.WithContext(ctx).Model(record).Select("*").Omit("created_at").Updates(record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *absenceRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.AbsenceRecord{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
