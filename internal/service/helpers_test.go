package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func floatPtr(v float64) *float64 { return &v }

func ptrUint(v uint) *uint { return &v }

type memoryGradeRepo struct {
	items  []models.GradeStudent
	nextID uint
}

func (m *memoryGradeRepo) List(ctx context.Context) ([]models.GradeStudent, error) {
	return append([]models.GradeStudent(nil), m.items...), nil
}

func (m *memoryGradeRepo) GetByID(ctx context.Context, id uint) (models.GradeStudent, error) {
	for _, item := range m.items {
		if item.ID == id {
			return item, nil
		}
	}
	return models.GradeStudent{}, gorm.ErrRecordNotFound
}

func (m *memoryGradeRepo) GetByCNE(ctx context.Context, cne string) (models.GradeStudent, error) {
	for _, item := range m.items {
		if item.CNE == cne {
			return item, nil
		}
	}
	return models.GradeStudent{}, gorm.ErrRecordNotFound
}

func (m *memoryGradeRepo) ExistsByCNE(ctx context.Context, cne string, excludeID uint) (bool, error) {
	for _, item := range m.items {
		if item.CNE == cne && item.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryGradeRepo) Create(ctx context.Context, student *models.GradeStudent) error {
	m.nextID++
	student.ID = m.nextID
	student.CreatedAt = time.Now()
	m.items = append(m.items, *student)
	return nil
}

func (m *memoryGradeRepo) Update(ctx context.Context, student *models.GradeStudent) error {
	for i, item := range m.items {
		if item.ID == student.ID {
			m.items[i] = *student
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryGradeRepo) Delete(ctx context.Context, id uint) error {
	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memoryAbsenceRepo struct {
	items  []models.AbsenceRecord
	nextID uint
}

func (m *memoryAbsenceRepo) List(ctx context.Context, filter repository.AbsenceFilter) ([]models.AbsenceRecord, error) {
	result := make([]models.AbsenceRecord, 0, len(m.items))
	for _, item := range m.items {
		if filter.Level != "" && item.Level != filter.Level {
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

func (m *memoryAbsenceRepo) GetByID(ctx context.Context, id uint) (models.AbsenceRecord, error) {
	for _, item := range m.items {
		if item.ID == id {
			return item, nil
		}
	}
	return models.AbsenceRecord{}, gorm.ErrRecordNotFound
}

func (m *memoryAbsenceRepo) GetByCNE(ctx context.Context, cne string) (models.AbsenceRecord, error) {
	for _, item := range m.items {
		if item.CNE == cne {
			return item, nil
		}
	}
	return models.AbsenceRecord{}, gorm.ErrRecordNotFound
}

func (m *memoryAbsenceRepo) ExistsByCNE(ctx context.Context, cne string, excludeID uint) (bool, error) {
	for _, item := range m.items {
		if item.CNE == cne && item.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryAbsenceRepo) Create(ctx context.Context, record *models.AbsenceRecord) error {
	m.nextID++
	record.ID = m.nextID
	record.CreatedAt = time.Now()
	m.items = append(m.items, *record)
	return nil
}

func (m *memoryAbsenceRepo) Update(ctx context.Context, record *models.AbsenceRecord) error {
	for i, item := range m.items {
		if item.ID == record.ID {
			m.items[i] = *record
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryAbsenceRepo) Delete(ctx context.Context, id uint) error {
	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memoryStudentRepo struct {
	items  []models.Student
	nextID uint
}

func (m *memoryStudentRepo) List(ctx context.Context) ([]models.Student, error) {
	return append([]models.Student(nil), m.items...), nil
}

func (m *memoryStudentRepo) SearchByLastName(ctx context.Context, term string) ([]models.Student, error) {
	result := make([]models.Student, 0)
	for _, item := range m.items {
		if strings.Contains(strings.ToLower(item.LastName), strings.ToLower(term)) {
			result = append(result, item)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].LastName < result[j].LastName })
	return result, nil
}

func (m *memoryStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	for _, item := range m.items {
		if item.ID == id {
			return item, nil
		}
	}
	return models.Student{}, gorm.ErrRecordNotFound
}

func (m *memoryStudentRepo) Create(ctx context.Context, student *models.Student) error {
	m.nextID++
	student.ID = m.nextID
	m.items = append(m.items, *student)
	return nil
}

func (m *memoryStudentRepo) Update(ctx context.Context, student *models.Student) error {
	for i, item := range m.items {
		if item.ID == student.ID {
			m.items[i] = *student
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryStudentRepo) Delete(ctx context.Context, id uint) error {
	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memoryActivityRepo struct {
	entries    []models.ActivityLog
	lastFilter repository.ActivityLogFilter
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	m.lastFilter = filter
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func (m *memoryActivityRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := m.entries[:0]
	var purged int64
	for _, entry := range m.entries {
		if entry.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, entry)
	}
	m.entries = kept
	return purged, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.EventResponse
}

func (r *recordingPublisher) Publish(ctx context.Context, eventType, entityType string, entityID uint, payload map[string]interface{}) dto.EventResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	event := dto.EventResponse{Type: eventType, EntityType: entityType, EntityID: entityID, Payload: payload}
	r.events = append(r.events, event)
	return event
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.Type)
	}
	return types
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return nil
}

type notifierFixture struct {
	notifier  *ChangeNotifier
	activity  *memoryActivityRepo
	publisher *recordingPublisher
	cache     *countingInvalidator
}

func newNotifierFixture() notifierFixture {
	activityRepo := &memoryActivityRepo{}
	publisher := &recordingPublisher{}
	cache := &countingInvalidator{}
	return notifierFixture{
		notifier:  NewChangeNotifier(NewActivityService(activityRepo, testLogger()), publisher, cache, testLogger()),
		activity:  activityRepo,
		publisher: publisher,
		cache:     cache,
	}
}
