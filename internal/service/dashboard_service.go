package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/scolarite-api/internal/calculator"
	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/observability"
	"github.com/noah-isme/scolarite-api/internal/repository"
)

// DashboardStatsCacheKey is the redis key holding the cached dashboard figures.
const DashboardStatsCacheKey = "dashboard:stats"

// dashboardGenerationKey is bumped by every invalidation. Figures computed
// under an older generation are not written back.
const dashboardGenerationKey = DashboardStatsCacheKey + ":gen"

var errStaleDashboard = errors.New("dashboard generation changed")

// DashboardService aggregates grade and absence figures for the dashboard.
type DashboardService interface {
	CacheInvalidator
	Stats(ctx context.Context) (dto.DashboardStatsResponse, error)
}

type dashboardService struct {
	grades    repository.GradeStudentRepository
	absences  repository.AbsenceRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	threshold float64
	logger    zerolog.Logger
	now       func() time.Time
}

// NewDashboardService constructs the dashboard service. A nil redis client disables caching.
func NewDashboardService(grades repository.GradeStudentRepository, absences repository.AbsenceRepository, cache *redis.Client, ttl time.Duration, threshold float64, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		grades:    grades,
		absences:  absences,
		cache:     cache,
		cacheTTL:  ttl,
		threshold: threshold,
		logger:    logger.With().Str("component", "dashboard_service").Logger(),
		now:       time.Now,
	}
}

func (s *dashboardService) Stats(ctx context.Context) (dto.DashboardStatsResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/scolarite-api/internal/service/dashboard")
	ctx, span := tracer.Start(ctx, "dashboard.stats")
	span.SetAttributes(attribute.String("dashboard.cache_key", DashboardStatsCacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, DashboardStatsCacheKey).Result()
		if err == nil {
			var response dto.DashboardStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
				observability.DashboardCache().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
			span.RecordError(err)
		}
		observability.DashboardCache().WithLabelValues("miss").Inc()
	}

	generation, cacheable := s.generation(ctx)

	students, err := s.grades.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_grade_students_failed")
		return dto.DashboardStatsResponse{}, err
	}

	records, err := s.absences.List(ctx, repository.AbsenceFilter{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_absences_failed")
		return dto.DashboardStatsResponse{}, err
	}

	stats := s.buildStats(students, records)
	span.SetAttributes(
		attribute.Int64("dashboard.students", stats.TotalStudents),
		attribute.Int64("dashboard.absences", stats.TotalAbsences),
	)

	if cacheable {
		if err := s.store(ctx, generation, stats); err != nil {
			s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			span.RecordError(err)
		}
	}

	return stats, nil
}

// Invalidate drops the cached figures and bumps the generation so that a
// computation already in flight does not store its result.
func (s *dashboardService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	_, err := s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, dashboardGenerationKey)
		pipe.Del(ctx, DashboardStatsCacheKey)
		return nil
	})
	return err
}

func (s *dashboardService) generation(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := readGeneration(ctx, s.cache)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read dashboard cache generation")
		return 0, false
	}
	return gen, true
}

// store writes stats only while the generation still equals gen. WATCH aborts
// the write if an invalidation lands between the check and the SET.
func (s *dashboardService) store(ctx context.Context, gen int64, stats dto.DashboardStatsResponse) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	err = s.cache.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleDashboard
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, DashboardStatsCacheKey, payload, s.cacheTTL)
			return nil
		})
		return err
	}, dashboardGenerationKey)

	if errors.Is(err, errStaleDashboard) || errors.Is(err, redis.TxFailedErr) {
		observability.DashboardCache().WithLabelValues("stale").Inc()
		return nil
	}
	return err
}

type keyGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd keyGetter) (int64, error) {
	gen, err := cmd.Get(ctx, dashboardGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (s *dashboardService) buildStats(students []models.GradeStudent, records []models.AbsenceRecord) dto.DashboardStatsResponse {
	stats := dto.DashboardStatsResponse{
		TotalStudents: int64(len(students)),
		TotalAbsences: int64(len(records)),
		Threshold:     s.threshold,
		GeneratedAt:   s.now().UTC(),
	}

	var sum float64
	var graded int
	for _, student := range students {
		average, ok := calculator.Average(student.Note1, student.Note2)
		if !ok {
			continue
		}
		graded++
		sum += average
		if stats.BestAverage == nil || average > *stats.BestAverage {
			best := average
			stats.BestAverage = &best
		}
		if average >= calculator.PassingGrade {
			stats.PassingStudents++
		}
	}
	if graded > 0 {
		overall := sum / float64(graded)
		stats.OverallAverage = &overall
	}
	if stats.TotalStudents > 0 {
		stats.PassRate = float64(stats.PassingStudents) / float64(stats.TotalStudents)
	}

	var rateSum float64
	var rated int
	for _, record := range records {
		rate, err := calculator.AbsenceRate(record.HoursAbsent, record.HoursTotal)
		if err != nil {
			continue
		}
		rated++
		rateSum += rate

		if rate >= s.threshold {
			stats.Blacklisted++
		}
		switch calculator.ClassifySeverity(rate, s.threshold) {
		case calculator.SeverityCritical:
			stats.Severities.Critical++
		case calculator.SeverityHigh:
			stats.Severities.High++
		case calculator.SeverityMedium:
			stats.Severities.Medium++
		}
	}
	if rated > 0 {
		stats.AverageAbsenceRate = rateSum / float64(rated)
	}

	return stats
}
