package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/service"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func floatPtr(v float64) *float64 { return &v }

type stubGradeService struct {
	items     []dto.GradeStudentResponse
	item      dto.GradeStudentResponse
	final     dto.FinalGradeResponse
	err       error
	lastActor service.ActivityActor
	lastReq   dto.GradeStudentRequest
	lastID    uint
}

func (s *stubGradeService) List(context.Context) ([]dto.GradeStudentResponse, error) {
	return s.items, s.err
}

func (s *stubGradeService) Get(_ context.Context, id uint) (dto.GradeStudentResponse, error) {
	s.lastID = id
	return s.item, s.err
}

func (s *stubGradeService) Create(_ context.Context, actor service.ActivityActor, req dto.GradeStudentRequest) (dto.GradeStudentResponse, error) {
	s.lastActor = actor
	s.lastReq = req
	return s.item, s.err
}

func (s *stubGradeService) Update(_ context.Context, actor service.ActivityActor, id uint, req dto.GradeStudentRequest) (dto.GradeStudentResponse, error) {
	s.lastActor = actor
	s.lastID = id
	s.lastReq = req
	return s.item, s.err
}

func (s *stubGradeService) Delete(_ context.Context, actor service.ActivityActor, id uint) error {
	s.lastActor = actor
	s.lastID = id
	return s.err
}

func (s *stubGradeService) Passing(context.Context) ([]dto.GradeStudentResponse, error) {
	return s.items, s.err
}

func (s *stubGradeService) TopStudents(context.Context) ([]dto.GradeStudentResponse, error) {
	return s.items, s.err
}

func (s *stubGradeService) Sorted(context.Context) ([]dto.GradeStudentResponse, error) {
	return s.items, s.err
}

func (s *stubGradeService) FinalGrade(_ context.Context, id uint) (dto.FinalGradeResponse, error) {
	s.lastID = id
	return s.final, s.err
}

type stubAbsenceService struct {
	items         []dto.AbsenceResponse
	item          dto.AbsenceResponse
	rate          dto.AbsenceRateResponse
	blacklist     dto.BlacklistResponse
	workbook      []byte
	importResult  dto.ImportResult
	err           error
	lastLevel     string
	lastThreshold *float64
	lastFilename  string
	lastActor     service.ActivityActor
}

func (s *stubAbsenceService) List(_ context.Context, level string) ([]dto.AbsenceResponse, error) {
	s.lastLevel = level
	return s.items, s.err
}

func (s *stubAbsenceService) Get(context.Context, uint) (dto.AbsenceResponse, error) {
	return s.item, s.err
}

func (s *stubAbsenceService) Create(_ context.Context, actor service.ActivityActor, _ dto.AbsenceRequest) (dto.AbsenceResponse, error) {
	s.lastActor = actor
	return s.item, s.err
}

func (s *stubAbsenceService) Update(_ context.Context, actor service.ActivityActor, _ uint, _ dto.AbsenceRequest) (dto.AbsenceResponse, error) {
	s.lastActor = actor
	return s.item, s.err
}

func (s *stubAbsenceService) Delete(_ context.Context, actor service.ActivityActor, _ uint) error {
	s.lastActor = actor
	return s.err
}

func (s *stubAbsenceService) Rate(context.Context, uint) (dto.AbsenceRateResponse, error) {
	return s.rate, s.err
}

func (s *stubAbsenceService) Blacklist(_ context.Context, threshold *float64) (dto.BlacklistResponse, error) {
	s.lastThreshold = threshold
	return s.blacklist, s.err
}

func (s *stubAbsenceService) ExportBlacklist(_ context.Context, threshold *float64) ([]byte, error) {
	s.lastThreshold = threshold
	return s.workbook, s.err
}

func (s *stubAbsenceService) Import(_ context.Context, actor service.ActivityActor, file *multipart.FileHeader) (dto.ImportResult, error) {
	s.lastActor = actor
	s.lastFilename = file.Filename
	return s.importResult, s.err
}

func (s *stubAbsenceService) ImportReader(_ context.Context, actor service.ActivityActor, _ io.Reader) (dto.ImportResult, error) {
	s.lastActor = actor
	return s.importResult, s.err
}

type stubStudentService struct {
	items      []dto.StudentResponse
	item       dto.StudentResponse
	err        error
	lastSearch string
	searched   bool
	lastID     uint
}

func (s *stubStudentService) List(context.Context) ([]dto.StudentResponse, error) {
	return s.items, s.err
}

func (s *stubStudentService) Search(_ context.Context, lastName string) ([]dto.StudentResponse, error) {
	s.searched = true
	s.lastSearch = lastName
	return s.items, s.err
}

func (s *stubStudentService) Get(_ context.Context, id uint) (dto.StudentResponse, error) {
	s.lastID = id
	return s.item, s.err
}

func (s *stubStudentService) Create(context.Context, service.ActivityActor, dto.StudentRequest) (dto.StudentResponse, error) {
	return s.item, s.err
}

func (s *stubStudentService) Update(_ context.Context, _ service.ActivityActor, id uint, _ dto.StudentRequest) (dto.StudentResponse, error) {
	s.lastID = id
	return s.item, s.err
}

func (s *stubStudentService) Delete(_ context.Context, _ service.ActivityActor, id uint) error {
	s.lastID = id
	return s.err
}

type stubDashboardService struct {
	stats dto.DashboardStatsResponse
	err   error
}

func (s stubDashboardService) Invalidate(context.Context) error { return nil }

func (s stubDashboardService) Stats(context.Context) (dto.DashboardStatsResponse, error) {
	return s.stats, s.err
}

type stubActivityService struct {
	response dto.ActivityListResponse
	lastReq  dto.ActivityListRequest
}

func (s *stubActivityService) Record(_ context.Context, entry service.ActivityEntry) (dto.ActivityResponse, error) {
	return dto.ActivityResponse{Action: entry.Action}, nil
}

func (s *stubActivityService) List(_ context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	s.lastReq = req
	return s.response, nil
}

func (s *stubActivityService) Purge(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}
