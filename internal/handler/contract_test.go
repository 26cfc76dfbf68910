package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scolarite-api/internal/calculator"
	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/handler"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)
	return schema
}

func validateAgainst(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestDashboardStatsContract(t *testing.T) {
	schema := compileSchema(t, "dashboard_stats.schema.json")

	stats := dto.DashboardStatsResponse{
		TotalStudents:      3,
		PassingStudents:    1,
		PassRate:           1.0 / 3,
		OverallAverage:     floatPtr(40.0 / 3),
		BestAverage:        floatPtr(15),
		TotalAbsences:      2,
		AverageAbsenceRate: 0.35,
		Threshold:          0.5,
		Blacklisted:        1,
		Severities:         dto.SeverityBreakdown{High: 1},
		GeneratedAt:        time.Now().UTC(),
	}

	app := fiber.New()
	handler.NewDashboardHandler(stubDashboardService{stats: stats}, zerolog.Nop()).Register(app.Group("/api/dashboard"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateAgainst(t, schema, resp)
}

func TestDashboardStatsContractWithoutGrades(t *testing.T) {
	schema := compileSchema(t, "dashboard_stats.schema.json")

	app := fiber.New()
	handler.NewDashboardHandler(stubDashboardService{stats: dto.DashboardStatsResponse{Threshold: 0.5, GeneratedAt: time.Now().UTC()}}, zerolog.Nop()).
		Register(app.Group("/api/dashboard"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateAgainst(t, schema, resp)
}

func TestBlacklistContract(t *testing.T) {
	schema := compileSchema(t, "blacklist.schema.json")

	svc := &stubAbsenceService{blacklist: dto.BlacklistResponse{
		Threshold: 0.5,
		Total:     2,
		Items: []dto.AbsenceResponse{
			{ID: 2, LastName: "Martin", FirstName: "Sophie", CNE: "CNE002", Level: "L3", HoursAbsent: 85, HoursTotal: 100, Rate: 0.85, RatePercent: 85, Severity: calculator.SeverityCritical},
			{ID: 5, LastName: "Moreau", FirstName: "Claire", CNE: "CNE005", Level: "M1", HoursAbsent: 55, HoursTotal: 100, Rate: 0.55, RatePercent: 55, Severity: calculator.SeverityMedium},
		},
	}}

	resp, err := newAbsenceApp(svc).Test(httptest.NewRequest(http.MethodGet, "/absence/api/absences/liste-noire", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateAgainst(t, schema, resp)
}
