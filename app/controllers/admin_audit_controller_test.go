package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/auditlog"
	"github.com/autoarte/AutoArte/internal/pkg/middleware"
	"github.com/autoarte/AutoArte/internal/pkg/sweeper"
)

const adminTestKey = "admin-test-key-0123456789"

type stubAuditQuerier struct {
	lastFilter auditlog.Filter
	page       *auditlog.Page
	runs       []models.SweepRun
}

func (s *stubAuditQuerier) Query(ctx context.Context, f auditlog.Filter) (*auditlog.Page, error) {
	s.lastFilter = f
	return s.page, nil
}

func (s *stubAuditQuerier) SweepRuns(ctx context.Context, limit int) ([]models.SweepRun, error) {
	return s.runs, nil
}

type stubSweepTrigger struct {
	calls int
	err   error
}

func (s *stubSweepTrigger) TriggerSweep(ctx context.Context) error {
	s.calls++
	return s.err
}

func adminTestApp(querier *stubAuditQuerier, trigger *stubSweepTrigger) *fiber.App {
	ac := NewAdminAuditController(querier, trigger)
	app := fiber.New()
	admin := app.Group("/api/v1/admin", middleware.AdminAPIKey(adminTestKey))
	admin.Get("/audit", ac.HandleListAuditEntries)
	admin.Get("/sweep-runs", ac.HandleListSweepRuns)
	admin.Post("/sweep", ac.HandleTriggerSweep)
	return app
}

func TestAdminAuditRequiresAPIKey(t *testing.T) {
	app := adminTestApp(&stubAuditQuerier{}, &stubSweepTrigger{})

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/admin/audit", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("X-API-Key", "wrong-key")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAuditListPassesFilters(t *testing.T) {
	querier := &stubAuditQuerier{page: &auditlog.Page{Page: 2, PerPage: 10}}
	app := adminTestApp(querier, &stubSweepTrigger{})

	req, _ := http.NewRequest(http.MethodGet,
		"/api/v1/admin/audit?source=hotmart&status=duplicate&user_email=buyer&page=2&per_page=10", nil)
	req.Header.Set("X-API-Key", adminTestKey)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "hotmart", querier.lastFilter.Source)
	assert.Equal(t, "duplicate", querier.lastFilter.Status)
	assert.Equal(t, "buyer", querier.lastFilter.UserEmail)
	assert.Equal(t, 2, querier.lastFilter.Page)
	assert.Equal(t, 10, querier.lastFilter.PerPage)
}

func TestAdminAuditAcceptsBearerToken(t *testing.T) {
	querier := &stubAuditQuerier{page: &auditlog.Page{}}
	app := adminTestApp(querier, &stubSweepTrigger{})

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/admin/audit", nil)
	req.Header.Set("Authorization", "Bearer "+adminTestKey)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminSweepRuns(t *testing.T) {
	now := time.Now()
	querier := &stubAuditQuerier{runs: []models.SweepRun{{ID: 1, StartedAt: now, UsersDowngraded: 2}}}
	app := adminTestApp(querier, &stubSweepTrigger{})

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/admin/sweep-runs", nil)
	req.Header.Set("X-API-Key", adminTestKey)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminTriggerSweep(t *testing.T) {
	trigger := &stubSweepTrigger{}
	app := adminTestApp(&stubAuditQuerier{}, trigger)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/admin/sweep", nil)
	req.Header.Set("X-API-Key", adminTestKey)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, trigger.calls)
}

func TestAdminTriggerSweepConflictWhenRunning(t *testing.T) {
	trigger := &stubSweepTrigger{err: sweeper.ErrAlreadyRunning}
	app := adminTestApp(&stubAuditQuerier{}, trigger)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/admin/sweep", nil)
	req.Header.Set("X-API-Key", adminTestKey)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
