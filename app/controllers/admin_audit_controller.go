package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/auditlog"
	"github.com/autoarte/AutoArte/internal/pkg/sweeper"
)

// AuditQuerier lists audit entries and sweep runs.
type AuditQuerier interface {
	Query(ctx context.Context, f auditlog.Filter) (*auditlog.Page, error)
	SweepRuns(ctx context.Context, limit int) ([]models.SweepRun, error)
}

// SweepTrigger runs one expiration sweep on demand.
type SweepTrigger interface {
	TriggerSweep(ctx context.Context) error
}

// AdminAuditController serves the operator-facing audit and sweep API.
type AdminAuditController struct {
	audit AuditQuerier
	sweep SweepTrigger
}

func NewAdminAuditController(audit AuditQuerier, sweep SweepTrigger) *AdminAuditController {
	return &AdminAuditController{audit: audit, sweep: sweep}
}

// HandleListAuditEntries godoc
//
//	@Summary	List webhook processing outcomes
//	@Tags		admin
//	@Produce	json
//	@Param		source			query	string	false	"hotmart or doppus"
//	@Param		event_type		query	string	false	"canonical event type"
//	@Param		status			query	string	false	"processing outcome"
//	@Param		user_email		query	string	false	"substring match"
//	@Param		transaction_id	query	string	false	"exact match"
//	@Param		page			query	int		false	"page number"
//	@Param		per_page		query	int		false	"page size"
//	@Success	200	{object}	auditlog.Page
//	@Router		/api/v1/admin/audit [get]
func (ac *AdminAuditController) HandleListAuditEntries(c *fiber.Ctx) error {
	page, err := ac.audit.Query(c.UserContext(), auditlog.Filter{
		Source:        c.Query("source"),
		EventType:     c.Query("event_type"),
		Status:        c.Query("status"),
		UserEmail:     c.Query("user_email"),
		TransactionID: c.Query("transaction_id"),
		Page:          c.QueryInt("page", 1),
		PerPage:       c.QueryInt("per_page", 0),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "audit_query_failed"})
	}
	return c.JSON(page)
}

// HandleListSweepRuns godoc
//
//	@Summary	List recent expiration sweep runs
//	@Tags		admin
//	@Produce	json
//	@Success	200	{array}	models.SweepRun
//	@Router		/api/v1/admin/sweep-runs [get]
func (ac *AdminAuditController) HandleListSweepRuns(c *fiber.Ctx) error {
	runs, err := ac.audit.SweepRuns(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep_run_query_failed"})
	}
	return c.JSON(fiber.Map{"runs": runs})
}

// HandleTriggerSweep godoc
//
//	@Summary	Run one expiration sweep immediately
//	@Tags		admin
//	@Produce	json
//	@Success	202
//	@Failure	409
//	@Router		/api/v1/admin/sweep [post]
func (ac *AdminAuditController) HandleTriggerSweep(c *fiber.Ctx) error {
	if err := ac.sweep.TriggerSweep(c.UserContext()); err != nil {
		if errors.Is(err, sweeper.ErrAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "sweep_already_running"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep_failed"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
}
