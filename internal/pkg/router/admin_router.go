package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/autoarte/AutoArte/app/controllers"
	"github.com/autoarte/AutoArte/internal/pkg/middleware"
)

type AdminRouter struct {
	admin  *controllers.AdminAuditController
	apiKey string
}

func NewAdminRouter(deps Deps) *AdminRouter {
	return &AdminRouter{admin: deps.Admin, apiKey: deps.Config.Admin.APIKey}
}

func (h AdminRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	v1 := api.Group("/v1")

	admin := v1.Group("/admin", middleware.AdminAPIKey(h.apiKey))
	admin.Get("/audit", h.admin.HandleListAuditEntries)
	admin.Get("/sweep-runs", h.admin.HandleListSweepRuns)
	admin.Post("/sweep", h.admin.HandleTriggerSweep)
}
