package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/autoarte/AutoArte/app/controllers"
	"github.com/autoarte/AutoArte/internal/pkg/config"
)

// Router installs one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps carries the wired controllers the routers mount.
type Deps struct {
	Webhooks *controllers.WebhookController
	Admin    *controllers.AdminAuditController
	Config   *config.Config
}

func InstallRouter(app *fiber.App, deps Deps) {
	setup(app, NewWebhookRouter(deps), NewAdminRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
