package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/autoarte/AutoArte/app/controllers"
)

type WebhookRouter struct {
	webhooks *controllers.WebhookController
}

func NewWebhookRouter(deps Deps) *WebhookRouter {
	return &WebhookRouter{webhooks: deps.Webhooks}
}

// InstallRouter mounts the provider endpoints. No rate limiter here: the
// providers burst on redelivery and throttling them only delays convergence.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	grp := app.Group("/webhooks")
	grp.Post("/hotmart", h.webhooks.HandleHotmartWebhook)
	grp.Post("/doppus", h.webhooks.HandleDoppusWebhook)
}
