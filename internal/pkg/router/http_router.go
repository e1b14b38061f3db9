package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/app/controllers"
)

// HttpRouter wires the webhook ingestion endpoint and the health probe.
// Fiber answers non-POST calls on the webhook path with 405 on its own.
type HttpRouter struct {
	webhook *controllers.WebhookController
	health  *controllers.HealthController
}

func NewHttpRouter(webhook *controllers.WebhookController, health *controllers.HealthController) *HttpRouter {
	return &HttpRouter{webhook: webhook, health: health}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	app.Post("/webhook/paypal", h.webhook.HandlePayPalWebhook)
	app.Get("/healthz", h.health.HandleHealth)
}
