package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/DonationDesk/app/controllers"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	deps := h.deps
	webhooks := controllers.NewWebhookController(deps.Service)
	donations := controllers.NewDonationController(deps.Service, deps.Queue)
	donors := controllers.NewDonorController(deps.Service)
	admin := controllers.NewAdminController(deps.Repositories, deps.QueueStats, deps.WebhookStats)

	operatorAuth := deps.OperatorAuth
	if operatorAuth == nil {
		operatorAuth = middleware.OperatorAPIKeyMiddlewareFromEnv()
	}

	operatorOnly := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{middleware.UserContextMiddleware, operatorAuth, middleware.RequireOperator, h}
	}

	v1 := app.Group("/api/v1")

	// gateway deliveries are not rate limited, redeliveries must get through
	v1.Post("/webhooks/donation", webhooks.HandleDonationWebhook)

	formLimit := limiter.New(limiter.Config{
		Max:        env.GetEnvInt("DONATION_FORM_RATE_LIMIT", 10),
		Expiration: time.Minute,
		Storage:    deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many donation submissions, try again in a minute",
			})
		},
	})
	v1.Post("/donations", formLimit, middleware.UserContextMiddleware, donations.HandleCreateDonation)

	v1.Post("/donations/:id/payment-status", operatorOnly(donations.HandlePaymentStatus)...)
	v1.Post("/donations/:id/invoice", operatorOnly(donations.HandleGenerateInvoice)...)
	v1.Post("/donors/:id/customer", operatorOnly(donors.HandleLinkCustomer)...)
	v1.Get("/admin/error-logs/:id", operatorOnly(admin.HandleGetErrorLog)...)
	v1.Get("/admin/queues", operatorOnly(admin.HandleQueueStats)...)
	v1.Get("/admin/webhook-stats", operatorOnly(admin.HandleWebhookStats)...)
	v1.Get("/admin/settings", operatorOnly(admin.HandleGetSettings)...)
	v1.Put("/admin/settings", operatorOnly(admin.HandleUpdateSettings)...)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
