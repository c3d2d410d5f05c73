package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/DonationDesk/app/controllers"
	"github.com/ManuelReschke/DonationDesk/app/repository"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	Service      controllers.DonationService
	Queue        controllers.JobEnqueuer
	QueueStats   controllers.QueueStats
	WebhookStats controllers.WebhookStats
	Repositories *repository.Repositories
	// OperatorAuth guards operator routes.
	OperatorAuth fiber.Handler
	// LimiterStorage backs the donation form rate limit; nil keeps it in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHealthRouter(), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

type HealthRouter struct{}

func (h HealthRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", controllers.HandleHealth)
}

func NewHealthRouter() *HealthRouter {
	return &HealthRouter{}
}
