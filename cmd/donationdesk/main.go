package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/DonationDesk/app/repository"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/accounting"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/cache"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/database"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/donation"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/jobqueue"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/notify"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/router"
)

func main() {
	app, manager := NewApplication()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("[Main] shutting down")
		manager.Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repos := repository.NewRepositories(database.GetDB())

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()

	webhookCounter := counter.NewWebhookCounter(cache.GetClient())

	service := donation.NewService(repos, accounting.NewClientFromEnv(), notify.NewQueuedNotifier(queue), donation.Config{
		Endpoint:      env.GetEnv("WEBHOOK_ENDPOINT", donation.EndpointDonation),
		PublicBaseURL: env.GetEnv("PUBLIC_BASE_URL", ""),
		Outcomes:      webhookCounter,
	})

	queue.RegisterHandler(jobqueue.JobTypeOperatorNotification, notify.JobHandler(notify.NewMailNotifierFromEnv()))
	queue.RegisterHandler(jobqueue.JobTypeDonationInvoice, service.InvoiceJobHandler())
	manager.Start()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	if password := env.GetEnv("METRICS_PASSWORD", ""); password != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				env.GetEnv("METRICS_USER", "admin"): password,
			},
		}), monitor.New())
	}

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath() + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Service:        service,
		Queue:          queue,
		QueueStats:     queue,
		WebhookStats:   webhookCounter,
		Repositories:   repos,
		LimiterStorage: cache.NewFiberStorage(),
	})

	return app, manager
}

// basePath finds the project root from the usual working directories.
func basePath() string {
	for _, path := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); err == nil {
			return path
		}
	}
	return "./"
}
